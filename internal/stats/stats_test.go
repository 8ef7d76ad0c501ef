package stats

import (
	"testing"

	"calorie-tracker/internal/food"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2024-03-10 is a Sunday.
var today = civil.Date{Year: 2024, Month: 3, Day: 10}

func entry(id int64, cal, qty float64, date civil.Date, meal food.MealType) food.Entry {
	return food.Entry{ID: id, Name: "item", Calories: cal, Quantity: qty, Date: date, Meal: meal}
}

func TestComputeExample(t *testing.T) {
	entries := []food.Entry{
		entry(1, 95, 1, today, food.Breakfast),
		entry(2, 165, 2, today, food.Lunch),
	}

	s := Compute(entries, 2000, today)

	assert.Equal(t, 425.0, s.TodayTotal)
	assert.Equal(t, 1575.0, s.Remaining)
	assert.Equal(t, 21, s.Percentage)
	assert.Equal(t, 0.0, s.Exceeded)
	require.Len(t, s.Meals, 4)
	assert.Equal(t, MealTotal{Meal: food.Breakfast, Calories: 95, Count: 1}, s.Meals[0])
	assert.Equal(t, MealTotal{Meal: food.Lunch, Calories: 330, Count: 1}, s.Meals[1])
	assert.Equal(t, MealTotal{Meal: food.Dinner}, s.Meals[2])
	assert.Equal(t, MealTotal{Meal: food.Snack}, s.Meals[3])
}

func TestWeeklySeries(t *testing.T) {
	t.Run("EmptyLedgerHasSevenZeroPoints", func(t *testing.T) {
		series := WeeklySeries(nil, 1800, today)
		require.Len(t, series, WeekLength)
		for _, p := range series {
			assert.Equal(t, 0.0, p.Total)
			assert.Equal(t, 1800, p.Goal)
		}
		assert.Equal(t, 0.0, WeeklyAverage(series))
	})

	t.Run("OldestFirstWithLabels", func(t *testing.T) {
		series := WeeklySeries(nil, 2000, today)
		assert.Equal(t, civil.Date{Year: 2024, Month: 3, Day: 4}, series[0].Date)
		assert.Equal(t, "Mon", series[0].Label)
		assert.Equal(t, today, series[6].Date)
		assert.Equal(t, "Sun", series[6].Label)
	})

	t.Run("AverageDividesBySeven", func(t *testing.T) {
		entries := []food.Entry{
			entry(1, 700, 1, today, food.Dinner),
			entry(2, 350, 2, today.AddDays(-3), food.Lunch),
			entry(3, 1000, 1, today.AddDays(-7), food.Lunch), // outside the window
		}
		series := WeeklySeries(entries, 2000, today)
		require.Len(t, series, WeekLength)
		assert.Equal(t, 700.0, series[3].Total)
		assert.Equal(t, 700.0, series[6].Total)

		var sum float64
		for _, p := range series {
			sum += p.Total
		}
		assert.Equal(t, 1400.0, sum)
		assert.InDelta(t, sum/7, WeeklyAverage(series), 1e-9)
	})

	t.Run("CrossesMonthBoundary", func(t *testing.T) {
		first := civil.Date{Year: 2024, Month: 3, Day: 1}
		series := WeeklySeries(nil, 2000, first)
		assert.Equal(t, civil.Date{Year: 2024, Month: 2, Day: 24}, series[0].Date)
	})
}

func TestRemainingNeverNegative(t *testing.T) {
	assert.Equal(t, 500.0, Remaining(2000, 1500))
	assert.Equal(t, 0.0, Remaining(2000, 2000))
	assert.Equal(t, 0.0, Remaining(2000, 3500))
}

func TestPercentage(t *testing.T) {
	t.Run("Rounded", func(t *testing.T) {
		assert.Equal(t, 21, Percentage(425, 2000))
		assert.Equal(t, 50, Percentage(999.9, 2000))
	})

	t.Run("ClampedAtHundred", func(t *testing.T) {
		assert.Equal(t, 100, Percentage(2000, 2000))
		assert.Equal(t, 100, Percentage(5000, 2000))
	})

	t.Run("ZeroGoalIsZeroPercent", func(t *testing.T) {
		assert.Equal(t, 0, Percentage(400, 0))
		assert.Equal(t, 0, Percentage(400, -5))
	})

	t.Run("NothingEaten", func(t *testing.T) {
		assert.Equal(t, 0, Percentage(0, 2000))
	})
}

func TestExceeded(t *testing.T) {
	s := Compute([]food.Entry{entry(1, 2500, 1, today, food.Dinner)}, 2000, today)
	assert.Equal(t, 500.0, s.Exceeded)
	assert.Equal(t, 0.0, s.Remaining)
	assert.Equal(t, 100, s.Percentage)
}

func TestDeletingEntryOnlyAffectsItsOwnContribution(t *testing.T) {
	entries := []food.Entry{
		entry(1, 100, 1, today, food.Breakfast),
		entry(2, 200, 1, today, food.Lunch),
		entry(3, 300, 1, today.AddDays(-1), food.Dinner),
	}
	before := Compute(entries, 2000, today)

	remaining := []food.Entry{entries[0], entries[2]}
	after := Compute(remaining, 2000, today)

	assert.Equal(t, before.TodayTotal-200, after.TodayTotal)
	assert.Equal(t, before.WeeklySeries[5].Total, after.WeeklySeries[5].Total)
	assert.Equal(t, 0, after.Meals[1].Count)
	assert.Equal(t, before.Meals[0], after.Meals[0])
}

func TestMacrosFor(t *testing.T) {
	e := entry(1, 200, 2, today, food.Lunch)
	e.Protein, e.Carbs, e.Fats = 10, 20, 5
	other := entry(2, 100, 1, today.AddDays(-1), food.Lunch)
	other.Protein = 99

	m := MacrosFor([]food.Entry{e, other}, today)
	assert.Equal(t, Macros{Protein: 20, Carbs: 40, Fats: 10}, m)
}
