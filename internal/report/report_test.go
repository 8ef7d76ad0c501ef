package report

import (
	"math"
	"strings"
	"testing"

	"calorie-tracker/internal/food"
	"calorie-tracker/internal/metrics"
	"calorie-tracker/internal/recognition"
	"calorie-tracker/internal/stats"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
)

var today = civil.Date{Year: 2024, Month: 3, Day: 10}

func sampleEntries() []food.Entry {
	return []food.Entry{
		{ID: 1, Name: "Apple", Calories: 95, Quantity: 1, Meal: food.Snack, Date: today},
		{ID: 2, Name: "Chicken Breast (100g)", Calories: 165, Quantity: 2, Meal: food.Lunch, Date: today, Protein: 62},
		{ID: 3, Name: "Pasta (1 cup)", Calories: 220, Quantity: 1, Meal: food.Dinner, Date: today.AddDays(-1)},
	}
}

func TestGoalStatus(t *testing.T) {
	t.Run("remaining", func(t *testing.T) {
		s := stats.Compute(sampleEntries(), 2000, today)
		assert.Equal(t, "1575 calories remaining for today", GoalStatus(s))
	})

	t.Run("exceeded", func(t *testing.T) {
		s := stats.Compute(sampleEntries(), 300, today)
		assert.Equal(t, "You've exceeded your daily goal by 125 calories", GoalStatus(s))
	})

	t.Run("exactly at goal", func(t *testing.T) {
		s := stats.Compute(sampleEntries(), 425, today)
		assert.Equal(t, "You've exceeded your daily goal by 0 calories", GoalStatus(s))
	})

	t.Run("percentage rounds up to 100 below goal", func(t *testing.T) {
		entries := []food.Entry{{ID: 1, Name: "Feast", Calories: 1990, Quantity: 1, Meal: food.Dinner, Date: today}}
		s := stats.Compute(entries, 2000, today)
		assert.Equal(t, 100, s.Percentage)
		assert.Equal(t, "10 calories remaining for today", GoalStatus(s))
	})
}

func TestRound(t *testing.T) {
	assert.Equal(t, 425, Round(424.5))
	assert.Equal(t, -3, Round(-2.6))
	assert.Equal(t, 0, Round(math.NaN()))
	assert.Equal(t, math.MaxInt32, Round(math.Inf(1)))
	assert.Equal(t, math.MinInt32, Round(math.Inf(-1)))
	assert.Equal(t, math.MaxInt32, Round(1e300))
}

func TestDashboard(t *testing.T) {
	out := Dashboard(stats.Compute(sampleEntries(), 2000, today))

	assert.Contains(t, out, "Calorie Tracker")
	assert.Contains(t, out, "Progress: 425 / 2000 calories")
	assert.Contains(t, out, "21%")
	assert.Contains(t, out, "1575 calories remaining for today")
	for _, meal := range []string{"Breakfast", "Lunch", "Dinner", "Snack"} {
		assert.Contains(t, out, meal)
	}
	assert.Contains(t, out, "Protein 124 g")
}

func TestWeek(t *testing.T) {
	s := stats.Compute(sampleEntries(), 2000, today)
	out := Week(s)

	for _, p := range s.WeeklySeries {
		assert.Contains(t, out, p.Label)
		assert.Contains(t, out, p.Date.String())
	}
	assert.Contains(t, out, "Weekly average: 92")
}

func TestEntries(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Contains(t, Entries("Today", nil), "No foods logged yet.")
	})

	t.Run("lists contributions", func(t *testing.T) {
		out := Entries("All foods", sampleEntries())
		assert.Contains(t, out, "#2")
		assert.Contains(t, out, "330 cal")
		assert.Contains(t, out, "165 x 2")
		assert.Contains(t, out, "Total: 645 cal")
	})
}

func TestCommonFoods(t *testing.T) {
	out := CommonFoods(food.CommonFoods())
	assert.Contains(t, out, "Oatmeal (1 cup)")
	assert.Equal(t, len(food.CommonFoods()), strings.Count(out, " cal"))
}

func TestDetected(t *testing.T) {
	assert.Contains(t, Detected(nil), "No food items were detected.")

	out := Detected([]recognition.DetectedItem{{Name: "Rice", TotalCalories: 204.6, Protein: 4.3, Carbs: 45}})
	assert.Contains(t, out, "1. Rice")
	assert.Contains(t, out, "205 cal")
	assert.Contains(t, out, "P 4.3g")
}

func TestUsage(t *testing.T) {
	assert.Contains(t, Usage(nil), "No calls recorded.")

	out := Usage([]metrics.DailyUsage{{Date: "2024-03-10", Service: "groq", TotalCalls: 3, Errors: 1, TotalPrompt: 900, TotalCompletion: 120, AvgLatencyMS: 850}})
	assert.Contains(t, out, "2024-03-10")
	assert.Contains(t, out, "groq")
	assert.Contains(t, out, "900")
}
