// Package stats derives the dashboard figures from the food ledger.
//
// Everything here is a pure function of (entries, goal, today). Nothing is cached:
// callers recompute on every change.
package stats

import (
	"math"
	"time"

	"calorie-tracker/internal/food"

	"cloud.google.com/go/civil"
)

// WeekLength is the number of days in the trailing series.
const WeekLength = 7

// DayPoint is one day of the trailing weekly series.
type DayPoint struct {
	Date  civil.Date
	Label string
	Total float64
	Goal  int
}

// MealTotal sums today's entries for one meal type.
type MealTotal struct {
	Meal     food.MealType
	Calories float64
	Count    int
}

// Macros holds gram totals.
type Macros struct {
	Protein float64
	Carbs   float64
	Fats    float64
}

// DerivedStats is the full set of figures shown on the dashboard.
type DerivedStats struct {
	Today         civil.Date
	Goal          int
	TodayTotal    float64
	WeeklySeries  []DayPoint
	WeeklyAverage float64
	Remaining     float64
	Exceeded      float64
	Percentage    int
	Meals         []MealTotal
	TodayMacros   Macros
}

// Compute derives every statistic in one call.
func Compute(entries []food.Entry, goal int, today civil.Date) DerivedStats {
	todayTotal := TodayTotal(entries, today)
	series := WeeklySeries(entries, goal, today)
	return DerivedStats{
		Today:         today,
		Goal:          goal,
		TodayTotal:    todayTotal,
		WeeklySeries:  series,
		WeeklyAverage: WeeklyAverage(series),
		Remaining:     Remaining(goal, todayTotal),
		Exceeded:      math.Max(0, todayTotal-float64(goal)),
		Percentage:    Percentage(todayTotal, goal),
		Meals:         MealBreakdown(entries, today),
		TodayMacros:   MacrosFor(entries, today),
	}
}

// TotalFor sums calories contributed by entries logged on date.
func TotalFor(entries []food.Entry, date civil.Date) float64 {
	var total float64
	for _, e := range entries {
		if e.Date == date {
			total += e.CaloriesContributed()
		}
	}
	return total
}

// TodayTotal is TotalFor the current day.
func TodayTotal(entries []food.Entry, today civil.Date) float64 {
	return TotalFor(entries, today)
}

// WeeklySeries returns exactly seven points, oldest first, ending today.
// Days without entries contribute a zero point.
func WeeklySeries(entries []food.Entry, goal int, today civil.Date) []DayPoint {
	series := make([]DayPoint, 0, WeekLength)
	for offset := WeekLength - 1; offset >= 0; offset-- {
		date := today.AddDays(-offset)
		series = append(series, DayPoint{
			Date:  date,
			Label: WeekdayLabel(date),
			Total: TotalFor(entries, date),
			Goal:  goal,
		})
	}
	return series
}

// WeekdayLabel returns the short English weekday name, e.g. "Mon".
func WeekdayLabel(d civil.Date) string {
	return d.In(time.UTC).Weekday().String()[:3]
}

// WeeklyAverage always divides by seven.
func WeeklyAverage(series []DayPoint) float64 {
	var sum float64
	for _, p := range series {
		sum += p.Total
	}
	return sum / WeekLength
}

// Remaining is never negative.
func Remaining(goal int, todayTotal float64) float64 {
	return math.Max(0, float64(goal)-todayTotal)
}

// Percentage of the goal consumed, rounded and clamped to [0, 100].
// A non-positive goal yields 0.
func Percentage(todayTotal float64, goal int) int {
	if goal <= 0 || todayTotal <= 0 {
		return 0
	}
	pct := math.Round(100 * todayTotal / float64(goal))
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// MealBreakdown reports today's calories and entry count per meal, in fixed meal order.
func MealBreakdown(entries []food.Entry, today civil.Date) []MealTotal {
	out := make([]MealTotal, len(food.MealTypes))
	for i, m := range food.MealTypes {
		out[i].Meal = m
	}
	for _, e := range entries {
		if e.Date != today {
			continue
		}
		for i := range out {
			if out[i].Meal == e.Meal {
				out[i].Calories += e.CaloriesContributed()
				out[i].Count++
				break
			}
		}
	}
	return out
}

// MacrosFor sums macro grams for entries on date, scaled by quantity.
func MacrosFor(entries []food.Entry, date civil.Date) Macros {
	var m Macros
	for _, e := range entries {
		if e.Date != date {
			continue
		}
		m.Protein += e.Protein * e.Quantity
		m.Carbs += e.Carbs * e.Quantity
		m.Fats += e.Fats * e.Quantity
	}
	return m
}
