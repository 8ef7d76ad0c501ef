// Package report renders tracker state for the terminal.
package report

import (
	"fmt"
	"math"
	"strings"

	"calorie-tracker/internal/food"
	"calorie-tracker/internal/metrics"
	"calorie-tracker/internal/recognition"
	"calorie-tracker/internal/stats"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/lipgloss"
)

const (
	barWidth        = 30
	sparklineWidth  = 21
	sparklineHeight = 4
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("42")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	overStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	sparklineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 2)
)

// Round rounds calories for display, clamped to the int32 range.
func Round(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int(math.Round(v))
}

// GoalStatus is the one-line progress message under the progress bar. It
// compares the raw total, so 1990 of 2000 still has calories remaining even
// though the percentage rounds to 100.
func GoalStatus(s stats.DerivedStats) string {
	if s.Goal > 0 && s.TodayTotal >= float64(s.Goal) {
		return fmt.Sprintf("You've exceeded your daily goal by %d calories", Round(s.TodayTotal)-s.Goal)
	}
	return fmt.Sprintf("%d calories remaining for today", Round(s.Remaining))
}

func badge(percentage int) string {
	switch {
	case percentage >= 100:
		return overStyle.Render(fmt.Sprintf("%d%%", percentage))
	case percentage >= 80:
		return warnStyle.Render(fmt.Sprintf("%d%%", percentage))
	default:
		return okStyle.Render(fmt.Sprintf("%d%%", percentage))
	}
}

func progressBar(percentage int) string {
	filled := barWidth * percentage / 100
	return okStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", barWidth-filled))
}

// Dashboard renders today's summary, meal breakdown and macros.
func Dashboard(s stats.DerivedStats) string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(" Calorie Tracker ") + "  " + dimStyle.Render(s.Today.String()) + "\n\n")

	b.WriteString(labelStyle.Render("Today:     ") + valueStyle.Render(fmt.Sprintf("%d", Round(s.TodayTotal))) + dimStyle.Render(" cal") + "\n")
	b.WriteString(labelStyle.Render("Goal:      ") + valueStyle.Render(fmt.Sprintf("%d", s.Goal)) + dimStyle.Render(" cal") + "\n")
	b.WriteString(labelStyle.Render("Remaining: ") + valueStyle.Render(fmt.Sprintf("%d", Round(s.Remaining))) + dimStyle.Render(" cal") + "\n")
	b.WriteString(labelStyle.Render("Weekly avg:") + " " + valueStyle.Render(fmt.Sprintf("%d", Round(s.WeeklyAverage))) + dimStyle.Render(" cal") + "\n\n")

	b.WriteString(fmt.Sprintf("Progress: %d / %d calories  %s\n", Round(s.TodayTotal), s.Goal, badge(s.Percentage)))
	b.WriteString(progressBar(s.Percentage) + "\n")
	b.WriteString(dimStyle.Render(GoalStatus(s)) + "\n")

	b.WriteString(sectionStyle.Render("┃ Meals") + "\n")
	for _, m := range s.Meals {
		b.WriteString(fmt.Sprintf("  %-10s %6d cal  %s\n", m.Meal.Title(), Round(m.Calories), dimStyle.Render(itemCount(m.Count))))
	}

	if macros := s.TodayMacros; macros != (stats.Macros{}) {
		b.WriteString(sectionStyle.Render("┃ Macros") + "\n")
		b.WriteString(fmt.Sprintf("  Protein %s g  Carbs %s g  Fats %s g\n",
			formatAmount(macros.Protein), formatAmount(macros.Carbs), formatAmount(macros.Fats)))
	}

	return containerStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func itemCount(n int) string {
	if n == 1 {
		return "1 item"
	}
	return fmt.Sprintf("%d items", n)
}

// Week renders the trailing seven days with a sparkline of daily totals.
func Week(s stats.DerivedStats) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(" Last 7 days ") + "\n\n")
	b.WriteString(sparklineStyle.Render(weekSparkline(s.WeeklySeries)) + "\n\n")

	for _, p := range s.WeeklySeries {
		marker := okStyle.Render("✓")
		if p.Goal > 0 && p.Total > float64(p.Goal) {
			marker = overStyle.Render("✗")
		}
		b.WriteString(fmt.Sprintf("  %s %s  %6d / %d %s\n", p.Label, dimStyle.Render(p.Date.String()), Round(p.Total), p.Goal, marker))
	}
	b.WriteString("\n" + labelStyle.Render("Weekly average: ") + valueStyle.Render(fmt.Sprintf("%d", Round(s.WeeklyAverage))) + dimStyle.Render(" cal/day"))
	return containerStyle.Render(b.String())
}

func weekSparkline(series []stats.DayPoint) string {
	spark := sparkline.New(sparklineWidth, sparklineHeight)
	// Three columns per day keeps the chart readable at this width.
	for _, p := range series {
		for range sparklineWidth / stats.WeekLength {
			spark.Push(p.Total)
		}
	}
	spark.Draw()
	return spark.View()
}

// Entries renders a ledger listing.
func Entries(title string, entries []food.Entry) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(" "+title+" ") + "\n\n")
	if len(entries) == 0 {
		b.WriteString(dimStyle.Render("No foods logged yet."))
		return b.String()
	}

	var total float64
	for _, e := range entries {
		total += e.CaloriesContributed()
		b.WriteString(fmt.Sprintf("  %s  %-24s %s  %s  %s\n",
			dimStyle.Render(fmt.Sprintf("#%d", e.ID)),
			e.Name,
			valueStyle.Render(fmt.Sprintf("%6d cal", Round(e.CaloriesContributed()))),
			labelStyle.Render(fmt.Sprintf("%s x %s", formatAmount(e.Calories), formatAmount(e.Quantity))),
			dimStyle.Render(fmt.Sprintf("%s %s", e.Meal.Title(), e.Date)),
		))
	}
	b.WriteString("\n" + labelStyle.Render("Total: ") + valueStyle.Render(fmt.Sprintf("%d cal", Round(total))))
	return b.String()
}

// CommonFoods lists the built-in catalogue.
func CommonFoods(list []food.CommonFood) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(" Common foods ") + "\n\n")
	for _, c := range list {
		b.WriteString(fmt.Sprintf("  %-22s %s\n", c.Name, valueStyle.Render(fmt.Sprintf("%d cal", Round(c.Calories)))))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Detected lists items found in a photo.
func Detected(items []recognition.DetectedItem) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(" Detected food items ") + "\n\n")
	if len(items) == 0 {
		b.WriteString(dimStyle.Render("No food items were detected."))
		return b.String()
	}
	for i, it := range items {
		b.WriteString(fmt.Sprintf("  %d. %-24s %s\n", i+1, it.Name, valueStyle.Render(fmt.Sprintf("%d cal", Round(it.TotalCalories)))))
		b.WriteString(dimStyle.Render(fmt.Sprintf("     P %sg  C %sg  F %sg", formatAmount(it.Protein), formatAmount(it.Carbs), formatAmount(it.Fats))) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Usage renders persisted external-call metrics.
func Usage(rows []metrics.DailyUsage) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(" External API usage ") + "\n\n")
	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("No calls recorded."))
		return b.String()
	}
	b.WriteString(labelStyle.Render(fmt.Sprintf("  %-10s %-8s %6s %6s %9s %11s %8s", "Date", "Service", "Calls", "Errors", "Prompt", "Completion", "Avg ms")) + "\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  %-10s %-8s %6d %6d %9d %11d %8d\n",
			r.Date, r.Service, r.TotalCalls, r.Errors, r.TotalPrompt, r.TotalCompletion, r.AvgLatencyMS))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatAmount(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}
