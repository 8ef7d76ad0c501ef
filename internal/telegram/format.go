package telegram

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"calorie-tracker/internal/food"
	"calorie-tracker/internal/metrics"
	"calorie-tracker/internal/recognition"
	"calorie-tracker/internal/report"
	"calorie-tracker/internal/stats"

	"cloud.google.com/go/civil"
)

const helpText = "🥗 *Calorie Tracker*\n\n" +
	"/today - today's dashboard\n" +
	"/week - last 7 days\n" +
	"/add name calories [qty] [meal] [YYYY-MM-DD]\n" +
	"/delete id - remove an entry\n" +
	"/history [YYYY-MM-DD] - foods logged on a day\n" +
	"/goal [calories] - show or set the daily goal\n" +
	"/foods - common foods\n" +
	"/usage - API usage and health\n\n" +
	"📷 Send a photo of your meal to detect foods (caption it with a meal like _dinner_).\n" +
	"💬 Any other message goes to the nutrition assistant."

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// escape protects user text inside legacy Markdown messages.
func escape(s string) string {
	return markdownEscaper.Replace(s)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.1f", v)
}

func formatDashboard(s stats.DerivedStats) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 *Today* (%s)\n\n", s.Today))
	sb.WriteString(fmt.Sprintf("*Progress:* %d / %d calories (%d%%)\n", report.Round(s.TodayTotal), s.Goal, s.Percentage))
	sb.WriteString(progressBar(s.Percentage) + "\n")
	sb.WriteString(fmt.Sprintf("_%s_\n\n", report.GoalStatus(s)))

	sb.WriteString(fmt.Sprintf("• Remaining: %d\n", report.Round(s.Remaining)))
	sb.WriteString(fmt.Sprintf("• Weekly average: %d\n\n", report.Round(s.WeeklyAverage)))

	sb.WriteString("🍽 *Meals*\n")
	for _, m := range s.Meals {
		sb.WriteString(fmt.Sprintf("• %s: %d cal (%d)\n", m.Meal.Title(), report.Round(m.Calories), m.Count))
	}

	if s.TodayMacros != (stats.Macros{}) {
		sb.WriteString(fmt.Sprintf("\n💪 Protein %sg · Carbs %sg · Fats %sg\n",
			formatAmount(s.TodayMacros.Protein), formatAmount(s.TodayMacros.Carbs), formatAmount(s.TodayMacros.Fats)))
	}
	return sb.String()
}

func progressBar(percentage int) string {
	const width = 10
	filled := width * percentage / 100
	return strings.Repeat("🟩", filled) + strings.Repeat("⬜", width-filled)
}

func formatWeek(s stats.DerivedStats) string {
	var sb strings.Builder
	sb.WriteString("📅 *Last 7 days*\n\n")
	for _, p := range s.WeeklySeries {
		mark := "✅"
		if p.Goal > 0 && p.Total > float64(p.Goal) {
			mark = "⚠️"
		}
		sb.WriteString(fmt.Sprintf("`%s %s` %d / %d %s\n", p.Label, p.Date, report.Round(p.Total), p.Goal, mark))
	}
	sb.WriteString(fmt.Sprintf("\n*Weekly average:* %d cal/day", report.Round(s.WeeklyAverage)))
	return sb.String()
}

func formatEntries(date civil.Date, entries []food.Entry) string {
	if len(entries) == 0 {
		return fmt.Sprintf("📝 No foods logged on %s.", date)
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📝 *Foods on %s*\n\n", date))
	var total float64
	for _, e := range entries {
		total += e.CaloriesContributed()
		sb.WriteString(fmt.Sprintf("`#%d` *%s* - %d cal (%s x %s, %s)\n",
			e.ID, escape(e.Name), report.Round(e.CaloriesContributed()),
			formatAmount(e.Calories), formatAmount(e.Quantity), e.Meal.Title()))
	}
	sb.WriteString(fmt.Sprintf("\n*Total:* %d cal", report.Round(total)))
	return sb.String()
}

func formatAdded(e food.Entry) string {
	return fmt.Sprintf("✅ Added *%s* - %d cal to %s on %s (`#%d`)",
		escape(e.Name), report.Round(e.CaloriesContributed()), e.Meal.Title(), e.Date, e.ID)
}

func formatFoods(list []food.CommonFood) string {
	var sb strings.Builder
	sb.WriteString("🍎 *Common foods*\n\n")
	for _, c := range list {
		sb.WriteString(fmt.Sprintf("• %s - %d cal\n", escape(c.Name), report.Round(c.Calories)))
	}
	sb.WriteString("\nAdd one with `/add <name>`.")
	return sb.String()
}

func formatDetected(items []recognition.DetectedItem) string {
	if len(items) == 0 {
		return "🤷 No food items were detected in this photo."
	}
	var sb strings.Builder
	sb.WriteString("🔍 *Detected food items*\n\n")
	var total float64
	for i, it := range items {
		total += it.TotalCalories
		sb.WriteString(fmt.Sprintf("%d. *%s* - %d cal\n", i+1, escape(it.Name), report.Round(it.TotalCalories)))
		sb.WriteString(fmt.Sprintf("    _P %sg · C %sg · F %sg_\n", formatAmount(it.Protein), formatAmount(it.Carbs), formatAmount(it.Fats)))
	}
	sb.WriteString(fmt.Sprintf("\n*Total:* %d cal", report.Round(total)))
	return sb.String()
}

func formatUsage(usage []metrics.DailyUsage, health metrics.Health) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent API Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s* %s: %d calls, %d errors, %d tokens\n",
			d.Date, d.Service, d.TotalCalls, d.Errors, d.TotalPrompt+d.TotalCompletion))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataSize))
	return sb.String()
}
