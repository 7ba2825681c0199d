package telegram

import (
	"fmt"
	"strings"

	"macro-meal-planner/internal/analysis"
	"macro-meal-planner/internal/config"
	"macro-meal-planner/internal/metrics"
	"macro-meal-planner/internal/planner"
	"macro-meal-planner/internal/shopping"
	"macro-meal-planner/internal/suggestion"
)

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

func formatPlanMarkdownParts(plan *planner.Plan, slots *config.SlotTemplates) (string, string) {
	var pb strings.Builder
	pb.WriteString(fmt.Sprintf("📅 *Meal Plan* (%.0f kcal target)\n\n", plan.DailyCalories))

	for i, s := range suggestion.Build(plan, slots) {
		pb.WriteString(fmt.Sprintf("*%s* (%s): %s\n", escapeMarkdown(s.MealName), s.Time, escapeMarkdown(dishLabel(plan.Meals[i]))))
		pb.WriteString(fmt.Sprintf("%.1f kcal · %.1f g", s.Calories, s.Mass))
		for _, n := range s.Nutrients {
			pb.WriteString(fmt.Sprintf(" · %s %.1f%%", shortNutrient(n.Name), n.Percentage))
		}
		pb.WriteString("\n\n")
	}

	sum := plan.Summary
	pb.WriteString("📊 *Daily Total*\n")
	pb.WriteString(fmt.Sprintf("• Calories: %.1f kcal\n", sum.TotalCalories))
	pb.WriteString(fmt.Sprintf("• Fat: %.1f%% (target %.1f%%)\n", sum.ActualPC.Fat, sum.TargetPC.Fat))
	pb.WriteString(fmt.Sprintf("• Carbs: %.1f%% (target %.1f%%)\n", sum.ActualPC.Carb, sum.TargetPC.Carb))
	pb.WriteString(fmt.Sprintf("• Protein: %.1f%% (target %.1f%%)\n", sum.ActualPC.Protein, sum.TargetPC.Protein))

	var sb strings.Builder
	sb.WriteString("🛒 *Shopping List*\n\n")
	items := shopping.FromPlan(plan)
	if len(items) == 0 {
		sb.WriteString("_No ingredients listed_\n")
	}
	for _, item := range items {
		if item.Count > 1 {
			sb.WriteString(fmt.Sprintf("• %s (x%d)\n", escapeMarkdown(item.Name), item.Count))
			continue
		}
		sb.WriteString(fmt.Sprintf("• %s\n", escapeMarkdown(item.Name)))
	}

	return pb.String(), sb.String()
}

func dishLabel(meal planner.PlannedMeal) string {
	if meal.Dish.Name != "" {
		return meal.Dish.Name
	}
	return meal.Dish.ID
}

func shortNutrient(name string) string {
	if name == "Carbohydrates" {
		return "Carbs"
	}
	return name
}

func formatAnalysisMarkdown(res *analysis.Result) string {
	var sb strings.Builder
	sb.WriteString("🍽 *Meal Analysis*\n\n")

	sb.WriteString("🥕 *Ingredients*\n")
	if len(res.Ingredients) == 0 {
		sb.WriteString("_Nothing recognized_\n")
	}
	for _, ing := range res.Ingredients {
		sb.WriteString(fmt.Sprintf("• %s: %.1f %s (%.1f%%)\n", escapeMarkdown(ing.Name), ing.Amount, ing.Unit, ing.Possibility))
	}

	sb.WriteString("\n💪 *Nutrients per 100 g*\n")
	for _, n := range res.Nutrients {
		sb.WriteString(fmt.Sprintf("• %s: %.2f %s (%.1f%% daily)\n", n.Name, n.Amount, n.Unit, n.Percentage))
	}
	sb.WriteString(fmt.Sprintf("• Calories: %.2f kcal\n", res.CaloriesPer100g))
	return sb.String()
}

func formatMetricsReport(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs, avg %dms)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution, d.AvgLatencyMS))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}
