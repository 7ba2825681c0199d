package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"macro-meal-planner/internal/config"
	"macro-meal-planner/internal/planner"
	"macro-meal-planner/internal/shopping"
	"macro-meal-planner/internal/suggestion"
)

var planOpts struct {
	calories float64
	meals    int
	ratios   []float64
	macros   map[string]string
	save     bool
	user     string
	asJSON   bool
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Generate a daily meal plan",
	Example: `  macro-meal-planner plan --calories 2000 --meals 3
  macro-meal-planner plan -c 1800 -m 2 --ratios 0.4,0.6 --macro fat=0.25,carb=0.5,protein=0.25 --save`,
	RunE: runPlan,
}

func init() {
	f := planCmd.Flags()
	f.Float64VarP(&planOpts.calories, "calories", "c", 0, "daily calorie target")
	f.IntVarP(&planOpts.meals, "meals", "m", 3, "meals per day")
	f.Float64SliceVar(&planOpts.ratios, "ratios", nil, "calorie share of each meal, e.g. 0.3,0.4,0.3")
	f.StringToStringVar(&planOpts.macros, "macro", nil, "macro energy ratios, e.g. fat=0.3,carb=0.45,protein=0.25")
	f.BoolVar(&planOpts.save, "save", false, "store the plan and its shopping list")
	f.StringVar(&planOpts.user, "user", "cli", "user ID the plan is saved under")
	f.BoolVar(&planOpts.asJSON, "json", false, "print the meal suggestions as JSON")
	_ = planCmd.MarkFlagRequired("calories")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	macros, err := parseMacros(planOpts.macros)
	if err != nil {
		return err
	}

	p, err := application.Planner(cmd.Context())
	if err != nil {
		return err
	}

	userID := ""
	if planOpts.save {
		userID = planOpts.user
	}
	plan, planID, err := application.GeneratePlan(cmd.Context(), p, userID, planner.Request{
		DailyCalories: planOpts.calories,
		NumMeals:      planOpts.meals,
		CalorieRatios: planOpts.ratios,
		MacroRatios:   macros,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if planOpts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(suggestion.Build(plan, application.Slots()))
	}

	printPlan(out, plan, application.Slots())
	if planID != "" {
		fmt.Fprintf(out, "\nSaved plan %s for user %s.\n", planID, userID)
	}
	return nil
}

func parseMacros(raw map[string]string) (map[string]float64, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid macro ratio %s=%q", k, v)
		}
		out[k] = f
	}
	return out, nil
}

func printPlan(w io.Writer, plan *planner.Plan, slots *config.SlotTemplates) {
	fmt.Fprintf(w, "=== DAILY MEAL PLAN (%.0f kcal) ===\n", plan.DailyCalories)
	for i, s := range suggestion.Build(plan, slots) {
		name := plan.Meals[i].Dish.Name
		if name == "" {
			name = s.DishID
		}
		fmt.Fprintf(w, "%-18s %s  %-20s %7.1f kcal %7.1f g\n", s.MealName, s.Time, name, s.Calories, s.Mass)
		if len(s.Ingredients) > 0 {
			fmt.Fprintf(w, "%18s %s\n", "", s.Description)
		}
	}

	sum := plan.Summary
	fmt.Fprintln(w, "\n=== TOTAL ===")
	fmt.Fprintf(w, "Calories: %.1f kcal  Mass: %.1f g\n", sum.TotalCalories, sum.TotalMass)
	fmt.Fprintf(w, "Fat:      %5.1f%% (target %.1f%%)\n", sum.ActualPC.Fat, sum.TargetPC.Fat)
	fmt.Fprintf(w, "Carbs:    %5.1f%% (target %.1f%%)\n", sum.ActualPC.Carb, sum.TargetPC.Carb)
	fmt.Fprintf(w, "Protein:  %5.1f%% (target %.1f%%)\n", sum.ActualPC.Protein, sum.TargetPC.Protein)

	items := shopping.FromPlan(plan)
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(w, "\n=== SHOPPING LIST ===")
	for _, item := range items {
		if item.Count > 1 {
			fmt.Fprintf(w, "- %s (x%d)\n", item.Name, item.Count)
			continue
		}
		fmt.Fprintf(w, "- %s\n", item.Name)
	}
}
