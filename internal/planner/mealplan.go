package planner

import "macro-meal-planner/internal/catalog"

// PlannedMeal is the dish chosen for one meal slot.
type PlannedMeal struct {
	Target           MealTarget   `json:"target"`
	Dish             catalog.Dish `json:"dish"`
	Ingredients      []string     `json:"ingredients"`
	CalorieDeviation float64      `json:"calorie_deviation"`
	MacroDeviation   float64      `json:"macro_deviation"`
	Score            float64      `json:"score"`
}

// MacroBreakdown holds fat, carb and protein values side by side.
type MacroBreakdown struct {
	Fat     float64 `json:"fat"`
	Carb    float64 `json:"carb"`
	Protein float64 `json:"protein"`
}

// Summary aggregates the nutrition of a whole plan.
type Summary struct {
	TotalCalories float64        `json:"total_calories"`
	TotalFat      float64        `json:"total_fat"`
	TotalCarb     float64        `json:"total_carb"`
	TotalProtein  float64        `json:"total_protein"`
	TotalMass     float64        `json:"total_mass"`
	ActualPC      MacroBreakdown `json:"actual_pc"`
	TargetPC      MacroBreakdown `json:"target_pc"`
	DeviationPC   MacroBreakdown `json:"deviation_pc"`
}

// Plan is a full day of meals.
type Plan struct {
	DailyCalories float64       `json:"daily_calories"`
	CalorieRatios []float64     `json:"calorie_ratios"`
	Macros        MacroRatios   `json:"macros"`
	Meals         []PlannedMeal `json:"meals"`
	Summary       Summary       `json:"summary"`
}

// DishIDs returns the selected dish IDs in slot order.
func (p *Plan) DishIDs() []string {
	ids := make([]string, len(p.Meals))
	for i, m := range p.Meals {
		ids[i] = m.Dish.ID
	}
	return ids
}

func summarize(meals []PlannedMeal, macros MacroRatios) Summary {
	var s Summary
	for _, m := range meals {
		s.TotalCalories += m.Dish.TotalCalories
		s.TotalFat += m.Dish.TotalFat
		s.TotalCarb += m.Dish.TotalCarb
		s.TotalProtein += m.Dish.TotalProtein
		s.TotalMass += m.Dish.TotalMass
	}

	s.ActualPC = MacroBreakdown{
		Fat:     catalog.MacroPercent(s.TotalFat, catalog.KcalPerGramFat, s.TotalCalories),
		Carb:    catalog.MacroPercent(s.TotalCarb, catalog.KcalPerGramCarb, s.TotalCalories),
		Protein: catalog.MacroPercent(s.TotalProtein, catalog.KcalPerGramProtein, s.TotalCalories),
	}
	fat, carb, protein := macros.Percentages()
	s.TargetPC = MacroBreakdown{Fat: fat, Carb: carb, Protein: protein}
	s.DeviationPC = MacroBreakdown{
		Fat:     s.ActualPC.Fat - fat,
		Carb:    s.ActualPC.Carb - carb,
		Protein: s.ActualPC.Protein - protein,
	}
	return s
}
