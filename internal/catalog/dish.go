package catalog

import "math"

// Energy density of each macronutrient in kcal per gram.
const (
	KcalPerGramFat     = 9.0
	KcalPerGramCarb    = 4.0
	KcalPerGramProtein = 4.0
)

// DishRow is a raw catalog row as delivered by a DishSource.
type DishRow struct {
	ID            string  `json:"dish_id"`
	Name          string  `json:"name,omitempty"`
	TotalCalories float64 `json:"total_calories"`
	TotalFat      float64 `json:"total_fat"`
	TotalCarb     float64 `json:"total_carb"`
	TotalProtein  float64 `json:"total_protein"`
	TotalMass     float64 `json:"total_mass"`
}

// IngredientLink associates one named ingredient with a dish.
type IngredientLink struct {
	DishID   string `json:"dish_id"`
	Name     string `json:"ingr_name"`
	Position int    `json:"position"`
}

// Dish is an eligible catalog entry with its macro percentages precomputed.
type Dish struct {
	DishRow
	FatPC     float64 `json:"fat_pc"`
	CarbPC    float64 `json:"carb_pc"`
	ProteinPC float64 `json:"protein_pc"`
}

// NewDish derives the macro percentages for a row.
func NewDish(row DishRow) Dish {
	return Dish{
		DishRow:   row,
		FatPC:     MacroPercent(row.TotalFat, KcalPerGramFat, row.TotalCalories),
		CarbPC:    MacroPercent(row.TotalCarb, KcalPerGramCarb, row.TotalCalories),
		ProteinPC: MacroPercent(row.TotalProtein, KcalPerGramProtein, row.TotalCalories),
	}
}

// Eligible reports whether the row can be selected for a meal.
func (r DishRow) Eligible() bool {
	return finite(r.TotalCalories) && r.TotalCalories > 0
}

// MacroPercent returns the share of totalCalories contributed by grams of a macronutrient,
// as a percentage. Any undefined or infinite result is reported as 0.
func MacroPercent(grams, kcalPerGram, totalCalories float64) float64 {
	if totalCalories == 0 || !finite(totalCalories) {
		return 0
	}
	pc := grams * kcalPerGram / totalCalories * 100
	if !finite(pc) {
		return 0
	}
	return pc
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
