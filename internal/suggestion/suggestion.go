package suggestion

import (
	"math"
	"strings"

	"macro-meal-planner/internal/config"
	"macro-meal-planner/internal/planner"
)

// descriptionIngredients is how many ingredients are named in a description.
const descriptionIngredients = 5

// Nutrient is one macronutrient line of a meal.
type Nutrient struct {
	Name       string  `json:"name"`
	Amount     float64 `json:"amount"`
	Unit       string  `json:"unit"`
	Percentage float64 `json:"percentage"`
}

// MealSuggestion is a planned meal ready for display.
type MealSuggestion struct {
	MealName    string     `json:"meal_name"`
	Time        string     `json:"time"`
	DishID      string     `json:"dish_id"`
	Calories    float64    `json:"calories"`
	Mass        float64    `json:"mass"`
	Description string     `json:"description"`
	Ingredients []string   `json:"ingredients"`
	Nutrients   []Nutrient `json:"nutrients"`
}

// Build names each meal of a plan after its slot and rounds its numbers for display.
func Build(plan *planner.Plan, slots *config.SlotTemplates) []MealSuggestion {
	if slots == nil {
		slots = config.DefaultSlots()
	}

	out := make([]MealSuggestion, 0, len(plan.Meals))
	for i, meal := range plan.Meals {
		slot := slots.Slot(len(plan.Meals), i)
		d := meal.Dish

		out = append(out, MealSuggestion{
			MealName:    slot.Name,
			Time:        slot.Time,
			DishID:      d.ID,
			Calories:    Round(d.TotalCalories, 1),
			Mass:        Round(d.TotalMass, 1),
			Description: describe(d.Name, d.ID, meal.Ingredients),
			Ingredients: meal.Ingredients,
			Nutrients: []Nutrient{
				{Name: "Fat", Amount: Round(d.TotalFat, 2), Unit: "g", Percentage: Round(d.FatPC, 1)},
				{Name: "Carbohydrates", Amount: Round(d.TotalCarb, 2), Unit: "g", Percentage: Round(d.CarbPC, 1)},
				{Name: "Protein", Amount: Round(d.TotalProtein, 2), Unit: "g", Percentage: Round(d.ProteinPC, 1)},
			},
		})
	}
	return out
}

func describe(name, id string, ingredients []string) string {
	if len(ingredients) > 0 {
		n := min(len(ingredients), descriptionIngredients)
		return "Ingredients " + strings.Join(ingredients[:n], ", ")
	}
	if name != "" {
		return name
	}
	return id
}

// Round rounds v to the given number of decimal places, halves away from zero.
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
