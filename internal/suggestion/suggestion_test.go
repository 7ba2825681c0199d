package suggestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macro-meal-planner/internal/catalog"
	"macro-meal-planner/internal/config"
	"macro-meal-planner/internal/planner"
)

func meal(row catalog.DishRow, ingredients ...string) planner.PlannedMeal {
	if ingredients == nil {
		ingredients = []string{}
	}
	return planner.PlannedMeal{Dish: catalog.NewDish(row), Ingredients: ingredients}
}

func TestBuild(t *testing.T) {
	plan := &planner.Plan{Meals: []planner.PlannedMeal{
		meal(catalog.DishRow{ID: "d1", Name: "Granola", TotalCalories: 412.345, TotalFat: 10.456, TotalCarb: 60.004, TotalProtein: 15.5, TotalMass: 250.06},
			"oats", "honey", "almonds", "yogurt", "raisins", "banana"),
		meal(catalog.DishRow{ID: "d2", Name: "Steak", TotalCalories: 700, TotalFat: 40, TotalCarb: 0, TotalProtein: 85, TotalMass: 300}),
		meal(catalog.DishRow{ID: "d3", TotalCalories: 300, TotalMass: 100}),
	}}

	got := Build(plan, config.DefaultSlots())
	require.Len(t, got, 3)

	first := got[0]
	assert.Equal(t, "Breakfast", first.MealName)
	assert.Equal(t, "08:00 AM", first.Time)
	assert.Equal(t, 412.3, first.Calories)
	assert.Equal(t, 250.1, first.Mass)
	assert.Equal(t, "Ingredients oats, honey, almonds, yogurt, raisins", first.Description)
	assert.Len(t, first.Ingredients, 6)

	require.Len(t, first.Nutrients, 3)
	assert.Equal(t, Nutrient{Name: "Fat", Amount: 10.46, Unit: "g", Percentage: 22.8}, first.Nutrients[0])
	assert.Equal(t, "Carbohydrates", first.Nutrients[1].Name)
	assert.Equal(t, 60.0, first.Nutrients[1].Amount)
	assert.Equal(t, "Protein", first.Nutrients[2].Name)

	assert.Equal(t, "Lunch", got[1].MealName)
	assert.Equal(t, "Steak", got[1].Description)
	assert.Equal(t, "d3", got[2].Description)
	assert.Equal(t, "Dinner", got[2].MealName)
}

func TestBuild_FallbackSlots(t *testing.T) {
	row := catalog.DishRow{ID: "x", TotalCalories: 100}
	plan := &planner.Plan{Meals: []planner.PlannedMeal{meal(row), meal(row), meal(row), meal(row), meal(row)}}

	got := Build(plan, nil)
	require.Len(t, got, 5)
	assert.Equal(t, "Breakfast", got[0].MealName)
	assert.Equal(t, "09:00 AM", got[0].Time)
	assert.Equal(t, "Dinner", got[1].MealName)
	assert.Equal(t, "Meal 3", got[2].MealName)
	assert.Equal(t, "12:00 PM", got[4].Time)
}

func TestRound(t *testing.T) {
	assert.Equal(t, 1.3, Round(1.25, 1))
	assert.Equal(t, -3.0, Round(-2.5, 0))
	assert.Equal(t, 10.0, Round(9.999, 2))
}
