package shopping

import (
	"strings"
	"time"

	"macro-meal-planner/internal/planner"
)

// Item is one ingredient to buy and how many planned meals use it.
type Item struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ShoppingList represents a shopping list for a meal plan.
type ShoppingList struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	MealPlanID string    `json:"meal_plan_id"`
	Items      []Item    `json:"items"`
	CreatedAt  time.Time `json:"created_at"`
}

// FromPlan consolidates the ingredients of every meal in a plan.
// Names are merged case-insensitively and listed by first appearance.
func FromPlan(plan *planner.Plan) []Item {
	items := []Item{}
	index := make(map[string]int)
	for _, meal := range plan.Meals {
		for _, name := range meal.Ingredients {
			key := normalize(name)
			if key == "" {
				continue
			}
			if i, ok := index[key]; ok {
				items[i].Count++
				continue
			}
			index[key] = len(items)
			items = append(items, Item{Name: name, Count: 1})
		}
	}
	return items
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
