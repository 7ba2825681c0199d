package catalog

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
)

// DishSource provides the raw dish table.
type DishSource interface {
	Dishes(ctx context.Context) ([]DishRow, error)
}

// IngredientSource provides the dish-to-ingredient link table.
type IngredientSource interface {
	IngredientLinks(ctx context.Context) ([]IngredientLink, error)
}

// Catalog is an immutable snapshot of the eligible dishes and their ingredients.
// It is safe for concurrent use.
type Catalog struct {
	dishes      []Dish
	index       map[string]int
	ingredients map[string][]string
	skipped     int
}

// Load reads both tables and builds a Catalog from them.
func Load(ctx context.Context, dishes DishSource, ingredients IngredientSource) (*Catalog, error) {
	rows, err := dishes.Dishes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load dishes: %v", ErrDataUnavailable, err)
	}
	links, err := ingredients.IngredientLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load ingredient links: %v", ErrDataUnavailable, err)
	}
	return New(rows, links)
}

// New builds a Catalog from in-memory tables. Rows without positive calories are
// dropped. Dishes are ordered by ID, which fixes tie-breaking during selection.
func New(rows []DishRow, links []IngredientLink) (*Catalog, error) {
	c := &Catalog{
		index:       make(map[string]int, len(rows)),
		ingredients: make(map[string][]string),
	}

	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		row.ID = strings.TrimSpace(row.ID)
		if row.ID == "" {
			return nil, fmt.Errorf("%w: dish row without an id", ErrDataUnavailable)
		}
		if _, dup := seen[row.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate dish id %q", ErrDataUnavailable, row.ID)
		}
		seen[row.ID] = struct{}{}

		if !row.Eligible() {
			c.skipped++
			continue
		}
		c.dishes = append(c.dishes, NewDish(row))
	}

	sort.Slice(c.dishes, func(i, j int) bool { return c.dishes[i].ID < c.dishes[j].ID })
	for i, d := range c.dishes {
		c.index[d.ID] = i
	}

	ordered := slices.Clone(links)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })
	for _, link := range ordered {
		id := strings.TrimSpace(link.DishID)
		name := strings.TrimSpace(link.Name)
		if id == "" || name == "" {
			continue
		}
		c.ingredients[id] = append(c.ingredients[id], name)
	}

	return c, nil
}

// Len returns the number of eligible dishes.
func (c *Catalog) Len() int {
	return len(c.dishes)
}

// Skipped returns how many rows were excluded for having no positive calories.
func (c *Catalog) Skipped() int {
	return c.skipped
}

// Dishes returns a copy of the eligible dishes in catalog order.
func (c *Catalog) Dishes() []Dish {
	return slices.Clone(c.dishes)
}

// At returns the dish at position i in catalog order.
func (c *Catalog) At(i int) Dish {
	return c.dishes[i]
}

// Dish looks up an eligible dish by ID.
func (c *Catalog) Dish(id string) (Dish, bool) {
	i, ok := c.index[id]
	if !ok {
		return Dish{}, false
	}
	return c.dishes[i], true
}

// Ingredients returns the ingredient names linked to a dish, never nil.
func (c *Catalog) Ingredients(dishID string) []string {
	names := c.ingredients[dishID]
	if len(names) == 0 {
		return []string{}
	}
	return slices.Clone(names)
}
