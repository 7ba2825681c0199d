package planner

import (
	"math"

	"macro-meal-planner/internal/catalog"
)

// Pool is the set of dishes still available to a plan. It is a view over an
// immutable catalog plus an exclusion set, and is never modified in place.
type Pool struct {
	catalog  *catalog.Catalog
	excluded map[string]struct{}
}

// NewPool returns a pool holding every eligible dish of c.
func NewPool(c *catalog.Catalog) Pool {
	return Pool{catalog: c}
}

// Without returns a new pool with the dish id removed.
func (p Pool) Without(id string) Pool {
	excluded := make(map[string]struct{}, len(p.excluded)+1)
	for k := range p.excluded {
		excluded[k] = struct{}{}
	}
	excluded[id] = struct{}{}
	return Pool{catalog: p.catalog, excluded: excluded}
}

// Contains reports whether the dish id is still available.
func (p Pool) Contains(id string) bool {
	if p.catalog == nil {
		return false
	}
	if _, gone := p.excluded[id]; gone {
		return false
	}
	_, ok := p.catalog.Dish(id)
	return ok
}

// Len returns the number of available dishes.
func (p Pool) Len() int {
	if p.catalog == nil {
		return 0
	}
	n := 0
	for i := 0; i < p.catalog.Len(); i++ {
		if _, gone := p.excluded[p.catalog.At(i).ID]; !gone {
			n++
		}
	}
	return n
}

// each calls fn for every available dish in catalog order.
func (p Pool) each(fn func(catalog.Dish)) {
	if p.catalog == nil {
		return
	}
	for i := 0; i < p.catalog.Len(); i++ {
		d := p.catalog.At(i)
		if _, gone := p.excluded[d.ID]; gone {
			continue
		}
		fn(d)
	}
}

// Selection is the dish chosen for one meal target together with its score.
type Selection struct {
	Dish             catalog.Dish
	CalorieDeviation float64
	MacroDeviation   float64
	Score            float64
}

// Score rates how far a dish is from a meal target. Lower is better.
func Score(d catalog.Dish, targetCalories float64, macros MacroRatios) Selection {
	fat, carb, protein := macros.Percentages()
	calDev := math.Abs(d.TotalCalories - targetCalories)
	macroDev := math.Abs(d.FatPC-fat) + math.Abs(d.CarbPC-carb) + math.Abs(d.ProteinPC-protein)
	return Selection{
		Dish:             d,
		CalorieDeviation: calDev,
		MacroDeviation:   macroDev,
		Score:            calDev + macroDev,
	}
}

// SelectDish returns the dish in pool with the lowest combined score for the target.
// Ties go to the dish that comes first in catalog order.
func SelectDish(targetCalories float64, pool Pool, macros MacroRatios) (Selection, error) {
	var (
		best  Selection
		found bool
	)
	pool.each(func(d catalog.Dish) {
		s := Score(d, targetCalories, macros)
		if !found || s.Score < best.Score {
			best, found = s, true
		}
	})
	if !found {
		return Selection{}, ErrNoEligibleDish
	}
	return best, nil
}
