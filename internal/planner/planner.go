package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"macro-meal-planner/internal/catalog"
	"macro-meal-planner/internal/shared"
)

// AgentName identifies plan assembly in execution metrics.
const AgentName = "PlanAssembler"

// Planner assembles daily meal plans from a catalog.
// A Planner is safe for concurrent use.
type Planner struct {
	catalog *catalog.Catalog
	logger  *zap.SugaredLogger
}

// NewPlanner creates a new Planner instance.
func NewPlanner(c *catalog.Catalog, logger *zap.SugaredLogger) *Planner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Planner{catalog: c, logger: logger}
}

// Catalog returns the catalog the planner selects from.
func (p *Planner) Catalog() *catalog.Catalog {
	return p.catalog
}

// GeneratePlan selects one distinct dish per meal slot and summarizes the day.
func (p *Planner) GeneratePlan(ctx context.Context, req Request) (*Plan, error) {
	plan, _, err := p.GeneratePlanWithMeta(ctx, req)
	return plan, err
}

// GeneratePlanWithMeta is GeneratePlan that also reports execution metadata.
func (p *Planner) GeneratePlanWithMeta(ctx context.Context, req Request) (*Plan, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: AgentName}

	targets, err := PlanTargets(req)
	if err != nil {
		return nil, meta, err
	}

	pool := NewPool(p.catalog)
	meals := make([]PlannedMeal, 0, len(targets.Meals))

	for _, target := range targets.Meals {
		if err := ctx.Err(); err != nil {
			return nil, meta, err
		}

		sel, err := SelectDish(target.Calories, pool, target.Macros)
		if errors.Is(err, ErrNoEligibleDish) {
			return nil, meta, &InsufficientCatalogError{Filled: len(meals), Requested: len(targets.Meals)}
		}
		if err != nil {
			return nil, meta, fmt.Errorf("failed to select dish for meal %d: %w", target.Slot, err)
		}

		p.logger.Debugw("Selected dish",
			"slot", target.Slot,
			"target_calories", target.Calories,
			"dish_id", sel.Dish.ID,
			"score", sel.Score,
		)

		meals = append(meals, PlannedMeal{
			Target:           target,
			Dish:             sel.Dish,
			CalorieDeviation: sel.CalorieDeviation,
			MacroDeviation:   sel.MacroDeviation,
			Score:            sel.Score,
		})
		pool = pool.Without(sel.Dish.ID)
	}

	for i := range meals {
		meals[i].Ingredients = p.catalog.Ingredients(meals[i].Dish.ID)
	}

	plan := &Plan{
		DailyCalories: req.DailyCalories,
		CalorieRatios: targets.CalorieRatios,
		Macros:        targets.Macros,
		Meals:         meals,
		Summary:       summarize(meals, targets.Macros),
	}

	meta.Latency = time.Since(start)
	p.logger.Infow("Generated meal plan",
		"meals", len(meals),
		"total_calories", plan.Summary.TotalCalories,
		"daily_calories", req.DailyCalories,
		"latency", meta.Latency,
	)
	return plan, meta, nil
}
