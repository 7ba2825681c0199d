package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"macro-meal-planner/internal/llm"
	"macro-meal-planner/internal/shared"
	"macro-meal-planner/internal/suggestion"
)

// Daily reference intakes in grams used for nutrient percentages.
const (
	DailyProtein = 50.0
	DailyCarbs   = 300.0
	DailyFat     = 65.0
)

const (
	// MinPossibility is the confidence, in percent, an ingredient needs to be listed.
	MinPossibility = 10.0
	// referenceMass is the portion predicted amounts refer to.
	referenceMass = 100.0
	// fallbackPossibility is reported for the top label when no probabilities came back.
	fallbackPossibility = 50.0
)

const (
	NutrientAgentName   = "NutrientPredictor"
	IngredientAgentName = "IngredientPredictor"
)

// ErrEmptyImage is returned when no image bytes were supplied.
var ErrEmptyImage = errors.New("empty image")

// Ingredient is a recognized ingredient with its estimated share of a 100 g portion.
type Ingredient struct {
	Name        string  `json:"name"`
	Amount      float64 `json:"amount"`
	Unit        string  `json:"unit"`
	Possibility float64 `json:"possibility"`
}

// Result is the analysis of a single meal photo.
type Result struct {
	Ingredients     []Ingredient          `json:"ingredients"`
	Nutrients       []suggestion.Nutrient `json:"nutrients"`
	CaloriesPer100g float64               `json:"calories_per_100g"`
}

// MetricsRecorder stores execution metadata.
type MetricsRecorder interface {
	RecordMeta(meta shared.AgentMeta) error
}

// Analyzer runs the nutrient and ingredient predictors on a meal photo.
type Analyzer struct {
	nutrients   llm.NutrientPredictor
	ingredients llm.IngredientPredictor
	metrics     MetricsRecorder
	logger      *zap.SugaredLogger
}

// NewAnalyzer creates a new Analyzer. metrics may be nil.
func NewAnalyzer(nutrients llm.NutrientPredictor, ingredients llm.IngredientPredictor, metrics MetricsRecorder, logger *zap.SugaredLogger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Analyzer{
		nutrients:   nutrients,
		ingredients: ingredients,
		metrics:     metrics,
		logger:      logger,
	}
}

// Analyze predicts nutrients and ingredients concurrently and combines them.
func (a *Analyzer) Analyze(ctx context.Context, image []byte) (*Result, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}

	var (
		nutrients         llm.NutrientResponse
		ingredients       llm.IngredientResponse
		nutrientLatency   time.Duration
		ingredientLatency time.Duration
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		resp, err := a.nutrients.PredictNutrients(gctx, image)
		if err != nil {
			return fmt.Errorf("failed to predict nutrients: %w", err)
		}
		nutrients, nutrientLatency = resp, time.Since(start)
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		resp, err := a.ingredients.PredictIngredients(gctx, image)
		if err != nil {
			return fmt.Errorf("failed to predict ingredients: %w", err)
		}
		ingredients, ingredientLatency = resp, time.Since(start)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	a.record(shared.AgentMeta{AgentName: NutrientAgentName, Usage: nutrients.Usage, Latency: nutrientLatency})
	a.record(shared.AgentMeta{AgentName: IngredientAgentName, Usage: ingredients.Usage, Latency: ingredientLatency})

	return BuildResult(nutrients.Nutrients, ingredients.Ingredients), nil
}

func (a *Analyzer) record(meta shared.AgentMeta) {
	if a.metrics == nil {
		return
	}
	if err := a.metrics.RecordMeta(meta); err != nil {
		a.logger.Warnw("Failed to record metrics", "agent", meta.AgentName, "error", err)
	}
}

// BuildResult turns raw predictions into a displayable analysis.
func BuildResult(n shared.NutrientPrediction, p shared.IngredientPrediction) *Result {
	return &Result{
		Ingredients:     buildIngredients(p),
		Nutrients:       buildNutrients(n),
		CaloriesPer100g: suggestion.Round(n.Calories, 2),
	}
}

func buildIngredients(p shared.IngredientPrediction) []Ingredient {
	n := min(len(p.Labels), len(p.Probabilities))

	var total float64
	for _, prob := range p.Probabilities[:n] {
		total += prob
	}

	out := []Ingredient{}
	for i := 0; i < n; i++ {
		prob := p.Probabilities[i]
		if prob < MinPossibility {
			continue
		}
		amount := referenceMass / float64(n)
		if total > 0 {
			amount = prob / total * referenceMass
		}
		out = append(out, Ingredient{
			Name:        titleCase(p.Labels[i]),
			Amount:      suggestion.Round(amount, 1),
			Unit:        "g",
			Possibility: suggestion.Round(prob, 1),
		})
	}

	if len(out) == 0 && len(p.Labels) > 0 {
		possibility := fallbackPossibility
		if len(p.Probabilities) > 0 {
			possibility = suggestion.Round(p.Probabilities[0], 1)
		}
		out = append(out, Ingredient{
			Name:        titleCase(p.Labels[0]),
			Amount:      referenceMass,
			Unit:        "g",
			Possibility: possibility,
		})
	}
	return out
}

func buildNutrients(n shared.NutrientPrediction) []suggestion.Nutrient {
	out := []suggestion.Nutrient{}
	add := func(name string, grams, daily float64) {
		if grams <= 0 {
			return
		}
		out = append(out, suggestion.Nutrient{
			Name:       name,
			Amount:     suggestion.Round(grams, 2),
			Unit:       "g",
			Percentage: suggestion.Round(grams/daily*100, 1),
		})
	}
	add("Protein", n.Protein, DailyProtein)
	add("Carbohydrates", n.Carbs, DailyCarbs)
	add("Fat", n.Fat, DailyFat)
	return out
}

// titleCase upper-cases the first letter of every word and lower-cases the rest.
func titleCase(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevLetter := false
	for _, r := range s {
		if prevLetter {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(unicode.ToUpper(r))
		}
		prevLetter = unicode.IsLetter(r)
	}
	return b.String()
}
