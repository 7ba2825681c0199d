package llm

import (
	"context"

	"macro-meal-planner/internal/shared"
)

// NutrientResponse contains a nutrient estimate and metadata like token usage.
type NutrientResponse struct {
	Nutrients shared.NutrientPrediction
	Usage     shared.TokenUsage
}

// IngredientResponse contains an ingredient estimate and metadata like token usage.
type IngredientResponse struct {
	Ingredients shared.IngredientPrediction
	Usage       shared.TokenUsage
}

// NutrientPredictor estimates the macronutrients of a meal photo.
type NutrientPredictor interface {
	PredictNutrients(ctx context.Context, image []byte) (NutrientResponse, error)
}

// IngredientPredictor recognizes the ingredients of a meal photo.
type IngredientPredictor interface {
	PredictIngredients(ctx context.Context, image []byte) (IngredientResponse, error)
}

// Closer is an interface for closing resources.
type Closer interface {
	Close() error
}
