package shared

// NutrientPrediction is the macronutrient estimate for 100 g of a pictured meal.
type NutrientPrediction struct {
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
	Carbs    float64 `json:"carbs"`
	Calories float64 `json:"calories"`
	Mass     float64 `json:"mass"`
}

// IngredientPrediction lists likely ingredients with a confidence in percent (0-100).
// Labels and Probabilities are parallel and ordered by descending confidence.
type IngredientPrediction struct {
	Labels        []string  `json:"labels"`
	Probabilities []float64 `json:"probabilities"`
}
