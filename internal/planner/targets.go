package planner

import (
	"math"
	"slices"
	"sort"
	"strings"
)

const (
	MacroFat     = "fat"
	MacroCarb    = "carb"
	MacroProtein = "protein"
)

// ratioTolerance is how far a default ratio vector may drift from 1.0 before it is renormalized.
const ratioTolerance = 1e-9

var defaultCalorieRatios = map[int][]float64{
	2: {0.40, 0.60},
	3: {0.25, 0.40, 0.35},
	4: {0.20, 0.15, 0.35, 0.30},
}

// MacroRatios is the share of daily energy each macronutrient should provide.
type MacroRatios struct {
	Fat     float64 `json:"fat"`
	Carb    float64 `json:"carb"`
	Protein float64 `json:"protein"`
}

// DefaultMacroRatios is used when a request carries no macro ratios.
var DefaultMacroRatios = MacroRatios{Fat: 0.30, Carb: 0.45, Protein: 0.25}

// Percentages returns the ratios scaled to percent.
func (m MacroRatios) Percentages() (fat, carb, protein float64) {
	return m.Fat * 100, m.Carb * 100, m.Protein * 100
}

// Request describes the plan to build.
type Request struct {
	DailyCalories float64            `json:"daily_calories"`
	NumMeals      int                `json:"num_meals"`
	CalorieRatios []float64          `json:"calorie_ratios,omitempty"`
	MacroRatios   map[string]float64 `json:"macro_ratios,omitempty"`
}

// MealTarget is the goal for a single meal slot.
type MealTarget struct {
	Slot     int         `json:"slot"`
	Calories float64     `json:"calories"`
	Macros   MacroRatios `json:"macros"`
}

// Targets is the resolved set of per-meal goals for a request.
type Targets struct {
	Meals         []MealTarget `json:"meals"`
	CalorieRatios []float64    `json:"calorie_ratios"`
	Macros        MacroRatios  `json:"macros"`
}

// DefaultCalorieRatios returns the built-in calorie split for n meals.
// Counts without a preset are split uniformly.
func DefaultCalorieRatios(n int) []float64 {
	if preset, ok := defaultCalorieRatios[n]; ok {
		return slices.Clone(preset)
	}
	ratios := make([]float64, n)
	for i := range ratios {
		ratios[i] = 1 / float64(n)
	}
	return ratios
}

// PlanTargets resolves per-meal calorie targets and the macro target for a request.
func PlanTargets(req Request) (Targets, error) {
	if req.NumMeals <= 0 {
		return Targets{}, invalidf("num_meals must be positive, got %d", req.NumMeals)
	}
	if !finite(req.DailyCalories) || req.DailyCalories <= 0 {
		return Targets{}, invalidf("daily_calories must be a positive number, got %v", req.DailyCalories)
	}

	ratios, err := resolveCalorieRatios(req.CalorieRatios, req.NumMeals)
	if err != nil {
		return Targets{}, err
	}
	macros, err := resolveMacroRatios(req.MacroRatios)
	if err != nil {
		return Targets{}, err
	}

	meals := make([]MealTarget, req.NumMeals)
	for i := range meals {
		meals[i] = MealTarget{
			Slot:     i,
			Calories: ratios[i] * req.DailyCalories,
			Macros:   macros,
		}
	}

	return Targets{Meals: meals, CalorieRatios: ratios, Macros: macros}, nil
}

func resolveCalorieRatios(supplied []float64, n int) ([]float64, error) {
	if len(supplied) == n {
		for i, r := range supplied {
			if !finite(r) || r < 0 {
				return nil, invalidf("calorie ratio %d must be a non-negative number, got %v", i, r)
			}
		}
		return slices.Clone(supplied), nil
	}

	// A mismatched vector is discarded, never rejected.
	ratios := DefaultCalorieRatios(n)
	var sum float64
	for _, r := range ratios {
		sum += r
	}
	if math.Abs(sum-1) > ratioTolerance {
		for i := range ratios {
			ratios[i] /= sum
		}
	}
	return ratios, nil
}

func resolveMacroRatios(supplied map[string]float64) (MacroRatios, error) {
	if supplied == nil {
		return DefaultMacroRatios, nil
	}

	var m MacroRatios
	keys := make([]string, 0, len(supplied))
	for k := range supplied {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		v := supplied[key]
		if !finite(v) || v < 0 {
			return MacroRatios{}, invalidf("macro ratio %q must be a non-negative number, got %v", key, v)
		}
		switch strings.ToLower(key) {
		case MacroFat:
			m.Fat = v
		case MacroCarb:
			m.Carb = v
		case MacroProtein:
			m.Protein = v
		default:
			return MacroRatios{}, invalidf("unknown macro %q", key)
		}
	}
	return m, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
