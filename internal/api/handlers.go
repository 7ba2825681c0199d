package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"macro-meal-planner/internal/analysis"
	"macro-meal-planner/internal/catalog"
	"macro-meal-planner/internal/metrics"
	"macro-meal-planner/internal/planner"
	"macro-meal-planner/internal/shared"
	"macro-meal-planner/internal/suggestion"
)

const maxImageBytes = 10 << 20

// SuggestMealsRequest is the body of POST /api/suggest-meals.
type SuggestMealsRequest struct {
	TotalCalories             float64            `json:"total_calories"`
	MealsPerDay               int                `json:"meals_per_day"`
	CalorieDistributionRatios []float64          `json:"calorie_distribution_ratios,omitempty"`
	TargetMacroRatios         map[string]float64 `json:"target_macro_ratios,omitempty"`
}

type catalogHealth struct {
	Dishes  int `json:"dishes"`
	Skipped int `json:"skipped"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Catalog   catalogHealth     `json:"catalog"`
	Services  map[string]string `json:"services"`
	System    metrics.SysHealth `json:"system"`
}

func (s *Server) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Services: map[string]string{
			"planner":  "ok",
			"analysis": "disabled",
			"telegram": "disabled",
		},
		System: metrics.GetSysHealth(s.opts.DataPaths...),
	}

	if s.opts.Planner == nil || s.opts.Planner.Catalog().Len() == 0 {
		resp.Status = "degraded"
		resp.Services["planner"] = "no catalog"
	} else {
		c := s.opts.Planner.Catalog()
		resp.Catalog = catalogHealth{Dishes: c.Len(), Skipped: c.Skipped()}
	}
	if s.opts.Analyzer != nil {
		resp.Services["analysis"] = "ok"
	}
	if s.opts.Webhook != nil {
		resp.Services["telegram"] = "ok"
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		s.logger.Warnw("failed to write health response", "error", err)
	}
}

func (s *Server) suggestMealsHandler(w http.ResponseWriter, r *http.Request) {
	var req SuggestMealsRequest
	if err := readJSON(w, r, &req); err != nil {
		s.badRequestResponse(w, r, fmt.Errorf("invalid JSON: %w", err))
		return
	}

	if s.opts.Planner == nil {
		s.domainError(w, r, fmt.Errorf("%w: no catalog loaded", catalog.ErrDataUnavailable))
		return
	}

	plan, meta, err := s.opts.Planner.GeneratePlanWithMeta(r.Context(), planner.Request{
		DailyCalories: req.TotalCalories,
		NumMeals:      req.MealsPerDay,
		CalorieRatios: req.CalorieDistributionRatios,
		MacroRatios:   req.TargetMacroRatios,
	})
	s.recordMeta(meta)
	if err != nil {
		s.domainError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, suggestion.Build(plan, s.opts.Slots)); err != nil {
		s.logger.Warnw("failed to write suggestions", "error", err)
	}
}

func (s *Server) analyzeMealHandler(w http.ResponseWriter, r *http.Request) {
	if s.opts.Analyzer == nil {
		s.unavailableResponse(w, r, errors.New("meal analysis is not configured"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+1<<20)
	file, header, err := r.FormFile("image")
	if err != nil {
		s.badRequestResponse(w, r, fmt.Errorf("missing image upload: %w", err))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxImageBytes))
	if err != nil {
		s.badRequestResponse(w, r, fmt.Errorf("failed to read image: %w", err))
		return
	}
	if len(image) == 0 {
		s.badRequestResponse(w, r, analysis.ErrEmptyImage)
		return
	}
	if mime := http.DetectContentType(image); !strings.HasPrefix(mime, "image/") {
		s.badRequestResponse(w, r, fmt.Errorf("file %q is not an image (%s)", header.Filename, mime))
		return
	}

	res, err := s.opts.Analyzer.Analyze(r.Context(), image)
	if err != nil {
		s.domainError(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, res); err != nil {
		s.logger.Warnw("failed to write analysis", "error", err)
	}
}

func (s *Server) recordMeta(meta shared.AgentMeta) {
	if s.opts.Metrics == nil {
		return
	}
	if err := s.opts.Metrics.RecordMeta(meta); err != nil {
		s.logger.Warnw("failed to record metrics", "agent", meta.AgentName, "error", err)
	}
}
