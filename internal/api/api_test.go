package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macro-meal-planner/internal/analysis"
	"macro-meal-planner/internal/catalog"
	"macro-meal-planner/internal/planner"
	"macro-meal-planner/internal/shared"
	"macro-meal-planner/internal/suggestion"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type stubAnalyzer struct {
	err error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, image []byte) (*analysis.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &analysis.Result{
		Ingredients:     []analysis.Ingredient{{Name: "Toast", Amount: 100, Unit: "g", Possibility: 80}},
		Nutrients:       []suggestion.Nutrient{},
		CaloriesPer100g: 265,
	}, nil
}

type countingMetrics struct {
	metas []shared.AgentMeta
}

func (c *countingMetrics) RecordMeta(meta shared.AgentMeta) error {
	c.metas = append(c.metas, meta)
	return nil
}

func newPlanner(t *testing.T) *planner.Planner {
	t.Helper()
	c, err := catalog.New([]catalog.DishRow{
		{ID: "d1", TotalCalories: 500, TotalFat: 15, TotalCarb: 60, TotalProtein: 30, TotalMass: 350},
		{ID: "d2", TotalCalories: 800, TotalFat: 25, TotalCarb: 95, TotalProtein: 45, TotalMass: 500},
		{ID: "d3", TotalCalories: 700, TotalFat: 22, TotalCarb: 80, TotalProtein: 42, TotalMass: 420},
		{ID: "empty", TotalMass: 100},
	}, []catalog.IngredientLink{{DishID: "d1", Name: "egg"}, {DishID: "d1", Name: "bread", Position: 1}})
	require.NoError(t, err)
	return planner.NewPlanner(c, nil)
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func uploadImage(t *testing.T, h http.Handler, field string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "meal.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze-meal", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h := NewServer(Options{Planner: newPlanner(t)}).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 3, resp.Catalog.Dishes)
	assert.Equal(t, 1, resp.Catalog.Skipped)
	assert.Equal(t, "disabled", resp.Services["analysis"])

	t.Run("WithoutCatalog", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewServer(Options{}).Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Contains(t, rec.Body.String(), `"degraded"`)
	})
}

func TestSuggestMeals(t *testing.T) {
	metrics := &countingMetrics{}
	h := NewServer(Options{Planner: newPlanner(t), Metrics: metrics}).Routes()

	rec := postJSON(t, h, "/api/suggest-meals", `{"total_calories": 2000, "meals_per_day": 3}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []suggestion.MealSuggestion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 3)
	assert.Equal(t, "Breakfast", got[0].MealName)
	assert.Equal(t, "08:00 AM", got[0].Time)
	assert.Equal(t, "d1", got[0].DishID)
	assert.Equal(t, "Ingredients egg, bread", got[0].Description)
	assert.Equal(t, "d2", got[1].DishID)
	assert.Equal(t, "d3", got[2].DishID)
	assert.Equal(t, "Dinner", got[2].MealName)
	require.Len(t, metrics.metas, 1)
	assert.Equal(t, planner.AgentName, metrics.metas[0].AgentName)
}

func TestSuggestMeals_Errors(t *testing.T) {
	h := NewServer(Options{Planner: newPlanner(t)}).Routes()

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"MalformedJSON", `{"total_calories":`, http.StatusBadRequest},
		{"ZeroMeals", `{"total_calories": 2000, "meals_per_day": 0}`, http.StatusBadRequest},
		{"NegativeCalories", `{"total_calories": -1, "meals_per_day": 2}`, http.StatusBadRequest},
		{"UnknownMacro", `{"total_calories": 2000, "meals_per_day": 2, "target_macro_ratios": {"fiber": 0.1}}`, http.StatusBadRequest},
		{"TooManyMeals", `{"total_calories": 2000, "meals_per_day": 4}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, h, "/api/suggest-meals", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(catalog.ErrDataUnavailable))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(planner.ErrNoEligibleDish))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(&planner.InsufficientCatalogError{Filled: 1, Requested: 2}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}

func TestAnalyzeMeal(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		h := NewServer(Options{Analyzer: &stubAnalyzer{}}).Routes()
		rec := uploadImage(t, h, "image", pngHeader)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res analysis.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, 265.0, res.CaloriesPer100g)
		assert.Equal(t, "Toast", res.Ingredients[0].Name)
	})

	t.Run("NotConfigured", func(t *testing.T) {
		rec := uploadImage(t, NewServer(Options{}).Routes(), "image", pngHeader)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("WrongField", func(t *testing.T) {
		rec := uploadImage(t, NewServer(Options{Analyzer: &stubAnalyzer{}}).Routes(), "photo", pngHeader)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("NotAnImage", func(t *testing.T) {
		rec := uploadImage(t, NewServer(Options{Analyzer: &stubAnalyzer{}}).Routes(), "image", []byte("plain text"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("PredictorFailure", func(t *testing.T) {
		h := NewServer(Options{Analyzer: &stubAnalyzer{err: errors.New("quota exceeded")}}).Routes()
		rec := uploadImage(t, h, "image", pngHeader)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "quota")
	})
}

func TestJWT(t *testing.T) {
	secret := []byte("test-secret")
	h := NewServer(Options{Planner: newPlanner(t), JWTSecret: secret}).Routes()
	body := `{"total_calories": 2000, "meals_per_day": 3}`

	t.Run("MissingToken", func(t *testing.T) {
		rec := postJSON(t, h, "/api/suggest-meals", body)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("HealthIsPublic", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	send := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/suggest-meals", strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	t.Run("ValidToken", func(t *testing.T) {
		token, err := IssueToken(secret, "user-1", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, send(token))
	})

	t.Run("WrongSecret", func(t *testing.T) {
		token, err := IssueToken([]byte("other"), "user-1", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, send(token))
	})

	t.Run("Expired", func(t *testing.T) {
		token, err := IssueToken(secret, "user-1", -time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, send(token))
	})

	t.Run("NoSecret", func(t *testing.T) {
		_, err := IssueToken(nil, "user-1", time.Hour)
		assert.Error(t, err)
	})
}

func TestParseToken_Subject(t *testing.T) {
	secret := []byte("s")
	token, err := IssueToken(secret, "alice", time.Hour)
	require.NoError(t, err)
	sub, err := parseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
}

func TestWebhookMount(t *testing.T) {
	called := false
	h := NewServer(Options{Webhook: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})}).Routes()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{}")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, called)
}

func TestCORSPreflight(t *testing.T) {
	h := NewServer(Options{}).Routes()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/suggest-meals", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
