package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"macro-meal-planner/internal/shared"
)

// Predictor recognizes both nutrients and ingredients.
type Predictor interface {
	NutrientPredictor
	IngredientPredictor
}

type cacheEntry struct {
	Nutrients   *shared.NutrientPrediction   `json:"nutrients,omitempty"`
	Ingredients *shared.IngredientPrediction `json:"ingredients,omitempty"`
}

// CachedPredictor wraps a Predictor to cache results per image,
// reducing API calls for photos that are sent more than once.
type CachedPredictor struct {
	realPredictor Predictor
	cache         map[string]cacheEntry
	cacheFilePath string
	logger        *zap.SugaredLogger
	mu            sync.Mutex
}

// NewCachedPredictor creates a new CachedPredictor.
// An empty cacheFilePath keeps the cache in memory only.
func NewCachedPredictor(realPredictor Predictor, cacheFilePath string, logger *zap.SugaredLogger) (*CachedPredictor, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	c := &CachedPredictor{
		realPredictor: realPredictor,
		cache:         make(map[string]cacheEntry),
		cacheFilePath: cacheFilePath,
		logger:        logger,
	}
	if cacheFilePath == "" {
		return c, nil
	}

	cacheDir := filepath.Dir(cacheFilePath)
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", cacheDir, err)
	}

	data, err := os.ReadFile(cacheFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Infow("Prediction cache not found, starting empty", "path", cacheFilePath)
			return c, nil
		}
		return nil, fmt.Errorf("failed to read cache file %s: %w", cacheFilePath, err)
	}

	if err := json.Unmarshal(data, &c.cache); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data from %s: %w", cacheFilePath, err)
	}

	logger.Infow("Loaded prediction cache", "entries", len(c.cache), "path", cacheFilePath)
	return c, nil
}

// PredictNutrients returns the cached estimate for image or asks the real predictor.
// Cache hits report zero token usage.
func (c *CachedPredictor) PredictNutrients(ctx context.Context, image []byte) (NutrientResponse, error) {
	key := imageKey(image)

	c.mu.Lock()
	entry, ok := c.cache[key]
	c.mu.Unlock()
	if ok && entry.Nutrients != nil {
		return NutrientResponse{Nutrients: *entry.Nutrients}, nil
	}

	resp, err := c.realPredictor.PredictNutrients(ctx, image)
	if err != nil {
		return NutrientResponse{}, err
	}

	c.mu.Lock()
	entry = c.cache[key]
	n := resp.Nutrients
	entry.Nutrients = &n
	c.cache[key] = entry
	c.mu.Unlock()
	return resp, nil
}

// PredictIngredients returns the cached estimate for image or asks the real predictor.
func (c *CachedPredictor) PredictIngredients(ctx context.Context, image []byte) (IngredientResponse, error) {
	key := imageKey(image)

	c.mu.Lock()
	entry, ok := c.cache[key]
	c.mu.Unlock()
	if ok && entry.Ingredients != nil {
		return IngredientResponse{Ingredients: *entry.Ingredients}, nil
	}

	resp, err := c.realPredictor.PredictIngredients(ctx, image)
	if err != nil {
		return IngredientResponse{}, err
	}

	c.mu.Lock()
	entry = c.cache[key]
	p := resp.Ingredients
	entry.Ingredients = &p
	c.cache[key] = entry
	c.mu.Unlock()
	return resp, nil
}

// Len returns the number of cached images.
func (c *CachedPredictor) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// SaveCache persists the current in-memory cache to the file system.
func (c *CachedPredictor) SaveCache() error {
	if c.cacheFilePath == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(c.cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := os.WriteFile(c.cacheFilePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file %s: %w", c.cacheFilePath, err)
	}

	c.logger.Infow("Saved prediction cache", "entries", len(c.cache), "path", c.cacheFilePath)
	return nil
}

func imageKey(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}
