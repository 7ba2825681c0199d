package llm

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"macro-meal-planner/internal/config"
	"macro-meal-planner/internal/shared"
)

//go:embed prompts/nutrients_prompt.md
var nutrientsPrompt string

//go:embed prompts/ingredients_prompt.md
var ingredientsPromptTemplate string

const maxIngredientLabels = 10

// GeminiClient predicts nutrients and ingredients from meal photos with the Gemini API.
type GeminiClient struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	limiter   *rate.Limiter
	logger    *zap.SugaredLogger
}

// NewGeminiClient creates a new Gemini API client.
func NewGeminiClient(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*GeminiClient, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.GeminiModel)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0)

	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &GeminiClient{
		client:    client,
		model:     model,
		modelName: cfg.GeminiModel,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PredictorRPM)), 1),
		logger:    logger,
	}, nil
}

// PredictNutrients estimates macronutrients per 100 g of the pictured meal.
func (c *GeminiClient) PredictNutrients(ctx context.Context, image []byte) (NutrientResponse, error) {
	text, usage, err := c.generate(ctx, image, nutrientsPrompt)
	if err != nil {
		return NutrientResponse{}, err
	}

	var n shared.NutrientPrediction
	if err := json.Unmarshal([]byte(text), &n); err != nil {
		return NutrientResponse{}, fmt.Errorf("failed to parse nutrient JSON: %w. Response: %s", err, text)
	}
	return NutrientResponse{Nutrients: n, Usage: usage}, nil
}

// PredictIngredients lists the likely ingredients of the pictured meal.
func (c *GeminiClient) PredictIngredients(ctx context.Context, image []byte) (IngredientResponse, error) {
	prompt, err := buildIngredientsPrompt(maxIngredientLabels)
	if err != nil {
		return IngredientResponse{}, err
	}

	text, usage, err := c.generate(ctx, image, prompt)
	if err != nil {
		return IngredientResponse{}, err
	}

	var p shared.IngredientPrediction
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return IngredientResponse{}, fmt.Errorf("failed to parse ingredient JSON: %w. Response: %s", err, text)
	}
	if len(p.Labels) != len(p.Probabilities) {
		return IngredientResponse{}, fmt.Errorf("ingredient response has %d labels but %d probabilities", len(p.Labels), len(p.Probabilities))
	}
	return IngredientResponse{Ingredients: p, Usage: usage}, nil
}

func (c *GeminiClient) generate(ctx context.Context, image []byte, prompt string) (string, shared.TokenUsage, error) {
	usage := shared.TokenUsage{Model: c.modelName}

	format, err := imageFormat(image)
	if err != nil {
		return "", usage, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", usage, fmt.Errorf("rate limiter: %w", err)
	}

	resp, err := c.model.GenerateContent(ctx, genai.ImageData(format, image), genai.Text(prompt))
	if err != nil {
		return "", usage, fmt.Errorf("failed to generate content: %w", err)
	}

	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", usage, fmt.Errorf("no content generated")
	}

	text, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", usage, fmt.Errorf("generated content is not text")
	}

	c.logger.Debugw("Gemini prediction",
		"model", c.modelName,
		"prompt_tokens", usage.PromptTokens,
		"completion_tokens", usage.CompletionTokens,
		"total_tokens", usage.Total(),
	)
	return cleanJSON(string(text)), usage, nil
}

// Close closes the underlying Gemini client.
func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func buildIngredientsPrompt(maxLabels int) (string, error) {
	tmpl, err := template.New("ingredients").Parse(ingredientsPromptTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse ingredients prompt: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ MaxLabels int }{maxLabels}); err != nil {
		return "", fmt.Errorf("failed to render ingredients prompt: %w", err)
	}
	return buf.String(), nil
}

// imageFormat returns the genai image format ("jpeg", "png", ...) of raw image bytes.
func imageFormat(image []byte) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("empty image")
	}
	mime := http.DetectContentType(image)
	format, ok := strings.CutPrefix(mime, "image/")
	if !ok {
		return "", fmt.Errorf("unsupported image type %s", mime)
	}
	return format, nil
}

// cleanJSON strips a markdown code fence some models wrap around JSON output.
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
