package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the configuration for the application.
type Config struct {
	Env               string
	Port              string
	DatabasePath      string
	SnapshotPath      string
	PlannerConfigPath string

	// Meal analysis
	GeminiAPIKey string
	GeminiModel  string
	PredictorRPM int

	// Catalog import
	GoogleCredentialsPath string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	AdminTelegramID        int64

	APIJWTSecret string
}

// NewFromEnv creates a new Config object from environment variables.
// A .env file in the working directory is loaded first when present.
func NewFromEnv() (*Config, error) {
	_ = godotenv.Load()

	predictorRPM, err := intFromEnv("PREDICTOR_RPM", 15)
	if err != nil {
		return nil, err
	}
	if predictorRPM <= 0 {
		return nil, fmt.Errorf("PREDICTOR_RPM must be positive, got %d", predictorRPM)
	}

	allowed, err := int64ListFromEnv("TELEGRAM_ALLOWED_USER_IDS")
	if err != nil {
		return nil, err
	}

	var adminID int64
	if raw := os.Getenv("ADMIN_TELEGRAM_ID"); raw != "" {
		adminID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID %q: %w", raw, err)
		}
	}

	return &Config{
		Env:                    stringFromEnv("APP_ENV", "development"),
		Port:                   stringFromEnv("PORT", "8080"),
		DatabasePath:           stringFromEnv("DATABASE_PATH", "data/planner.db"),
		SnapshotPath:           stringFromEnv("SNAPSHOT_PATH", "data/snapshots"),
		PlannerConfigPath:      os.Getenv("PLANNER_CONFIG_PATH"),
		GeminiAPIKey:           os.Getenv("GEMINI_API_KEY"),
		GeminiModel:            stringFromEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		PredictorRPM:           predictorRPM,
		GoogleCredentialsPath:  os.Getenv("GOOGLE_CREDENTIALS_PATH"),
		TelegramBotToken:       os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:     os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowedUserIDs: allowed,
		AdminTelegramID:        adminID,
		APIJWTSecret:           os.Getenv("API_JWT_SECRET"),
	}, nil
}

// RequireTelegram checks the variables the Telegram bot cannot start without.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

// RequireGoogleCredentials checks the variables needed by the spreadsheet importer.
func (c *Config) RequireGoogleCredentials() error {
	if c.GoogleCredentialsPath == "" {
		return fmt.Errorf("GOOGLE_CREDENTIALS_PATH environment variable not set")
	}
	return nil
}

// IsProduction reports whether the app runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func stringFromEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return v, nil
}

func int64ListFromEnv(key string) ([]int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return nil, nil
	}

	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", key, part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
