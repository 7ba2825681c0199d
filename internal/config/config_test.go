package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewFromEnv(t *testing.T) {
	// Helper function to set environment variables for a test
	setEnv := func(key, value string) {
		t.Helper()
		t.Setenv(key, value)
	}

	t.Run("Defaults", func(t *testing.T) {
		for _, key := range []string{"APP_ENV", "PORT", "DATABASE_PATH", "PREDICTOR_RPM", "TELEGRAM_ALLOWED_USER_IDS", "ADMIN_TELEGRAM_ID"} {
			setEnv(key, "")
		}

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.Port != "8080" {
			t.Errorf("Expected Port to be '8080', got '%s'", cfg.Port)
		}
		if cfg.DatabasePath != "data/planner.db" {
			t.Errorf("Expected DatabasePath to be 'data/planner.db', got '%s'", cfg.DatabasePath)
		}
		if cfg.PredictorRPM != 15 {
			t.Errorf("Expected PredictorRPM to be 15, got %d", cfg.PredictorRPM)
		}
		if cfg.IsProduction() {
			t.Error("Expected development environment by default")
		}
	})

	t.Run("Overrides", func(t *testing.T) {
		setEnv("APP_ENV", "production")
		setEnv("DATABASE_PATH", "/tmp/x.db")
		setEnv("PREDICTOR_RPM", "30")
		setEnv("TELEGRAM_ALLOWED_USER_IDS", "12, 34")
		setEnv("ADMIN_TELEGRAM_ID", "12")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !cfg.IsProduction() {
			t.Error("Expected production environment")
		}
		if cfg.DatabasePath != "/tmp/x.db" {
			t.Errorf("Expected DatabasePath '/tmp/x.db', got '%s'", cfg.DatabasePath)
		}
		if cfg.PredictorRPM != 30 {
			t.Errorf("Expected PredictorRPM 30, got %d", cfg.PredictorRPM)
		}
		if len(cfg.TelegramAllowedUserIDs) != 2 || cfg.TelegramAllowedUserIDs[1] != 34 {
			t.Errorf("Expected allowed IDs [12 34], got %v", cfg.TelegramAllowedUserIDs)
		}
		if cfg.AdminTelegramID != 12 {
			t.Errorf("Expected AdminTelegramID 12, got %d", cfg.AdminTelegramID)
		}
	})

	t.Run("InvalidPredictorRPM", func(t *testing.T) {
		setEnv("PREDICTOR_RPM", "fast")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for non-numeric PREDICTOR_RPM, got nil")
		}
	})

	t.Run("InvalidAllowedUserIDs", func(t *testing.T) {
		setEnv("PREDICTOR_RPM", "")
		setEnv("TELEGRAM_ALLOWED_USER_IDS", "12,abc")

		if _, err := NewFromEnv(); err == nil {
			t.Fatal("Expected an error for malformed TELEGRAM_ALLOWED_USER_IDS, got nil")
		}
	})
}

func TestRequireTelegram(t *testing.T) {
	cfg := &Config{}
	err := cfg.RequireTelegram()
	if err == nil {
		t.Fatal("Expected an error for missing TELEGRAM_BOT_TOKEN, got nil")
	}
	expectedError := "TELEGRAM_BOT_TOKEN environment variable not set"
	if err.Error() != expectedError {
		t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
	}

	cfg.TelegramBotToken = "token"
	cfg.TelegramWebhookURL = "https://example.test/webhook"
	if err := cfg.RequireTelegram(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestSlots(t *testing.T) {
	t.Run("BuiltIn", func(t *testing.T) {
		slots := DefaultSlots()

		if got := slots.Slot(3, 1); got.Name != "Lunch" || got.Time != "12:30 PM" {
			t.Errorf("Expected Lunch at 12:30 PM, got %+v", got)
		}
		if got := slots.Slot(4, 1); got.Name != "Mid-Morning Snack" {
			t.Errorf("Expected Mid-Morning Snack, got %+v", got)
		}
		// Counts without a template borrow the two-meal template.
		if got := slots.Slot(5, 0); got.Name != "Breakfast" || got.Time != "09:00 AM" {
			t.Errorf("Expected Breakfast at 09:00 AM, got %+v", got)
		}
		if got := slots.Slot(5, 3); got.Name != "Meal 4" || got.Time != "12:00 PM" {
			t.Errorf("Expected Meal 4 at 12:00 PM, got %+v", got)
		}
	})

	t.Run("FromFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "planner.toml")
		content := "[[meals.1]]\nname = \"Feast\"\ntime = \"06:00 PM\"\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		slots, err := LoadSlots(path)
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if got := slots.Slot(1, 0); got.Name != "Feast" {
			t.Errorf("Expected Feast, got %+v", got)
		}
	})

	t.Run("InvalidMealCount", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "planner.toml")
		content := "[[meals.two]]\nname = \"Lunch\"\ntime = \"12:00 PM\"\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadSlots(path); err == nil {
			t.Fatal("Expected an error for a non-numeric meal count, got nil")
		}
	})

	t.Run("MissingFile", func(t *testing.T) {
		if _, err := LoadSlots(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
			t.Fatal("Expected an error for a missing file, got nil")
		}
	})
}
