package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"macro-meal-planner/internal/api"
	"macro-meal-planner/internal/app"
	"macro-meal-planner/internal/catalog"
	"macro-meal-planner/internal/config"
	"macro-meal-planner/internal/logging"
	"macro-meal-planner/internal/telegram"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize storage
	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatalw("Failed to initialize application", "error", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Errorw("Error closing application", "error", err)
		}
	}()

	// 3. Initialize Services
	mealPlanner, err := application.Planner(ctx)
	if errors.Is(err, catalog.ErrDataUnavailable) {
		logger.Warnw("Starting without a catalog; run an import first", "error", err)
	} else if err != nil {
		logger.Fatalw("Failed to load catalog", "error", err)
	}

	analyzer, err := application.Analyzer(ctx)
	if err != nil {
		logger.Fatalw("Failed to initialize meal analyzer", "error", err)
	}

	opts := api.Options{
		Planner:   mealPlanner,
		Metrics:   application.Metrics(),
		Slots:     application.Slots(),
		JWTSecret: []byte(cfg.APIJWTSecret),
		DataPaths: application.DataPaths(),
		Logger:    logger,
	}
	if analyzer != nil {
		opts.Analyzer = analyzer
	}

	// 4. Initialize Telegram Bot
	var bot *telegram.Bot
	if cfg.TelegramBotToken != "" {
		deps := telegram.Deps{
			Planner:   mealPlanner,
			Plans:     application.Plans(),
			Shopping:  application.ShoppingLists(),
			Metrics:   application.Metrics(),
			Slots:     application.Slots(),
			DataPaths: application.DataPaths(),
			Logger:    logger,
		}
		if analyzer != nil {
			deps.Analyzer = analyzer
		}
		bot, err = telegram.NewBot(cfg, deps)
		if err != nil {
			logger.Fatalw("Failed to initialize Telegram Bot", "error", err)
		}
		opts.Webhook = http.HandlerFunc(bot.HandleWebhook)
	}

	// 5. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewServer(opts).Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  time.Minute,
	}

	go func() {
		logger.Infow("Server listening", "addr", srv.Addr, "env", cfg.Env, "telegram", bot != nil, "analysis", analyzer != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Infow("Shutting down server...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorw("Server forced to shutdown", "error", err)
	}
	if bot != nil {
		bot.Wait()
	}

	logger.Infow("Server exiting")
}
