package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"macro-meal-planner/internal/app"
	"macro-meal-planner/internal/config"
	"macro-meal-planner/internal/logging"
)

var (
	cfg         *config.Config
	logger      *zap.SugaredLogger
	application *app.App
)

var rootCmd = &cobra.Command{
	Use:   "macro-meal-planner",
	Short: "Assemble daily meal plans from a dish catalog",
	Long: `macro-meal-planner builds daily meal plans that hit a calorie target and
macronutrient ratios by picking distinct dishes from a nutrition catalog.
It also imports the catalog from a spreadsheet or an HTML page.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	if cfg, err = config.NewFromEnv(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if logger, err = logging.New(cfg.Env); err != nil {
		return err
	}
	if application, err = app.New(cfg, logger); err != nil {
		return err
	}
	return nil
}

func teardown(cmd *cobra.Command, args []string) error {
	if application == nil {
		return nil
	}
	err := application.Close()
	application = nil
	_ = logger.Sync()
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if application != nil {
			application.Close()
		}
		os.Exit(1)
	}
}
