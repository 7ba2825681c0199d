package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"macro-meal-planner/internal/analysis"
	"macro-meal-planner/internal/catalog"
	"macro-meal-planner/internal/config"
	"macro-meal-planner/internal/database"
	"macro-meal-planner/internal/importer"
	"macro-meal-planner/internal/llm"
	"macro-meal-planner/internal/metrics"
	"macro-meal-planner/internal/planner"
	"macro-meal-planner/internal/shopping"
	"macro-meal-planner/internal/storage"
)

const predictionCacheFile = "prediction_cache.json"

// App holds the application's dependencies.
type App struct {
	cfg    *config.Config
	logger *zap.SugaredLogger

	db        *database.DB
	catalog   *catalog.Repository
	plans     *planner.PlanRepository
	shopping  *shopping.Repository
	metrics   *metrics.Store
	snapshots *storage.SnapshotStore
	slots     *config.SlotTemplates

	gemini    *llm.GeminiClient
	predictor *llm.CachedPredictor
}

// New opens the database and the snapshot store and loads the meal slot templates.
func New(cfg *config.Config, logger *zap.SugaredLogger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	slots, err := config.LoadSlots(cfg.PlannerConfigPath)
	if err != nil {
		return nil, err
	}

	snapshots, err := storage.NewSnapshotStore(cfg.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot store: %w", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		catalog:   catalog.NewRepository(db.SQL),
		plans:     planner.NewPlanRepository(db.SQL),
		shopping:  shopping.NewRepository(db.SQL),
		metrics:   metrics.NewStore(db.SQL),
		snapshots: snapshots,
		slots:     slots,
	}, nil
}

func (a *App) Config() *config.Config              { return a.cfg }
func (a *App) Slots() *config.SlotTemplates        { return a.slots }
func (a *App) Plans() *planner.PlanRepository      { return a.plans }
func (a *App) ShoppingLists() *shopping.Repository { return a.shopping }
func (a *App) Metrics() *metrics.Store             { return a.metrics }
func (a *App) Snapshots() *storage.SnapshotStore   { return a.snapshots }

// DataPaths lists the on-disk locations reported in health checks.
func (a *App) DataPaths() []string {
	return []string{a.cfg.DatabasePath, a.cfg.SnapshotPath}
}

// LoadCatalog reads the catalog from the database, falling back to the latest
// snapshot when no catalog has been imported yet.
func (a *App) LoadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	n, err := a.catalog.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrDataUnavailable, err)
	}

	var c *catalog.Catalog
	source := "database"
	if n > 0 {
		c, err = catalog.Load(ctx, a.catalog, a.catalog)
	} else {
		source = "snapshot"
		c, err = catalog.Load(ctx, a.snapshots, a.snapshots)
	}
	if err != nil {
		return nil, err
	}

	a.logger.Infow("Loaded catalog", "source", source, "dishes", c.Len(), "skipped", c.Skipped())
	return c, nil
}

// Planner builds a planner over the current catalog.
func (a *App) Planner(ctx context.Context) (*planner.Planner, error) {
	c, err := a.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return planner.NewPlanner(c, a.logger), nil
}

// Analyzer returns the meal photo analyzer, or nil when no Gemini key is configured.
func (a *App) Analyzer(ctx context.Context) (*analysis.Analyzer, error) {
	if a.cfg.GeminiAPIKey == "" {
		return nil, nil
	}
	if a.predictor == nil {
		gemini, err := llm.NewGeminiClient(ctx, a.cfg, a.logger)
		if err != nil {
			return nil, err
		}
		cachePath := filepath.Join(filepath.Dir(a.cfg.DatabasePath), predictionCacheFile)
		predictor, err := llm.NewCachedPredictor(gemini, cachePath, a.logger)
		if err != nil {
			gemini.Close()
			return nil, err
		}
		a.gemini, a.predictor = gemini, predictor
	}
	return analysis.NewAnalyzer(a.predictor, a.predictor, a.metrics, a.logger), nil
}

// Importer returns an importer that writes into the catalog tables and snapshots every run.
func (a *App) Importer() *importer.Importer {
	return importer.New(a.catalog, a.snapshots, a.logger)
}

// GeneratePlan assembles a plan, records its execution and, when userID is not
// empty, stores it together with its shopping list. The returned ID is empty
// for unsaved plans.
func (a *App) GeneratePlan(ctx context.Context, p *planner.Planner, userID string, req planner.Request) (*planner.Plan, string, error) {
	plan, meta, err := p.GeneratePlanWithMeta(ctx, req)
	if recErr := a.metrics.RecordMeta(meta); recErr != nil {
		a.logger.Warnw("Failed to record metrics", "agent", meta.AgentName, "error", recErr)
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate plan: %w", err)
	}
	if userID == "" {
		return plan, "", nil
	}

	planID, err := a.plans.Save(ctx, userID, plan)
	if err != nil {
		return plan, "", err
	}
	list := &shopping.ShoppingList{UserID: userID, MealPlanID: planID, Items: shopping.FromPlan(plan)}
	if _, err := a.shopping.Save(ctx, list); err != nil {
		return plan, planID, err
	}
	return plan, planID, nil
}

// SnapshotCatalog writes the catalog currently in the database to a new snapshot.
func (a *App) SnapshotCatalog(ctx context.Context) (string, error) {
	dishes, err := a.catalog.Dishes(ctx)
	if err != nil {
		return "", err
	}
	if len(dishes) == 0 {
		return "", fmt.Errorf("%w: catalog is empty", catalog.ErrDataUnavailable)
	}
	links, err := a.catalog.IngredientLinks(ctx)
	if err != nil {
		return "", err
	}
	return a.snapshots.Save(storage.Snapshot{Source: "database", Dishes: dishes, Ingredients: links})
}

// Close releases the Gemini client and the database and persists the prediction cache.
func (a *App) Close() error {
	var errs []error
	if a.predictor != nil {
		errs = append(errs, a.predictor.SaveCache())
	}
	if a.gemini != nil {
		errs = append(errs, a.gemini.Close())
	}
	errs = append(errs, a.db.Close())
	return errors.Join(errs...)
}
