package importer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"macro-meal-planner/internal/catalog"
	"macro-meal-planner/internal/storage"
)

// ErrMissingColumn is returned when a table lacks a required header.
var ErrMissingColumn = errors.New("missing column")

var (
	dishColumns       = []string{"dish_id", "total_calories", "total_fat", "total_carb", "total_protein", "total_mass"}
	ingredientColumns = []string{"dish_id", "ingr_name"}
)

// Tables is a parsed catalog ready to be stored.
type Tables struct {
	Dishes      []catalog.DishRow
	Ingredients []catalog.IngredientLink
}

// Source produces catalog tables from an external system.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (*Tables, error)
}

// Sink stores a full catalog, replacing whatever was there before.
type Sink interface {
	ReplaceAll(ctx context.Context, dishes []catalog.DishRow, links []catalog.IngredientLink) error
}

// Result summarizes an import run.
type Result struct {
	Dishes       int
	Eligible     int
	Ingredients  int
	SnapshotPath string
}

// Importer moves a catalog from a Source into a Sink and keeps a snapshot of it.
type Importer struct {
	sink      Sink
	snapshots *storage.SnapshotStore
	logger    *zap.SugaredLogger
}

// New creates a new Importer. snapshots may be nil.
func New(sink Sink, snapshots *storage.SnapshotStore, logger *zap.SugaredLogger) *Importer {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Importer{sink: sink, snapshots: snapshots, logger: logger}
}

// Run fetches the tables from src, validates them and stores them.
func (i *Importer) Run(ctx context.Context, src Source) (*Result, error) {
	tables, err := src.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog from %s: %w", src.Name(), err)
	}

	// Validate before touching the sink.
	if err := checkFinite(tables.Dishes); err != nil {
		return nil, fmt.Errorf("invalid catalog from %s: %w", src.Name(), err)
	}
	c, err := catalog.New(tables.Dishes, tables.Ingredients)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog from %s: %w", src.Name(), err)
	}

	if err := i.sink.ReplaceAll(ctx, tables.Dishes, tables.Ingredients); err != nil {
		return nil, fmt.Errorf("failed to store catalog: %w", err)
	}

	res := &Result{
		Dishes:      len(tables.Dishes),
		Eligible:    c.Len(),
		Ingredients: len(tables.Ingredients),
	}

	if i.snapshots != nil {
		path, err := i.snapshots.Save(storage.Snapshot{
			CreatedAt:   time.Now(),
			Source:      src.Name(),
			Dishes:      tables.Dishes,
			Ingredients: tables.Ingredients,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to snapshot catalog: %w", err)
		}
		res.SnapshotPath = path
	}

	i.logger.Infow("Imported catalog",
		"source", src.Name(),
		"dishes", res.Dishes,
		"eligible", res.Eligible,
		"ingredients", res.Ingredients,
	)
	if skipped := c.Skipped(); skipped > 0 {
		i.logger.Warnw("Skipped dishes without calories", "count", skipped)
	}
	return res, nil
}

// ParseTables turns two header-led row sets into catalog tables.
// Header names are matched case-insensitively and extra columns are ignored.
func ParseTables(dishRows, ingredientRows [][]string) (*Tables, error) {
	dishes, err := parseDishes(dishRows)
	if err != nil {
		return nil, err
	}
	links, err := parseIngredients(ingredientRows)
	if err != nil {
		return nil, err
	}
	return &Tables{Dishes: dishes, Ingredients: links}, nil
}

func parseDishes(rows [][]string) ([]catalog.DishRow, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("dish table is empty")
	}
	cols, err := headerIndex(rows[0], dishColumns)
	if err != nil {
		return nil, fmt.Errorf("dish table: %w", err)
	}
	nameCol, hasName := indexOf(rows[0], "name")

	var dishes []catalog.DishRow
	for n, row := range rows[1:] {
		id := cell(row, cols["dish_id"])
		if id == "" {
			continue
		}

		d := catalog.DishRow{ID: id}
		if hasName {
			d.Name = cell(row, nameCol)
		}
		fields := []struct {
			column string
			dest   *float64
		}{
			{"total_calories", &d.TotalCalories},
			{"total_fat", &d.TotalFat},
			{"total_carb", &d.TotalCarb},
			{"total_protein", &d.TotalProtein},
			{"total_mass", &d.TotalMass},
		}
		for _, f := range fields {
			v, err := parseNumber(cell(row, cols[f.column]))
			if err != nil {
				return nil, fmt.Errorf("dish table row %d column %s: %w", n+2, f.column, err)
			}
			*f.dest = v
		}
		dishes = append(dishes, d)
	}
	return dishes, nil
}

func parseIngredients(rows [][]string) ([]catalog.IngredientLink, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	cols, err := headerIndex(rows[0], ingredientColumns)
	if err != nil {
		return nil, fmt.Errorf("ingredient table: %w", err)
	}

	positions := make(map[string]int)
	var links []catalog.IngredientLink
	for _, row := range rows[1:] {
		id := cell(row, cols["dish_id"])
		name := cell(row, cols["ingr_name"])
		if id == "" || name == "" {
			continue
		}
		links = append(links, catalog.IngredientLink{DishID: id, Name: name, Position: positions[id]})
		positions[id]++
	}
	return links, nil
}

func headerIndex(header []string, required []string) (map[string]int, error) {
	cols := make(map[string]int, len(required))
	for _, name := range required {
		i, ok := indexOf(header, name)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrMissingColumn, name)
		}
		cols[name] = i
	}
	return cols, nil
}

func indexOf(header []string, name string) (int, bool) {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i, true
		}
	}
	return 0, false
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseNumber reads a spreadsheet number. Blank cells count as zero.
func parseNumber(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

// checkFinite rejects dish rows that neither the database nor a JSON snapshot can hold.
func checkFinite(dishes []catalog.DishRow) error {
	for _, d := range dishes {
		for column, v := range map[string]float64{
			"total_calories": d.TotalCalories,
			"total_fat":      d.TotalFat,
			"total_carb":     d.TotalCarb,
			"total_protein":  d.TotalProtein,
			"total_mass":     d.TotalMass,
		} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("dish %s column %s: invalid number %v", d.ID, column, v)
			}
		}
	}
	return nil
}
