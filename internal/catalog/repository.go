package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Repository is a SQLite-backed store for the dish catalog.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Dishes returns every stored dish row, eligible or not.
func (r *Repository) Dishes(ctx context.Context) ([]DishRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, total_calories, total_fat, total_carb, total_protein, total_mass
		FROM dishes
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dishes: %w", err)
	}
	defer rows.Close()

	var dishes []DishRow
	for rows.Next() {
		var d DishRow
		if err := rows.Scan(&d.ID, &d.Name, &d.TotalCalories, &d.TotalFat, &d.TotalCarb, &d.TotalProtein, &d.TotalMass); err != nil {
			return nil, fmt.Errorf("failed to scan dish: %w", err)
		}
		dishes = append(dishes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dishes: %w", err)
	}
	return dishes, nil
}

// IngredientLinks returns every stored dish-ingredient link.
func (r *Repository) IngredientLinks(ctx context.Context) ([]IngredientLink, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT dish_id, ingredient_name, position
		FROM dish_ingredients
		ORDER BY dish_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dish ingredients: %w", err)
	}
	defer rows.Close()

	var links []IngredientLink
	for rows.Next() {
		var l IngredientLink
		if err := rows.Scan(&l.DishID, &l.Name, &l.Position); err != nil {
			return nil, fmt.Errorf("failed to scan dish ingredient: %w", err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dish ingredients: %w", err)
	}
	return links, nil
}

// ReplaceAll swaps the stored catalog for the given tables in a single transaction.
// IDs are trimmed as in New. Links pointing at unknown dishes are dropped.
func (r *Repository) ReplaceAll(ctx context.Context, dishes []DishRow, links []IngredientLink) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM dish_ingredients`); err != nil {
		return fmt.Errorf("failed to clear dish ingredients: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dishes`); err != nil {
		return fmt.Errorf("failed to clear dishes: %w", err)
	}

	known := make(map[string]struct{}, len(dishes))
	for _, d := range dishes {
		d.ID = strings.TrimSpace(d.ID)
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dishes (id, name, total_calories, total_fat, total_carb, total_protein, total_mass)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.Name, d.TotalCalories, d.TotalFat, d.TotalCarb, d.TotalProtein, d.TotalMass)
		if err != nil {
			return fmt.Errorf("failed to insert dish %s: %w", d.ID, err)
		}
		known[d.ID] = struct{}{}
	}

	positions := make(map[string]int)
	for _, l := range links {
		l.DishID = strings.TrimSpace(l.DishID)
		if _, ok := known[l.DishID]; !ok {
			continue
		}
		pos := positions[l.DishID]
		positions[l.DishID] = pos + 1
		_, err := tx.ExecContext(ctx, `
			INSERT INTO dish_ingredients (dish_id, position, ingredient_name)
			VALUES (?, ?, ?)`,
			l.DishID, pos, l.Name)
		if err != nil {
			return fmt.Errorf("failed to insert ingredient for dish %s: %w", l.DishID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit catalog: %w", err)
	}
	return nil
}

// Count returns the number of stored dishes.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dishes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count dishes: %w", err)
	}
	return n, nil
}
