package planner

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrPlanNotFound is returned when a user has no stored plans.
var ErrPlanNotFound = errors.New("meal plan not found")

// StoredPlan is a meal plan persisted for a user.
type StoredPlan struct {
	ID        string
	UserID    string
	Plan      Plan
	CreatedAt time.Time
}

// PlanRepository is a database-backed repository for meal plans.
type PlanRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewPlanRepository creates a new PlanRepository.
func NewPlanRepository(db *sql.DB) *PlanRepository {
	return &PlanRepository{db: db, now: time.Now}
}

// Save inserts a new meal plan and returns its ID.
func (r *PlanRepository) Save(ctx context.Context, userID string, plan *Plan) (string, error) {
	data, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("failed to marshal meal plan: %w", err)
	}

	id := uuid.NewString()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO meal_plans (id, user_id, plan_data, created_at) VALUES (?, ?, ?, ?)`,
		id, userID, string(data), r.now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert meal plan for user %s: %w", userID, err)
	}
	return id, nil
}

// Latest returns the most recent plan saved for a user.
func (r *PlanRepository) Latest(ctx context.Context, userID string) (*StoredPlan, error) {
	plans, err := r.ListRecentByUserID(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, ErrPlanNotFound
	}
	return &plans[0], nil
}

// ListRecentByUserID retrieves the N most recent meal plans for a given user.
func (r *PlanRepository) ListRecentByUserID(ctx context.Context, userID string, limit int) ([]StoredPlan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, plan_data, created_at
		FROM meal_plans
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent meal plans for user %s: %w", userID, err)
	}
	defer rows.Close()

	var plans []StoredPlan
	for rows.Next() {
		var (
			sp   StoredPlan
			data string
		)
		if err := rows.Scan(&sp.ID, &sp.UserID, &data, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &sp.Plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal meal plan %s: %w", sp.ID, err)
		}
		plans = append(plans, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate meal plans: %w", err)
	}
	return plans, nil
}
