package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"macro-meal-planner/internal/catalog"
)

// ErrNoSnapshot is returned when the store holds no catalog snapshot yet.
var ErrNoSnapshot = errors.New("no catalog snapshot")

const (
	snapshotPrefix = "catalog_"
	snapshotLayout = "2006-01-02T15-04-05.000000000Z"
)

// Snapshot is a point-in-time copy of the catalog tables.
type Snapshot struct {
	CreatedAt   time.Time                `json:"created_at"`
	Source      string                   `json:"source,omitempty"`
	Dishes      []catalog.DishRow        `json:"dishes"`
	Ingredients []catalog.IngredientLink `json:"ingredients"`
}

// SnapshotStore provides a file-based storage for catalog snapshots.
// It also serves the latest snapshot as a catalog source.
type SnapshotStore struct {
	basePath string
}

// NewSnapshotStore creates a new SnapshotStore and ensures the base directory exists.
func NewSnapshotStore(basePath string) (*SnapshotStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	return &SnapshotStore{basePath: basePath}, nil
}

// getVersionedPath returns the full path of the snapshot taken at ts.
func (s *SnapshotStore) getVersionedPath(ts time.Time) string {
	filename := snapshotPrefix + ts.UTC().Format(snapshotLayout) + ".json"
	return filepath.Join(s.basePath, filename)
}

// Save writes a snapshot and returns the file it was written to.
// A zero CreatedAt is set to the current time. An existing snapshot is never
// overwritten: CreatedAt moves forward a nanosecond at a time until it is free.
func (s *SnapshotStore) Save(snap Snapshot) (string, error) {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now()
	}
	snap.CreatedAt = snap.CreatedAt.UTC()
	for s.Exists(snap.CreatedAt) {
		snap.CreatedAt = snap.CreatedAt.Add(time.Nanosecond)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	filePath := s.getVersionedPath(snap.CreatedAt)
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return filePath, nil
}

// List returns the snapshot files in the store, oldest first.
func (s *SnapshotStore) List() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(s.basePath, snapshotPrefix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to glob snapshot files: %w", err)
	}
	// The timestamp layout sorts lexically.
	sort.Strings(matches)
	return matches, nil
}

// Latest loads the most recent snapshot.
func (s *SnapshotStore) Latest() (*Snapshot, error) {
	files, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoSnapshot
	}
	return s.load(files[len(files)-1])
}

func (s *SnapshotStore) load(filePath string) (*Snapshot, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", filepath.Base(filePath), err)
	}
	return &snap, nil
}

// Exists checks if a snapshot taken at ts exists.
func (s *SnapshotStore) Exists(ts time.Time) bool {
	_, err := os.Stat(s.getVersionedPath(ts))
	return !os.IsNotExist(err)
}

// RemoveStaleVersions keeps the newest keep snapshots and deletes the rest.
func (s *SnapshotStore) RemoveStaleVersions(keep int) (int, error) {
	files, err := s.List()
	if err != nil {
		return 0, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(files) <= keep {
		return 0, nil
	}

	stale := files[:len(files)-keep]
	for _, match := range stale {
		if err := os.Remove(match); err != nil {
			return 0, fmt.Errorf("failed to remove stale file %s: %w", match, err)
		}
	}
	return len(stale), nil
}

// Dishes returns the dish rows of the latest snapshot.
func (s *SnapshotStore) Dishes(ctx context.Context) ([]catalog.DishRow, error) {
	snap, err := s.Latest()
	if err != nil {
		return nil, err
	}
	return snap.Dishes, nil
}

// IngredientLinks returns the ingredient links of the latest snapshot.
func (s *SnapshotStore) IngredientLinks(ctx context.Context) ([]catalog.IngredientLink, error) {
	snap, err := s.Latest()
	if err != nil {
		return nil, err
	}
	return snap.Ingredients, nil
}

// Describe returns a short human-readable label for a snapshot file.
func Describe(filePath string) string {
	name := strings.TrimSuffix(filepath.Base(filePath), ".json")
	return strings.TrimPrefix(name, snapshotPrefix)
}
