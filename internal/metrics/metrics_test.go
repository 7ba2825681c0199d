package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"macro-meal-planner/internal/database"
	"macro-meal-planner/internal/shared"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "metrics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db.SQL)
}

func TestStore(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.RecordMeta(shared.AgentMeta{
		AgentName: "NutrientPredictor",
		Usage:     shared.TokenUsage{PromptTokens: 100, CompletionTokens: 20, Model: "gemini"},
		Latency:   1500 * time.Millisecond,
	}))
	require.NoError(t, store.RecordMeta(shared.AgentMeta{
		AgentName: "PlanAssembler",
		Latency:   500 * time.Millisecond,
	}))
	require.NoError(t, store.RecordMeta(shared.AgentMeta{}), "anonymous metas are ignored")
	require.NoError(t, store.Record(ExecutionMetric{
		AgentName:    "IngredientPredictor",
		PromptTokens: 999,
		Timestamp:    time.Now().AddDate(0, 0, -30),
	}))

	t.Run("GetDailyUsage", func(t *testing.T) {
		usage, err := store.GetDailyUsage(7)
		require.NoError(t, err)
		require.Len(t, usage, 1)

		today := usage[0]
		assert.Equal(t, time.Now().UTC().Format("2006-01-02"), today.Date)
		assert.Equal(t, 100, today.TotalPrompt)
		assert.Equal(t, 20, today.TotalCompletion)
		assert.Equal(t, 2, today.TotalExecution)
		assert.Equal(t, int64(1000), today.AvgLatencyMS)
	})

	t.Run("Cleanup", func(t *testing.T) {
		removed, err := store.Cleanup(7)
		require.NoError(t, err)
		assert.Equal(t, int64(1), removed)

		usage, err := store.GetDailyUsage(60)
		require.NoError(t, err)
		require.Len(t, usage, 1)
		assert.Equal(t, 2, usage[0].TotalExecution)
	})
}

func TestGetSysHealth(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin"), make([]byte, 2048), 0644))

	h := GetSysHealth(dir, filepath.Join(dir, "missing"))
	assert.Equal(t, "2.0 KB", h.DataDiskSize)
	assert.Positive(t, h.Goroutines)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 MB", formatBytes(1536*1024))
}
