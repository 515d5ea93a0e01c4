package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cimedic/internal/diagnosis"
	"github.com/dshills/cimedic/internal/engine"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_RecordAndList(t *testing.T) {
	s := openTest(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, engine.Result{
		RunID:        "run-1",
		Diagnosis:    diagnosis.Diagnosis{Kind: diagnosis.MissingModule, Primary: "oas"},
		Strategy:     "import_removal",
		Status:       engine.StatusApplied,
		FilesTouched: []string{"manage.py"},
		Explanation:  "Removed 1 import(s)",
	}))
	require.NoError(t, s.Record(ctx, engine.Result{
		RunID:       "run-2",
		Diagnosis:   diagnosis.Diagnosis{Kind: diagnosis.Unknown},
		Status:      engine.StatusNoMatch,
		Explanation: "no signature",
		DryRun:      true,
	}))

	entries, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "run-2", entries[0].RunID)
	assert.Equal(t, "no_match", entries[0].Status)
	assert.Empty(t, entries[0].FilesTouched)
	assert.True(t, entries[0].DryRun)

	assert.Equal(t, "run-1", entries[1].RunID)
	assert.Equal(t, "missing_module", entries[1].Kind)
	assert.Equal(t, "oas", entries[1].Primary)
	assert.Equal(t, []string{"manage.py"}, entries[1].FilesTouched)
	assert.True(t, entries[1].RecordedAt.Equal(base.Add(time.Minute)))
}

func TestStore_ListLimit(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Record(ctx, engine.Result{RunID: id, Status: engine.StatusApplied}))
	}

	entries, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "c", entries[0].RunID)
}

func TestStore_DuplicateRunID(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	require.NoError(t, s.Record(ctx, engine.Result{RunID: "dup"}))
	assert.Error(t, s.Record(ctx, engine.Result{RunID: "dup"}))
}

func TestStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), engine.Result{RunID: "persisted"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	entries, err := s.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "persisted", entries[0].RunID)
}
