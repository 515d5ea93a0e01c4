package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Counts(t *testing.T) {
	r := New()

	r.RecordRun("applied", "missing_module", 120*time.Millisecond)
	r.RecordRun("applied", "missing_module", 80*time.Millisecond)
	r.RecordRun("no_match", "unknown", time.Millisecond)
	r.RecordEdit("remove_line")
	r.RecordEdit("remove_line")
	r.RecordEdit("add_dependency")
	r.RecordFilesTouched(3)
	r.RecordAdvisoryAttempt("groq", "error")
	r.RecordAdvisoryAttempt("openai", "success")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.RunsTotal.WithLabelValues("applied", "missing_module")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RunsTotal.WithLabelValues("no_match", "unknown")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.EditsTotal.WithLabelValues("remove_line")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.FilesTouchedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.AdvisoryAttemptsTotal.WithLabelValues("groq", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.RunDurationSeconds))
}

func TestRecorder_PrivateRegistries(t *testing.T) {
	a, b := New(), New()
	a.RecordEdit("remove_line")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.EditsTotal.WithLabelValues("remove_line")))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := New()
	r.RecordRun("skipped", "command_not_found", time.Second)

	path := filepath.Join(t.TempDir(), "cimedic.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `cimedic_runs_total{kind="command_not_found",status="skipped"} 1`)
	assert.Contains(t, string(data), "cimedic_run_duration_seconds_count 1")
}

func TestRecorder_WriteTextfileBadDir(t *testing.T) {
	err := New().WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
	assert.Error(t, err)
}
