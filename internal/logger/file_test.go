package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/researchflow/internal/models"
)

func TestFileLogger_CreatesRunLogAndSymlink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	fl, err := NewFileLogger(dir)
	require.NoError(t, err)
	defer fl.Close()

	assert.True(t, strings.HasPrefix(filepath.Base(fl.Path()), "run-"))
	target, err := os.Readlink(filepath.Join(dir, "latest.log"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(fl.Path()), target)

	info, err := os.Stat(filepath.Join(dir, "runs"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileLogger_WritesEvents(t *testing.T) {
	dir := t.TempDir()
	fl, err := NewFileLoggerWithLevel(dir, "info")
	require.NoError(t, err)

	spec := marketSpec()
	fl.LogDebug("hidden")
	fl.LogPhase("run-1", models.PhaseCreated, models.PhasePlanning, "")
	fl.LogTaskOutcome("run-1", models.NewFailedOutcome(spec, models.ErrorKindPanic, "nil map", time.Second))
	fl.LogProgress("run-1", 1, 1)
	fl.LogWarn("checkpoint failed")
	require.NoError(t, fl.Close())

	data, err := os.ReadFile(fl.Path())
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "=== researchflow log ===")
	assert.Contains(t, out, "[INFO] [run-1] created -> planning")
	assert.Contains(t, out, "[WARN] [run-1] task market (market): failed in 1.0s: [panic] nil map")
	assert.Contains(t, out, "[WARN] checkpoint failed")
	assert.NotContains(t, out, "hidden")
	assert.NotContains(t, out, "Progress")
}

func TestFileLogger_LogSummaryWritesSnapshot(t *testing.T) {
	dir := t.TempDir()
	fl, err := NewFileLogger(dir)
	require.NoError(t, err)

	snap := completedSnapshot()
	fl.LogSummary(snap)
	require.NoError(t, fl.Close())

	data, err := os.ReadFile(fl.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "Status:     PARTIAL")

	raw, err := os.ReadFile(filepath.Join(dir, "runs", snap.RunID+".json"))
	require.NoError(t, err)
	var decoded models.Snapshot
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, snap.RunID, decoded.RunID)
	assert.Equal(t, models.PhaseCompleted, decoded.Phase)
	assert.Len(t, decoded.Outcomes, 2)
}

func TestFileLogger_CloseIsIdempotent(t *testing.T) {
	fl, err := NewFileLogger(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, fl.Close())
	require.NoError(t, fl.Close())
	fl.LogInfo("after close")
}

func TestMultiLogger(t *testing.T) {
	var a, b bytes.Buffer
	m := Multi(NewConsoleLogger(&a, "info"), nil, NewConsoleLogger(&b, "warn"), NewNoOpLogger())

	m.LogInfo("hello")
	m.LogWarn("careful")
	m.LogError("bad")
	m.LogPhase("r", models.PhaseExecuting, models.PhaseSynthesizing, "")
	m.LogTaskOutcome("r", models.NewSuccessOutcome(marketSpec(), nil, time.Second))
	m.LogProgress("r", 1, 2)
	m.LogSummary(completedSnapshot())

	assert.Contains(t, a.String(), "hello")
	assert.Contains(t, a.String(), "executing -> synthesizing")
	assert.Contains(t, a.String(), "Run Summary")
	assert.NotContains(t, b.String(), "hello")
	assert.Contains(t, b.String(), "careful")
	assert.Contains(t, b.String(), "bad")
	assert.NotContains(t, b.String(), "Progress")
}
