package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(t *testing.T, cfg *LoggingConfig) (*CentralLogger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	cl, err := NewCentralLoggerWithWriter(cfg, buf)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, cl.Close()) })
	return cl, buf
}

func TestModuleLoggerWritesModuleAndFields(t *testing.T) {
	t.Parallel()

	cl, buf := newBufferLogger(t, &LoggingConfig{DefaultLevel: "info"})
	log := cl.Module("analysis").Module("worker").With(Int("worker", 2))
	log.Info("track analyzed", Int64("track_id", 7), Float64("seconds", 1.23456))

	out := buf.String()
	assert.Contains(t, out, "module=analysis.worker")
	assert.Contains(t, out, "worker=2")
	assert.Contains(t, out, "track_id=7")
	assert.Contains(t, out, "seconds=1.235")
	assert.NotContains(t, out, "time=")
}

func TestModuleLevelsFilter(t *testing.T) {
	t.Parallel()

	cl, buf := newBufferLogger(t, &LoggingConfig{
		DefaultLevel: "warn",
		Console:      &ConsoleOutput{Enabled: true, Level: "trace"},
		ModuleLevels: map[string]string{"datastore": "trace"},
	})

	cl.Module("decoder").Info("hidden")
	cl.Module("datastore").Trace("sql query")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "level=TRACE")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	cl, buf := newBufferLogger(t, &LoggingConfig{})
	ctx := WithTraceID(context.Background(), "run-1")
	cl.Module("analysis").WithContext(ctx).Info("started")

	assert.Contains(t, buf.String(), "trace_id=run-1")
}

func TestFileOutputIsJSON(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "setbreak.log")
	cl, err := NewCentralLoggerWithWriter(&LoggingConfig{
		Console:    &ConsoleOutput{Enabled: false},
		FileOutput: &FileOutput{Enabled: true, Path: path, Level: "debug"},
	}, nil)
	require.NoError(t, err)

	cl.Module("calibrate").Info("beta computed", String("score", "energy"), Duration("took", 1500*time.Millisecond))
	require.NoError(t, cl.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &rec))
	assert.Equal(t, "calibrate", rec["module"])
	assert.Equal(t, "energy", rec["score"])
	assert.Equal(t, "1.5s", rec["took"])
}

func TestInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLoggerWithWriter(&LoggingConfig{Timezone: "Mars/Olympus"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestErrorFieldNil(t *testing.T) {
	t.Parallel()

	f := Error(nil)
	assert.Equal(t, "error", f.Key)
	assert.Nil(t, f.Value)
}
