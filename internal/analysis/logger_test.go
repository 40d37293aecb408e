package analysis

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexicone42/setbreak-sub000/internal/logger"
)

// captureLogs routes the global logger into a buffer for the rest of the
// test. Callers must not be parallel.
func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	cl, err := logger.NewCentralLoggerWithWriter(&logger.LoggingConfig{
		DefaultLevel: level,
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: true, Level: level},
	}, &buf)
	require.NoError(t, err)

	prev := logger.Global()
	logger.SetGlobal(cl)
	t.Cleanup(func() { logger.SetGlobal(prev) })
	return &buf
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger())
}

func TestGetLoggerFollowsGlobal(t *testing.T) {
	buf := captureLogs(t, "debug")
	GetLogger().Info("hello", logger.Int("n", 42))
	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "n=42")
}

func TestRunIDOnEveryRunLine(t *testing.T) {
	buf := captureLogs(t, "info")
	store := openStore(t)
	addTracks(t, store, "/m/a.wav", "/m/b.corrupt.wav")

	_, err := New(store, &fakeDecoder{}, &fakeEngine{}, testSettings()).AnalyzeTracks(t.Context(), Options{Workers: 1})
	require.NoError(t, err)

	ids := regexp.MustCompile(`run_id=([0-9a-f-]{36})`).FindAllStringSubmatch(buf.String(), -1)
	require.GreaterOrEqual(t, len(ids), 3, "start, failure, chunk and completion lines")
	for _, m := range ids[1:] {
		assert.Equal(t, ids[0][1], m[1], "one run id per run")
	}
	assert.Contains(t, buf.String(), `msg="track analysis failed"`)
}

func TestLevelFiltersInfo(t *testing.T) {
	buf := captureLogs(t, "warn")
	GetLogger().Info("quiet")
	GetLogger().Warn("loud")
	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
}
