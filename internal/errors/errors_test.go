package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestBuilderKeepsExplicitFields(t *testing.T) {
	t.Parallel()

	sentinel := NewStd("unsupported format")
	ee := New(fmt.Errorf("decode track: %w", sentinel)).
		Component("decoder").
		Category(CategoryValidation).
		Context("extension", "xyz").
		TrackContext(42).
		Build()

	assert.Equal(t, "decoder", ee.GetComponent())
	assert.True(t, Is(ee, sentinel), "sentinel must stay reachable through the chain")
	assert.True(t, IsCategory(ee, CategoryValidation))
	assert.False(t, IsNotFound(ee))

	ctx := ee.GetContext()
	assert.Equal(t, "xyz", ctx["extension"])
	assert.Equal(t, int64(42), ctx["track_id"])
}

func TestGetContextReturnsCopy(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).Context("k", "v").Build()
	ctx := ee.GetContext()
	ctx["k"] = "changed"
	assert.Equal(t, "v", ee.GetContext()["k"])
}

func TestPriorityFallsBackToMedium(t *testing.T) {
	t.Parallel()

	ee := New(NewStd("x")).Priority("urgent").Build()
	assert.Equal(t, PriorityMedium, ee.Priority)
}

type recordingReporter struct {
	got []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) { r.got = append(r.got, ee) }
func (r *recordingReporter) IsEnabled() bool               { return true }

func TestReporterReceivesDetectedCategory(t *testing.T) {
	rep := &recordingReporter{}
	SetTelemetryReporter(rep)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(NewStd("ffmpeg exited")).Component("decoder").Build()

	require.Len(t, rep.got, 1)
	assert.Same(t, ee, rep.got[0])
	assert.Equal(t, CategoryCommandExecution, ee.Category)
}

func TestScrubMessageForPrivacy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		absent  string
		present string
	}{
		{"url query", "GET https://example.com/x?token=abc", "abc", "[REDACTED]"},
		{"password", "dsn password=hunter2", "hunter2", "[REDACTED]"},
		{"home dir", "open /home/alice/music/gd77.flac", "alice", "/home/[USER]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out := scrubMessageForPrivacy(tt.input)
			assert.NotContains(t, out, tt.absent)
			assert.Contains(t, out, tt.present)
		})
	}
}
