package dsp

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexicone42/setbreak-sub000/internal/decoder"
	"github.com/lexicone42/setbreak-sub000/internal/engine"
	"github.com/lexicone42/setbreak-sub000/internal/errors"
)

const testRate = 22050

func sine(freq, seconds, amp float64) *decoder.DecodedAudio {
	n := int(seconds * testRate)
	s := make([]float32, n)
	for i := range s {
		s[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/testRate))
	}
	return &decoder.DecodedAudio{Samples: s, SampleRate: testRate, Channels: 1}
}

// clickTrack renders short decaying 1 kHz bursts at bpm.
func clickTrack(bpm, seconds float64) *decoder.DecodedAudio {
	n := int(seconds * testRate)
	s := make([]float32, n)
	period := int(60 / bpm * testRate)
	burst := testRate / 50
	for start := 0; start < n; start += period {
		for j := 0; j < burst && start+j < n; j++ {
			env := math.Exp(-float64(j) / float64(burst/5))
			s[start+j] = float32(0.8 * env * math.Sin(2*math.Pi*1000*float64(j)/testRate))
		}
	}
	return &decoder.DecodedAudio{Samples: s, SampleRate: testRate, Channels: 1}
}

func newSession(t *testing.T, cfg engine.Config) engine.Session {
	t.Helper()
	sess, err := New().NewSession(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })
	return sess
}

func TestSinePitchAndKey(t *testing.T) {
	t.Parallel()
	sess := newSession(t, engine.DefaultConfig())

	res, err := sess.Analyze(context.Background(), sine(440, 4, 0.5))
	require.NoError(t, err)

	require.NotNil(t, res.Pitch.MeanPitch)
	assert.InDelta(t, 440, *res.Pitch.MeanPitch, 5)
	assert.True(t, strings.HasPrefix(res.Musical.Key.Key, "A "), "key %q", res.Musical.Key.Key)
	assert.InDelta(t, 4.0, res.Summary.Duration, 0.01)
	assert.InDelta(t, 0.5/math.Sqrt2, res.Summary.RMSLevel, 0.01)
	assert.Len(t, res.Spectral.MFCC, mfccCount)
	assert.Len(t, res.Musical.Chroma, 12)
	assert.Greater(t, res.Classification.Features.HNR, float32(0))
}

func TestClickTrackTempo(t *testing.T) {
	t.Parallel()
	sess := newSession(t, engine.DefaultConfig())

	res, err := sess.Analyze(context.Background(), clickTrack(120, 20))
	require.NoError(t, err)

	require.NotNil(t, res.Temporal.Tempo)
	assert.InDelta(t, 120, *res.Temporal.Tempo, 4)
	assert.InDelta(t, 40, len(res.Temporal.Onsets), 4)
	assert.NotEmpty(t, res.Temporal.Beats)
	assert.Greater(t, res.Temporal.TempoStability, float32(0.8))
}

func TestSilence(t *testing.T) {
	t.Parallel()
	sess := newSession(t, engine.DefaultConfig())

	audio := &decoder.DecodedAudio{Samples: make([]float32, 2*testRate), SampleRate: testRate, Channels: 1}
	res, err := sess.Analyze(context.Background(), audio)
	require.NoError(t, err)

	assert.Equal(t, "Unknown", res.Musical.Key.Key)
	assert.Nil(t, res.Temporal.Tempo)
	assert.Nil(t, res.Pitch.MeanPitch)
	assert.Zero(t, res.Classification.Scores.Music)
	for _, seg := range res.Segments.Segments {
		assert.Equal(t, engine.LabelSilence, seg.Label)
	}
}

func TestSegmentsCoverTrack(t *testing.T) {
	t.Parallel()
	sess := newSession(t, engine.DefaultConfig())

	// quiet half then loud half
	quiet := sine(220, 15, 0.05)
	loud := sine(330, 15, 0.6)
	audio := &decoder.DecodedAudio{
		Samples:    append(quiet.Samples, loud.Samples...),
		SampleRate: testRate,
		Channels:   1,
	}
	res, err := sess.Analyze(context.Background(), audio)
	require.NoError(t, err)

	segs := res.Segments.Segments
	require.NotEmpty(t, segs)
	assert.Zero(t, segs[0].StartTime)
	for i := 1; i < len(segs); i++ {
		assert.InDelta(t, segs[i-1].StartTime+segs[i-1].Duration, segs[i].StartTime, 0.01)
	}
	require.NotEmpty(t, res.Segments.Structure)
	for _, sec := range res.Segments.Structure {
		assert.LessOrEqual(t, sec.StartTime, sec.EndTime)
		assert.NotEmpty(t, sec.SegmentIndices)
	}
	assert.NotEqual(t, engine.ShapeFlat, res.Segments.Patterns.EnergyProfile.Shape)
}

func TestTooShort(t *testing.T) {
	t.Parallel()
	sess := newSession(t, engine.DefaultConfig())

	_, err := sess.Analyze(context.Background(), sine(440, 0.1, 0.5))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooShort)
}

func TestInvalidConfig(t *testing.T) {
	t.Parallel()
	cases := []engine.Config{
		{PitchThresholdCount: 0, PitchHopMultiplier: 1},
		{PitchThresholdCount: len(yinThresholds) + 1, PitchHopMultiplier: 1},
		{PitchThresholdCount: 3, PitchHopMultiplier: 0},
	}
	for _, cfg := range cases {
		_, err := New().NewSession(cfg)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
	}
}

func TestBatchConfigSkipsOptionalStages(t *testing.T) {
	t.Parallel()
	audio := sine(440, 2, 0.5)

	full, err := newSession(t, engine.DefaultConfig()).Analyze(context.Background(), audio)
	require.NoError(t, err)
	assert.NotNil(t, full.Visualization)
	assert.NotNil(t, full.Fingerprint)

	batch, err := newSession(t, engine.BatchConfig()).Analyze(context.Background(), audio)
	require.NoError(t, err)
	assert.Nil(t, batch.Visualization)
	assert.Nil(t, batch.Fingerprint)
	for _, seg := range batch.Segments.Segments {
		assert.Equal(t, engine.LabelUnclassified, seg.Label)
	}
}

func TestClosedSession(t *testing.T) {
	t.Parallel()
	sess, err := New().NewSession(engine.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, sess.Close())

	_, err = sess.Analyze(context.Background(), sine(440, 1, 0.5))
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newSession(t, engine.DefaultConfig()).Analyze(ctx, sine(440, 2, 0.5))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWaveform(t *testing.T) {
	t.Parallel()
	w := waveform([]float32{0, 1, -1, 0.5, -0.5}, 2)
	assert.Equal(t, 3, w.SamplesPerPoint)
	assert.Equal(t, []float32{-1, -0.5}, w.Min)
	assert.Equal(t, []float32{1, 0.5}, w.Max)
}
