package features

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexicone42/setbreak-sub000/internal/engine"
)

func f32(v float32) *float32 { return &v }

func ramp(n int, scale float32) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i) * scale
	}
	return out
}

func testResult() *engine.Result {
	return &engine.Result{
		Summary: engine.Summary{Duration: 120, SampleRate: 44100, Channels: 2, RMSLevel: 0.2},
		Spectral: engine.Spectral{
			Centroid: []float32{1000, 2000, 3000},
			Flux:     []float32{1, 1, 1, 1},
			MFCC:     [][]float32{{1, 2}, {3, 4}},
		},
		Temporal: engine.Temporal{Tempo: f32(120), Beats: ramp(4, 0.5), Onsets: ramp(8, 0.25)},
		Pitch: engine.Pitch{
			Vibrato: &engine.Vibrato{Presence: 0.3, Rate: 5.5},
			Frames: []engine.PitchFrame{
				{Frequency: f32(440), Confidence: 0.9, Clarity: 0.8},
				{Confidence: 0.1, Clarity: 0.2},
			},
		},
		Musical: engine.Musical{
			Key:           engine.KeyEstimate{Key: "A minor", Confidence: 0.7, Alternatives: []engine.KeyCandidate{{Key: "C major"}}},
			Chroma:        []float32{1, 0, 0, 0, 0, 0, 0, 0, 0, 0.5, 0, 0},
			TimeSignature: &engine.TimeSignature{Numerator: 4, Denominator: 4},
			ChordProgression: &engine.ChordProgression{Chords: []engine.Chord{
				{Chord: "Am", StartTime: 0, Duration: 2},
				{Chord: "C", StartTime: 2, Duration: 2},
				{Chord: "Am", StartTime: 4, Duration: 2},
			}},
		},
		Segments: engine.SegmentAnalysis{
			Segments: []engine.AudioSegment{
				{StartTime: 0, Duration: 60, Label: engine.LabelMusic, Energy: 0.1},
				{StartTime: 60, Duration: 60, Label: engine.LabelMusic, Energy: 0.3, Tempo: f32(118)},
			},
			Structure: []engine.StructuralSection{
				{SectionType: engine.SectionSolo, StartTime: 60, EndTime: 120, SegmentIndices: []int{1},
					Features: engine.SectionFeatures{HarmonicStability: 0.9}},
			},
			Patterns: engine.Patterns{
				EnergyProfile: engine.EnergyProfile{
					Shape:   engine.ShapeBuilding,
					Peaks:   []engine.ProfilePoint{{Time: 90, Value: 0.8}, {Time: 100, Value: 0.4}},
					Valleys: []engine.ProfilePoint{{Time: 30, Value: 0.3}},
				},
				TensionProfile: []engine.TensionPoint{
					{Tension: 0.2, ChangeType: engine.ChangeBuild},
					{Tension: 0.9, ChangeType: engine.ChangeSuddenBuild},
					{Tension: 0.4, ChangeType: engine.ChangeRelease},
				},
				Repetitions:    []engine.RepetitionPattern{{Similarity: 0.96}, {Similarity: 0.98}},
				PeriodicEvents: []engine.PeriodicEvent{{Strength: 0.2}, {Strength: 0.7}},
			},
			Transitions: []engine.Transition{{Time: 60, TransitionType: engine.TransitionBuildUp, Strength: 0.5}},
		},
	}
}

func TestMeanStd(t *testing.T) {
	t.Parallel()
	m, s := MeanStd(nil)
	assert.Zero(t, m)
	assert.Zero(t, s)

	m, s = MeanStd([]float32{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5, m, 1e-9)
	assert.InDelta(t, 2, s, 1e-9, "population std")

	m, s = MeanStd([]float32{3})
	assert.InDelta(t, 3, m, 1e-9)
	assert.Zero(t, s)
}

func TestExtractScalars(t *testing.T) {
	t.Parallel()
	ex := Extract(7, testResult())
	a := ex.Analysis

	assert.EqualValues(t, 7, a.TrackID)
	assert.InDelta(t, 2000, *a.SpectralCentroidMean, 1e-6)
	assert.InDelta(t, 1.5, *a.MFCC0Mean, 1e-6)
	assert.InDelta(t, 3.5, *a.MFCC1Mean, 1e-6)
	assert.Zero(t, *a.MFCC12Mean, "missing coefficient stores zero")
	assert.Zero(t, *a.MFCC12Std)
	assert.Zero(t, *a.SubBandBassMean)

	assert.InDelta(t, 0.5, *a.PitchConfidenceMean, 1e-6)
	assert.InDelta(t, 5.5, *a.VibratoRate, 1e-6)
	assert.Equal(t, 4, *a.BeatCount)
	assert.Equal(t, 8, *a.OnsetCount)

	assert.Equal(t, "A minor", *a.EstimatedKey)
	assert.Equal(t, 1, *a.KeyAlternativesCount)
	assert.Equal(t, 4, *a.TimeSigNumerator)
	var chroma []float64
	require.NoError(t, json.Unmarshal([]byte(*a.ChromaVector), &chroma))
	assert.Len(t, chroma, 12)
	assert.InDelta(t, 0.5, chroma[9], 1e-9)

	assert.Equal(t, "Building", *a.EnergyShape)
	assert.InDelta(t, 0.8, *a.PeakEnergy, 1e-6)
	assert.Equal(t, 2, *a.RepetitionCount)
	assert.InDelta(t, 0.97, *a.RepetitionSimilarity, 1e-6)
	assert.Equal(t, 1, *a.TransitionCount)
	assert.Equal(t, 1, *a.SmoothTransitions)

	// valence, arousal and jam scores are filled by the scorer
	for _, slot := range a.ScoreSlots() {
		assert.Nil(t, *slot)
	}
}

func TestExtractDerived(t *testing.T) {
	t.Parallel()
	a := Extract(1, testResult()).Analysis

	assert.InDelta(t, 0.9, *a.PeakTension, 1e-6)
	assert.InDelta(t, 0.7, *a.TensionRange, 1e-6)
	assert.Equal(t, 2, *a.EnergyPeakCount)
	assert.InDelta(t, 0.3/0.6, *a.EnergyValleyDepthMean, 1e-6)
	assert.InDelta(t, 0.7, *a.RhythmicPeriodicityStrength, 1e-6)
	assert.InDelta(t, 0.5, *a.PitchedFrameRatio, 1e-9)
	assert.InDelta(t, 0.5, *a.PitchClarityMean, 1e-6)
	assert.InDelta(t, math.Sqrt2, *a.MFCCFluxMean, 1e-6)
	assert.InDelta(t, 0, *a.SpectralFluxSkewness, 1e-9, "flat flux")

	// too little data for these
	assert.Nil(t, a.LoudnessStd)
	assert.Nil(t, a.PeakLoudness)
	assert.Nil(t, a.SpectralLoudnessCorrelation)
	assert.Nil(t, a.PitchContourStd)
	assert.Nil(t, a.OnsetIntervalEntropy)
}

func TestChords(t *testing.T) {
	t.Parallel()

	count, rate, records := Chords(1, nil, 120)
	assert.Zero(t, count)
	assert.Zero(t, rate)
	assert.Empty(t, records)

	prog := testResult().Musical.ChordProgression
	count, rate, records = Chords(1, prog, 120)
	assert.Equal(t, 2, count, "distinct labels")
	assert.InDelta(t, 1.5, rate, 1e-9, "3 events over 2 minutes")
	require.Len(t, records, 3)
	assert.EqualValues(t, 1, records[2].TrackID)

	_, rate, _ = Chords(1, prog, 0)
	assert.Zero(t, rate)

	_, rate, _ = Chords(1, &engine.ChordProgression{}, 60)
	assert.Zero(t, rate)
}

func TestSegmentJoin(t *testing.T) {
	t.Parallel()
	segs := Extract(3, testResult()).Segments
	require.Len(t, segs, 2)

	assert.Nil(t, segs[0].SectionType)
	assert.Nil(t, segs[0].HarmonicStability)
	assert.Nil(t, segs[0].Tempo)
	assert.Equal(t, "Music", segs[0].Label)

	require.NotNil(t, segs[1].SectionType)
	assert.Equal(t, "Solo", *segs[1].SectionType)
	assert.InDelta(t, 0.9, *segs[1].HarmonicStability, 1e-6)
	assert.InDelta(t, 118, *segs[1].Tempo, 1e-6)
	assert.Equal(t, 1, segs[1].SegmentIndex)
}

func TestSegmentJoinFirstSectionWins(t *testing.T) {
	t.Parallel()
	sa := &engine.SegmentAnalysis{
		Segments: []engine.AudioSegment{{}},
		Structure: []engine.StructuralSection{
			{SectionType: engine.SectionVerse, SegmentIndices: []int{0}},
			{SectionType: engine.SectionChorus, SegmentIndices: []int{0}},
		},
	}
	segs := Segments(1, sa)
	assert.Equal(t, "Verse", *segs[0].SectionType)
}

func TestTensionCounts(t *testing.T) {
	t.Parallel()
	a := Extract(1, testResult()).Analysis
	assert.Equal(t, 2, *a.TensionBuildCount)
	assert.Equal(t, 1, *a.TensionReleaseCount)

	build, release := TensionCounts([]string{"BuildRelease", "Sustain", "SuddenRelease"})
	assert.Equal(t, 1, build)
	assert.Equal(t, 2, release, "a name with both counts twice")
}

func TestSoloSections(t *testing.T) {
	t.Parallel()
	sections := []engine.StructuralSection{
		{SectionType: engine.SectionSolo, StartTime: 0, EndTime: 30},
		{SectionType: engine.SectionInstrumental, StartTime: 30, EndTime: 60},
		{SectionType: engine.SectionChorus, StartTime: 60, EndTime: 100},
	}
	count, ratio := SoloSections(sections, 120)
	assert.Equal(t, 2, count)
	assert.InDelta(t, 0.5, ratio, 1e-9)

	count, ratio = SoloSections(sections, 0)
	assert.Equal(t, 2, count)
	assert.Zero(t, ratio)
}

func TestTransitionsUseTagNames(t *testing.T) {
	t.Parallel()
	ex := Extract(1, testResult())
	require.Len(t, ex.Transitions, 1)
	assert.Equal(t, "BuildUp", ex.Transitions[0].TransitionType)
	assert.Equal(t, "SuddenBuild", ex.TensionPoints[1].ChangeType)
}
