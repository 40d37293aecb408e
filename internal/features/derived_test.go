package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexicone42/setbreak-sub000/internal/engine"
)

func TestSkewness(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Skewness([]float32{1, 2}))
	assert.InDelta(t, 0, *Skewness([]float32{5, 5, 5}), 1e-12)
	assert.InDelta(t, 0, *Skewness([]float32{1, 2, 3}), 1e-9)
	assert.Positive(t, *Skewness([]float32{0, 0, 0, 0, 10}))
}

func TestKurtosis(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Kurtosis([]float32{1, 2, 3}))
	assert.Nil(t, Kurtosis([]float32{2, 2, 2, 2}))
	// symmetric two point distribution has excess kurtosis -2
	assert.InDelta(t, -2, *Kurtosis([]float32{0, 1, 0, 1}), 1e-9)
}

func TestLinearSlope(t *testing.T) {
	t.Parallel()
	assert.Nil(t, LinearSlope([]float32{1}))
	// y = i over x = i/n gives slope n
	assert.InDelta(t, 4, *LinearSlope([]float32{0, 1, 2, 3}), 1e-9)
	assert.InDelta(t, 0, *LinearSlope([]float32{3, 3, 3}), 1e-9)
}

func TestFiniteSlope(t *testing.T) {
	t.Parallel()
	inf := float32(math.Inf(-1))
	assert.Nil(t, FiniteSlope([]float32{inf, 1, inf}))
	// finite points keep their original x = i/len
	s := FiniteSlope([]float32{inf, 1, 2, inf})
	require.NotNil(t, s)
	assert.InDelta(t, 4, *s, 1e-9)
}

func TestBuildupRatio(t *testing.T) {
	t.Parallel()
	assert.Nil(t, BuildupRatio([]float32{1, 2, 3, 4, 5}))
	assert.InDelta(t, 10, *BuildupRatio([]float32{0, 0, 1, 1, 1, 1}), 1e-9)
	assert.InDelta(t, 1, *BuildupRatio([]float32{0, 0, 0, 0, 0, 0}), 1e-9)
	assert.InDelta(t, 3, *BuildupRatio([]float32{1, 1, 2, 2, 3, 3}), 1e-9)
	assert.InDelta(t, 10, *BuildupRatio([]float32{1, 1, 5, 5, 50, 50}), 1e-9, "capped")
}

func TestBassTrebleRatio(t *testing.T) {
	t.Parallel()
	m, s := BassTrebleRatio(nil, []float32{1}, []float32{1})
	assert.Nil(t, m)
	assert.Nil(t, s)

	// second frame has no treble and counts as 1; third is past the shortest input
	m, s = BassTrebleRatio([]float32{2, 5, 9}, []float32{0.5, 0}, []float32{0.5, 0, 1})
	require.NotNil(t, m)
	assert.InDelta(t, 1.5, *m, 1e-9)
	assert.InDelta(t, 0.5, *s, 1e-9)
}

func TestOnsetDensityStd(t *testing.T) {
	t.Parallel()
	assert.Nil(t, OnsetDensityStd([]float32{1}, 19))
	assert.Nil(t, OnsetDensityStd(nil, 60))

	// 25 s gives three windows; the late onset clamps into the last one
	s := OnsetDensityStd([]float32{1, 2, 3, 11, 99}, 25)
	require.NotNil(t, s)
	counts := []float64{3, 1, 1}
	mean := 5.0 / 3
	var v float64
	for _, c := range counts {
		v += (c - mean) * (c - mean)
	}
	assert.InDelta(t, math.Sqrt(v/3), *s, 1e-9)
}

func TestPeakTime(t *testing.T) {
	t.Parallel()
	assert.Nil(t, PeakTime(make([]float32, 9)))

	v := make([]float32, 20)
	v[15], v[16], v[17] = 5, 5, 5
	// window 3 starting at 15 is centred on 16
	assert.InDelta(t, 16.0/20, *PeakTime(v), 1e-9)

	// ties keep the earliest window
	assert.InDelta(t, 1.0/20, *PeakTime(make([]float32, 20)), 1e-9)
}

func TestPitchStatistics(t *testing.T) {
	t.Parallel()
	assert.Nil(t, PitchClarityMean(nil))
	assert.Nil(t, PitchedFrameRatio(nil))

	var frames []engine.PitchFrame
	for i := range 10 {
		hz := float32(100 + 10*i)
		frames = append(frames, engine.PitchFrame{Frequency: &hz, Confidence: 0.9})
	}
	out := float32(5000)
	frames = append(frames, engine.PitchFrame{Frequency: &out, Confidence: 0.9})
	frames = append(frames, engine.PitchFrame{Confidence: 0.9})

	s := PitchContourStd(frames)
	require.NotNil(t, s)
	assert.InDelta(t, math.Sqrt(825), *s, 1e-6)
	assert.InDelta(t, 11.0/12, *PitchedFrameRatio(frames), 1e-9)

	assert.Nil(t, PitchContourStd(frames[:9]))
}

func TestMFCCFluxMean(t *testing.T) {
	t.Parallel()
	assert.Nil(t, MFCCFluxMean([][]float32{{1, 2, 3}}))
	assert.Nil(t, MFCCFluxMean([][]float32{{1}, {2}}))
	assert.InDelta(t, 5, *MFCCFluxMean([][]float32{{0, 3, 0}, {0, 4, 0}}), 1e-9)
}

func TestOnsetIntervalEntropy(t *testing.T) {
	t.Parallel()
	assert.Nil(t, OnsetIntervalEntropy(ramp(9, 0.1)))

	// perfectly regular onsets land in one bin
	assert.InDelta(t, 0, *OnsetIntervalEntropy(ramp(12, 0.0625)), 1e-9)

	// intervals outside (0.01, 5) are dropped, leaving fewer than five
	sparse := []float32{0, 6, 12, 18, 24, 30, 36, 36.1, 36.2, 36.3, 36.4}
	assert.Nil(t, OnsetIntervalEntropy(sparse))

	// one interval per bin gives maximum entropy
	var spread []float32
	t0 := float32(0)
	for i := range 20 {
		spread = append(spread, t0)
		t0 += float32(ioiBinWidth*float64(i) + ioiBinWidth/2)
	}
	spread = append(spread, t0)
	assert.InDelta(t, 1, *OnsetIntervalEntropy(spread), 1e-6)
}

func TestBeatRegularity(t *testing.T) {
	t.Parallel()
	assert.Nil(t, BeatRegularity([]float32{0, 1, 2}))
	assert.Nil(t, BeatRegularity([]float32{1, 1, 1, 1}))
	assert.InDelta(t, 0, *BeatRegularity([]float32{0, 0.5, 1, 1.5}), 1e-6)
	// intervals 1 and 3: mean 2, std 1
	assert.InDelta(t, 0.5, *BeatRegularity([]float32{0, 1, 4, 5, 8}), 1e-6)
}

func TestPearson(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Pearson(ramp(9, 1), ramp(20, 1)))
	assert.InDelta(t, 1, *Pearson(ramp(10, 1), ramp(12, 2)), 1e-9)
	assert.InDelta(t, 0, *Pearson(ramp(10, 1), make([]float32, 10)), 1e-12)

	neg := ramp(10, -1)
	assert.InDelta(t, -1, *Pearson(ramp(10, 1), neg), 1e-9)
}
