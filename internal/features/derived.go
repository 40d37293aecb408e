package features

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/lexicone42/setbreak-sub000/internal/engine"
)

const (
	onsetWindowSeconds = 10.0
	ioiBins            = 20
	ioiBinWidth        = 0.5 / ioiBins
	pitchedConfidence  = 0.5
	buildupCap         = 10.0
)

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func ptr(v float64) *float64 { return &v }

// centralMoment returns the population central moment of order k.
func centralMoment(x []float64, mean float64, k int) float64 {
	var sum float64
	for _, v := range x {
		sum += math.Pow(v-mean, float64(k))
	}
	return sum / float64(len(x))
}

// Skewness is the population skewness. It needs three values; a flat
// series has skewness 0.
func Skewness(values []float32) *float64 {
	if len(values) < 3 {
		return nil
	}
	x := widen(values)
	mean := stat.Mean(x, nil)
	std := math.Sqrt(centralMoment(x, mean, 2))
	if std < 1e-10 {
		return ptr(0)
	}
	return ptr(centralMoment(x, mean, 3) / (std * std * std))
}

// Kurtosis is the population excess kurtosis. It needs four values and is
// nil for a flat series.
func Kurtosis(values []float32) *float64 {
	if len(values) < 4 {
		return nil
	}
	x := widen(values)
	mean := stat.Mean(x, nil)
	m2 := centralMoment(x, mean, 2)
	if m2 < 1e-12 {
		return nil
	}
	return ptr(centralMoment(x, mean, 4)/(m2*m2) - 3)
}

// slope fits y against x by least squares.
func slope(xs, ys []float64) float64 {
	if stat.PopVariance(xs, nil)*float64(len(xs)*len(xs)) < 1e-10 {
		return 0
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return beta
}

// LinearSlope regresses values against normalized time i/n.
func LinearSlope(values []float32) *float64 {
	if len(values) < 2 {
		return nil
	}
	n := float64(len(values))
	xs := make([]float64, len(values))
	for i := range xs {
		xs[i] = float64(i) / n
	}
	return ptr(slope(xs, widen(values)))
}

// FiniteSlope is LinearSlope over the finite values only, keeping each
// value's original time position. Silent loudness frames are -Inf.
func FiniteSlope(values []float32) *float64 {
	if len(values) < 2 {
		return nil
	}
	n := float64(len(values))
	var xs, ys []float64
	for i, v := range values {
		f := float64(v)
		if math.IsInf(f, 0) || math.IsNaN(f) {
			continue
		}
		xs = append(xs, float64(i)/n)
		ys = append(ys, f)
	}
	if len(xs) < 2 {
		return nil
	}
	return ptr(slope(xs, ys))
}

// BuildupRatio compares the mean of the last third to the first third,
// capped at 10.
func BuildupRatio(values []float32) *float64 {
	if len(values) < 6 {
		return nil
	}
	x := widen(values)
	third := len(x) / 3
	first := stat.Mean(x[:third], nil)
	last := stat.Mean(x[len(x)-third:], nil)
	if first < 1e-10 {
		if last > 1e-10 {
			return ptr(buildupCap)
		}
		return ptr(1)
	}
	return ptr(math.Min(last/first, buildupCap))
}

// BassTrebleRatio returns mean and population std of the per frame ratio
// bass/(high+presence). A frame with no treble counts as 1.
func BassTrebleRatio(bass, high, presence []float32) (mean, std *float64) {
	if len(bass) == 0 || len(high) == 0 || len(presence) == 0 {
		return nil, nil
	}
	n := min(len(bass), len(high), len(presence))
	ratios := make([]float64, n)
	for i := range n {
		treble := float64(high[i] + presence[i])
		if treble > 1e-10 {
			ratios[i] = float64(bass[i]) / treble
		} else {
			ratios[i] = 1
		}
	}
	m, s := stat.PopMeanStdDev(ratios, nil)
	return ptr(m), ptr(s)
}

// OnsetDensityStd is the population std of onset counts in 10 s windows.
// Tracks shorter than 20 s have no value.
func OnsetDensityStd(onsets []float32, duration float32) *float64 {
	if len(onsets) == 0 || duration < 20 {
		return nil
	}
	windows := int(math.Ceil(float64(duration) / onsetWindowSeconds))
	if windows < 2 {
		return nil
	}
	counts := make([]float64, windows)
	for _, o := range onsets {
		idx := min(int(float64(o)/onsetWindowSeconds), windows-1)
		counts[max(idx, 0)]++
	}
	_, s := stat.PopMeanStdDev(counts, nil)
	return ptr(s)
}

// PeakTime is the normalized position (0 to 1) of the centre of the loudest
// window, with the window about 5% of the series.
func PeakTime(values []float32) *float64 {
	if len(values) < 10 {
		return nil
	}
	x := widen(values)
	win := max(len(x)/20, 3)
	best, bestSum := 0, math.Inf(-1)
	for i := 0; i+win <= len(x); i++ {
		if sum := floats.Sum(x[i : i+win]); sum > bestSum {
			bestSum = sum
			best = i + win/2
		}
	}
	return ptr(float64(best) / float64(len(x)))
}

// confidentPitches returns frequencies of frames above the pitched
// confidence threshold.
func confidentPitches(frames []engine.PitchFrame) []float64 {
	var out []float64
	for _, f := range frames {
		if f.Confidence > pitchedConfidence && f.Frequency != nil {
			out = append(out, float64(*f.Frequency))
		}
	}
	return out
}

// PitchContourStd is the population std of confident pitches between 50 Hz
// and 4 kHz. It needs ten such frames.
func PitchContourStd(frames []engine.PitchFrame) *float64 {
	var pitches []float64
	for _, hz := range confidentPitches(frames) {
		if hz > 50 && hz < 4000 {
			pitches = append(pitches, hz)
		}
	}
	if len(pitches) < 10 {
		return nil
	}
	return ptr(stat.PopStdDev(pitches, nil))
}

// PitchClarityMean is the mean clarity over all frames.
func PitchClarityMean(frames []engine.PitchFrame) *float64 {
	if len(frames) == 0 {
		return nil
	}
	var sum float64
	for _, f := range frames {
		sum += float64(f.Clarity)
	}
	return ptr(sum / float64(len(frames)))
}

// PitchedFrameRatio is the fraction of frames with a confident pitch.
func PitchedFrameRatio(frames []engine.PitchFrame) *float64 {
	if len(frames) == 0 {
		return nil
	}
	return ptr(float64(len(confidentPitches(frames))) / float64(len(frames)))
}

// MFCCFluxMean is the mean Euclidean distance between consecutive MFCC
// frames. mfcc is indexed [coefficient][frame].
func MFCCFluxMean(mfcc [][]float32) *float64 {
	if len(mfcc) < 2 {
		return nil
	}
	frames := len(mfcc[0])
	if frames < 2 {
		return nil
	}
	var total float64
	for f := 1; f < frames; f++ {
		var distSq float64
		for _, coeff := range mfcc {
			if f < len(coeff) {
				d := float64(coeff[f] - coeff[f-1])
				distSq += d * d
			}
		}
		total += math.Sqrt(distSq)
	}
	return ptr(total / float64(frames-1))
}

// OnsetIntervalEntropy is the Shannon entropy of inter onset intervals in
// 20 bins of 25 ms, normalized to [0,1].
func OnsetIntervalEntropy(onsets []float32) *float64 {
	if len(onsets) < 10 {
		return nil
	}
	var bins [ioiBins]float64
	var total float64
	for i := 1; i < len(onsets); i++ {
		ioi := float64(onsets[i] - onsets[i-1])
		if ioi <= 0.01 || ioi >= 5 {
			continue
		}
		bins[min(int(ioi/ioiBinWidth), ioiBins-1)]++
		total++
	}
	if total < 5 {
		return nil
	}
	var h float64
	for _, c := range bins {
		if c > 0 {
			p := c / total
			h -= p * math.Log(p)
		}
	}
	return ptr(h / math.Log(ioiBins))
}

// BeatRegularity is the coefficient of variation of the intervals between
// consecutive events. It needs four events.
func BeatRegularity(events []float32) *float64 {
	if len(events) < 4 {
		return nil
	}
	intervals := make([]float64, len(events)-1)
	for i := 1; i < len(events); i++ {
		intervals[i-1] = float64(events[i] - events[i-1])
	}
	mean, std := stat.PopMeanStdDev(intervals, nil)
	if mean < 1e-10 {
		return nil
	}
	return ptr(std / mean)
}

// Pearson correlates a and b truncated to the shorter length. It needs ten
// pairs; a flat series correlates 0.
func Pearson(a, b []float32) *float64 {
	n := min(len(a), len(b))
	if n < 10 {
		return nil
	}
	x, y := widen(a[:n]), widen(b[:n])
	if math.Sqrt(stat.PopVariance(x, nil)*stat.PopVariance(y, nil))*float64(n) < 1e-10 {
		return ptr(0)
	}
	return ptr(stat.Correlation(x, y, nil))
}

// populationStd is the population std of values, nil when empty.
func populationStd(values []float32) *float64 {
	if len(values) == 0 {
		return nil
	}
	return ptr(stat.PopStdDev(widen(values), nil))
}

// maxOf is the largest value, nil when empty.
func maxOf(values []float32) *float64 {
	if len(values) == 0 {
		return nil
	}
	return ptr(floats.Max(widen(values)))
}

// spread is max minus min, nil when empty.
func spread(values []float32) *float64 {
	if len(values) == 0 {
		return nil
	}
	x := widen(values)
	return ptr(floats.Max(x) - floats.Min(x))
}
