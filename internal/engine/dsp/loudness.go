package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/lexicone42/setbreak-sub000/internal/engine"
)

const (
	// loudnessFloor replaces -Inf for silent blocks
	loudnessFloor = -120.0
	absoluteGate  = -70.0
)

// biquad is a direct form I second order section.
type biquad struct {
	b0, b1, b2, a1, a2 float64
}

func (q biquad) apply(x []float64) []float64 {
	y := make([]float64, len(x))
	var x1, x2, y1, y2 float64
	for i, v := range x {
		out := q.b0*v + q.b1*x1 + q.b2*x2 - q.a1*y1 - q.a2*y2
		x2, x1 = x1, v
		y2, y1 = y1, out
		y[i] = out
	}
	return y
}

// kWeighting returns the BS.1770 pre filter and RLB high pass for sr.
func kWeighting(sr int) (biquad, biquad) {
	fs := float64(sr)

	const (
		shelfGain = 3.999843853973347
		shelfF0   = 1681.974450955533
		shelfQ    = 0.7071752369554196
	)
	k := math.Tan(math.Pi * shelfF0 / fs)
	vh := math.Pow(10, shelfGain/20)
	vb := math.Pow(vh, 0.4996667741545416)
	a0 := 1 + k/shelfQ + k*k
	shelf := biquad{
		b0: (vh + vb*k/shelfQ + k*k) / a0,
		b1: 2 * (k*k - vh) / a0,
		b2: (vh - vb*k/shelfQ + k*k) / a0,
		a1: 2 * (k*k - 1) / a0,
		a2: (1 - k/shelfQ + k*k) / a0,
	}

	const (
		hpF0 = 38.13547087602444
		hpQ  = 0.5003270373238773
	)
	k = math.Tan(math.Pi * hpF0 / fs)
	den := 1 + k/hpQ + k*k
	highpass := biquad{
		b0: 1, b1: -2, b2: 1,
		a1: 2 * (k*k - 1) / den,
		a2: (1 - k/hpQ + k*k) / den,
	}
	return shelf, highpass
}

// blockLoudness returns the loudness of each window of length win samples,
// advancing by step, over the K-weighted signal z.
func blockLoudness(z []float64, win, step int) ([]float64, []float64) {
	var lufs, power []float64
	if win <= 0 || step <= 0 {
		return lufs, power
	}
	// prefix sums of z^2 keep this linear
	prefix := make([]float64, len(z)+1)
	for i, v := range z {
		prefix[i+1] = prefix[i] + v*v
	}
	for start := 0; start+win <= len(z); start += step {
		ms := (prefix[start+win] - prefix[start]) / float64(win)
		power = append(power, ms)
		lufs = append(lufs, powerToLUFS(ms))
	}
	return lufs, power
}

func powerToLUFS(ms float64) float64 {
	if ms <= 0 {
		return loudnessFloor
	}
	return math.Max(loudnessFloor, -0.691+10*math.Log10(ms))
}

// analyzeLoudness measures gated integrated loudness, loudness range and
// the momentary and short term loudness series.
func analyzeLoudness(x []float64, sr int, frameRMS []float64) engine.Perceptual {
	shelf, highpass := kWeighting(sr)
	z := highpass.apply(shelf.apply(x))

	momentary, mPower := blockLoudness(z, int(0.4*float64(sr)), int(0.1*float64(sr)))
	shortTerm, _ := blockLoudness(z, 3*sr, sr)
	if len(momentary) == 0 {
		// shorter than one block: measure the whole signal once
		momentary, mPower = blockLoudness(z, len(z), len(z))
	}

	var peak, sumSq float64
	for _, v := range x {
		peak = math.Max(peak, math.Abs(v))
		sumSq += v * v
	}
	rms := math.Sqrt(sumSq / float64(len(x)))

	p := engine.Perceptual{
		LoudnessLUFS:      float32(integratedLoudness(momentary, mPower)),
		LoudnessRange:     float32(loudnessRange(shortTerm)),
		TruePeakDBFS:      float32(loudnessFloor),
		ShortTermLoudness: toFloat32(shortTerm),
		MomentaryLoudness: toFloat32(momentary),
		EnergyLevel:       float32(clamp01(2 * stat.Mean(frameRMS, nil))),
	}
	// sample peak; no oversampling
	if peak > 0 {
		p.TruePeakDBFS = float32(math.Max(loudnessFloor, 20*math.Log10(peak)))
	}
	if rms > 1e-10 {
		p.CrestFactor = float32(peak / rms)
	}
	return p
}

// integratedLoudness applies the absolute and relative gates.
func integratedLoudness(lufs, power []float64) float64 {
	var sum float64
	var n int
	for i, l := range lufs {
		if l > absoluteGate {
			sum += power[i]
			n++
		}
	}
	if n == 0 {
		return loudnessFloor
	}
	relGate := powerToLUFS(sum/float64(n)) - 10

	sum, n = 0, 0
	for i, l := range lufs {
		if l > absoluteGate && l > relGate {
			sum += power[i]
			n++
		}
	}
	if n == 0 {
		return loudnessFloor
	}
	return powerToLUFS(sum / float64(n))
}

// loudnessRange is the spread between the 10th and 95th percentile of gated
// short term loudness.
func loudnessRange(shortTerm []float64) float64 {
	var gated []float64
	for _, l := range shortTerm {
		if l > absoluteGate {
			gated = append(gated, l)
		}
	}
	if len(gated) < 2 {
		return 0
	}
	var sumPow float64
	for _, l := range gated {
		sumPow += math.Pow(10, (l+0.691)/10)
	}
	relGate := powerToLUFS(sumPow/float64(len(gated))) - 20

	var kept []float64
	for _, l := range gated {
		if l > relGate {
			kept = append(kept, l)
		}
	}
	if len(kept) < 2 {
		return 0
	}
	sort.Float64s(kept)
	return stat.Quantile(0.95, stat.Empirical, kept, nil) - stat.Quantile(0.10, stat.Empirical, kept, nil)
}
