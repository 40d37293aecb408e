package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/lexicone42/setbreak-sub000/internal/engine"
)

const (
	pitchMinHz = 50.0
	pitchMaxHz = 2000.0
)

// yinThresholds are tried in order; PitchThresholdCount limits how many.
var yinThresholds = [...]float64{0.10, 0.15, 0.20, 0.25, 0.30}

// analyzePitch runs a YIN style detector on windows spaced
// hopSize*PitchHopMultiplier apart. The difference function comes from an
// FFT autocorrelation.
func (s *session) analyzePitch(x []float64, sr int) engine.Pitch {
	hop := hopSize * s.cfg.PitchHopMultiplier
	thresholds := yinThresholds[:s.cfg.PitchThresholdCount]
	tauMin := max(2, int(float64(sr)/pitchMaxHz))
	tauMax := min(pitchWindow/2, int(float64(sr)/pitchMinHz))

	var frames []engine.PitchFrame
	for start := 0; start+pitchWindow <= len(x) || (start == 0 && len(x) > 0); start += hop {
		frames = append(frames, s.pitchFrame(x, start, sr, tauMin, tauMax, thresholds))
		if start+pitchWindow > len(x) {
			break
		}
	}
	return summarizePitch(frames, float64(sr)/float64(hop))
}

func (s *session) pitchFrame(x []float64, start, sr, tauMin, tauMax int, thresholds []float64) engine.PitchFrame {
	frame := engine.PitchFrame{Time: float32((float64(start) + pitchWindow/2) / float64(sr))}

	for i := range s.pitchBuf {
		s.pitchBuf[i] = 0
	}
	for i := 0; i < pitchWindow && start+i < len(x); i++ {
		s.pitchBuf[i] = x[start+i]
	}

	// autocorrelation via |FFT|^2, zero padded to avoid wrap around
	s.pitchSpec = s.pitchFFT.Coefficients(s.pitchSpec, s.pitchBuf)
	for k, c := range s.pitchSpec {
		s.pitchSpec[k] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	s.pitchAC = s.pitchFFT.Sequence(s.pitchAC, s.pitchSpec)
	r0 := s.pitchAC[0]
	if r0 < 1e-8*pitchWindow {
		return frame
	}

	// cumulative mean normalized difference
	d := s.pitchDiff
	d[0] = 1
	var running float64
	for tau := 1; tau <= tauMax; tau++ {
		diff := 2 * (r0 - s.pitchAC[tau])
		running += diff
		if running > 0 {
			d[tau] = diff * float64(tau) / running
		} else {
			d[tau] = 1
		}
	}

	best := -1
	for _, thr := range thresholds {
		for tau := tauMin; tau < tauMax; tau++ {
			if d[tau] < thr && d[tau] <= d[tau+1] {
				best = tau
				break
			}
		}
		if best > 0 {
			break
		}
	}

	if best < 0 {
		minD := 1.0
		var maxClarity float64
		for tau := tauMin; tau <= tauMax; tau++ {
			minD = math.Min(minD, d[tau])
			maxClarity = math.Max(maxClarity, s.pitchAC[tau]/r0)
		}
		frame.Confidence = float32(clamp01(1 - minD))
		frame.Clarity = float32(clamp01(maxClarity))
		// never confident without a threshold crossing
		frame.Confidence = min(frame.Confidence, 0.5)
		return frame
	}

	tau := float64(best)
	if best > 1 && best < tauMax {
		a, b, c := d[best-1], d[best], d[best+1]
		if den := a - 2*b + c; den != 0 {
			tau += 0.5 * (a - c) / den
		}
	}
	frame.Frequency = ptr32(float64(sr) / tau)
	frame.Confidence = float32(clamp01(1 - d[best]))
	frame.Clarity = float32(clamp01(s.pitchAC[best] / r0))
	return frame
}

// summarizePitch reduces pitch frames to track level statistics.
func summarizePitch(frames []engine.PitchFrame, frameRate float64) engine.Pitch {
	p := engine.Pitch{Frames: frames}

	var voiced, semis []float64
	for _, f := range frames {
		if f.Frequency != nil && f.Confidence > 0.5 {
			hz := float64(*f.Frequency)
			voiced = append(voiced, hz)
			semis = append(semis, 69+12*math.Log2(hz/440))
		}
	}
	if len(voiced) == 0 {
		return p
	}

	p.MeanPitch = ptr32(stat.Mean(voiced, nil))
	sorted := append([]float64(nil), voiced...)
	sort.Float64s(sorted)
	p.RangeLow = float32(sorted[0])
	p.RangeHigh = float32(sorted[len(sorted)-1])

	// dominant pitch is the centre of the most common semitone
	counts := make(map[int]int)
	bestNote, bestCount := 0, 0
	for _, s := range semis {
		n := int(math.Round(s))
		counts[n]++
		if counts[n] > bestCount || (counts[n] == bestCount && n < bestNote) {
			bestNote, bestCount = n, counts[n]
		}
	}
	p.DominantPitch = ptr32(440 * math.Pow(2, float64(bestNote-69)/12))

	if len(semis) > 1 {
		jumps := make([]float64, len(semis)-1)
		for i := 1; i < len(semis); i++ {
			jumps[i-1] = math.Abs(semis[i] - semis[i-1])
		}
		p.Stability = float32(clamp01(1 - stat.Mean(jumps, nil)/12))
	} else {
		p.Stability = 1
	}

	p.Vibrato = detectVibrato(semis, frameRate)
	return p
}

// detectVibrato looks for a 3 to 9 Hz oscillation in the pitch contour,
// measured in cents around a moving average.
func detectVibrato(semis []float64, frameRate float64) *engine.Vibrato {
	if len(semis) < 16 || frameRate < 8 {
		return nil
	}
	const smooth = 5
	dev := make([]float64, 0, len(semis))
	for i := range semis {
		lo, hi := max(0, i-smooth), min(len(semis), i+smooth+1)
		dev = append(dev, 100*(semis[i]-stat.Mean(semis[lo:hi], nil)))
	}
	crossings := 0
	for i := 1; i < len(dev); i++ {
		if (dev[i] >= 0) != (dev[i-1] >= 0) {
			crossings++
		}
	}
	rate := float64(crossings) / 2 / (float64(len(dev)) / frameRate)
	extent := stat.PopStdDev(dev, nil)
	if rate < 3 || rate > 9 || extent < 5 {
		return nil
	}
	return &engine.Vibrato{
		Presence: float32(clamp01(extent / 50)),
		Rate:     float32(rate),
	}
}
