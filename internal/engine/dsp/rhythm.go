package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/lexicone42/setbreak-sub000/internal/engine"
)

const (
	minBPM = 60.0
	maxBPM = 200.0

	onsetWindow    = 8    // frames either side for the adaptive threshold
	onsetThreshold = 1.5  // multiple of the local mean
	minOnsetGap    = 0.05 // seconds
)

// rhythmData carries rhythm results plus intermediates for tonal and
// structure analysis.
type rhythmData struct {
	temporal engine.Temporal
	envelope []float64 // half wave rectified novelty curve
	ac       []float64 // normalized autocorrelation of envelope
	beatLag  float64   // frames per beat, 0 without tempo
	meter    *engine.TimeSignature
}

func analyzeRhythm(flux []float64, frameRate, duration float64) rhythmData {
	env := noveltyEnvelope(flux)
	onsets := pickOnsets(flux, frameRate)

	rd := rhythmData{envelope: env}
	rd.temporal.Onsets = toFloat32(onsets)

	ac := autocorrelate(env, int(8*frameRate)+2)
	rd.ac = ac
	lag, ok := bestTempoLag(ac, frameRate)
	if !ok || len(onsets) < 4 {
		rd.temporal.RhythmicComplexity = float32(ioiEntropy(onsets) * 4)
		rd.temporal.Beats = []float32{}
		return rd
	}

	bpm := 60 * frameRate / lag
	rd.beatLag = lag
	rd.temporal.Tempo = ptr32(bpm)

	beats := trackBeats(onsets, 60/bpm, duration)
	rd.temporal.Beats = toFloat32(beats)
	rd.temporal.TempoStability = float32(tempoStability(beats))

	onsetsPerBeat := float64(len(onsets)) / math.Max(float64(len(beats)), 1)
	rd.temporal.RhythmicComplexity = float32(math.Min(onsetsPerBeat*(0.5+ioiEntropy(onsets)), 10))

	rd.meter = estimateMeter(ac, lag)
	return rd
}

// noveltyEnvelope subtracts a local mean from flux and keeps the positive part.
func noveltyEnvelope(flux []float64) []float64 {
	env := make([]float64, len(flux))
	for i := range flux {
		lo, hi := max(0, i-onsetWindow), min(len(flux), i+onsetWindow+1)
		local := floats.Sum(flux[lo:hi]) / float64(hi-lo)
		env[i] = math.Max(0, flux[i]-local)
	}
	return env
}

// pickOnsets returns onset times at local flux maxima above an adaptive
// threshold.
func pickOnsets(flux []float64, frameRate float64) []float64 {
	if len(flux) < 3 {
		return nil
	}
	floor := 0.05 * floats.Max(flux)
	minGap := int(math.Ceil(minOnsetGap * frameRate))
	last := -minGap

	var onsets []float64
	for i := 1; i < len(flux)-1; i++ {
		lo, hi := max(0, i-onsetWindow), min(len(flux), i+onsetWindow+1)
		local := floats.Sum(flux[lo:hi]) / float64(hi-lo)
		if flux[i] <= local*onsetThreshold || flux[i] <= floor {
			continue
		}
		if flux[i] < flux[i-1] || flux[i] < flux[i+1] {
			continue
		}
		if i-last < minGap {
			continue
		}
		last = i
		onsets = append(onsets, (float64(i)*hopSize+frameSize/2)/(frameRate*hopSize))
	}
	return onsets
}

// autocorrelate returns the normalized autocorrelation of x up to maxLag,
// with ac[0] == 1 for a non silent input.
func autocorrelate(x []float64, maxLag int) []float64 {
	n := len(x)
	ac := make([]float64, min(n, maxLag+1))
	for lag := range ac {
		var sum float64
		for i := 0; i+lag < n; i++ {
			sum += x[i] * x[i+lag]
		}
		ac[lag] = sum
	}
	if ac[0] > 0 {
		floats.Scale(1/ac[0], ac)
	}
	return ac
}

// bestTempoLag finds the strongest beat period between minBPM and maxBPM,
// weighting lags toward 120 BPM to resolve octave ambiguity.
func bestTempoLag(ac []float64, frameRate float64) (float64, bool) {
	minLag := int(math.Floor(60 * frameRate / maxBPM))
	maxLag := int(math.Ceil(60 * frameRate / minBPM))
	if minLag < 1 || maxLag >= len(ac) {
		return 0, false
	}
	best, bestScore := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		bpm := 60 * frameRate / float64(lag)
		weight := math.Exp(-0.5 * math.Pow(math.Log2(bpm/120), 2))
		if score := ac[lag] * weight; score > bestScore {
			best, bestScore = lag, score
		}
	}
	if best == 0 || bestScore < 0.05 {
		return 0, false
	}

	// parabolic refinement of the peak position
	lag := float64(best)
	if best > minLag && best < maxLag {
		a, b, c := ac[best-1], ac[best], ac[best+1]
		if den := a - 2*b + c; den != 0 {
			lag += 0.5 * (a - c) / den
		}
	}
	return lag, true
}

// trackBeats lays a beat grid from the first onset, snapping each beat to a
// nearby onset so the grid follows tempo drift.
func trackBeats(onsets []float64, period, duration float64) []float64 {
	beats := []float64{}
	if len(onsets) == 0 || period <= 0 {
		return beats
	}
	tolerance := 0.15 * period
	j := 0
	for t := onsets[0]; t < duration; t += period {
		for j < len(onsets) && onsets[j] < t-tolerance {
			j++
		}
		if j < len(onsets) && math.Abs(onsets[j]-t) <= tolerance {
			t = onsets[j]
		}
		beats = append(beats, t)
	}
	return beats
}

// tempoStability is one minus the coefficient of variation of beat intervals.
func tempoStability(beats []float64) float64 {
	if len(beats) < 3 {
		return 0
	}
	ibi := make([]float64, len(beats)-1)
	for i := 1; i < len(beats); i++ {
		ibi[i-1] = beats[i] - beats[i-1]
	}
	mean, std := stat.PopMeanStdDev(ibi, nil)
	if mean <= 0 {
		return 0
	}
	return clamp01(1 - std/mean)
}

// ioiEntropy is the normalized entropy of inter onset intervals over ten
// 50 ms bins.
func ioiEntropy(onsets []float64) float64 {
	if len(onsets) < 3 {
		return 0
	}
	const bins = 10
	var hist [bins]float64
	for i := 1; i < len(onsets); i++ {
		idx := min(int((onsets[i]-onsets[i-1])/0.05), bins-1)
		hist[idx]++
	}
	total := floats.Sum(hist[:])
	var h float64
	for _, c := range hist {
		if c > 0 {
			p := c / total
			h -= p * math.Log(p)
		}
	}
	return h / math.Log(bins)
}

// estimateMeter picks 3/4 when the three beat lag is clearly stronger than
// the four beat lag.
func estimateMeter(ac []float64, beatLag float64) *engine.TimeSignature {
	at := func(lag float64) float64 {
		i := int(math.Round(lag))
		if i <= 0 || i >= len(ac) {
			return 0
		}
		return ac[i]
	}
	if at(3*beatLag) > 1.1*at(4*beatLag) {
		return &engine.TimeSignature{Numerator: 3, Denominator: 4}
	}
	return &engine.TimeSignature{Numerator: 4, Denominator: 4}
}

// periodicEvents returns up to three autocorrelation peaks between 0.25 s
// and 8 s, strongest first.
func periodicEvents(ac []float64, frameRate float64) []engine.PeriodicEvent {
	lo := int(0.25 * frameRate)
	hi := min(int(8*frameRate), len(ac)-2)
	var events []engine.PeriodicEvent
	for lag := max(lo, 1); lag <= hi; lag++ {
		if ac[lag] > 0.1 && ac[lag] >= ac[lag-1] && ac[lag] > ac[lag+1] {
			events = append(events, engine.PeriodicEvent{
				Period:   float32(float64(lag) / frameRate),
				Strength: float32(clamp01(ac[lag])),
			})
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Strength > events[j].Strength })
	if len(events) > 3 {
		events = events[:3]
	}
	return events
}
