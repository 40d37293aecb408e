package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/lexicone42/setbreak-sub000/internal/engine"
)

const (
	chordBlockSeconds = 0.5
	maxKeyAlternates  = 4
	unknownKey        = "Unknown"
)

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Krumhansl-Kessler key profiles, tonic first
var (
	majorProfile = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	minorProfile = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// keyFit is one key hypothesis with its profile correlation.
type keyFit struct {
	label string
	minor bool
	corr  float64
}

// fitKeys correlates chroma against all 24 rotated profiles, best first.
// It returns nil for a silent chroma vector.
func fitKeys(chroma []float64) []keyFit {
	if floats.Sum(chroma) <= 1e-12 || floats.Max(chroma) == floats.Min(chroma) {
		return nil
	}
	rotated := make([]float64, 12)
	fits := make([]keyFit, 0, 24)
	for tonic := range 12 {
		for i := range 12 {
			rotated[i] = chroma[(tonic+i)%12]
		}
		fits = append(fits,
			keyFit{label: noteNames[tonic] + " major", corr: stat.Correlation(rotated, majorProfile, nil)},
			keyFit{label: noteNames[tonic] + " minor", minor: true, corr: stat.Correlation(rotated, minorProfile, nil)},
		)
	}
	sort.SliceStable(fits, func(i, j int) bool { return fits[i].corr > fits[j].corr })
	return fits
}

// analyzeTonal computes the global chroma, key, chords and tonal statistics.
func analyzeTonal(fd *frameData, rd rhythmData) engine.Musical {
	chroma := make([]float64, 12)
	for _, c := range fd.chroma {
		floats.Add(chroma, c[:])
	}
	if m := floats.Max(chroma); m > 0 {
		floats.Scale(1/m, chroma)
	}

	m := engine.Musical{
		Chroma:           toFloat32(chroma),
		TimeSignature:    rd.meter,
		ChordProgression: detectChords(fd),
	}

	fits := fitKeys(chroma)
	if fits == nil {
		m.Key = engine.KeyEstimate{Key: unknownKey, Alternatives: []engine.KeyCandidate{}}
		return m
	}

	best := fits[0]
	m.Key = engine.KeyEstimate{
		Key:          best.label,
		Confidence:   float32(clamp01(best.corr)),
		Alternatives: []engine.KeyCandidate{},
	}
	for _, f := range fits[1:] {
		if len(m.Key.Alternatives) == maxKeyAlternates || f.corr < best.corr-0.1 {
			break
		}
		m.Key.Alternatives = append(m.Key.Alternatives, engine.KeyCandidate{Key: f.label, Confidence: float32(clamp01(f.corr))})
	}

	// mode clarity: gap between the best major and best minor fit
	var bestMajor, bestMinor = math.Inf(-1), math.Inf(-1)
	for _, f := range fits {
		if f.minor {
			bestMinor = math.Max(bestMinor, f.corr)
		} else {
			bestMajor = math.Max(bestMajor, f.corr)
		}
	}
	m.ModeClarity = float32(clamp01(math.Abs(bestMajor - bestMinor)))

	// tonality: how much the strongest pitch class stands out
	mean := stat.Mean(chroma, nil)
	m.Tonality = float32(clamp01(1 - mean))

	// harmonic complexity: normalized entropy of the pitch class distribution
	total := floats.Sum(chroma)
	var h float64
	for _, c := range chroma {
		if c > 0 {
			p := c / total
			h -= p * math.Log(p)
		}
	}
	m.HarmonicComplexity = float32(h / math.Log(12))
	return m
}

// keyOf returns the best key label of a chroma vector, or nil when silent.
func keyOf(chroma []float64) *string {
	fits := fitKeys(chroma)
	if fits == nil {
		return nil
	}
	return &fits[0].label
}

type triad struct {
	label string
	vec   [12]float64
}

// triadTemplates holds the 24 major and minor triads as unit vectors.
var triadTemplates = func() []triad {
	out := make([]triad, 0, 24)
	w := 1 / math.Sqrt(3)
	for root := range 12 {
		var major, minor [12]float64
		major[root], major[(root+4)%12], major[(root+7)%12] = w, w, w
		minor[root], minor[(root+3)%12], minor[(root+7)%12] = w, w, w
		out = append(out,
			triad{label: noteNames[root], vec: major},
			triad{label: noteNames[root] + "m", vec: minor},
		)
	}
	return out
}()

// detectChords matches half second chroma blocks against triad templates
// and merges runs of the same chord. It returns nil when nothing is audible.
func detectChords(fd *frameData) *engine.ChordProgression {
	blockFrames := max(1, int(chordBlockSeconds*fd.frameRate))
	var chords []engine.Chord
	var confSum float64
	var confN int

	for start := 0; start < len(fd.chroma); start += blockFrames {
		end := min(start+blockFrames, len(fd.chroma))
		var block [12]float64
		for _, c := range fd.chroma[start:end] {
			for i := range block {
				block[i] += c[i]
			}
		}
		norm := floats.Norm(block[:], 2)
		if norm < 1e-9 {
			continue
		}

		bestLabel, bestScore := "", -1.0
		for _, tpl := range triadTemplates {
			if score := floats.Dot(block[:], tpl.vec[:]) / norm; score > bestScore {
				bestLabel, bestScore = tpl.label, score
			}
		}

		startTime := float32(float64(start*hopSize) / float64(fd.sampleRate))
		duration := float32(float64((end-start)*hopSize) / float64(fd.sampleRate))
		if n := len(chords); n > 0 && chords[n-1].Chord == bestLabel &&
			chords[n-1].StartTime+chords[n-1].Duration >= startTime-1e-3 {
			chords[n-1].Duration += duration
			confSum += bestScore
			confN++
			chords[n-1].Confidence = float32(confSum / float64(confN))
			continue
		}
		confSum, confN = bestScore, 1
		chords = append(chords, engine.Chord{
			Chord:      bestLabel,
			StartTime:  startTime,
			Duration:   duration,
			Confidence: float32(bestScore),
		})
	}

	if len(chords) == 0 {
		return nil
	}
	return &engine.ChordProgression{Chords: chords}
}
