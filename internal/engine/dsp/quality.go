package dsp

import (
	"crypto/sha1"
	"encoding/hex"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/lexicone42/setbreak-sub000/internal/engine"
)

const (
	clipThreshold = 0.999
	dbFloor       = -120.0
)

func toDB(v float64) float64 {
	if v <= 0 {
		return dbFloor
	}
	return math.Max(dbFloor, 20*math.Log10(v))
}

// analyzeQuality estimates noise floor and SNR from frame RMS percentiles
// and counts samples at full scale.
func analyzeQuality(x []float64, frameRMS []float64) engine.Quality {
	var clipped int
	for _, v := range x {
		if math.Abs(v) >= clipThreshold {
			clipped++
		}
	}
	clipRatio := float64(clipped) / float64(max(len(x), 1))

	sorted := slices.Clone(frameRMS)
	slices.Sort(sorted)
	var noise, signal float64
	if len(sorted) > 0 {
		noise = stat.Quantile(0.1, stat.Empirical, sorted, nil)
		signal = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	}
	noiseDB := toDB(noise)
	var snr float64
	if signal > 0 {
		snr = toDB(signal) - noiseDB
	}

	score := clamp01(0.6*clamp01(snr/60) + 0.4*clamp01(1-clipRatio*100))
	if signal <= 0 {
		score = 0
	}

	return engine.Quality{
		OverallScore: float32(score),
		Metrics: engine.QualityMetrics{
			SNRDB:         float32(snr),
			ClippingRatio: float32(clipRatio),
			NoiseFloorDB:  float32(noiseDB),
		},
	}
}

// classify derives a harmonic to noise ratio from pitch clarity and scores
// the track as music or other.
func classify(res *engine.Result) engine.Classification {
	var clarity float64
	if n := len(res.Pitch.Frames); n > 0 {
		for _, f := range res.Pitch.Frames {
			clarity += float64(f.Clarity)
		}
		clarity /= float64(n)
	}
	clarity = math.Min(clarity, 0.999)
	var hnr float64
	if clarity > 0 {
		hnr = 10 * math.Log10(clarity/(1-clarity))
	}

	var musicSegs, counted int
	for _, seg := range res.Segments.Segments {
		if seg.Label == engine.LabelUnclassified {
			continue
		}
		counted++
		if seg.Label == engine.LabelMusic {
			musicSegs++
		}
	}

	var music float64
	if counted > 0 {
		music = float64(musicSegs) / float64(counted)
	} else {
		tonal := float64(res.Musical.Tonality)
		music = clamp01(0.5*clamp01(hnr/20+0.5) + 0.5*tonal)
	}
	if res.Summary.RMSLevel < silenceRMS {
		music = 0
	}

	return engine.Classification{
		Scores:   engine.ClassificationScores{Music: float32(music), Other: float32(1 - music)},
		Features: engine.ClassificationFeatures{HNR: float32(hnr)},
	}
}

// waveform reduces mono to min/max pairs for display.
func waveform(mono []float32, points int) *engine.Waveform {
	if len(mono) == 0 || points <= 0 {
		return &engine.Waveform{}
	}
	per := max(1, (len(mono)+points-1)/points)
	w := &engine.Waveform{SamplesPerPoint: per}
	for start := 0; start < len(mono); start += per {
		chunk := mono[start:min(start+per, len(mono))]
		w.Min = append(w.Min, slices.Min(chunk))
		w.Max = append(w.Max, slices.Max(chunk))
	}
	return w
}

// fingerprint hashes the sign of chroma energy changes between frames into
// a compact hex digest.
func fingerprint(fd *frameData) string {
	h := sha1.New()
	var bits [2]byte
	for i := 1; i < len(fd.chroma); i++ {
		var word uint16
		for b := 0; b < 12; b++ {
			if fd.chroma[i][b] > fd.chroma[i-1][b] {
				word |= 1 << b
			}
		}
		bits[0], bits[1] = byte(word), byte(word>>8)
		h.Write(bits[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}
