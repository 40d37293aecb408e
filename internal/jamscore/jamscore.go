// Package jamscore derives the eight jam quality scores from a flattened
// analysis. Every score is a weighted sum of sub-contributions, each
// normalized to [0,1], with the total clamped to [0,100]. Missing inputs take
// neutral defaults rather than failing.
package jamscore

import (
	"math"

	"github.com/lexicone42/setbreak-sub000/internal/datastore"
	"github.com/lexicone42/setbreak-sub000/internal/engine"
)

// Scores holds the eight jam scores, each in [0,100].
type Scores struct {
	Energy        float64
	Intensity     float64
	Groove        float64
	Improvisation float64
	Tightness     float64
	BuildQuality  float64
	Exploratory   float64
	Transcendence float64
}

// Apply stores the scores on a.
func (s Scores) Apply(a *datastore.Analysis) {
	a.EnergyScore = ptr(s.Energy)
	a.IntensityScore = ptr(s.Intensity)
	a.GrooveScore = ptr(s.Groove)
	a.ImprovisationScore = ptr(s.Improvisation)
	a.TightnessScore = ptr(s.Tightness)
	a.BuildQualityScore = ptr(s.BuildQuality)
	a.ExploratoryScore = ptr(s.Exploratory)
	a.TranscendenceScore = ptr(s.Transcendence)
}

// Values returns the scores in datastore.ScoreColumns order.
func (s Scores) Values() [8]float64 {
	return [8]float64{
		s.Energy, s.Intensity, s.Groove, s.Improvisation,
		s.Tightness, s.BuildQuality, s.Exploratory, s.Transcendence,
	}
}

// shapeQuality rates each energy arc for build quality.
var shapeQuality = map[string]float64{
	"Building": 1.0,
	"Peak":     0.9,
	"Wave":     0.75,
	"Valley":   0.5,
	"Decaying": 0.3,
	"Flat":     0.1,
}

const (
	unknownShapeQuality = 0.5
	repetitionNorm      = 10.0
	minTranscendSecs    = 60.0
)

// segmentInputs are the segment level values scoring needs beyond the flat
// record.
type segmentInputs struct {
	energies []float64
	sections []string
}

// Score computes the jam scores for a freshly analyzed track. Segment
// energies and section types come from r; r may be nil.
func Score(a *datastore.Analysis, r *engine.Result) Scores {
	var seg segmentInputs
	if r != nil {
		for _, s := range r.Segments.Segments {
			seg.energies = append(seg.energies, float64(s.Energy))
		}
		for _, s := range r.Segments.Structure {
			seg.sections = append(seg.sections, s.SectionType.String())
		}
	}
	return score(a, seg)
}

// ScoreFlat computes the jam scores from stored values only, using the
// stored segment records in place of a full result.
func ScoreFlat(a *datastore.Analysis, segments []datastore.Segment) Scores {
	var seg segmentInputs
	for _, s := range segments {
		seg.energies = append(seg.energies, val(s.Energy, 0))
		if s.SectionType != nil {
			seg.sections = append(seg.sections, *s.SectionType)
		}
	}
	return score(a, seg)
}

func score(a *datastore.Analysis, seg segmentInputs) Scores {
	var s Scores
	s.Energy = energy(a)
	s.Intensity = intensity(a)
	s.Groove = groove(a)
	s.Improvisation = improvisation(a)
	s.Tightness = tightness(a)
	s.BuildQuality = buildQuality(a, seg)
	s.Exploratory = exploratory(a)
	s.Transcendence = transcendence(a, seg, s.Groove, s.Energy)
	return s
}

func energy(a *datastore.Analysis) float64 {
	rms := val(a.RMSLevel, 0)
	lufs := val(a.LUFSIntegrated, -60)
	centroid := val(a.SpectralCentroidMean, 0)

	return total(
		unit(rms/0.18)*40,
		unit((lufs+55)/22)*40,
		unit((centroid-2000)/6000)*20,
	)
}

func intensity(a *datastore.Analysis) float64 {
	return total(
		unit(val(a.SpectralFluxStd, 0)/50)*40,
		unit(val(a.DynamicRange, 0)/30)*30,
		unit(val(a.LoudnessRange, 0)/20)*30,
	)
}

func groove(a *datastore.Analysis) float64 {
	return total(
		unit(val(a.TempoStability, 0))*40,
		sweetSpot(val(a.RhythmicComplexity, 0), 2, 6, 6)*30,
		sweetSpot(beatsPerSecond(a), 1.5, 3.0, 2.0)*30,
	)
}

func improvisation(a *datastore.Analysis) float64 {
	pressure := count(a.RepetitionCount) * val(a.RepetitionSimilarity, 0) / repetitionNorm

	return total(
		(1-unit(pressure))*30,
		unit(val(a.HarmonicComplexity, 0))*20,
		chordVariety(a)*20,
		unit(val(a.TemporalComplexity, 0))*15,
		pitchBreadth(a)*15,
	)
}

func tightness(a *datastore.Analysis) float64 {
	beatRatio := count(a.BeatCount) / math.Max(count(a.OnsetCount), 1)

	return total(
		unit(val(a.TempoStability, 0))*35,
		unit(val(a.CoherenceScore, 0))*25,
		(1-unit((fluxCV(a)-0.3)/1.2))*20,
		sweetSpot(beatRatio, 0.1, 0.8, 1.0)*20,
	)
}

func buildQuality(a *datastore.Analysis, seg segmentInputs) float64 {
	shape, ok := shapeQuality[str(a.EnergyShape)]
	if !ok {
		shape = unknownShapeQuality
	}

	var smooth float64
	if n := count(a.TransitionCount); n > 0 {
		smooth = unit(count(a.SmoothTransitions) / n)
	}

	return total(
		shape*30,
		tensionArc(count(a.TensionBuildCount), count(a.TensionReleaseCount))*25,
		unit(val(a.EnergyVariance, 0)/0.01)*20,
		smooth*15,
		structureBonus(seg.sections)*10,
	)
}

func exploratory(a *datastore.Analysis) float64 {
	ambiguity := 0.5*(1-unit(val(a.KeyConfidence, 0))) +
		0.5*unit(count(a.KeyAlternativesCount)/4)

	return total(
		pitchBreadth(a)*20,
		chordVariety(a)*20,
		ambiguity*20,
		unit(val(a.HarmonicComplexity, 0))*20,
		unit(transitionsPerMinute(a)/5)*20,
	)
}

func transcendence(a *datastore.Analysis, seg segmentInputs, groove, energy float64) float64 {
	if val(a.Duration, 0) < minTranscendSecs {
		return 0
	}
	peakRatio := val(a.PeakEnergy, 0) / math.Max(val(a.EnergyLevel, 0), 0.001)

	return total(
		unit((peakRatio-0.05)/0.8)*30,
		aboveMeanFraction(seg.energies)*20,
		unit(val(a.PeakTension, 0))*20,
		math.Sqrt(unit(groove/100)*unit(energy/100))*15,
		unit(val(a.HarmonicComplexity, 0)*val(a.Tonality, 0))*15,
	)
}

// sweetSpot ramps from 0 up to 1 below lo, holds 1 on [lo, hi] and decays
// back to 0 over falloff above hi.
func sweetSpot(x, lo, hi, falloff float64) float64 {
	switch {
	case x < lo:
		if lo <= 0 {
			return 0
		}
		return unit(x / lo)
	case x <= hi:
		return 1
	case falloff <= 0:
		return 0
	default:
		return unit(1 - (x-hi)/falloff)
	}
}

// tensionArc rewards both a balance of builds against releases and their
// number.
func tensionArc(builds, releases float64) float64 {
	var balance float64
	if hi := math.Max(builds, releases); hi > 0 {
		balance = math.Min(builds, releases) / hi
	}
	return 0.5*balance + 0.5*unit((builds+releases)/10)
}

// structureBonus credits an intro, a solo and an outro a third each.
func structureBonus(sections []string) float64 {
	var intro, solo, outro bool
	for _, s := range sections {
		switch s {
		case "Intro":
			intro = true
		case "Solo":
			solo = true
		case "Outro":
			outro = true
		}
	}
	var bonus float64
	for _, present := range []bool{intro, solo, outro} {
		if present {
			bonus += 1.0 / 3
		}
	}
	return bonus
}

// aboveMeanFraction is the fraction of segments louder than the mean.
func aboveMeanFraction(energies []float64) float64 {
	if len(energies) == 0 {
		return 0
	}
	var sum float64
	for _, e := range energies {
		sum += e
	}
	mean := sum / float64(len(energies))
	var above int
	for _, e := range energies {
		if e > mean {
			above++
		}
	}
	return float64(above) / float64(len(energies))
}

func beatsPerSecond(a *datastore.Analysis) float64 {
	d := val(a.Duration, 0)
	if d <= 0 {
		return 0
	}
	return count(a.BeatCount) / d
}

func transitionsPerMinute(a *datastore.Analysis) float64 {
	d := val(a.Duration, 0)
	if d <= 0 {
		return 0
	}
	return count(a.TransitionCount) / (d / 60)
}

func chordVariety(a *datastore.Analysis) float64 {
	return unit((count(a.ChordCount) - 3) / 18)
}

// pitchBreadth is the pitch range in octaves over four octaves.
func pitchBreadth(a *datastore.Analysis) float64 {
	lo, hi := val(a.PitchRangeLow, 0), val(a.PitchRangeHigh, 0)
	if lo <= 0 || hi <= lo {
		return 0
	}
	return unit(math.Log2(hi/lo) / 4)
}

func fluxCV(a *datastore.Analysis) float64 {
	mean := val(a.SpectralFluxMean, 0)
	if mean <= 0.5 {
		return 2
	}
	return val(a.SpectralFluxStd, 0) / mean
}

func total(parts ...float64) float64 {
	var sum float64
	for _, p := range parts {
		sum += p
	}
	return clamp(sum, 0, 100)
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	return math.Max(lo, math.Min(hi, x))
}

func unit(x float64) float64 { return clamp(x, 0, 1) }

func val(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func count(p *int) float64 {
	if p == nil {
		return 0
	}
	return float64(*p)
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func ptr(v float64) *float64 { return &v }
