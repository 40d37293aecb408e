// Package features flattens an engine.Result into the scalar analysis row
// and the relational detail records stored for a track.
package features

import (
	"encoding/json"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/lexicone42/setbreak-sub000/internal/datastore"
	"github.com/lexicone42/setbreak-sub000/internal/engine"
)

// mfccCoefficients is the number of MFCC coefficients stored per track.
const mfccCoefficients = 13

// Extraction is everything stored for one analyzed track.
type Extraction = datastore.FullAnalysis

// MeanStd returns the mean and population standard deviation of values,
// or (0, 0) when empty.
func MeanStd(values []float32) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(widen(values), nil)
}

func iptr(v int) *int       { return &v }
func sptr(v string) *string { return &v }

func f32ptr(v *float32) *float64 {
	if v == nil {
		return nil
	}
	return ptr(float64(*v))
}

// Extract flattens r for trackID. Jam scores and emotion scores are left
// nil for the scorer to fill in.
func Extract(trackID int64, r *engine.Result) Extraction {
	a := datastore.Analysis{TrackID: trackID}

	summary(&a, r)
	spectral(&a, r)
	temporal(&a, r)
	pitch(&a, r)
	perceptual(&a, r)
	chords := musical(&a, trackID, r)
	quality(&a, r)
	tension := structure(&a, trackID, r)
	derived(&a, r)

	return Extraction{
		Analysis:      a,
		Chords:        chords,
		Segments:      Segments(trackID, &r.Segments),
		TensionPoints: tension,
		Transitions:   transitions(trackID, r.Segments.Transitions),
	}
}

func summary(a *datastore.Analysis, r *engine.Result) {
	s := r.Summary
	a.Duration = ptr(float64(s.Duration))
	a.SampleRate = iptr(s.SampleRate)
	a.Channels = iptr(s.Channels)
	a.PeakAmplitude = ptr(float64(s.PeakAmplitude))
	a.RMSLevel = ptr(float64(s.RMSLevel))
	a.DynamicRange = ptr(float64(s.DynamicRange))
}

func spectral(a *datastore.Analysis, r *engine.Result) {
	sp := &r.Spectral
	pairs := []struct {
		values    []float32
		mean, std **float64
	}{
		{sp.Centroid, &a.SpectralCentroidMean, &a.SpectralCentroidStd},
		{sp.Flux, &a.SpectralFluxMean, &a.SpectralFluxStd},
		{sp.Rolloff, &a.SpectralRolloffMean, &a.SpectralRolloffStd},
		{sp.Flatness, &a.SpectralFlatnessMean, &a.SpectralFlatnessStd},
		{sp.Bandwidth, &a.SpectralBandwidthMean, &a.SpectralBandwidthStd},
		{sp.ZeroCrossingRate, &a.ZCRMean, &a.ZCRStd},
		{sp.SubBandBass, &a.SubBandBassMean, &a.SubBandBassStd},
		{sp.SubBandMid, &a.SubBandMidMean, &a.SubBandMidStd},
		{sp.SubBandHigh, &a.SubBandHighMean, &a.SubBandHighStd},
		{sp.SubBandPresence, &a.SubBandPresenceMean, &a.SubBandPresenceStd},
	}
	for _, p := range pairs {
		m, s := MeanStd(p.values)
		*p.mean, *p.std = ptr(m), ptr(s)
	}

	// a missing coefficient stores (0, 0)
	for i, slot := range a.MFCCSlots() {
		var m, s float64
		if i < len(sp.MFCC) {
			m, s = MeanStd(sp.MFCC[i])
		}
		*slot[0], *slot[1] = ptr(m), ptr(s)
	}
}

func temporal(a *datastore.Analysis, r *engine.Result) {
	t := &r.Temporal
	a.TempoBPM = f32ptr(t.Tempo)
	a.BeatCount = iptr(len(t.Beats))
	a.OnsetCount = iptr(len(t.Onsets))
	a.TempoStability = ptr(float64(t.TempoStability))
	a.RhythmicComplexity = ptr(float64(t.RhythmicComplexity))
}

func pitch(a *datastore.Analysis, r *engine.Result) {
	p := &r.Pitch
	a.MeanPitch = f32ptr(p.MeanPitch)
	a.PitchRangeLow = ptr(float64(p.RangeLow))
	a.PitchRangeHigh = ptr(float64(p.RangeHigh))
	a.PitchStability = ptr(float64(p.Stability))
	a.DominantPitch = f32ptr(p.DominantPitch)
	if p.Vibrato != nil {
		a.VibratoPresence = ptr(float64(p.Vibrato.Presence))
		a.VibratoRate = ptr(float64(p.Vibrato.Rate))
	}
	if len(p.Frames) > 0 {
		var sum float64
		for _, f := range p.Frames {
			sum += float64(f.Confidence)
		}
		a.PitchConfidenceMean = ptr(sum / float64(len(p.Frames)))
	}
}

func perceptual(a *datastore.Analysis, r *engine.Result) {
	p := &r.Perceptual
	a.LUFSIntegrated = ptr(float64(p.LoudnessLUFS))
	a.LoudnessRange = ptr(float64(p.LoudnessRange))
	a.TruePeakDBFS = ptr(float64(p.TruePeakDBFS))
	a.CrestFactor = ptr(float64(p.CrestFactor))
	a.EnergyLevel = ptr(float64(p.EnergyLevel))
}

// musical fills key, chord and tonal fields and returns the chord records.
func musical(a *datastore.Analysis, trackID int64, r *engine.Result) []datastore.ChordEvent {
	m := &r.Musical
	a.EstimatedKey = sptr(m.Key.Key)
	a.KeyConfidence = ptr(float64(m.Key.Confidence))
	a.KeyAlternativesCount = iptr(len(m.Key.Alternatives))
	a.Tonality = ptr(float64(m.Tonality))
	a.HarmonicComplexity = ptr(float64(m.HarmonicComplexity))
	a.ModeClarity = ptr(float64(m.ModeClarity))
	if m.TimeSignature != nil {
		a.TimeSigNumerator = iptr(m.TimeSignature.Numerator)
		a.TimeSigDenominator = iptr(m.TimeSignature.Denominator)
	}
	if m.Chroma != nil {
		if b, err := json.Marshal(widen(m.Chroma)); err == nil {
			a.ChromaVector = sptr(string(b))
		}
	}

	count, rate, records := Chords(trackID, m.ChordProgression, r.Summary.Duration)
	a.ChordCount = iptr(count)
	a.ChordChangeRate = ptr(rate)
	return records
}

// Chords converts a progression into records. count is the number of
// distinct chord labels and rate is chord events per minute.
func Chords(trackID int64, prog *engine.ChordProgression, duration float32) (count int, rate float64, records []datastore.ChordEvent) {
	if prog == nil {
		return 0, 0, []datastore.ChordEvent{}
	}
	records = make([]datastore.ChordEvent, len(prog.Chords))
	labels := make(map[string]struct{}, len(prog.Chords))
	for i, c := range prog.Chords {
		records[i] = datastore.ChordEvent{
			TrackID:    trackID,
			Chord:      c.Chord,
			StartTime:  float64(c.StartTime),
			Duration:   float64(c.Duration),
			Confidence: ptr(float64(c.Confidence)),
		}
		labels[c.Chord] = struct{}{}
	}
	if duration > 0 && len(records) > 0 {
		rate = float64(len(records)) / (float64(duration) / 60)
	}
	return len(labels), rate, records
}

func quality(a *datastore.Analysis, r *engine.Result) {
	q := &r.Quality
	a.RecordingQualityScore = ptr(float64(q.OverallScore))
	a.SNRDB = ptr(float64(q.Metrics.SNRDB))
	a.ClippingRatio = ptr(float64(q.Metrics.ClippingRatio))
	a.NoiseFloorDB = ptr(float64(q.Metrics.NoiseFloorDB))

	a.ClassificationMusicScore = ptr(float64(r.Classification.Scores.Music))
	a.HNR = ptr(float64(r.Classification.Features.HNR))
}

// structure fills segment level scalars and returns the tension records.
func structure(a *datastore.Analysis, trackID int64, r *engine.Result) []datastore.TensionPoint {
	sa := &r.Segments
	ep := &sa.Patterns.EnergyProfile

	a.SegmentCount = iptr(len(sa.Segments))
	a.TemporalComplexity = ptr(float64(sa.TemporalComplexity))
	a.CoherenceScore = ptr(float64(sa.CoherenceScore))
	a.EnergyShape = sptr(ep.Shape.String())
	if len(ep.Peaks) > 0 {
		a.PeakEnergy = ptr(float64(ep.Peaks[0].Value))
	}
	a.EnergyVariance = ptr(float64(ep.Variance))

	records := make([]datastore.TensionPoint, len(sa.Patterns.TensionProfile))
	changes := make([]string, len(records))
	for i, tp := range sa.Patterns.TensionProfile {
		changes[i] = tp.ChangeType.String()
		records[i] = datastore.TensionPoint{
			TrackID:    trackID,
			Time:       float64(tp.Time),
			Tension:    float64(tp.Tension),
			ChangeType: changes[i],
		}
	}
	build, release := TensionCounts(changes)
	a.TensionBuildCount = iptr(build)
	a.TensionReleaseCount = iptr(release)

	reps := sa.Patterns.Repetitions
	a.RepetitionCount = iptr(len(reps))
	if len(reps) > 0 {
		var sum float64
		for _, p := range reps {
			sum += float64(p.Similarity)
		}
		a.RepetitionSimilarity = ptr(sum / float64(len(reps)))
	}

	count, ratio := SoloSections(sa.Structure, r.Summary.Duration)
	a.SoloSectionCount = iptr(count)
	a.SoloSectionRatio = ptr(ratio)
	a.TransitionCount = iptr(len(sa.Transitions))
	var smooth int
	for _, t := range sa.Transitions {
		if t.TransitionType.IsSmooth() {
			smooth++
		}
	}
	a.SmoothTransitions = iptr(smooth)
	return records
}

// TensionCounts counts change types naming a build and a release. A name
// containing both counts toward each.
func TensionCounts(changeTypes []string) (build, release int) {
	for _, c := range changeTypes {
		if strings.Contains(c, "Build") {
			build++
		}
		if strings.Contains(c, "Release") {
			release++
		}
	}
	return build, release
}

// SoloSections counts Solo and Instrumental sections and the fraction of
// the track they cover.
func SoloSections(sections []engine.StructuralSection, duration float32) (count int, ratio float64) {
	var total float64
	for _, s := range sections {
		switch s.SectionType.String() {
		case "Solo", "Instrumental":
			count++
			total += float64(s.EndTime - s.StartTime)
		}
	}
	if duration > 0 {
		ratio = total / float64(duration)
	}
	return count, ratio
}

// Segments joins each segment with the first structural section listing
// its index. Unmatched segments get nil section fields.
func Segments(trackID int64, sa *engine.SegmentAnalysis) []datastore.Segment {
	out := make([]datastore.Segment, len(sa.Segments))
	for i, seg := range sa.Segments {
		rec := datastore.Segment{
			TrackID:          trackID,
			SegmentIndex:     i,
			Label:            seg.Label.String(),
			StartTime:        float64(seg.StartTime),
			Duration:         float64(seg.Duration),
			Energy:           ptr(float64(seg.Energy)),
			SpectralCentroid: ptr(float64(seg.SpectralCentroid)),
			ZCR:              ptr(float64(seg.ZCR)),
			Key:              seg.Key,
			Tempo:            f32ptr(seg.Tempo),
			DynamicRange:     ptr(float64(seg.DynamicRange)),
			Confidence:       ptr(float64(seg.Confidence)),
		}
		if sec := sectionOf(sa.Structure, i); sec != nil {
			rec.SectionType = sptr(sec.SectionType.String())
			rec.HarmonicStability = ptr(float64(sec.Features.HarmonicStability))
			rec.RhythmicDensity = ptr(float64(sec.Features.RhythmicDensity))
			rec.AvgBrightness = ptr(float64(sec.Features.AvgBrightness))
			rec.DynamicVariation = ptr(float64(sec.Features.DynamicVariation))
		}
		out[i] = rec
	}
	return out
}

func sectionOf(sections []engine.StructuralSection, index int) *engine.StructuralSection {
	for i := range sections {
		for _, idx := range sections[i].SegmentIndices {
			if idx == index {
				return &sections[i]
			}
		}
	}
	return nil
}

func transitions(trackID int64, ts []engine.Transition) []datastore.Transition {
	out := make([]datastore.Transition, len(ts))
	for i, t := range ts {
		out[i] = datastore.Transition{
			TrackID:        trackID,
			Time:           float64(t.Time),
			TransitionType: t.TransitionType.String(),
			Strength:       ptr(float64(t.Strength)),
			Duration:       ptr(float64(t.Duration)),
		}
	}
	return out
}

// derived fills the supplementary statistics.
func derived(a *datastore.Analysis, r *engine.Result) {
	sp := &r.Spectral
	pc := &r.Perceptual
	pt := &r.Segments.Patterns

	a.SpectralFluxSkewness = Skewness(sp.Flux)
	a.SpectralCentroidSlope = LinearSlope(sp.Centroid)
	a.EnergyBuildupRatio = BuildupRatio(sp.Flux)
	a.BassTrebleRatioMean, a.BassTrebleRatioStd = BassTrebleRatio(sp.SubBandBass, sp.SubBandHigh, sp.SubBandPresence)
	a.OnsetDensityStd = OnsetDensityStd(r.Temporal.Onsets, r.Summary.Duration)
	a.LoudnessBuildupSlope = FiniteSlope(pc.ShortTermLoudness)
	a.PeakEnergyTime = PeakTime(pc.ShortTermLoudness)
	a.PitchContourStd = PitchContourStd(r.Pitch.Frames)
	a.PitchClarityMean = PitchClarityMean(r.Pitch.Frames)
	a.PitchedFrameRatio = PitchedFrameRatio(r.Pitch.Frames)
	a.MFCCFluxMean = MFCCFluxMean(sp.MFCC)
	a.OnsetIntervalEntropy = OnsetIntervalEntropy(r.Temporal.Onsets)
	a.SpectralCentroidKurtosis = Kurtosis(sp.Centroid)
	a.BassEnergySlope = LinearSlope(sp.SubBandBass)
	a.SpectralBandwidthSlope = LinearSlope(sp.Bandwidth)
	a.LoudnessStd = populationStd(pc.ShortTermLoudness)
	a.PeakLoudness = maxOf(pc.MomentaryLoudness)
	a.LoudnessDynamicSpread = spread(pc.ShortTermLoudness)
	// onsets rather than grid snapped beats
	a.BeatRegularity = BeatRegularity(r.Temporal.Onsets)

	if n := len(pt.TensionProfile); n > 0 {
		tensions := make([]float32, n)
		for i, tp := range pt.TensionProfile {
			tensions[i] = tp.Tension
		}
		a.PeakTension = maxOf(tensions)
		a.TensionRange = spread(tensions)
	}

	ep := &pt.EnergyProfile
	a.EnergyPeakCount = iptr(len(ep.Peaks))
	if len(ep.Peaks) > 0 && len(ep.Valleys) > 0 {
		meanPeak := meanValue(ep.Peaks)
		if meanPeak > 1e-10 {
			a.EnergyValleyDepthMean = ptr(meanValue(ep.Valleys) / meanPeak)
		}
	}

	if len(pt.PeriodicEvents) > 0 {
		strengths := make([]float32, len(pt.PeriodicEvents))
		for i, e := range pt.PeriodicEvents {
			strengths[i] = e.Strength
		}
		a.RhythmicPeriodicityStrength = maxOf(strengths)
	}

	a.SpectralLoudnessCorrelation = Pearson(sp.Centroid, pc.ShortTermLoudness)
}

func meanValue(points []engine.ProfilePoint) float64 {
	var sum float64
	for _, p := range points {
		sum += float64(p.Value)
	}
	return sum / float64(len(points))
}
