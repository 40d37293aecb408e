package dsp

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/lexicone42/setbreak-sub000/internal/engine"
)

const (
	minSegmentSeconds = 5.0
	maxSegmentSeconds = 30.0
	targetSegments    = 24

	silenceRMS          = 1e-3 // about -60 dBFS
	repetitionThreshold = 0.95
)

// segmentStats are the per segment aggregates structure analysis works on.
type segmentStats struct {
	startFrame, endFrame int
	energy               float64
	centroid             float64
	flux                 float64
	flatness             float64
	zcr                  float64
	chroma               []float64
	onsets               int
}

func analyzeStructure(fd *frameData, rd rhythmData, skipClassification bool) engine.SegmentAnalysis {
	stats := segmentFrames(fd, rd)
	sa := engine.SegmentAnalysis{
		Segments: make([]engine.AudioSegment, len(stats)),
	}

	for i, st := range stats {
		sa.Segments[i] = buildSegment(fd, rd, st, skipClassification)
	}

	sa.Structure = buildSections(fd, stats)
	sa.Patterns = engine.Patterns{
		EnergyProfile:  energyProfile(fd, stats),
		TensionProfile: tensionProfile(fd, stats),
		Repetitions:    findRepetitions(stats),
		PeriodicEvents: periodicEvents(rd.ac, fd.frameRate),
	}
	sa.Transitions = findTransitions(fd, stats, sa.Segments)

	energies := make([]float64, len(stats))
	for i, st := range stats {
		energies[i] = st.energy
	}
	if m := floats.Max(energies); m > 0 {
		normalized := make([]float64, len(energies))
		floats.ScaleTo(normalized, 1/m, energies)
		sa.TemporalComplexity = float32(clamp01(2 * stat.PopStdDev(normalized, nil)))
	}

	if len(stats) > 1 {
		var sum float64
		for i := 1; i < len(stats); i++ {
			sum += cosine(stats[i-1].chroma, stats[i].chroma)
		}
		sa.CoherenceScore = float32(clamp01(sum / float64(len(stats)-1)))
	} else {
		sa.CoherenceScore = 1
	}
	return sa
}

// segmentFrames splits the frame sequence into equal length segments.
func segmentFrames(fd *frameData, rd rhythmData) []segmentStats {
	n := len(fd.rms)
	duration := float64(n) / fd.frameRate
	segSeconds := math.Max(minSegmentSeconds, math.Min(maxSegmentSeconds, duration/targetSegments))
	segFrames := max(1, int(segSeconds*fd.frameRate))

	var out []segmentStats
	for start := 0; start < n; start += segFrames {
		end := min(start+segFrames, n)
		// fold a short tail into the previous segment
		if len(out) > 0 && end-start < segFrames/2 {
			out[len(out)-1] = aggregateSegment(fd, rd, out[len(out)-1].startFrame, end)
			break
		}
		out = append(out, aggregateSegment(fd, rd, start, end))
	}
	return out
}

func aggregateSegment(fd *frameData, rd rhythmData, start, end int) segmentStats {
	st := segmentStats{startFrame: start, endFrame: end, chroma: make([]float64, 12)}
	var sumSq float64
	for i := start; i < end; i++ {
		sumSq += fd.rms[i] * fd.rms[i]
		floats.Add(st.chroma, fd.chroma[i][:])
	}
	frames := float64(end - start)
	st.energy = math.Sqrt(sumSq / frames)
	st.centroid = stat.Mean(fd.centroid[start:end], nil)
	st.flux = stat.Mean(fd.flux[start:end], nil)
	st.flatness = stat.Mean(fd.flatness[start:end], nil)
	st.zcr = float64(floats.Sum(toFloat64(fd.spectral.ZeroCrossingRate[start:end]))) / frames

	t0, t1 := fd.frameTime(start), fd.frameTime(end)
	for _, o := range rd.temporal.Onsets {
		if float64(o) >= t0 && float64(o) < t1 {
			st.onsets++
		}
	}
	return st
}

func buildSegment(fd *frameData, rd rhythmData, st segmentStats, skipClassification bool) engine.AudioSegment {
	start := float64(st.startFrame*hopSize) / float64(fd.sampleRate)
	duration := float64((st.endFrame-st.startFrame)*hopSize) / float64(fd.sampleRate)

	seg := engine.AudioSegment{
		StartTime:        float32(start),
		Duration:         float32(duration),
		Energy:           float32(st.energy),
		SpectralCentroid: float32(st.centroid),
		ZCR:              float32(st.zcr),
		Label:            labelSegment(st, skipClassification),
	}
	if st.energy > silenceRMS {
		seg.Key = keyOf(st.chroma)
	}

	rms := fd.rms[st.startFrame:st.endFrame]
	mean, std := stat.PopMeanStdDev(rms, nil)
	if mean > 1e-10 {
		seg.DynamicRange = float32(20 * math.Log10(floats.Max(rms)/mean))
		seg.Confidence = float32(clamp01(1 - std/mean))
	}

	// local tempo from the median inter onset interval
	var iois []float64
	var prev float64 = -1
	for _, o := range rd.temporal.Onsets {
		t := float64(o)
		if t < start || t >= start+duration {
			continue
		}
		if prev >= 0 {
			iois = append(iois, t-prev)
		}
		prev = t
	}
	if len(iois) >= 3 {
		slices.Sort(iois)
		bpm := 60 / iois[len(iois)/2]
		for bpm < minBPM {
			bpm *= 2
		}
		for bpm > maxBPM {
			bpm /= 2
		}
		seg.Tempo = ptr32(bpm)
	}
	return seg
}

// labelSegment classifies segment content. Without classification only
// silence is recognized.
func labelSegment(st segmentStats, skipClassification bool) engine.SegmentLabel {
	if st.energy < silenceRMS {
		return engine.LabelSilence
	}
	if skipClassification {
		return engine.LabelUnclassified
	}
	switch {
	case st.flatness > 0.35 && st.zcr > 0.15:
		return engine.LabelApplause
	case st.flatness > 0.35:
		return engine.LabelNoise
	case st.zcr > 0.1 && st.centroid > 300 && st.centroid < 3000 && st.flatness > 0.15:
		return engine.LabelSpeech
	default:
		return engine.LabelMusic
	}
}

// energyLevel buckets a segment relative to the track mean: 0 low, 1 mid, 2 high.
func energyLevel(e, mean float64) int {
	switch {
	case e < 0.6*mean:
		return 0
	case e > 1.3*mean:
		return 2
	default:
		return 1
	}
}

// buildSections merges runs of segments at the same energy level and
// assigns each run a section type.
func buildSections(fd *frameData, stats []segmentStats) []engine.StructuralSection {
	if len(stats) == 0 {
		return nil
	}
	var meanEnergy, meanFlux, meanCentroid float64
	for _, st := range stats {
		meanEnergy += st.energy
		meanFlux += st.flux
		meanCentroid += st.centroid
	}
	n := float64(len(stats))
	meanEnergy, meanFlux, meanCentroid = meanEnergy/n, meanFlux/n, meanCentroid/n

	type run struct {
		level   int
		indices []int
	}
	var runs []run
	for i, st := range stats {
		level := energyLevel(st.energy, meanEnergy)
		if len(runs) > 0 && runs[len(runs)-1].level == level {
			runs[len(runs)-1].indices = append(runs[len(runs)-1].indices, i)
			continue
		}
		runs = append(runs, run{level: level, indices: []int{i}})
	}

	sections := make([]engine.StructuralSection, len(runs))
	for r, rn := range runs {
		first, last := stats[rn.indices[0]], stats[rn.indices[len(rn.indices)-1]]

		var flux, centroid, onsets float64
		energies := make([]float64, len(rn.indices))
		keys := make(map[string]int)
		for j, idx := range rn.indices {
			st := stats[idx]
			flux += st.flux
			centroid += st.centroid
			onsets += float64(st.onsets)
			energies[j] = st.energy
			if k := keyOf(st.chroma); k != nil && st.energy > silenceRMS {
				keys[*k]++
			}
		}
		count := float64(len(rn.indices))
		flux /= count
		centroid /= count

		var sectionType engine.SectionType
		switch {
		case r == 0 && len(runs) > 1 && rn.level < 2:
			sectionType = engine.SectionIntro
		case r == len(runs)-1 && len(runs) > 1 && rn.level == 0:
			sectionType = engine.SectionOutro
		case rn.level == 2 && flux > 1.1*meanFlux:
			sectionType = engine.SectionSolo
		case rn.level == 2:
			sectionType = engine.SectionChorus
		case rn.level == 0:
			sectionType = engine.SectionBreakdown
		case last.energy > 1.3*first.energy:
			sectionType = engine.SectionBuildup
		case r > 0 && r < len(runs)-1 && runs[r-1].level == 2 && runs[r+1].level == 2:
			sectionType = engine.SectionBridge
		case centroid > meanCentroid:
			sectionType = engine.SectionInstrumental
		default:
			sectionType = engine.SectionVerse
		}

		startTime := float64(first.startFrame*hopSize) / float64(fd.sampleRate)
		endTime := float64(last.endFrame*hopSize) / float64(fd.sampleRate)

		var stability float64
		for _, c := range keys {
			stability = math.Max(stability, float64(c)/count)
		}
		emean, estd := stat.PopMeanStdDev(energies, nil)
		var variation float64
		if emean > 1e-10 {
			variation = estd / emean
		}

		sections[r] = engine.StructuralSection{
			SectionType:    sectionType,
			StartTime:      float32(startTime),
			EndTime:        float32(endTime),
			SegmentIndices: rn.indices,
			Features: engine.SectionFeatures{
				HarmonicStability: float32(stability),
				RhythmicDensity:   float32(clamp01(onsets / math.Max(endTime-startTime, 1e-9) / 10)),
				AvgBrightness:     float32(clamp01(centroid / (float64(fd.sampleRate) / 2))),
				DynamicVariation:  float32(variation),
			},
		}
	}
	return sections
}

// energyProfile finds peaks and valleys of segment energy and classifies
// the overall arc.
func energyProfile(fd *frameData, stats []segmentStats) engine.EnergyProfile {
	ep := engine.EnergyProfile{
		Shape:    engine.ShapeFlat,
		Peaks:    []engine.ProfilePoint{},
		Valleys:  []engine.ProfilePoint{},
		Variance: float32(stat.PopVariance(fd.rms, nil)),
	}
	n := len(stats)
	if n == 0 {
		return ep
	}
	energies := make([]float64, n)
	for i, st := range stats {
		energies[i] = st.energy
	}
	mean := stat.Mean(energies, nil)

	for i, e := range energies {
		left := i == 0 || e > energies[i-1]
		right := i == n-1 || e > energies[i+1]
		lower := i == 0 || e < energies[i-1]
		higher := i == n-1 || e < energies[i+1]
		t := float32(fd.frameTime((stats[i].startFrame + stats[i].endFrame) / 2))
		if n > 1 && left && right && e >= mean {
			ep.Peaks = append(ep.Peaks, engine.ProfilePoint{Time: t, Value: float32(e)})
		}
		if n > 1 && lower && higher && e <= mean {
			ep.Valleys = append(ep.Valleys, engine.ProfilePoint{Time: t, Value: float32(e)})
		}
	}

	maxE := floats.Max(energies)
	if n < 3 || maxE <= 0 {
		return ep
	}
	third := n / 3
	a := stat.Mean(energies[:third], nil) / maxE
	b := stat.Mean(energies[third:n-third], nil) / maxE
	c := stat.Mean(energies[n-third:], nil) / maxE

	switch {
	case c > a+0.15 && c >= b:
		ep.Shape = engine.ShapeBuilding
	case a > c+0.15 && a >= b:
		ep.Shape = engine.ShapeDecaying
	case b > math.Max(a, c)+0.1:
		ep.Shape = engine.ShapePeak
	case b < math.Min(a, c)-0.1:
		ep.Shape = engine.ShapeValley
	case len(ep.Peaks) >= 3:
		ep.Shape = engine.ShapeWave
	}
	return ep
}

// tensionProfile blends normalized energy, brightness and flux per segment.
func tensionProfile(fd *frameData, stats []segmentStats) []engine.TensionPoint {
	if len(stats) == 0 {
		return []engine.TensionPoint{}
	}
	var maxE, maxC, maxF float64
	for _, st := range stats {
		maxE = math.Max(maxE, st.energy)
		maxC = math.Max(maxC, st.centroid)
		maxF = math.Max(maxF, st.flux)
	}
	norm := func(v, m float64) float64 {
		if m <= 0 {
			return 0
		}
		return v / m
	}

	points := make([]engine.TensionPoint, len(stats))
	peak := 0
	for i, st := range stats {
		tension := 0.5*norm(st.energy, maxE) + 0.3*norm(st.centroid, maxC) + 0.2*norm(st.flux, maxF)
		change := engine.ChangeSustain
		if i > 0 {
			switch d := tension - float64(points[i-1].Tension); {
			case d > 0.25:
				change = engine.ChangeSuddenBuild
			case d > 0.05:
				change = engine.ChangeBuild
			case d < -0.25:
				change = engine.ChangeSuddenRelease
			case d < -0.05:
				change = engine.ChangeRelease
			}
		}
		points[i] = engine.TensionPoint{
			Time:       float32(fd.frameTime((st.startFrame + st.endFrame) / 2)),
			Tension:    float32(tension),
			ChangeType: change,
		}
		if points[i].Tension > points[peak].Tension {
			peak = i
		}
	}
	if len(points) > 2 && points[peak].Tension >= 0.8 && peak > 0 && peak < len(points)-1 {
		points[peak].ChangeType = engine.ChangePeak
	}
	return points
}

// findRepetitions groups non silent segments whose chroma is nearly identical.
func findRepetitions(stats []segmentStats) []engine.RepetitionPattern {
	patterns := []engine.RepetitionPattern{}
	used := make([]bool, len(stats))
	for i := range stats {
		if used[i] || stats[i].energy < silenceRMS {
			continue
		}
		indices := []int{i}
		var simSum float64
		for j := i + 1; j < len(stats); j++ {
			if used[j] || stats[j].energy < silenceRMS {
				continue
			}
			if sim := cosine(stats[i].chroma, stats[j].chroma); sim >= repetitionThreshold {
				indices = append(indices, j)
				simSum += sim
				used[j] = true
			}
		}
		if len(indices) > 1 {
			used[i] = true
			patterns = append(patterns, engine.RepetitionPattern{
				SegmentIndices: indices,
				Similarity:     float32(simSum / float64(len(indices)-1)),
			})
		}
	}
	return patterns
}

// findTransitions classifies each segment boundary with a notable change.
func findTransitions(fd *frameData, stats []segmentStats, segs []engine.AudioSegment) []engine.Transition {
	transitions := []engine.Transition{}
	for i := 1; i < len(stats); i++ {
		prev, cur := stats[i-1], stats[i]
		ratio := cur.energy / math.Max(prev.energy, 1e-10)
		boundary := segs[i].StartTime
		half := 0.5 * math.Min(float64(segs[i-1].Duration), float64(segs[i].Duration))

		var tt engine.TransitionType
		var strength, duration float64
		switch {
		case prev.energy < silenceRMS && cur.energy >= silenceRMS:
			tt, strength, duration = engine.TransitionFadeIn, 1, half
		case cur.energy < silenceRMS && prev.energy >= silenceRMS:
			tt, strength, duration = engine.TransitionFadeOut, 1, half
		case segs[i-1].Key != nil && segs[i].Key != nil && *segs[i-1].Key != *segs[i].Key:
			tt, strength = engine.TransitionKeyChange, clamp01(1-cosine(prev.chroma, cur.chroma)+0.5)
		case segs[i-1].Tempo != nil && segs[i].Tempo != nil &&
			math.Abs(float64(*segs[i].Tempo-*segs[i-1].Tempo))/float64(*segs[i-1].Tempo) > 0.08:
			tt = engine.TransitionTempoChange
			strength = clamp01(math.Abs(float64(*segs[i].Tempo-*segs[i-1].Tempo)) / float64(*segs[i-1].Tempo))
		case ratio >= 2:
			strength = clamp01(math.Log2(ratio) / 3)
			if abruptAt(fd, cur.startFrame) {
				tt = engine.TransitionCut
			} else {
				tt, duration = engine.TransitionBuildUp, half
			}
		case ratio <= 0.5:
			tt, strength, duration = engine.TransitionBreakdown, clamp01(-math.Log2(ratio)/3), half
		case cosine(prev.chroma, cur.chroma) < 0.7:
			tt, strength, duration = engine.TransitionCrossfade, clamp01(1-cosine(prev.chroma, cur.chroma)), half
		default:
			continue
		}
		transitions = append(transitions, engine.Transition{
			Time:           boundary,
			TransitionType: tt,
			Strength:       float32(strength),
			Duration:       float32(duration),
		})
	}
	return transitions
}

// abruptAt reports whether frame energy at least doubles within two frames
// of the boundary.
func abruptAt(fd *frameData, frame int) bool {
	lo, hi := max(0, frame-2), min(len(fd.rms)-1, frame+2)
	return fd.rms[hi] > 2*math.Max(fd.rms[lo], 1e-10)
}

func cosine(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na < 1e-12 || nb < 1e-12 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}
