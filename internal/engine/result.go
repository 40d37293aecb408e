package engine

// Result is the full analysis of one track.
type Result struct {
	Summary        Summary
	Spectral       Spectral
	Temporal       Temporal
	Pitch          Pitch
	Perceptual     Perceptual
	Musical        Musical
	Quality        Quality
	Segments       SegmentAnalysis
	Classification Classification

	// Optional stages, nil when skipped
	Visualization *Waveform
	Fingerprint   *string
}

// Summary holds whole track levels.
type Summary struct {
	Duration      float32 // seconds
	SampleRate    int
	Channels      int
	PeakAmplitude float32
	RMSLevel      float32
	DynamicRange  float32 // dB between peak and RMS
}

// Spectral holds per frame spectral sequences, all of equal length.
type Spectral struct {
	Centroid         []float32
	Flux             []float32
	Rolloff          []float32
	Flatness         []float32
	Bandwidth        []float32
	ZeroCrossingRate []float32

	SubBandBass     []float32
	SubBandMid      []float32
	SubBandHigh     []float32
	SubBandPresence []float32

	// MFCC is indexed [coefficient][frame]
	MFCC [][]float32
}

// Temporal holds rhythm analysis. Beat and onset values are times in seconds.
type Temporal struct {
	Tempo              *float32 // BPM, nil when no pulse was found
	Beats              []float32
	Onsets             []float32
	TempoStability     float32
	RhythmicComplexity float32
}

// PitchFrame is one pitch detector frame.
type PitchFrame struct {
	Time       float32
	Frequency  *float32 // nil when unvoiced
	Confidence float32
	Clarity    float32
}

// Vibrato describes periodic pitch modulation.
type Vibrato struct {
	Presence float32
	Rate     float32 // Hz
}

// Pitch holds pitch tracking results.
type Pitch struct {
	MeanPitch     *float32
	RangeLow      float32
	RangeHigh     float32
	Stability     float32
	DominantPitch *float32
	Vibrato       *Vibrato
	Frames        []PitchFrame
}

// Perceptual holds loudness measurements.
type Perceptual struct {
	LoudnessLUFS      float32
	LoudnessRange     float32
	TruePeakDBFS      float32
	CrestFactor       float32
	EnergyLevel       float32
	ShortTermLoudness []float32 // 3 s windows, LUFS
	MomentaryLoudness []float32 // 400 ms windows, LUFS
}

// KeyCandidate is a key label with its match confidence.
type KeyCandidate struct {
	Key        string
	Confidence float32
}

// KeyEstimate is the detected key plus runner up candidates.
type KeyEstimate struct {
	Key          string
	Confidence   float32
	Alternatives []KeyCandidate
}

// Chord is one detected chord event.
type Chord struct {
	Chord      string
	StartTime  float32
	Duration   float32
	Confidence float32
}

// ChordProgression is the ordered chord sequence of a track.
type ChordProgression struct {
	Chords []Chord
}

// TimeSignature is a meter estimate.
type TimeSignature struct {
	Numerator   int
	Denominator int
}

// Musical holds tonal analysis.
type Musical struct {
	Key                KeyEstimate
	ChordProgression   *ChordProgression
	Chroma             []float32 // 12 pitch classes starting at C
	TimeSignature      *TimeSignature
	Tonality           float32
	HarmonicComplexity float32
	ModeClarity        float32
}

// QualityMetrics are the raw recording quality measurements.
type QualityMetrics struct {
	SNRDB         float32
	ClippingRatio float32
	NoiseFloorDB  float32
}

// Quality rates the recording itself.
type Quality struct {
	OverallScore float32
	Metrics      QualityMetrics
}

// AudioSegment is one contiguous analysis segment.
type AudioSegment struct {
	StartTime        float32
	Duration         float32
	Label            SegmentLabel
	Energy           float32
	SpectralCentroid float32
	ZCR              float32
	Key              *string
	Tempo            *float32
	DynamicRange     float32
	Confidence       float32
}

// SectionFeatures summarize a structural section.
type SectionFeatures struct {
	HarmonicStability float32
	RhythmicDensity   float32
	AvgBrightness     float32
	DynamicVariation  float32
}

// StructuralSection is a labeled run of segments.
type StructuralSection struct {
	SectionType    SectionType
	StartTime      float32
	EndTime        float32
	SegmentIndices []int
	Features       SectionFeatures
}

// ProfilePoint is a (time, value) pair of an energy profile.
type ProfilePoint struct {
	Time  float32
	Value float32
}

// EnergyProfile describes the energy arc of a track.
type EnergyProfile struct {
	Shape    EnergyShape
	Peaks    []ProfilePoint
	Valleys  []ProfilePoint
	Variance float32
}

// TensionPoint is one sample of the tension curve.
type TensionPoint struct {
	Time       float32
	Tension    float32
	ChangeType ChangeType
}

// RepetitionPattern groups segments that sound alike.
type RepetitionPattern struct {
	SegmentIndices []int
	Similarity     float32
}

// PeriodicEvent is a recurring rhythmic period.
type PeriodicEvent struct {
	Period   float32 // seconds
	Strength float32
}

// Patterns holds higher level patterns found across segments.
type Patterns struct {
	EnergyProfile  EnergyProfile
	TensionProfile []TensionPoint
	Repetitions    []RepetitionPattern
	PeriodicEvents []PeriodicEvent
}

// Transition is a boundary between segments.
type Transition struct {
	Time           float32
	TransitionType TransitionType
	Strength       float32
	Duration       float32
}

// SegmentAnalysis holds segmentation and structure.
type SegmentAnalysis struct {
	Segments           []AudioSegment
	Structure          []StructuralSection
	Patterns           Patterns
	Transitions        []Transition
	TemporalComplexity float32
	CoherenceScore     float32
}

// ClassificationScores are per class likelihoods.
type ClassificationScores struct {
	Music float32
	Other float32
}

// ClassificationFeatures are the features classification used.
type ClassificationFeatures struct {
	HNR float32 // harmonic to noise ratio, dB
}

// Classification describes what kind of audio the track is.
type Classification struct {
	Scores   ClassificationScores
	Features ClassificationFeatures
}

// Waveform is a min/max overview for display.
type Waveform struct {
	SamplesPerPoint int
	Min             []float32
	Max             []float32
}
