// model.go: GORM models for tracks, analysis rows and their detail records
package datastore

import (
	"time"
)

// Track is one audio file in the library. The scanner owns writes; analysis
// only reads ID and FilePath.
type Track struct {
	ID           int64  `gorm:"primaryKey"`
	FilePath     string `gorm:"uniqueIndex;size:1024;not null"`
	FileSize     int64
	FileModified string `gorm:"size:64"`
	Format       string `gorm:"size:16;index"`

	Title  *string
	Artist *string
	Album  *string

	ParsedBand  *string `gorm:"size:255;index"`
	ParsedDate  *string `gorm:"size:10;index"`
	ParsedTitle *string
	ParsedDisc  *int
	ParsedTrack *int

	DurationSecs *float64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Analysis is the flat per track analysis row. Every measured value is
// nullable; a nil field means the engine produced nothing for it.
type Analysis struct {
	ID      int64 `gorm:"primaryKey"`
	TrackID int64 `gorm:"uniqueIndex;not null"`

	// summary
	Duration      *float64
	SampleRate    *int
	Channels      *int
	PeakAmplitude *float64
	RMSLevel      *float64 `gorm:"column:rms_level"`
	DynamicRange  *float64

	// spectral
	SpectralCentroidMean  *float64
	SpectralCentroidStd   *float64
	SpectralFluxMean      *float64
	SpectralFluxStd       *float64
	SpectralRolloffMean   *float64
	SpectralRolloffStd    *float64
	SpectralFlatnessMean  *float64
	SpectralFlatnessStd   *float64
	SpectralBandwidthMean *float64
	SpectralBandwidthStd  *float64
	ZCRMean               *float64 `gorm:"column:zcr_mean"`
	ZCRStd                *float64 `gorm:"column:zcr_std"`
	SubBandBassMean       *float64
	SubBandBassStd        *float64
	SubBandMidMean        *float64
	SubBandMidStd         *float64
	SubBandHighMean       *float64
	SubBandHighStd        *float64
	SubBandPresenceMean   *float64
	SubBandPresenceStd    *float64

	MFCC0Mean  *float64 `gorm:"column:mfcc_0_mean"`
	MFCC0Std   *float64 `gorm:"column:mfcc_0_std"`
	MFCC1Mean  *float64 `gorm:"column:mfcc_1_mean"`
	MFCC1Std   *float64 `gorm:"column:mfcc_1_std"`
	MFCC2Mean  *float64 `gorm:"column:mfcc_2_mean"`
	MFCC2Std   *float64 `gorm:"column:mfcc_2_std"`
	MFCC3Mean  *float64 `gorm:"column:mfcc_3_mean"`
	MFCC3Std   *float64 `gorm:"column:mfcc_3_std"`
	MFCC4Mean  *float64 `gorm:"column:mfcc_4_mean"`
	MFCC4Std   *float64 `gorm:"column:mfcc_4_std"`
	MFCC5Mean  *float64 `gorm:"column:mfcc_5_mean"`
	MFCC5Std   *float64 `gorm:"column:mfcc_5_std"`
	MFCC6Mean  *float64 `gorm:"column:mfcc_6_mean"`
	MFCC6Std   *float64 `gorm:"column:mfcc_6_std"`
	MFCC7Mean  *float64 `gorm:"column:mfcc_7_mean"`
	MFCC7Std   *float64 `gorm:"column:mfcc_7_std"`
	MFCC8Mean  *float64 `gorm:"column:mfcc_8_mean"`
	MFCC8Std   *float64 `gorm:"column:mfcc_8_std"`
	MFCC9Mean  *float64 `gorm:"column:mfcc_9_mean"`
	MFCC9Std   *float64 `gorm:"column:mfcc_9_std"`
	MFCC10Mean *float64 `gorm:"column:mfcc_10_mean"`
	MFCC10Std  *float64 `gorm:"column:mfcc_10_std"`
	MFCC11Mean *float64 `gorm:"column:mfcc_11_mean"`
	MFCC11Std  *float64 `gorm:"column:mfcc_11_std"`
	MFCC12Mean *float64 `gorm:"column:mfcc_12_mean"`
	MFCC12Std  *float64 `gorm:"column:mfcc_12_std"`

	// temporal
	TempoBPM           *float64 `gorm:"column:tempo_bpm"`
	BeatCount          *int
	OnsetCount         *int
	TempoStability     *float64
	RhythmicComplexity *float64

	// pitch
	MeanPitch           *float64
	PitchRangeLow       *float64
	PitchRangeHigh      *float64
	PitchStability      *float64
	DominantPitch       *float64
	VibratoPresence     *float64
	VibratoRate         *float64
	PitchConfidenceMean *float64

	// perceptual
	LUFSIntegrated *float64 `gorm:"column:lufs_integrated"`
	LoudnessRange  *float64
	TruePeakDBFS   *float64 `gorm:"column:true_peak_dbfs"`
	CrestFactor    *float64
	EnergyLevel    *float64

	// musical
	EstimatedKey         *string `gorm:"size:32"`
	KeyConfidence        *float64
	Tonality             *float64
	HarmonicComplexity   *float64
	ChordCount           *int
	ChordChangeRate      *float64
	ModeClarity          *float64
	KeyAlternativesCount *int
	TimeSigNumerator     *int
	TimeSigDenominator   *int
	ChromaVector         *string // JSON array of 12 values

	// quality
	RecordingQualityScore *float64
	SNRDB                 *float64 `gorm:"column:snr_db"`
	ClippingRatio         *float64
	NoiseFloorDB          *float64 `gorm:"column:noise_floor_db"`

	// segments and structure
	SegmentCount         *int
	TemporalComplexity   *float64
	CoherenceScore       *float64
	EnergyShape          *string `gorm:"size:32"`
	PeakEnergy           *float64
	EnergyVariance       *float64
	TensionBuildCount    *int
	TensionReleaseCount  *int
	RepetitionCount      *int
	RepetitionSimilarity *float64
	SoloSectionCount     *int
	SoloSectionRatio     *float64
	TransitionCount      *int
	SmoothTransitions    *int

	// classification
	ClassificationMusicScore *float64
	HNR                      *float64 `gorm:"column:hnr"`

	// derived statistics
	SpectralFluxSkewness        *float64
	SpectralCentroidSlope       *float64
	EnergyBuildupRatio          *float64
	BassTrebleRatioMean         *float64
	BassTrebleRatioStd          *float64
	OnsetDensityStd             *float64
	LoudnessBuildupSlope        *float64
	PeakEnergyTime              *float64
	PitchContourStd             *float64
	PitchClarityMean            *float64
	PitchedFrameRatio           *float64
	MFCCFluxMean                *float64 `gorm:"column:mfcc_flux_mean"`
	OnsetIntervalEntropy        *float64
	SpectralCentroidKurtosis    *float64
	BassEnergySlope             *float64
	SpectralBandwidthSlope      *float64
	LoudnessStd                 *float64
	PeakLoudness                *float64
	LoudnessDynamicSpread       *float64
	BeatRegularity              *float64
	PeakTension                 *float64
	TensionRange                *float64
	EnergyPeakCount             *int
	EnergyValleyDepthMean       *float64
	RhythmicPeriodicityStrength *float64
	SpectralLoudnessCorrelation *float64

	// emotion
	ValenceScore *float64
	ArousalScore *float64

	// jam scores, 0 to 100
	EnergyScore        *float64
	IntensityScore     *float64
	GrooveScore        *float64
	ImprovisationScore *float64
	TightnessScore     *float64
	BuildQualityScore  *float64
	ExploratoryScore   *float64
	TranscendenceScore *float64

	AnalyzedAt time.Time
}

// TableName pins the analysis table name.
func (Analysis) TableName() string { return "analyses" }

// MFCCSlots returns pointers to the mean and std fields of each MFCC
// coefficient, indexed by coefficient.
func (a *Analysis) MFCCSlots() [13][2]**float64 {
	return [13][2]**float64{
		{&a.MFCC0Mean, &a.MFCC0Std},
		{&a.MFCC1Mean, &a.MFCC1Std},
		{&a.MFCC2Mean, &a.MFCC2Std},
		{&a.MFCC3Mean, &a.MFCC3Std},
		{&a.MFCC4Mean, &a.MFCC4Std},
		{&a.MFCC5Mean, &a.MFCC5Std},
		{&a.MFCC6Mean, &a.MFCC6Std},
		{&a.MFCC7Mean, &a.MFCC7Std},
		{&a.MFCC8Mean, &a.MFCC8Std},
		{&a.MFCC9Mean, &a.MFCC9Std},
		{&a.MFCC10Mean, &a.MFCC10Std},
		{&a.MFCC11Mean, &a.MFCC11Std},
		{&a.MFCC12Mean, &a.MFCC12Std},
	}
}

// ScoreColumns lists the ten score columns in calibration order.
var ScoreColumns = [10]string{
	"energy_score",
	"intensity_score",
	"groove_score",
	"improvisation_score",
	"tightness_score",
	"build_quality_score",
	"exploratory_score",
	"transcendence_score",
	"valence_score",
	"arousal_score",
}

// ScoreSlots returns pointers to the score fields in ScoreColumns order.
func (a *Analysis) ScoreSlots() [10]**float64 {
	return [10]**float64{
		&a.EnergyScore,
		&a.IntensityScore,
		&a.GrooveScore,
		&a.ImprovisationScore,
		&a.TightnessScore,
		&a.BuildQualityScore,
		&a.ExploratoryScore,
		&a.TranscendenceScore,
		&a.ValenceScore,
		&a.ArousalScore,
	}
}

// IsScoreColumn reports whether name is one of ScoreColumns.
func IsScoreColumn(name string) bool {
	for _, c := range ScoreColumns {
		if c == name {
			return true
		}
	}
	return false
}

// ChordEvent is one detected chord.
type ChordEvent struct {
	ID         int64   `gorm:"primaryKey"`
	TrackID    int64   `gorm:"index:idx_chords_track_start;not null"`
	Chord      string  `gorm:"size:32"`
	StartTime  float64 `gorm:"index:idx_chords_track_start"`
	Duration   float64
	Confidence *float64
}

// TableName pins the chord table name.
func (ChordEvent) TableName() string { return "track_chords" }

// Segment is one analysis segment joined with its structural section.
type Segment struct {
	ID                int64   `gorm:"primaryKey"`
	TrackID           int64   `gorm:"uniqueIndex:idx_segments_track_index;not null"`
	SegmentIndex      int     `gorm:"uniqueIndex:idx_segments_track_index"`
	Label             string  `gorm:"size:32"`
	SectionType       *string `gorm:"size:32"`
	StartTime         float64
	Duration          float64
	Energy            *float64
	SpectralCentroid  *float64
	ZCR               *float64 `gorm:"column:zcr"`
	Key               *string  `gorm:"size:32"`
	Tempo             *float64
	DynamicRange      *float64
	Confidence        *float64
	HarmonicStability *float64
	RhythmicDensity   *float64
	AvgBrightness     *float64
	DynamicVariation  *float64
}

// TableName pins the segment table name.
func (Segment) TableName() string { return "track_segments" }

// TensionPoint is one sample of the tension profile.
type TensionPoint struct {
	ID         int64   `gorm:"primaryKey"`
	TrackID    int64   `gorm:"index:idx_tension_track_time;not null"`
	Time       float64 `gorm:"index:idx_tension_track_time"`
	Tension    float64
	ChangeType string `gorm:"size:32"`
}

// TableName pins the tension table name.
func (TensionPoint) TableName() string { return "track_tension_points" }

// Transition is one classified segment boundary.
type Transition struct {
	ID             int64   `gorm:"primaryKey"`
	TrackID        int64   `gorm:"index:idx_transitions_track_time;not null"`
	Time           float64 `gorm:"index:idx_transitions_track_time"`
	TransitionType string  `gorm:"size:32"`
	Strength       *float64
	Duration       *float64
}

// TableName pins the transition table name.
func (Transition) TableName() string { return "track_transitions" }

// FullAnalysis is an analysis row plus every detail record for one track.
type FullAnalysis struct {
	Analysis      Analysis
	Chords        []ChordEvent
	Segments      []Segment
	TensionPoints []TensionPoint
	Transitions   []Transition
}

// CalibrationRow carries what the calibrator needs for one analyzed track.
type CalibrationRow struct {
	TrackID    int64
	LUFS       float64
	Scores     [10]*float64 // ScoreColumns order
	ParsedDate string
	ParsedBand *string
}

// ShowKey groups tracks of the same show: "band|date", or the date alone
// when the band is unknown.
func (r *CalibrationRow) ShowKey() string {
	if r.ParsedBand != nil && *r.ParsedBand != "" {
		return *r.ParsedBand + "|" + r.ParsedDate
	}
	return r.ParsedDate
}

// TrackScore is a display row for the top and show queries.
type TrackScore struct {
	TrackID     int64
	Title       string
	Date        string
	DurationMin float64
	Key         *string
	Tempo       *float64
	Scores      [10]float64 // ScoreColumns order, 0 when unscored
}

// NamedCount is a label with a row count.
type NamedCount struct {
	Name  string
	Count int64
}

// LibraryStats summarizes the library.
type LibraryStats struct {
	TotalTracks    int64
	AnalyzedTracks int64
	TotalHours     float64
	Formats        []NamedCount
	Bands          []NamedCount
}
