package engine

import "fmt"

// Tags are stored by their String value. Each table below must list every
// constant of its type in declaration order; tags_test.go enforces that.

// SectionType labels a structural section.
type SectionType int

const (
	SectionUnknown SectionType = iota
	SectionIntro
	SectionVerse
	SectionChorus
	SectionBridge
	SectionSolo
	SectionInstrumental
	SectionBreakdown
	SectionBuildup
	SectionOutro
	sectionTypeCount
)

var sectionTypeNames = [sectionTypeCount]string{
	SectionUnknown:      "Unknown",
	SectionIntro:        "Intro",
	SectionVerse:        "Verse",
	SectionChorus:       "Chorus",
	SectionBridge:       "Bridge",
	SectionSolo:         "Solo",
	SectionInstrumental: "Instrumental",
	SectionBreakdown:    "Breakdown",
	SectionBuildup:      "Buildup",
	SectionOutro:        "Outro",
}

func (s SectionType) String() string {
	if s >= 0 && s < sectionTypeCount {
		return sectionTypeNames[s]
	}
	return fmt.Sprintf("SectionType(%d)", int(s))
}

// SegmentLabel is the content class of a segment.
type SegmentLabel int

const (
	LabelUnclassified SegmentLabel = iota
	LabelMusic
	LabelSilence
	LabelApplause
	LabelSpeech
	LabelNoise
	segmentLabelCount
)

var segmentLabelNames = [segmentLabelCount]string{
	LabelUnclassified: "Unclassified",
	LabelMusic:        "Music",
	LabelSilence:      "Silence",
	LabelApplause:     "Applause",
	LabelSpeech:       "Speech",
	LabelNoise:        "Noise",
}

func (l SegmentLabel) String() string {
	if l >= 0 && l < segmentLabelCount {
		return segmentLabelNames[l]
	}
	return fmt.Sprintf("SegmentLabel(%d)", int(l))
}

// TransitionType classifies a segment boundary.
type TransitionType int

const (
	TransitionCut TransitionType = iota
	TransitionFadeIn
	TransitionFadeOut
	TransitionCrossfade
	TransitionBuildUp
	TransitionBreakdown
	TransitionKeyChange
	TransitionTempoChange
	transitionTypeCount
)

var transitionTypeNames = [transitionTypeCount]string{
	TransitionCut:         "Cut",
	TransitionFadeIn:      "FadeIn",
	TransitionFadeOut:     "FadeOut",
	TransitionCrossfade:   "Crossfade",
	TransitionBuildUp:     "BuildUp",
	TransitionBreakdown:   "Breakdown",
	TransitionKeyChange:   "KeyChange",
	TransitionTempoChange: "TempoChange",
}

func (t TransitionType) String() string {
	if t >= 0 && t < transitionTypeCount {
		return transitionTypeNames[t]
	}
	return fmt.Sprintf("TransitionType(%d)", int(t))
}

// IsSmooth reports whether the transition is gradual rather than abrupt.
func (t TransitionType) IsSmooth() bool {
	switch t {
	case TransitionFadeIn, TransitionFadeOut, TransitionCrossfade, TransitionBuildUp:
		return true
	}
	return false
}

// EnergyShape is the overall energy arc of a track.
type EnergyShape int

const (
	ShapeFlat EnergyShape = iota
	ShapeBuilding
	ShapeDecaying
	ShapePeak
	ShapeValley
	ShapeWave
	energyShapeCount
)

var energyShapeNames = [energyShapeCount]string{
	ShapeFlat:     "Flat",
	ShapeBuilding: "Building",
	ShapeDecaying: "Decaying",
	ShapePeak:     "Peak",
	ShapeValley:   "Valley",
	ShapeWave:     "Wave",
}

func (s EnergyShape) String() string {
	if s >= 0 && s < energyShapeCount {
		return energyShapeNames[s]
	}
	return fmt.Sprintf("EnergyShape(%d)", int(s))
}

// ChangeType describes how tension moves at a tension point.
type ChangeType int

const (
	ChangeSustain ChangeType = iota
	ChangeBuild
	ChangeRelease
	ChangeSuddenBuild
	ChangeSuddenRelease
	ChangePeak
	changeTypeCount
)

var changeTypeNames = [changeTypeCount]string{
	ChangeSustain:       "Sustain",
	ChangeBuild:         "Build",
	ChangeRelease:       "Release",
	ChangeSuddenBuild:   "SuddenBuild",
	ChangeSuddenRelease: "SuddenRelease",
	ChangePeak:          "Peak",
}

func (c ChangeType) String() string {
	if c >= 0 && c < changeTypeCount {
		return changeTypeNames[c]
	}
	return fmt.Sprintf("ChangeType(%d)", int(c))
}
