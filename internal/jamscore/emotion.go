package jamscore

import (
	"strings"

	"github.com/lexicone42/setbreak-sub000/internal/datastore"
)

// Emotion estimates valence (sad to happy) and arousal (calm to energetic),
// both 0 to 100, from the flat record. It stands in when no external
// emotion model has supplied them.
func Emotion(a *datastore.Analysis) (valence, arousal float64) {
	mode := 0.5
	switch key := str(a.EstimatedKey); {
	case strings.Contains(key, "major"):
		mode = 1
	case strings.Contains(key, "minor"):
		mode = 0
	}
	tempo := unit((val(a.TempoBPM, 120) - 60) / 120)

	valence = total(
		mode*30,
		tempo*25,
		unit((val(a.SpectralCentroidMean, 0)-500)/4500)*25,
		(1-unit(val(a.HarmonicComplexity, 0.5)))*20,
	)
	arousal = total(
		unit(val(a.EnergyLevel, 0))*30,
		tempo*25,
		unit(val(a.SpectralFluxMean, 0)/50)*20,
		unit((val(a.LUFSIntegrated, -40)+40)/40)*25,
	)
	return valence, arousal
}

// ApplyEmotion stores Emotion's estimates on a.
func ApplyEmotion(a *datastore.Analysis) {
	v, ar := Emotion(a)
	a.ValenceScore = ptr(v)
	a.ArousalScore = ptr(ar)
}
