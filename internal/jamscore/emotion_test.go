package jamscore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lexicone42/setbreak-sub000/internal/datastore"
)

func TestEmotionMode(t *testing.T) {
	t.Parallel()
	a := baseAnalysis()
	minorV, _ := Emotion(a)

	a.EstimatedKey = s("C major")
	majorV, _ := Emotion(a)

	a.EstimatedKey = s("Unknown")
	unknownV, _ := Emotion(a)

	assert.InDelta(t, 30, majorV-minorV, 1e-9)
	assert.InDelta(t, 15, unknownV-minorV, 1e-9)
}

func TestEmotionDefaults(t *testing.T) {
	t.Parallel()
	v, ar := Emotion(&datastore.Analysis{})
	// unknown mode, 120 bpm, no brightness, complexity 0.5
	assert.InDelta(t, 15+12.5+10, v, 1e-9)
	// tempo only
	assert.InDelta(t, 12.5, ar, 1e-9)
}

func TestEmotionRange(t *testing.T) {
	t.Parallel()
	for _, a := range []*datastore.Analysis{baseAnalysis(), silence(), extremes()} {
		v, ar := Emotion(a)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
		assert.GreaterOrEqual(t, ar, 0.0)
		assert.LessOrEqual(t, ar, 100.0)
	}
}

func TestApplyEmotionOverwrites(t *testing.T) {
	t.Parallel()
	a := baseAnalysis()
	a.ValenceScore = f(99)
	ApplyEmotion(a)

	v, ar := Emotion(a)
	assert.InDelta(t, v, *a.ValenceScore, 1e-12)
	assert.InDelta(t, ar, *a.ArousalScore, 1e-12)
}
