package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRescoreRestoresScores(t *testing.T) {
	t.Parallel()
	store := openStore(t)
	ids := addTracks(t, store, "/m/a.wav", "/m/b.flac")

	o := New(store, &fakeDecoder{}, &fakeEngine{}, testSettings())
	_, err := o.AnalyzeTracks(t.Context(), Options{Workers: 2})
	require.NoError(t, err)

	before, err := store.GetAnalysis(ids[0])
	require.NoError(t, err)
	require.NotNil(t, before.EnergyScore)

	require.NoError(t, store.UpdateScores(ids[0], map[string]float64{
		"energy_score":  1,
		"valence_score": 99,
	}))

	res, err := o.Rescore(t.Context())
	require.NoError(t, err)
	assert.Equal(t, RescoreResult{Rescored: 2}, res)

	after, err := store.GetAnalysis(ids[0])
	require.NoError(t, err)
	assert.InDelta(t, *before.EnergyScore, *after.EnergyScore, 1e-9)
	assert.InDelta(t, *before.ValenceScore, *after.ValenceScore, 1e-9)
}

func TestRescoreEmptyLibrary(t *testing.T) {
	t.Parallel()
	res, err := New(openStore(t), &fakeDecoder{}, &fakeEngine{}, testSettings()).Rescore(t.Context())
	require.NoError(t, err)
	assert.Zero(t, res)
}

func TestRescoreCancelled(t *testing.T) {
	t.Parallel()
	store := openStore(t)
	addTracks(t, store, "/m/a.wav")
	o := New(store, &fakeDecoder{}, &fakeEngine{}, testSettings())
	_, err := o.AnalyzeTracks(t.Context(), Options{Workers: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	_, err = o.Rescore(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
