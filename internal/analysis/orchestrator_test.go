package analysis

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexicone42/setbreak-sub000/internal/datastore"
	"github.com/lexicone42/setbreak-sub000/internal/decoder"
	"github.com/lexicone42/setbreak-sub000/internal/errors"
)

var fiveTracks = []string{
	"/music/gd1977-05-08t01.wav",
	"/music/gd1977-05-08t02.flac",
	"/music/gd1977-05-08t03.wav",
	"/music/gd1977-05-08t04.mp3",
	"/music/gd1977-05-08t05-corrupt.flac",
}

func TestAnalyzeTracksCountsFailures(t *testing.T) {
	t.Parallel()
	store := openStore(t)
	addTracks(t, store, fiveTracks...)
	eng := &fakeEngine{}

	o := New(store, &fakeDecoder{}, eng, testSettings())
	res, err := o.AnalyzeTracks(t.Context(), Options{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, Result{Analyzed: 3, Failed: 2}, res)

	pending, err := store.ListUnanalyzed()
	require.NoError(t, err)
	assert.Len(t, pending, 2, "failed tracks stay pending")

	assert.EqualValues(t, 2, eng.created.Load(), "one session per worker for the whole run")
	assert.EqualValues(t, 2, eng.closed.Load())

	// a second unforced run only retries the failures
	res, err = o.AnalyzeTracks(t.Context(), Options{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, Result{Failed: 2}, res)
}

func TestForcedRerunOverwrites(t *testing.T) {
	t.Parallel()
	store := openStore(t)
	ids := addTracks(t, store, fiveTracks...)
	dec := &fakeDecoder{}

	o := New(store, dec, &fakeEngine{}, testSettings())
	_, err := o.AnalyzeTracks(t.Context(), Options{Workers: 2})
	require.NoError(t, err)

	dec.ffmpeg.Store(true)
	res, err := o.AnalyzeTracks(t.Context(), Options{Workers: 2, Force: true})
	require.NoError(t, err)
	assert.Equal(t, Result{Analyzed: 4, Failed: 1}, res)

	stats, err := store.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.AnalyzedTracks, "rows replaced, not duplicated")

	segs, err := store.GetSegments(ids[0])
	require.NoError(t, err)
	assert.Len(t, segs, 2)

	a, err := store.GetAnalysis(ids[3])
	require.NoError(t, err)
	require.NotNil(t, a.EnergyScore)
	require.NotNil(t, a.ValenceScore)
	assert.Equal(t, "E minor", *a.EstimatedKey)
}

func TestStorageFailureContinues(t *testing.T) {
	t.Parallel()
	base := openStore(t)
	ids := addTracks(t, base, "/m/a.wav", "/m/b.wav", "/m/c.wav", "/m/d.wav", "/m/e.wav")
	store := &recordingStore{Interface: base, failTrack: ids[2]}

	o := New(store, &fakeDecoder{}, &fakeEngine{}, testSettings())
	res, err := o.AnalyzeTracks(t.Context(), Options{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, Result{Analyzed: 4, Failed: 1}, res)

	want := slices.Delete(slices.Clone(ids), 2, 3)
	assert.Equal(t, want, store.stored, "commits run in track order")
}

func TestAnalyzeTracksFilter(t *testing.T) {
	t.Parallel()
	store := openStore(t)
	addTracks(t, store,
		"/music/Phish/1997-11-22/01 Tweezer.wav",
		"/music/phish/1998-04-03/02 Ghost.wav",
		"/music/Goose/2023-06-10/01 Arcadia.wav",
	)

	o := New(store, &fakeDecoder{}, &fakeEngine{}, testSettings())
	res, err := o.AnalyzeTracks(t.Context(), Options{Workers: 1, Filter: "PHISH"})
	require.NoError(t, err)
	assert.Equal(t, Result{Analyzed: 2}, res)

	pending, err := store.ListUnanalyzed()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Contains(t, pending[0].FilePath, "Goose")
}

func TestAnalyzeTracksNothingPending(t *testing.T) {
	t.Parallel()
	eng := &fakeEngine{}
	o := New(openStore(t), &fakeDecoder{}, eng, testSettings())
	res, err := o.AnalyzeTracks(t.Context(), Options{Workers: 4})
	require.NoError(t, err)
	assert.Zero(t, res)
	assert.Zero(t, eng.created.Load(), "no sessions without work")
}

func TestAnalyzeTracksCancelled(t *testing.T) {
	t.Parallel()
	store := openStore(t)
	addTracks(t, store, "/m/a.wav", "/m/b.wav")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	eng := &fakeEngine{}
	res, err := New(store, &fakeDecoder{}, eng, testSettings()).AnalyzeTracks(ctx, Options{Workers: 2})
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res)
	assert.Equal(t, eng.created.Load(), eng.closed.Load(), "sessions closed on cancel")
}

func TestAnalyzeTracksLoadFailure(t *testing.T) {
	t.Parallel()
	store := &recordingStore{Interface: openStore(t), failList: true}
	_, err := New(store, &fakeDecoder{}, &fakeEngine{}, testSettings()).AnalyzeTracks(t.Context(), Options{Workers: 1})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDatabase))
}

func TestAnalyzeTracksSessionFailure(t *testing.T) {
	t.Parallel()
	store := openStore(t)
	addTracks(t, store, "/m/a.wav")
	_, err := New(store, &fakeDecoder{}, &fakeEngine{failNew: true}, testSettings()).AnalyzeTracks(t.Context(), Options{Workers: 1})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryAudioAnalysis))
}

func TestAnalyzeOneWrapsEngineErrors(t *testing.T) {
	t.Parallel()
	eng := &fakeEngine{failOn: 1}
	o := New(openStore(t), &fakeDecoder{}, eng, testSettings())
	sess, err := eng.NewSession(o.engineCfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close() })

	_, err = o.analyzeOne(t.Context(), sess, datastore.Track{ID: 9, FilePath: "/m/a.wav"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryAudioAnalysis))

	// decoder errors keep their own category
	_, err = o.analyzeOne(t.Context(), sess, datastore.Track{ID: 9, FilePath: "/m/a.mp3"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryCommandExecution))
	assert.ErrorIs(t, err, decoder.ErrFFmpegNotFound)
}
