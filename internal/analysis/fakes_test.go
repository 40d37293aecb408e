package analysis

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexicone42/setbreak-sub000/internal/conf"
	"github.com/lexicone42/setbreak-sub000/internal/datastore"
	"github.com/lexicone42/setbreak-sub000/internal/decoder"
	"github.com/lexicone42/setbreak-sub000/internal/engine"
	"github.com/lexicone42/setbreak-sub000/internal/errors"
)

// fakeDecoder needs ffmpeg for mp3 and fails any path containing "corrupt".
type fakeDecoder struct {
	ffmpeg atomic.Bool
}

func (d *fakeDecoder) Decode(ctx context.Context, path string) (*decoder.DecodedAudio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch {
	case strings.Contains(path, "corrupt"):
		return nil, errors.Newf("invalid header").
			Component("decoder").
			Category(errors.CategoryAudio).
			Build()
	case filepath.Ext(path) == ".mp3" && !d.ffmpeg.Load():
		return nil, errors.New(decoder.ErrFFmpegNotFound).
			Component("decoder").
			Category(errors.CategoryCommandExecution).
			Build()
	}
	return &decoder.DecodedAudio{
		Samples:    make([]float32, 8000),
		SampleRate: 8000,
		Channels:   1,
	}, nil
}

// fakeEngine hands out sessions that return a small fixed result.
type fakeEngine struct {
	created atomic.Int32
	closed  atomic.Int32
	failOn  float64 // sessions fail audio of this duration when set
	failNew bool
}

func (e *fakeEngine) NewSession(engine.Config) (engine.Session, error) {
	if e.failNew {
		return nil, errors.NewStd("no backend")
	}
	e.created.Add(1)
	return &fakeSession{eng: e}, nil
}

type fakeSession struct {
	eng   *fakeEngine
	inUse atomic.Bool
}

func (s *fakeSession) Analyze(ctx context.Context, audio *decoder.DecodedAudio) (*engine.Result, error) {
	if !s.inUse.CompareAndSwap(false, true) {
		panic("session used by two workers at once")
	}
	defer s.inUse.Store(false)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := float32(audio.Duration())
	if s.eng.failOn != 0 && float64(d) == s.eng.failOn {
		return nil, errors.NewStd("engine exploded")
	}
	tempo := float32(120)
	return &engine.Result{
		Summary:  engine.Summary{Duration: d, SampleRate: audio.SampleRate, Channels: audio.Channels, RMSLevel: 0.1},
		Temporal: engine.Temporal{Tempo: &tempo, Beats: []float32{0, 0.5, 1}, TempoStability: 0.7},
		Musical:  engine.Musical{Key: engine.KeyEstimate{Key: "E minor", Confidence: 0.6}},
		Segments: engine.SegmentAnalysis{
			Segments: []engine.AudioSegment{
				{StartTime: 0, Duration: d / 2, Label: engine.LabelMusic, Energy: 0.2},
				{StartTime: d / 2, Duration: d / 2, Label: engine.LabelMusic, Energy: 0.6},
			},
		},
	}, nil
}

func (s *fakeSession) Close() error {
	s.eng.closed.Add(1)
	return nil
}

// recordingStore wraps a real store, records commit order and can fail the
// commit of one track.
type recordingStore struct {
	datastore.Interface
	failTrack int64
	failList  bool

	mu     sync.Mutex
	stored []int64
}

func (s *recordingStore) StoreFullAnalysis(fa *datastore.FullAnalysis) error {
	if fa.Analysis.TrackID == s.failTrack {
		return errors.Newf("disk full").Component("datastore").Category(errors.CategoryDatabase).Build()
	}
	s.mu.Lock()
	s.stored = append(s.stored, fa.Analysis.TrackID)
	s.mu.Unlock()
	return s.Interface.StoreFullAnalysis(fa)
}

func (s *recordingStore) ListUnanalyzed() ([]datastore.Track, error) {
	if s.failList {
		return nil, errors.NewStd("database is locked")
	}
	return s.Interface.ListUnanalyzed()
}

func openStore(t *testing.T) datastore.Interface {
	t.Helper()
	settings := &conf.Settings{}
	settings.Database.Type = "sqlite"
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "analysis.db")

	ds, err := datastore.New(settings)
	require.NoError(t, err)
	require.NoError(t, ds.Open())
	t.Cleanup(func() { assert.NoError(t, ds.Close()) })
	return ds
}

// addTracks registers paths and returns their ids in order.
func addTracks(t *testing.T, store datastore.Interface, paths ...string) []int64 {
	t.Helper()
	ids := make([]int64, len(paths))
	for i, p := range paths {
		id, err := store.UpsertTrack(&datastore.Track{
			FilePath: p,
			Format:   strings.TrimPrefix(filepath.Ext(p), "."),
			FileSize: 1,
		})
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}

func testSettings() *conf.AnalysisSettings {
	return &conf.AnalysisSettings{ChunkFactor: 2}
}
