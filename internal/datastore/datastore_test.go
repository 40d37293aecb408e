package datastore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexicone42/setbreak-sub000/internal/conf"
)

func createTestSettings(t *testing.T) *conf.Settings {
	t.Helper()
	settings := &conf.Settings{}
	settings.Database.Type = "sqlite"
	return settings
}

// createDatabase opens a fresh SQLite database in a temp dir and closes it
// when the test ends.
func createDatabase(t *testing.T, settings *conf.Settings) Interface {
	t.Helper()
	settings.Database.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	ds, err := New(settings)
	require.NoError(t, err)
	require.NoError(t, ds.Open(), "Failed to open database")

	t.Cleanup(func() {
		assert.NoError(t, ds.Close(), "Failed to close datastore")
	})
	return ds
}

func f64(v float64) *float64 { return &v }
func str(v string) *string   { return &v }

func addTrack(t *testing.T, ds Interface, path, band, date string) int64 {
	t.Helper()
	tr := &Track{FilePath: path, Format: filepath.Ext(path)[1:], FileSize: 100, FileModified: "2024-01-01T00:00:00Z"}
	if band != "" {
		tr.ParsedBand = str(band)
	}
	if date != "" {
		tr.ParsedDate = str(date)
	}
	id, err := ds.UpsertTrack(tr)
	require.NoError(t, err)
	return id
}

func fullAnalysis(trackID int64, chords int) *FullAnalysis {
	fa := &FullAnalysis{
		Analysis: Analysis{
			TrackID:        trackID,
			Duration:       f64(300),
			LUFSIntegrated: f64(-14),
			EnergyScore:    f64(50),
			GrooveScore:    f64(40),
			EstimatedKey:   str("A minor"),
		},
		Segments:      []Segment{{SegmentIndex: 0, Label: "Music"}, {SegmentIndex: 1, Label: "Music"}},
		TensionPoints: []TensionPoint{{Time: 1, Tension: 0.5, ChangeType: "Build"}},
		Transitions:   []Transition{{Time: 10, TransitionType: "Cut"}},
	}
	for i := range chords {
		fa.Chords = append(fa.Chords, ChordEvent{Chord: "Am", StartTime: float64(i)})
	}
	return fa
}

func TestNewUnsupportedType(t *testing.T) {
	t.Parallel()
	settings := createTestSettings(t)
	settings.Database.Type = "postgres"
	_, err := New(settings)
	require.Error(t, err)
}

func TestUpsertTrackKeepsID(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, createTestSettings(t))

	id1 := addTrack(t, ds, "/music/a.flac", "", "")
	id2 := addTrack(t, ds, "/music/a.flac", "Grateful Dead", "1977-05-08")
	assert.Equal(t, id1, id2)

	all, err := ds.ListAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.NotNil(t, all[0].ParsedBand)
	assert.Equal(t, "Grateful Dead", *all[0].ParsedBand)
}

func TestTrackUnchanged(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, createTestSettings(t))
	addTrack(t, ds, "/music/a.flac", "", "")

	same, err := ds.TrackUnchanged("/music/a.flac", 100, "2024-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.True(t, same)

	changed, err := ds.TrackUnchanged("/music/a.flac", 101, "2024-01-01T00:00:00Z")
	require.NoError(t, err)
	assert.False(t, changed)

	missing, err := ds.TrackUnchanged("/music/none.flac", 100, "x")
	require.NoError(t, err)
	assert.False(t, missing)
}

func TestStoreFullAnalysisReplaces(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, createTestSettings(t))
	id := addTrack(t, ds, "/music/a.flac", "", "")
	addTrack(t, ds, "/music/b.flac", "", "")

	require.NoError(t, ds.StoreFullAnalysis(fullAnalysis(id, 5)))

	pending, err := ds.ListUnanalyzed()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "/music/b.flac", pending[0].FilePath)

	// second store replaces the row and every detail table
	second := fullAnalysis(id, 2)
	second.Analysis.Duration = f64(120)
	second.Segments = second.Segments[:1]
	require.NoError(t, ds.StoreFullAnalysis(second))

	store := ds.(*SQLiteStore)
	var analyses, chords, segs int64
	require.NoError(t, store.DB.Model(&Analysis{}).Count(&analyses).Error)
	require.NoError(t, store.DB.Model(&ChordEvent{}).Count(&chords).Error)
	require.NoError(t, store.DB.Model(&Segment{}).Count(&segs).Error)
	assert.EqualValues(t, 1, analyses)
	assert.EqualValues(t, 2, chords)
	assert.EqualValues(t, 1, segs)

	a, err := ds.GetAnalysis(id)
	require.NoError(t, err)
	assert.InDelta(t, 120, *a.Duration, 1e-9)
}

func TestStoreAnalysisKeepsDetails(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, createTestSettings(t))
	id := addTrack(t, ds, "/music/a.flac", "", "")
	require.NoError(t, ds.StoreFullAnalysis(fullAnalysis(id, 3)))

	require.NoError(t, ds.StoreAnalysis(&Analysis{TrackID: id, Duration: f64(10)}))

	segs, err := ds.GetSegments(id)
	require.NoError(t, err)
	assert.Len(t, segs, 2)
	assert.Equal(t, 0, segs[0].SegmentIndex)
}

func TestCalibrationRows(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, createTestSettings(t))

	withBand := addTrack(t, ds, "/music/a.flac", "Phish", "1997-12-31")
	noBand := addTrack(t, ds, "/music/b.flac", "", "1998-01-01")
	noDate := addTrack(t, ds, "/music/c.flac", "Phish", "")
	for _, id := range []int64{withBand, noBand, noDate} {
		require.NoError(t, ds.StoreFullAnalysis(fullAnalysis(id, 0)))
	}

	rows, err := ds.GetCalibrationRows()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Phish|1997-12-31", rows[0].ShowKey())
	assert.Equal(t, "1998-01-01", rows[1].ShowKey())
	assert.InDelta(t, -14, rows[0].LUFS, 1e-9)
	require.NotNil(t, rows[0].Scores[0])
	assert.InDelta(t, 50, *rows[0].Scores[0], 1e-9)
	assert.Nil(t, rows[0].Scores[3])
}

func TestUpdateScoresTouchesOnlyScores(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, createTestSettings(t))
	id := addTrack(t, ds, "/music/a.flac", "", "")
	require.NoError(t, ds.StoreFullAnalysis(fullAnalysis(id, 0)))

	require.NoError(t, ds.UpdateScores(id, map[string]float64{"energy_score": 75, "valence_score": 30}))

	a, err := ds.GetAnalysis(id)
	require.NoError(t, err)
	assert.InDelta(t, 75, *a.EnergyScore, 1e-9)
	assert.InDelta(t, 30, *a.ValenceScore, 1e-9)
	assert.InDelta(t, 40, *a.GrooveScore, 1e-9)
	assert.InDelta(t, 300, *a.Duration, 1e-9)
	assert.Equal(t, "A minor", *a.EstimatedKey)

	assert.Error(t, ds.UpdateScores(id, map[string]float64{"duration": 1}))
}

func TestQueries(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, createTestSettings(t))

	for i, path := range []string{"/m/1.flac", "/m/2.flac", "/m/3.mp3"} {
		id := addTrack(t, ds, path, "Phish", "1997-12-31")
		fa := fullAnalysis(id, 0)
		fa.Analysis.EnergyScore = f64(float64(10 * (i + 1)))
		fa.Analysis.Duration = f64(float64(60 * (i + 1)))
		require.NoError(t, ds.StoreFullAnalysis(fa))
	}

	top, err := ds.QueryTop("energy_score", 2, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.InDelta(t, 30, top[0].Scores[0], 1e-9)
	assert.InDelta(t, 3, top[0].DurationMin, 1e-9)

	long, err := ds.QueryTop("energy_score", 10, 150)
	require.NoError(t, err)
	assert.Len(t, long, 1)

	_, err = ds.QueryTop("duration; DROP TABLE tracks", 10, 0)
	assert.Error(t, err)

	show, err := ds.QueryShow("1997-12-31")
	require.NoError(t, err)
	assert.Len(t, show, 3)

	stats, err := ds.Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalTracks)
	assert.EqualValues(t, 3, stats.AnalyzedTracks)
	assert.InDelta(t, 0.1, stats.TotalHours, 1e-9)
	require.NotEmpty(t, stats.Formats)
	assert.Equal(t, "flac", stats.Formats[0].Name)
	assert.EqualValues(t, 2, stats.Formats[0].Count)
	require.Len(t, stats.Bands, 1)
	assert.Equal(t, "Phish", stats.Bands[0].Name)
}

func TestRescoreRoundTrip(t *testing.T) {
	t.Parallel()
	ds := createDatabase(t, createTestSettings(t))
	id := addTrack(t, ds, "/music/a.flac", "", "")
	require.NoError(t, ds.StoreFullAnalysis(fullAnalysis(id, 0)))

	rows, err := ds.ListAnalysesForRescore()
	require.NoError(t, err)
	require.Len(t, rows, 1)

	a := rows[0]
	a.TightnessScore = f64(88)
	a.EnergyScore = nil
	require.NoError(t, ds.UpdateJamScores(&a))

	got, err := ds.GetAnalysis(id)
	require.NoError(t, err)
	assert.InDelta(t, 88, *got.TightnessScore, 1e-9)
	assert.Nil(t, got.EnergyScore)
}
