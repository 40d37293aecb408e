package datastore

import (
	"time"

	"gorm.io/gorm"

	"github.com/lexicone42/setbreak-sub000/internal/errors"
)

const scoreSelect = `tracks.id AS track_id,
	COALESCE(tracks.parsed_title, tracks.title, '(untitled)') AS title,
	COALESCE(tracks.parsed_date, '?') AS date,
	COALESCE(analyses.duration, 0) / 60.0 AS duration_min,
	analyses.estimated_key AS ` + "`key`" + `,
	analyses.tempo_bpm AS tempo,
	COALESCE(analyses.energy_score, 0) AS s0,
	COALESCE(analyses.intensity_score, 0) AS s1,
	COALESCE(analyses.groove_score, 0) AS s2,
	COALESCE(analyses.improvisation_score, 0) AS s3,
	COALESCE(analyses.tightness_score, 0) AS s4,
	COALESCE(analyses.build_quality_score, 0) AS s5,
	COALESCE(analyses.exploratory_score, 0) AS s6,
	COALESCE(analyses.transcendence_score, 0) AS s7,
	COALESCE(analyses.valence_score, 0) AS s8,
	COALESCE(analyses.arousal_score, 0) AS s9`

// scoreRow is the scan target for scoreSelect.
type scoreRow struct {
	TrackID                                int64
	Title                                  string
	Date                                   string
	DurationMin                            float64
	Key                                    *string
	Tempo                                  *float64
	S0, S1, S2, S3, S4, S5, S6, S7, S8, S9 float64
}

func (r scoreRow) toTrackScore() TrackScore {
	return TrackScore{
		TrackID:     r.TrackID,
		Title:       r.Title,
		Date:        r.Date,
		DurationMin: r.DurationMin,
		Key:         r.Key,
		Tempo:       r.Tempo,
		Scores:      [10]float64{r.S0, r.S1, r.S2, r.S3, r.S4, r.S5, r.S6, r.S7, r.S8, r.S9},
	}
}

func (ds *DataStore) scoreQuery() *gorm.DB {
	return ds.DB.Model(&Analysis{}).
		Select(scoreSelect).
		Joins("JOIN tracks ON tracks.id = analyses.track_id")
}

func (ds *DataStore) collectScores(q *gorm.DB, operation string) (out []TrackScore, err error) {
	start := time.Now()
	defer func() { ds.observe(operation, "analyses", start, err) }()

	var rows []scoreRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, dbError(err, operation)
	}
	if ds.metrics != nil {
		ds.metrics.RecordQueryResultSize(operation, "analyses", len(rows))
	}
	out = make([]TrackScore, len(rows))
	for i, r := range rows {
		out[i] = r.toTrackScore()
	}
	return out, nil
}

// QueryTop ranks analyzed tracks by one score column, highest first.
// Tracks shorter than minDurationSecs are skipped when it is positive.
func (ds *DataStore) QueryTop(scoreColumn string, limit int, minDurationSecs float64) ([]TrackScore, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	// the column name is interpolated into SQL, so it must be a known one
	if !IsScoreColumn(scoreColumn) {
		return nil, errors.Newf("unknown score column %q", scoreColumn).
			Component("datastore").
			Category(errors.CategoryValidation).
			Build()
	}

	q := ds.scoreQuery().Where("analyses." + scoreColumn + " IS NOT NULL")
	if minDurationSecs > 0 {
		q = q.Where("analyses.duration >= ?", minDurationSecs)
	}
	q = q.Order("analyses." + scoreColumn + " DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return ds.collectScores(q, "query_top")
}

// QueryShow lists the analyzed tracks of one show date in disc and track
// order.
func (ds *DataStore) QueryShow(date string) ([]TrackScore, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	q := ds.scoreQuery().
		Where("tracks.parsed_date = ?", date).
		Order("COALESCE(tracks.parsed_disc, 1)").
		Order("COALESCE(tracks.parsed_track, 999)").
		Order("tracks.file_path")
	return ds.collectScores(q, "query_show")
}

// Stats summarizes the library: totals, formats and the top bands.
func (ds *DataStore) Stats() (*LibraryStats, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	stats := &LibraryStats{}

	if err := ds.DB.Model(&Track{}).Count(&stats.TotalTracks).Error; err != nil {
		return nil, dbError(err, "stats_tracks")
	}
	if err := ds.DB.Model(&Analysis{}).Count(&stats.AnalyzedTracks).Error; err != nil {
		return nil, dbError(err, "stats_analyzed")
	}
	if err := ds.DB.Model(&Analysis{}).
		Select("COALESCE(SUM(duration), 0) / 3600.0").
		Scan(&stats.TotalHours).Error; err != nil {
		return nil, dbError(err, "stats_hours")
	}
	if err := ds.DB.Model(&Track{}).
		Select("format AS name, COUNT(*) AS count").
		Group("format").
		Order("count DESC").
		Scan(&stats.Formats).Error; err != nil {
		return nil, dbError(err, "stats_formats")
	}
	if err := ds.DB.Model(&Track{}).
		Select("COALESCE(parsed_band, artist, 'Unknown') AS name, COUNT(*) AS count").
		Group("COALESCE(parsed_band, artist, 'Unknown')").
		Order("count DESC").
		Limit(20).
		Scan(&stats.Bands).Error; err != nil {
		return nil, dbError(err, "stats_bands")
	}
	return stats, nil
}
