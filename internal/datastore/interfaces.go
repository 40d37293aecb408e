// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/lexicone42/setbreak-sub000/internal/conf"
	"github.com/lexicone42/setbreak-sub000/internal/errors"
)

// Interface abstracts the underlying database implementation and defines the
// operations the scanner, analysis pipeline and calibrator need.
type Interface interface {
	Open() error
	Close() error
	SetMetrics(m *Metrics)

	// track provider
	UpsertTrack(t *Track) (int64, error)
	TrackUnchanged(filePath string, fileSize int64, fileModified string) (bool, error)
	ListUnanalyzed() ([]Track, error)
	ListAll() ([]Track, error)

	// analysis storage
	StoreFullAnalysis(fa *FullAnalysis) error
	StoreAnalysis(a *Analysis) error
	GetAnalysis(trackID int64) (*Analysis, error)
	GetSegments(trackID int64) ([]Segment, error)
	ListAnalysesForRescore() ([]Analysis, error)
	UpdateJamScores(a *Analysis) error

	// calibration
	GetCalibrationRows() ([]CalibrationRow, error)
	UpdateScores(trackID int64, values map[string]float64) error

	// reporting
	QueryTop(scoreColumn string, limit int, minDurationSecs float64) ([]TrackScore, error)
	QueryShow(date string) ([]TrackScore, error)
	Stats() (*LibraryStats, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB      *gorm.DB // GORM database instance
	metrics *Metrics
}

// New creates a datastore for the backend selected in settings. The store
// is not connected until Open is called.
func New(settings *conf.Settings) (Interface, error) {
	switch settings.Database.Type {
	case "", "sqlite":
		return &SQLiteStore{Settings: settings}, nil
	case "mysql":
		return &MySQLStore{Settings: settings}, nil
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Database.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// dbError wraps a GORM failure with the datastore component and operation.
func dbError(err error, operation string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}

func (ds *DataStore) ready() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryState).
			Build()
	}
	return nil
}

// UpsertTrack inserts a track or updates the existing row with the same
// file path, and returns its id.
func (ds *DataStore) UpsertTrack(t *Track) (id int64, err error) {
	if err := ds.ready(); err != nil {
		return 0, err
	}
	start := time.Now()
	defer func() { ds.observe("upsert_track", "tracks", start, err) }()

	err = ds.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "file_path"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"file_size", "file_modified", "format",
			"title", "artist", "album",
			"parsed_band", "parsed_date", "parsed_title", "parsed_disc", "parsed_track",
			"duration_secs", "updated_at",
		}),
	}).Create(t).Error
	if err != nil {
		return 0, dbError(err, "upsert_track")
	}

	// MySQL does not report the id of an updated row
	if err := ds.DB.Model(&Track{}).Select("id").Where("file_path = ?", t.FilePath).Scan(&id).Error; err != nil {
		return 0, dbError(err, "upsert_track_id")
	}
	t.ID = id
	return id, nil
}

// TrackUnchanged reports whether a track with filePath is stored with the
// same size and modification time.
func (ds *DataStore) TrackUnchanged(filePath string, fileSize int64, fileModified string) (bool, error) {
	if err := ds.ready(); err != nil {
		return false, err
	}
	var t Track
	err := ds.DB.Select("file_size", "file_modified").Where("file_path = ?", filePath).Take(&t).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	case err != nil:
		return false, dbError(err, "track_unchanged")
	}
	return t.FileSize == fileSize && t.FileModified == fileModified, nil
}

// ListUnanalyzed returns tracks without an analysis row, ordered by id.
func (ds *DataStore) ListUnanalyzed() ([]Track, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	var tracks []Track
	err := ds.DB.
		Joins("LEFT JOIN analyses a ON a.track_id = tracks.id").
		Where("a.id IS NULL").
		Order("tracks.id").
		Find(&tracks).Error
	if err != nil {
		return nil, dbError(err, "list_unanalyzed")
	}
	return tracks, nil
}

// ListAll returns every track ordered by id.
func (ds *DataStore) ListAll() ([]Track, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	var tracks []Track
	if err := ds.DB.Order("id").Find(&tracks).Error; err != nil {
		return nil, dbError(err, "list_all")
	}
	return tracks, nil
}

// StoreFullAnalysis replaces the analysis row and all detail records of one
// track in a single transaction.
func (ds *DataStore) StoreFullAnalysis(fa *FullAnalysis) (err error) {
	if err := ds.ready(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { ds.observe("store_full_analysis", "analyses", start, err) }()

	trackID := fa.Analysis.TrackID

	// Begin a transaction
	tx := ds.DB.Begin()
	if tx.Error != nil {
		return dbError(tx.Error, "begin_transaction")
	}

	// Roll back the transaction if a panic occurs
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := storeAnalysisRow(tx, &fa.Analysis); err != nil {
		tx.Rollback()
		return err
	}

	for _, model := range []any{&ChordEvent{}, &Segment{}, &TensionPoint{}, &Transition{}} {
		if err := tx.Where("track_id = ?", trackID).Delete(model).Error; err != nil {
			tx.Rollback()
			return dbError(err, "delete_details")
		}
	}

	if err := createDetails(tx, trackID, fa); err != nil {
		tx.Rollback()
		return err
	}

	// Commit the transaction
	if err := tx.Commit().Error; err != nil {
		return dbError(err, "commit_transaction")
	}
	return nil
}

func createDetails(tx *gorm.DB, trackID int64, fa *FullAnalysis) error {
	const batch = 500
	for i := range fa.Chords {
		fa.Chords[i].ID, fa.Chords[i].TrackID = 0, trackID
	}
	for i := range fa.Segments {
		fa.Segments[i].ID, fa.Segments[i].TrackID = 0, trackID
	}
	for i := range fa.TensionPoints {
		fa.TensionPoints[i].ID, fa.TensionPoints[i].TrackID = 0, trackID
	}
	for i := range fa.Transitions {
		fa.Transitions[i].ID, fa.Transitions[i].TrackID = 0, trackID
	}

	if len(fa.Chords) > 0 {
		if err := tx.CreateInBatches(fa.Chords, batch).Error; err != nil {
			return dbError(err, "insert_chords")
		}
	}
	if len(fa.Segments) > 0 {
		if err := tx.CreateInBatches(fa.Segments, batch).Error; err != nil {
			return dbError(err, "insert_segments")
		}
	}
	if len(fa.TensionPoints) > 0 {
		if err := tx.CreateInBatches(fa.TensionPoints, batch).Error; err != nil {
			return dbError(err, "insert_tension_points")
		}
	}
	if len(fa.Transitions) > 0 {
		if err := tx.CreateInBatches(fa.Transitions, batch).Error; err != nil {
			return dbError(err, "insert_transitions")
		}
	}
	return nil
}

// storeAnalysisRow deletes any existing row for the track and inserts a.
func storeAnalysisRow(tx *gorm.DB, a *Analysis) error {
	if err := tx.Where("track_id = ?", a.TrackID).Delete(&Analysis{}).Error; err != nil {
		return dbError(err, "delete_analysis")
	}
	a.ID = 0
	a.AnalyzedAt = time.Now()
	if err := tx.Create(a).Error; err != nil {
		return dbError(err, "insert_analysis")
	}
	return nil
}

// StoreAnalysis replaces only the analysis row of a track, leaving detail
// records untouched.
func (ds *DataStore) StoreAnalysis(a *Analysis) error {
	if err := ds.ready(); err != nil {
		return err
	}
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		return storeAnalysisRow(tx, a)
	})
}

// GetAnalysis loads the analysis row of a track.
func (ds *DataStore) GetAnalysis(trackID int64) (*Analysis, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	var a Analysis
	err := ds.DB.Where("track_id = ?", trackID).Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryNotFound).
			TrackContext(trackID).
			Build()
	}
	if err != nil {
		return nil, dbError(err, "get_analysis")
	}
	return &a, nil
}

// GetSegments loads the stored segments of a track in index order.
func (ds *DataStore) GetSegments(trackID int64) ([]Segment, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	var segs []Segment
	if err := ds.DB.Where("track_id = ?", trackID).Order("segment_index").Find(&segs).Error; err != nil {
		return nil, dbError(err, "get_segments")
	}
	return segs, nil
}

// ListAnalysesForRescore returns every analysis row ordered by track id.
func (ds *DataStore) ListAnalysesForRescore() ([]Analysis, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	var rows []Analysis
	if err := ds.DB.Order("track_id").Find(&rows).Error; err != nil {
		return nil, dbError(err, "list_analyses_for_rescore")
	}
	return rows, nil
}

// UpdateJamScores writes the eight jam scores plus valence and arousal of a.
func (ds *DataStore) UpdateJamScores(a *Analysis) (err error) {
	if err := ds.ready(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { ds.observe("update_jam_scores", "analyses", start, err) }()

	slots := a.ScoreSlots()
	values := make(map[string]any, len(ScoreColumns))
	for i, col := range ScoreColumns {
		values[col] = *slots[i]
	}
	err = ds.DB.Model(&Analysis{}).Where("track_id = ?", a.TrackID).Updates(values).Error
	if err != nil {
		return dbError(err, "update_jam_scores")
	}
	return nil
}

// GetCalibrationRows returns scored tracks that have both a loudness value
// and a show date.
func (ds *DataStore) GetCalibrationRows() ([]CalibrationRow, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	var scanned []struct {
		Analysis
		ParsedDate string
		ParsedBand *string
	}
	err := ds.DB.Model(&Analysis{}).
		Select("analyses.*, tracks.parsed_date, tracks.parsed_band").
		Joins("JOIN tracks ON tracks.id = analyses.track_id").
		Where("analyses.lufs_integrated IS NOT NULL").
		Where("analyses.energy_score IS NOT NULL").
		Where("tracks.parsed_date IS NOT NULL").
		Order("analyses.track_id").
		Scan(&scanned).Error
	if err != nil {
		return nil, dbError(err, "get_calibration_rows")
	}

	rows := make([]CalibrationRow, len(scanned))
	for i := range scanned {
		s := &scanned[i]
		rows[i] = CalibrationRow{
			TrackID:    s.TrackID,
			LUFS:       *s.LUFSIntegrated,
			ParsedDate: s.ParsedDate,
			ParsedBand: s.ParsedBand,
		}
		for j, slot := range s.ScoreSlots() {
			rows[i].Scores[j] = *slot
		}
	}
	return rows, nil
}

// UpdateScores sets the given score columns of one track. Keys must be
// names from ScoreColumns.
func (ds *DataStore) UpdateScores(trackID int64, values map[string]float64) (err error) {
	if err := ds.ready(); err != nil {
		return err
	}
	start := time.Now()
	defer func() { ds.observe("update_scores", "analyses", start, err) }()

	if len(values) == 0 {
		return nil
	}
	updates := make(map[string]any, len(values))
	for col, v := range values {
		if !IsScoreColumn(col) {
			return errors.Newf("not a score column: %s", col).
				Component("datastore").
				Category(errors.CategoryValidation).
				Build()
		}
		updates[col] = v
	}
	if err := ds.DB.Model(&Analysis{}).Where("track_id = ?", trackID).Updates(updates).Error; err != nil {
		return dbError(err, fmt.Sprintf("update_scores track %d", trackID))
	}
	return nil
}
