// Package calibrate removes the linear part of loudness bias from stored
// scores. Each score is regressed against the median loudness of the show
// a track belongs to, and the fitted slope is used to shift every track
// toward the corpus reference loudness.
package calibrate

import (
	"context"
	"math"
	"time"

	"github.com/lexicone42/setbreak-sub000/internal/conf"
	"github.com/lexicone42/setbreak-sub000/internal/datastore"
	"github.com/lexicone42/setbreak-sub000/internal/errors"
	"github.com/lexicone42/setbreak-sub000/internal/logger"
	"github.com/lexicone42/setbreak-sub000/internal/observability/metrics"
)

// ScoreNames are the calibrated scores, in datastore.ScoreColumns order.
var ScoreNames = [10]string{
	"energy",
	"intensity",
	"groove",
	"improvisation",
	"tightness",
	"build_quality",
	"exploratory",
	"transcendence",
	"valence",
	"arousal",
}

// Beta is the fitted loudness slope of one score.
type Beta struct {
	Name  string
	Value float64
}

// Result summarizes a calibration pass.
type Result struct {
	TotalTracks      int
	Calibrated       int
	SkippedNoShow    int
	Betas            []Beta
	CorpusMedianLUFS float64
}

// Store is the part of the datastore the calibrator reads and writes.
type Store interface {
	GetCalibrationRows() ([]datastore.CalibrationRow, error)
	UpdateScores(trackID int64, values map[string]float64) error
}

// Calibrator runs calibration passes. It must not run concurrently with an
// analysis run against the same library.
type Calibrator struct {
	store     Store
	threshold float64
	minPoints int
	metrics   *metrics.PipelineMetrics
}

// New creates a calibrator. m may be nil.
func New(store Store, settings *conf.CalibrationSettings, m *metrics.PipelineMetrics) *Calibrator {
	c := &Calibrator{
		store:     store,
		threshold: settings.BetaThreshold,
		minPoints: settings.MinPoints,
		metrics:   m,
	}
	if c.minPoints < 2 {
		c.minPoints = conf.DefaultCalibrationMinPoints
	}
	return c
}

// CalibrateScores fits one slope per score and, unless dryRun is set,
// rewrites every score whose slope is not negligible:
//
//	adjusted = clamp(raw - beta*(show_median - corpus_median), 0, 100)
//
// Running it twice compounds the correction; rescore restores raw scores.
func (c *Calibrator) CalibrateScores(ctx context.Context, dryRun bool) (Result, error) {
	var res Result
	log := getLogger()
	start := time.Now()

	rows, err := c.store.GetCalibrationRows()
	if err != nil {
		c.observe(start, err)
		return res, errors.New(err).
			Component("calibrate").
			Category(errors.CategoryCalibration).
			Context("operation", "get_calibration_rows").
			Build()
	}
	res.TotalTracks = len(rows)
	if len(rows) == 0 {
		log.Info("no calibration data, tracks need loudness and a show date")
		return res, nil
	}

	// show key -> loudness of its tracks
	showLUFS := make(map[string][]float64)
	for i := range rows {
		if rows[i].ParsedDate == "" {
			res.SkippedNoShow++
			continue
		}
		key := rows[i].ShowKey()
		showLUFS[key] = append(showLUFS[key], rows[i].LUFS)
	}
	showMedian := make(map[string]float64, len(showLUFS))
	medians := make([]float64, 0, len(showLUFS))
	for key, vals := range showLUFS {
		m := median(vals)
		showMedian[key] = m
		medians = append(medians, m)
	}
	res.CorpusMedianLUFS = median(medians)

	log.Info("calibrating scores",
		logger.Int("tracks", len(rows)),
		logger.Int("shows", len(showMedian)),
		logger.Float64("corpus_median_lufs", res.CorpusMedianLUFS),
		logger.Bool("dry_run", dryRun))

	res.Betas = c.fit(rows, showMedian)
	for _, b := range res.Betas {
		log.Info("score loudness slope",
			logger.String("score", b.Name),
			logger.Float64("beta", b.Value),
			logger.Bool("corrected", c.significant(b.Value)))
		if c.metrics != nil {
			c.metrics.SetCalibrationBeta(b.Name, b.Value)
		}
	}

	if dryRun {
		c.observe(start, nil)
		return res, nil
	}

	for i := range rows {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		row := &rows[i]
		show, ok := showMedian[row.ShowKey()]
		if !ok || row.ParsedDate == "" {
			continue
		}
		values := c.adjust(row, show-res.CorpusMedianLUFS, res.Betas)
		if len(values) == 0 {
			continue
		}
		if err := c.store.UpdateScores(row.TrackID, values); err != nil {
			c.observe(start, err)
			return res, errors.New(err).
				Component("calibrate").
				Category(errors.CategoryCalibration).
				Context("track_id", row.TrackID).
				Context("calibrated", res.Calibrated).
				Build()
		}
		res.Calibrated++
	}

	c.observe(start, nil)
	log.Info("calibration complete",
		logger.Int("calibrated", res.Calibrated),
		logger.Int("skipped_no_show", res.SkippedNoShow))
	return res, nil
}

// fit regresses each score against the show median loudness of its track,
// using only tracks that have both.
func (c *Calibrator) fit(rows []datastore.CalibrationRow, showMedian map[string]float64) []Beta {
	betas := make([]Beta, len(ScoreNames))
	x := make([]float64, 0, len(rows))
	y := make([]float64, 0, len(rows))
	for s, name := range ScoreNames {
		x, y = x[:0], y[:0]
		for i := range rows {
			if rows[i].ParsedDate == "" || rows[i].Scores[s] == nil {
				continue
			}
			x = append(x, showMedian[rows[i].ShowKey()])
			y = append(y, *rows[i].Scores[s])
		}
		betas[s] = Beta{Name: name, Value: slope(x, y, c.minPoints)}
	}
	return betas
}

func (c *Calibrator) significant(beta float64) bool {
	return beta != 0 && math.Abs(beta) >= c.threshold
}

// adjust returns the corrected value of every present score with a
// significant slope, keyed by column name.
func (c *Calibrator) adjust(row *datastore.CalibrationRow, delta float64, betas []Beta) map[string]float64 {
	values := make(map[string]float64)
	for s, b := range betas {
		if !c.significant(b.Value) || row.Scores[s] == nil {
			continue
		}
		adj := *row.Scores[s] - b.Value*delta
		values[datastore.ScoreColumns[s]] = min(max(adj, 0), 100)
	}
	return values
}

func (c *Calibrator) observe(start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordDuration(metrics.StageCalibrate, time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordOperation(metrics.StageCalibrate, metrics.StatusError)
		c.metrics.RecordError(metrics.StageCalibrate, string(errors.CategoryCalibration))
		return
	}
	c.metrics.RecordOperation(metrics.StageCalibrate, metrics.StatusSuccess)
}
