package analysis

import (
	"context"
	"time"

	"github.com/lexicone42/setbreak-sub000/internal/jamscore"
	"github.com/lexicone42/setbreak-sub000/internal/logger"
	"github.com/lexicone42/setbreak-sub000/internal/observability/metrics"
)

// RescoreResult counts the rows of a rescore run.
type RescoreResult struct {
	Rescored int
	Failed   int
}

// Rescore recomputes jam scores, valence and arousal for every analyzed
// track from stored values, without touching audio. It overwrites any
// earlier calibration.
func (o *Orchestrator) Rescore(ctx context.Context) (RescoreResult, error) {
	var res RescoreResult
	log := GetLogger()

	rows, err := o.store.ListAnalysesForRescore()
	if err != nil {
		return res, loadError(err, "list_analyses")
	}

	bar := newProgress(o.progress, "Rescoring", len(rows))
	defer bar.wait()

	for i := range rows {
		if err := ctx.Err(); err != nil {
			bar.abort()
			return res, err
		}
		a := &rows[i]
		start := time.Now()

		segments, err := o.store.GetSegments(a.TrackID)
		if err == nil {
			jamscore.ScoreFlat(a, segments).Apply(a)
			jamscore.ApplyEmotion(a)
			err = o.store.UpdateJamScores(a)
		}
		o.observe(metrics.StageRescore, start, err)
		bar.increment()

		if err != nil {
			res.Failed++
			log.Warn("failed to rescore track", logger.Int64("track_id", a.TrackID), logger.Error(err))
			continue
		}
		res.Rescored++
	}

	log.Info("rescore complete",
		logger.Int("rescored", res.Rescored),
		logger.Int("failed", res.Failed))
	return res, nil
}
