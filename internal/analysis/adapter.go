package analysis

import (
	"context"
	"time"

	"github.com/lexicone42/setbreak-sub000/internal/datastore"
	"github.com/lexicone42/setbreak-sub000/internal/decoder"
	"github.com/lexicone42/setbreak-sub000/internal/engine"
	"github.com/lexicone42/setbreak-sub000/internal/errors"
	"github.com/lexicone42/setbreak-sub000/internal/features"
	"github.com/lexicone42/setbreak-sub000/internal/jamscore"
	"github.com/lexicone42/setbreak-sub000/internal/observability/metrics"
)

// Decoder turns a file into PCM samples.
type Decoder interface {
	Decode(ctx context.Context, path string) (*decoder.DecodedAudio, error)
}

// analyzeOne runs decode, analysis, extraction and scoring for one track.
// Decoder errors pass through with their own category; engine errors are
// wrapped as analysis failures.
func (o *Orchestrator) analyzeOne(ctx context.Context, sess engine.Session, track datastore.Track) (*datastore.FullAnalysis, error) {
	start := time.Now()
	audio, err := o.decoder.Decode(ctx, track.FilePath)
	o.observe(metrics.StageDecode, start, err)
	if err != nil {
		return nil, err
	}

	start = time.Now()
	result, err := sess.Analyze(ctx, audio)
	if err != nil && ctx.Err() == nil {
		err = errors.New(err).
			Component("analysis").
			Category(errors.CategoryAudioAnalysis).
			FileContext(track.FilePath, 0).
			Context("track_id", track.ID).
			Context("duration_seconds", audio.Duration()).
			Build()
	}
	o.observe(metrics.StageAnalyze, start, err)
	if err != nil {
		return nil, err
	}

	fa := features.Extract(track.ID, result)
	jamscore.Score(&fa.Analysis, result).Apply(&fa.Analysis)
	jamscore.ApplyEmotion(&fa.Analysis)
	fa.Analysis.AnalyzedAt = time.Now()
	return &fa, nil
}

func (o *Orchestrator) observe(stage string, start time.Time, err error) {
	o.recorder.RecordDuration(stage, time.Since(start).Seconds())
	if err != nil {
		o.recorder.RecordOperation(stage, metrics.StatusError)
		o.recorder.RecordError(stage, errorCategory(err))
		return
	}
	o.recorder.RecordOperation(stage, metrics.StatusSuccess)
}

func errorCategory(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.GetCategory()
	}
	return string(errors.CategoryGeneric)
}
