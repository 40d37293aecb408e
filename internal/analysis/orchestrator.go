// Package analysis runs the batch pipeline: decode, analyze, extract and
// score each pending track across a bounded worker pool, committing one
// chunk at a time.
package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/lexicone42/setbreak-sub000/internal/conf"
	"github.com/lexicone42/setbreak-sub000/internal/datastore"
	"github.com/lexicone42/setbreak-sub000/internal/engine"
	"github.com/lexicone42/setbreak-sub000/internal/logger"
	"github.com/lexicone42/setbreak-sub000/internal/observability/metrics"
)

// Options control one AnalyzeTracks run.
type Options struct {
	Force   bool   // re-analyze tracks that already have a row
	Workers int    // concurrent sessions, at least 1
	Filter  string // case insensitive substring of the file path
}

// Result counts the tracks of a run.
type Result struct {
	Analyzed int
	Failed   int
}

// Orchestrator owns the analysis run. The datastore is shared; each worker
// gets its own engine session.
type Orchestrator struct {
	store       datastore.Interface
	decoder     Decoder
	engine      engine.Engine
	engineCfg   engine.Config
	chunkFactor int
	progress    bool
	recorder    metrics.Recorder
	pipeline    *metrics.PipelineMetrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMetrics records stage metrics into m.
func WithMetrics(m *metrics.PipelineMetrics) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.recorder = m
			o.pipeline = m
		}
	}
}

// WithEngineConfig overrides the batch engine configuration.
func WithEngineConfig(cfg engine.Config) Option {
	return func(o *Orchestrator) { o.engineCfg = cfg }
}

// New creates an orchestrator. Settings supply the chunk factor and
// whether to draw progress bars.
func New(store datastore.Interface, dec Decoder, eng engine.Engine, settings *conf.AnalysisSettings, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		decoder:     dec,
		engine:      eng,
		engineCfg:   engine.BatchConfig(),
		chunkFactor: settings.ChunkFactor,
		progress:    settings.Progress,
		recorder:    metrics.NoopRecorder{},
	}
	if o.chunkFactor < 1 {
		o.chunkFactor = conf.DefaultChunkFactor
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// outcome is the result slot of one track within a chunk.
type outcome struct {
	analysis *datastore.FullAnalysis
	err      error
}

// AnalyzeTracks analyzes every pending track, or every track when forced.
// Per track failures are logged and counted; a failure to load the track
// list or a cancelled context ends the run with an error.
func (o *Orchestrator) AnalyzeTracks(ctx context.Context, opts Options) (Result, error) {
	var res Result
	log := GetLogger().With(logger.String("run_id", uuid.NewString()))

	tracks, err := o.candidates(opts)
	if err != nil {
		return res, err
	}
	if len(tracks) == 0 {
		log.Info("no tracks to analyze")
		return res, nil
	}

	workers := max(opts.Workers, 1)
	chunkSize := workers * o.chunkFactor
	log.Info("starting analysis run",
		logger.Int("tracks", len(tracks)),
		logger.Int("workers", workers),
		logger.Int("chunk_size", chunkSize),
		logger.Bool("force", opts.Force))

	arena, err := newSessionArena(o.engine, o.engineCfg, workers)
	if err != nil {
		return res, err
	}
	defer func() {
		if err := arena.close(); err != nil {
			log.Warn("failed to close engine sessions", logger.Error(err))
		}
	}()
	if o.pipeline != nil {
		o.pipeline.SetActiveWorkers(workers)
		defer o.pipeline.SetActiveWorkers(0)
	}

	bar := newProgress(o.progress, "Analyzing", len(tracks))
	defer bar.wait()

	started := time.Now()
	for start := 0; start < len(tracks); start += chunkSize {
		if err := ctx.Err(); err != nil {
			bar.abort()
			log.Warn("analysis run stopped",
				logger.Error(ErrAnalysisCanceled),
				logger.Int("analyzed", res.Analyzed),
				logger.Int("failed", res.Failed))
			return res, err
		}
		chunk := tracks[start:min(start+chunkSize, len(tracks))]
		outcomes := o.runChunk(ctx, arena, chunk, workers, bar)
		o.commit(ctx, log, chunk, outcomes, &res)

		log.Info("chunk committed",
			logger.Int("done", min(start+chunkSize, len(tracks))),
			logger.Int("total", len(tracks)),
			logger.Int("analyzed", res.Analyzed),
			logger.Int("failed", res.Failed))
	}
	if err := ctx.Err(); err != nil {
		bar.abort()
		return res, err
	}

	log.Info("analysis run complete",
		logger.Int("analyzed", res.Analyzed),
		logger.Int("failed", res.Failed),
		logger.Duration("elapsed", time.Since(started)))
	return res, nil
}

func (o *Orchestrator) candidates(opts Options) ([]datastore.Track, error) {
	var (
		tracks []datastore.Track
		err    error
	)
	if opts.Force {
		tracks, err = o.store.ListAll()
	} else {
		tracks, err = o.store.ListUnanalyzed()
	}
	if err != nil {
		return nil, loadError(err, "list_tracks")
	}
	if opts.Filter == "" {
		return tracks, nil
	}

	fold := cases.Fold()
	needle := fold.String(opts.Filter)
	filtered := tracks[:0]
	for _, t := range tracks {
		if strings.Contains(fold.String(t.FilePath), needle) {
			filtered = append(filtered, t)
		}
	}
	return filtered, nil
}

// runChunk analyzes chunk on up to workers goroutines. Results land in an
// index addressed slice so no locking is needed.
func (o *Orchestrator) runChunk(ctx context.Context, arena *sessionArena, chunk []datastore.Track, workers int, bar *progress) []outcome {
	work := make(chan int, len(chunk))
	for i := range chunk {
		work <- i
	}
	close(work)

	results := make([]outcome, len(chunk))
	n := min(workers, len(chunk))

	var g errgroup.Group
	g.SetLimit(n)
	for range n {
		g.Go(func() error {
			sess := arena.acquire()
			defer arena.release(sess)
			for idx := range work {
				fa, err := o.analyzeOne(ctx, sess, chunk[idx])
				results[idx] = outcome{analysis: fa, err: err}
				bar.increment()
			}
			return nil
		})
	}
	_ = g.Wait() // workers never return an error
	return results
}

// commit stores the chunk's analyses one transaction per track, in order.
func (o *Orchestrator) commit(ctx context.Context, log logger.Logger, chunk []datastore.Track, outcomes []outcome, res *Result) {
	for i, out := range outcomes {
		track := chunk[i]
		if out.err != nil {
			if ctx.Err() != nil {
				// interrupted, not failed; the track stays pending
				continue
			}
			res.Failed++
			log.Warn("track analysis failed",
				logger.Int64("track_id", track.ID),
				logger.String("path", track.FilePath),
				logger.Error(out.err))
			continue
		}

		start := time.Now()
		err := o.store.StoreFullAnalysis(out.analysis)
		o.observe(metrics.StageStore, start, err)
		if err != nil {
			res.Failed++
			log.Warn("failed to store analysis",
				logger.Int64("track_id", track.ID),
				logger.String("path", track.FilePath),
				logger.Error(err))
			continue
		}
		res.Analyzed++
	}
	if o.pipeline != nil {
		o.pipeline.RecordChunk()
	}
}
