// Package engine defines the contract between the batch pipeline and an
// audio analysis engine: the batch configuration, per-worker sessions and
// the shape of an analysis result.
package engine

import (
	"context"

	"github.com/lexicone42/setbreak-sub000/internal/decoder"
)

// Config selects optional analysis stages and pitch detection precision.
type Config struct {
	SkipVisualization         bool // waveform overview
	SkipFingerprinting        bool // chroma fingerprint
	SkipSegmentClassification bool // per segment content labels
	PitchThresholdCount       int  // candidate thresholds tried per pitch frame
	PitchHopMultiplier        int  // pitch hop as a multiple of the spectral hop
}

// DefaultConfig runs every stage at full pitch precision.
func DefaultConfig() Config {
	return Config{
		PitchThresholdCount: 5,
		PitchHopMultiplier:  1,
	}
}

// BatchConfig is the throughput oriented configuration used for library
// analysis. It drops the stages nothing downstream reads and trades pitch
// precision for speed: fewer candidate thresholds and a coarser hop.
func BatchConfig() Config {
	return Config{
		SkipVisualization:         true,
		SkipFingerprinting:        true,
		SkipSegmentClassification: true,
		PitchThresholdCount:       2,
		PitchHopMultiplier:        4,
	}
}

// Engine creates analysis sessions.
type Engine interface {
	// NewSession creates a long lived execution context. A session is used
	// by one goroutine at a time and reused across tracks.
	NewSession(cfg Config) (Session, error)
}

// Session analyzes decoded audio.
type Session interface {
	// Analyze runs the analysis. Errors are opaque to callers.
	Analyze(ctx context.Context, audio *decoder.DecodedAudio) (*Result, error)
	Close() error
}
