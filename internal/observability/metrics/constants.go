// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Pipeline stage names used as the "stage" label.
const (
	// StageDecode is audio decoding.
	StageDecode = "decode"
	// StageAnalyze is the analysis engine run.
	StageAnalyze = "analyze"
	// StageStore is the per track commit.
	StageStore = "store"
	// StageRescore recomputes scores from stored values.
	StageRescore = "rescore"
	// StageCalibrate is the loudness bias calibration pass.
	StageCalibrate = "calibrate"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Histogram bucket parameters.
const (
	// BucketStart1ms is the first bucket boundary for database operations.
	BucketStart1ms = 0.001
	// BucketStart10ms is the first bucket boundary for track stages.
	BucketStart10ms = 0.01
	// BucketFactor2 doubles each bucket.
	BucketFactor2 = 2
	// BucketCount15 covers 10ms to about 5 minutes.
	BucketCount15 = 15
)

// ShutdownTimeout bounds the metrics endpoint shutdown.
const ShutdownTimeout = 5 * time.Second
