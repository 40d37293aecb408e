// conf/consts.go hard coded constants
package conf

const (
	AppName = "setbreak"

	// ConfigName is the base name of the YAML config file
	ConfigName = "config"

	// EnvPrefix prefixes every environment override, e.g. SETBREAK_ANALYSIS_WORKERS
	EnvPrefix = "SETBREAK"

	// DefaultChunkFactor multiplies the worker count to size an analysis chunk
	DefaultChunkFactor = 4

	// DefaultBetaThreshold is the smallest loudness slope calibration corrects
	DefaultBetaThreshold = 0.1

	// DefaultCalibrationMinPoints is the fewest tracks a slope is fitted on
	DefaultCalibrationMinPoints = 10
)

// SupportedExtensions lists every audio extension the decoder can handle,
// natively or through ffmpeg.
var SupportedExtensions = []string{
	"flac", "wav", "mp3", "ogg", "shn", "aif", "aiff", "ape",
	"wv", "m4a", "aac", "opus", "dsf", "dff",
}
