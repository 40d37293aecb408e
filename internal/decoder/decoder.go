// Package decoder turns audio files into interleaved float32 PCM.
//
// WAV is decoded in process with go-audio, FLAC with the dedicated native
// decoder, and every other supported container is transcoded to 16-bit WAV
// through an ffmpeg subprocess first.
package decoder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lexicone42/setbreak-sub000/internal/conf"
	"github.com/lexicone42/setbreak-sub000/internal/errors"
)

const componentDecoder = "decoder"

var (
	// ErrUnsupportedFormat is returned for extensions no decode path handles.
	ErrUnsupportedFormat = errors.NewStd("unsupported audio format")
	// ErrFFmpegNotFound is returned when a transcode is needed but the ffmpeg
	// probe fails. No transcode is attempted in that case.
	ErrFFmpegNotFound = errors.NewStd("ffmpeg not found")
)

// DecodedAudio is one decoded file. Samples are interleaved by channel and
// scaled to roughly [-1, 1].
type DecodedAudio struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames (samples per channel).
func (a *DecodedAudio) Frames() int {
	if a.Channels <= 0 {
		return 0
	}
	return len(a.Samples) / a.Channels
}

// Duration returns the length of the audio in seconds.
func (a *DecodedAudio) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(a.Frames()) / float64(a.SampleRate)
}

// Mono downmixes to a single channel by averaging. A mono buffer is
// returned as is.
func (a *DecodedAudio) Mono() []float32 {
	if a.Channels <= 1 {
		return a.Samples
	}
	frames := a.Frames()
	out := make([]float32, frames)
	scale := 1 / float32(a.Channels)
	for i := range frames {
		var sum float32
		base := i * a.Channels
		for c := range a.Channels {
			sum += a.Samples[base+c]
		}
		out[i] = sum * scale
	}
	return out
}

// Decoder dispatches files to a decode strategy by extension.
type Decoder struct {
	ffmpegPath string
	tempDir    string
}

// New creates a Decoder from the decoder settings. An empty ffmpeg path
// resolves the platform binary name through PATH at transcode time.
func New(settings conf.DecoderSettings) *Decoder {
	ffmpegPath := settings.FFmpegPath
	if ffmpegPath == "" {
		ffmpegPath = conf.GetFfmpegBinaryName()
	}
	tempDir := settings.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Decoder{ffmpegPath: ffmpegPath, tempDir: tempDir}
}

// Decode reads path and returns its PCM samples.
func (d *Decoder) Decode(ctx context.Context, path string) (*DecodedAudio, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))

	switch {
	case ext == "wav":
		return decodeWAVFile(path)
	case ext == "flac":
		return decodeFLACFile(path)
	case isTranscoded(ext):
		return d.decodeViaFFmpeg(ctx, path)
	default:
		return nil, errors.New(fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)).
			Component(componentDecoder).
			Category(errors.CategoryValidation).
			Context("extension", ext).
			Build()
	}
}

// isTranscoded reports whether ext is a supported format without an in
// process decoder.
func isTranscoded(ext string) bool {
	if ext == "wav" || ext == "flac" {
		return false
	}
	for _, supported := range conf.SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// openFile wraps os.Open with a file-io categorized error.
func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.New(err).
			Component(componentDecoder).
			Category(errors.CategoryFileIO).
			FileContext(path, 0).
			Context("operation", "open").
			Build()
	}
	return f, nil
}

func decodeError(err error, path, format string) error {
	return errors.New(fmt.Errorf("decode %s: %w", format, err)).
		Component(componentDecoder).
		Category(errors.CategoryAudio).
		FileContext(path, 0).
		Context("format", format).
		Build()
}
