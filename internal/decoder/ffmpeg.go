package decoder

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/lexicone42/setbreak-sub000/internal/errors"
	"github.com/lexicone42/setbreak-sub000/internal/logger"
)

// tempCounter makes transcode file names unique within the process; the pid
// makes them unique across processes.
var tempCounter atomic.Uint64

// tempWAVName returns a fresh setbreak_<pid>_<counter>.wav name.
func tempWAVName() string {
	return fmt.Sprintf("setbreak_%d_%d.wav", os.Getpid(), tempCounter.Add(1))
}

// probeFFmpeg runs `<ffmpeg> -version` and reports whether it succeeded.
func (d *Decoder) probeFFmpeg(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, d.ffmpegPath, "-version")
	if err := cmd.Run(); err != nil {
		return errors.New(fmt.Errorf("%w: %s: %v", ErrFFmpegNotFound, d.ffmpegPath, err)).
			Component(componentDecoder).
			Category(errors.CategoryCommandExecution).
			Context("ffmpeg_path", d.ffmpegPath).
			Build()
	}
	return nil
}

// decodeViaFFmpeg transcodes path to a temporary 16-bit WAV and decodes that.
// The temporary file is removed on every path.
func (d *Decoder) decodeViaFFmpeg(ctx context.Context, path string) (*DecodedAudio, error) {
	if err := d.probeFFmpeg(ctx); err != nil {
		return nil, err
	}

	tmpPath := filepath.Join(d.tempDir, tempWAVName())
	defer func() {
		if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
			getLogger().Warn("failed to remove transcode temp file",
				logger.String("path", tmpPath),
				logger.Error(err))
		}
	}()

	cmd := exec.CommandContext(ctx, d.ffmpegPath,
		"-i", path,
		"-f", "wav",
		"-acodec", "pcm_s16le",
		"-y", tmpPath)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, errors.New(fmt.Errorf("ffmpeg canceled: %w", ctx.Err())).
				Component(componentDecoder).
				Category(errors.CategoryCancellation).
				Build()
		}
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = err.Error()
		}
		return nil, errors.New(fmt.Errorf("ffmpeg transcode failed: %s", errMsg)).
			Component(componentDecoder).
			Category(errors.CategoryCommandExecution).
			FileContext(path, 0).
			Context("ffmpeg_path", d.ffmpegPath).
			Build()
	}

	getLogger().Trace("transcoded via ffmpeg",
		logger.String("input", filepath.Base(path)),
		logger.String("temp", tmpPath))

	return decodeWAVFile(tmpPath)
}
