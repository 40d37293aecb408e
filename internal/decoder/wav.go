package decoder

import (
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavReadFrames is the number of sample frames read per PCMBuffer call.
const wavReadFrames = 65536

// getAudioDivisor returns the integer to float scale for a bit depth.
func getAudioDivisor(bitDepth int) (float32, error) {
	switch bitDepth {
	case 8:
		return 128.0, nil
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}

func decodeWAVFile(path string) (*DecodedAudio, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	audioData, err := decodeWAV(f)
	if err != nil {
		return nil, decodeError(err, path, "wav")
	}
	return audioData, nil
}

// decodeWAV reads a whole PCM WAV stream.
func decodeWAV(r io.ReadSeeker) (*DecodedAudio, error) {
	dec := wav.NewDecoder(r)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("input is not a valid WAV audio file")
	}

	channels := int(dec.NumChans)
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}

	bitDepth := int(dec.BitDepth)
	divisor, err := getAudioDivisor(bitDepth)
	if err != nil {
		return nil, err
	}
	// 8-bit WAV is unsigned, centred on 128
	var offset int
	if bitDepth == 8 {
		offset = 128
	}

	buf := &audio.IntBuffer{
		Data:   make([]int, wavReadFrames*channels),
		Format: &audio.Format{SampleRate: int(dec.SampleRate), NumChannels: channels},
	}

	var samples []float32
	for {
		n, err := dec.PCMBuffer(buf)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		for _, sample := range buf.Data[:n] {
			samples = append(samples, float32(sample-offset)/divisor)
		}
	}

	return &DecodedAudio{
		Samples:    samples,
		SampleRate: int(dec.SampleRate),
		Channels:   channels,
	}, nil
}
