package decoder

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tphakala/flac"
)

func decodeFLACFile(path string) (*DecodedAudio, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	audioData, err := decodeFLAC(f)
	if err != nil {
		return nil, decodeError(err, path, "flac")
	}
	return audioData, nil
}

// decodeFLAC reads every frame of a FLAC stream. Frames arrive as little
// endian interleaved bytes.
func decodeFLAC(r io.Reader) (*DecodedAudio, error) {
	dec, err := flac.NewDecoder(r)
	if err != nil {
		return nil, err
	}

	bitDepth := dec.BitsPerSample
	if bitDepth != 16 && bitDepth != 24 {
		return nil, fmt.Errorf("unsupported FLAC bit depth: %d", bitDepth)
	}
	divisor, err := getAudioDivisor(bitDepth)
	if err != nil {
		return nil, err
	}
	bytesPerSample := bitDepth / 8

	var samples []float32
	if dec.TotalSamples > 0 {
		samples = make([]float32, 0, int(dec.TotalSamples)*dec.NChannels)
	}

	for {
		frame, err := dec.Next()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		}

		for i := 0; i+bytesPerSample <= len(frame); i += bytesPerSample {
			var sample int32
			switch bitDepth {
			case 16:
				sample = int32(int16(binary.LittleEndian.Uint16(frame[i:])))
			case 24:
				sample = int32(frame[i]) | int32(frame[i+1])<<8 | int32(frame[i+2])<<16
				// sign extend from 24 bits
				if sample&0x800000 != 0 {
					sample |= ^0xFFFFFF
				}
			}
			samples = append(samples, float32(sample)/divisor)
		}
	}

	return &DecodedAudio{
		Samples:    samples,
		SampleRate: dec.SampleRate,
		Channels:   dec.NChannels,
	}, nil
}
