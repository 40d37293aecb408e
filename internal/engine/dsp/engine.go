// Package dsp is the in-tree analysis engine. It computes every part of an
// engine.Result from mono PCM with gonum FFTs and plain statistics.
//
// A session owns its FFT plans and scratch buffers, so one session must not
// be shared between goroutines.
package dsp

import (
	"context"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/lexicone42/setbreak-sub000/internal/decoder"
	"github.com/lexicone42/setbreak-sub000/internal/engine"
	"github.com/lexicone42/setbreak-sub000/internal/errors"
)

const (
	frameSize = 2048
	hopSize   = 1024

	pitchWindow = 2048
	pitchFFT    = 2 * pitchWindow

	// minDuration is the shortest audio the engine accepts, in seconds
	minDuration = 0.5
)

var (
	ErrSessionClosed = errors.NewStd("session is closed")
	ErrTooShort      = errors.NewStd("audio too short to analyze")
)

// Engine creates dsp sessions.
type Engine struct{}

// New returns the native engine.
func New() *Engine {
	return &Engine{}
}

// NewSession validates cfg and allocates the per session FFT plans.
func (e *Engine) NewSession(cfg engine.Config) (engine.Session, error) {
	if cfg.PitchThresholdCount < 1 || cfg.PitchThresholdCount > len(yinThresholds) {
		return nil, errors.Newf("pitch threshold count must be between 1 and %d, got %d",
			len(yinThresholds), cfg.PitchThresholdCount).
			Component("engine").
			Category(errors.CategoryValidation).
			Build()
	}
	if cfg.PitchHopMultiplier < 1 {
		return nil, errors.Newf("pitch hop multiplier must be at least 1, got %d", cfg.PitchHopMultiplier).
			Component("engine").
			Category(errors.CategoryValidation).
			Build()
	}

	return &session{
		cfg:        cfg,
		fft:        fourier.NewFFT(frameSize),
		window:     hann(frameSize),
		frame:      make([]float64, frameSize),
		coeffs:     make([]complex128, frameSize/2+1),
		mags:       make([]float64, frameSize/2+1),
		prevMags:   make([]float64, frameSize/2+1),
		pitchFFT:   fourier.NewFFT(pitchFFT),
		pitchBuf:   make([]float64, pitchFFT),
		pitchSpec:  make([]complex128, pitchFFT/2+1),
		pitchAC:    make([]float64, pitchFFT),
		pitchDiff:  make([]float64, pitchWindow/2+1),
		melFilters: nil,
	}, nil
}

// session holds reusable buffers for one worker.
type session struct {
	cfg engine.Config

	fft      *fourier.FFT
	window   []float64
	frame    []float64
	coeffs   []complex128
	mags     []float64
	prevMags []float64

	pitchFFT  *fourier.FFT
	pitchBuf  []float64
	pitchSpec []complex128
	pitchAC   []float64
	pitchDiff []float64

	// mel filterbank cached for melRate
	melFilters [][]melWeight
	melRate    int
}

// Close releases the session buffers.
func (s *session) Close() error {
	s.frame, s.coeffs, s.mags, s.prevMags = nil, nil, nil, nil
	s.pitchBuf, s.pitchSpec, s.pitchAC, s.pitchDiff = nil, nil, nil, nil
	s.melFilters = nil
	return nil
}

// Analyze runs every analysis stage on the mono downmix of audio.
func (s *session) Analyze(ctx context.Context, audio *decoder.DecodedAudio) (*engine.Result, error) {
	if s.frame == nil {
		return nil, errors.New(ErrSessionClosed).
			Component("engine").
			Category(errors.CategoryState).
			Build()
	}
	if audio == nil || audio.SampleRate <= 0 || audio.Channels <= 0 {
		return nil, errors.Newf("invalid audio buffer").
			Component("engine").
			Category(errors.CategoryValidation).
			Build()
	}
	if audio.Duration() < minDuration {
		return nil, errors.New(ErrTooShort).
			Component("engine").
			Category(errors.CategoryAudioAnalysis).
			Context("duration_seconds", audio.Duration()).
			Build()
	}

	mono32 := audio.Mono()
	x := make([]float64, len(mono32))
	for i, v := range mono32 {
		x[i] = float64(v)
	}
	sr := audio.SampleRate

	res := &engine.Result{
		Summary: summarize(x, audio),
	}

	frames := s.analyzeFrames(x, sr)
	res.Spectral = frames.spectral
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rhythm := analyzeRhythm(frames.flux, frames.frameRate, float64(res.Summary.Duration))
	res.Temporal = rhythm.temporal

	res.Pitch = s.analyzePitch(x, sr)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Perceptual = analyzeLoudness(x, sr, frames.rms)
	res.Musical = analyzeTonal(frames, rhythm)
	res.Quality = analyzeQuality(x, frames.rms)
	res.Segments = analyzeStructure(frames, rhythm, s.cfg.SkipSegmentClassification)
	res.Classification = classify(res)

	if !s.cfg.SkipVisualization {
		res.Visualization = waveform(mono32, 1000)
	}
	if !s.cfg.SkipFingerprinting {
		fp := fingerprint(frames)
		res.Fingerprint = &fp
	}

	return res, nil
}

// summarize computes peak, RMS and the peak to RMS dynamic range.
func summarize(x []float64, audio *decoder.DecodedAudio) engine.Summary {
	var peak, sumSq float64
	for _, v := range x {
		if a := math.Abs(v); a > peak {
			peak = a
		}
		sumSq += v * v
	}
	rms := math.Sqrt(sumSq / float64(len(x)))

	var dr float64
	if rms > 1e-10 && peak > 0 {
		dr = 20 * math.Log10(peak/rms)
	}

	return engine.Summary{
		Duration:      float32(audio.Duration()),
		SampleRate:    audio.SampleRate,
		Channels:      audio.Channels,
		PeakAmplitude: float32(peak),
		RMSLevel:      float32(rms),
		DynamicRange:  float32(dr),
	}
}

func hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func ptr32(v float64) *float32 {
	f := float32(v)
	return &f
}
