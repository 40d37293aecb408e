package dsp

import (
	"math"
	"math/cmplx"

	"github.com/lexicone42/setbreak-sub000/internal/engine"
)

const (
	melBands  = 26
	mfccCount = 13

	rolloffFraction = 0.85

	chromaMinHz = 65.0
	chromaMaxHz = 2100.0
)

// sub band edges in Hz: bass, mid, high, presence
var subBandEdges = [...]float64{20, 250, 2000, 6000}

// frameData is everything later stages need from the STFT pass.
type frameData struct {
	spectral   engine.Spectral
	sampleRate int
	frameRate  float64 // frames per second
	rms        []float64
	flux       []float64
	flatness   []float64
	centroid   []float64
	chroma     [][12]float64
}

// frameTime returns the centre time of frame i in seconds.
func (f *frameData) frameTime(i int) float64 {
	return (float64(i*hopSize) + frameSize/2) / float64(f.sampleRate)
}

type melWeight struct {
	bin    int
	weight float64
}

// analyzeFrames runs the STFT and computes every per frame feature.
func (s *session) analyzeFrames(x []float64, sr int) *frameData {
	nFrames := 1
	if len(x) > frameSize {
		nFrames = 1 + (len(x)-frameSize)/hopSize
	}
	nBins := frameSize/2 + 1
	binHz := float64(sr) / frameSize

	s.ensureMel(sr)
	for i := range s.prevMags {
		s.prevMags[i] = 0
	}

	fd := &frameData{
		sampleRate: sr,
		frameRate:  float64(sr) / hopSize,
		rms:        make([]float64, nFrames),
		flux:       make([]float64, nFrames),
		flatness:   make([]float64, nFrames),
		centroid:   make([]float64, nFrames),
		chroma:     make([][12]float64, nFrames),
	}
	rolloff := make([]float64, nFrames)
	bandwidth := make([]float64, nFrames)
	zcr := make([]float64, nFrames)
	var bands [4][]float64
	for b := range bands {
		bands[b] = make([]float64, nFrames)
	}
	mfcc := make([][]float64, mfccCount)
	for c := range mfcc {
		mfcc[c] = make([]float64, nFrames)
	}
	melEnergy := make([]float64, melBands)

	// chroma bin to pitch class map, -1 outside the chroma range
	pitchClass := make([]int, nBins)
	for k := range pitchClass {
		f := float64(k) * binHz
		if f < chromaMinHz || f > chromaMaxHz {
			pitchClass[k] = -1
			continue
		}
		midi := 69 + 12*math.Log2(f/440)
		pitchClass[k] = ((int(math.Round(midi)) % 12) + 12) % 12
	}

	for i := range nFrames {
		start := i * hopSize
		var sumSq float64
		var crossings int
		for j := range frameSize {
			var v float64
			if start+j < len(x) {
				v = x[start+j]
			}
			sumSq += v * v
			if j > 0 && (v >= 0) != (s.frame[j-1] >= 0) {
				crossings++
			}
			s.frame[j] = v
		}
		fd.rms[i] = math.Sqrt(sumSq / frameSize)
		zcr[i] = float64(crossings) / frameSize

		for j := range frameSize {
			s.frame[j] *= s.window[j]
		}
		s.coeffs = s.fft.Coefficients(s.coeffs, s.frame)

		var magSum, weighted, powSum, logPowSum, flux float64
		for k := range nBins {
			m := cmplx.Abs(s.coeffs[k])
			s.mags[k] = m
			magSum += m
			weighted += float64(k) * binHz * m
			p := m*m + 1e-12
			powSum += p
			logPowSum += math.Log(p)
			if d := m - s.prevMags[k]; d > 0 {
				flux += d * d
			}
		}
		fd.flux[i] = math.Sqrt(flux)
		if i == 0 {
			// no previous frame to compare against
			fd.flux[i] = 0
		}

		var centroid float64
		if magSum > 1e-12 {
			centroid = weighted / magSum
			var spread float64
			for k := range nBins {
				d := float64(k)*binHz - centroid
				spread += d * d * s.mags[k]
			}
			bandwidth[i] = math.Sqrt(spread / magSum)
		}
		fd.centroid[i] = centroid
		fd.flatness[i] = math.Exp(logPowSum/float64(nBins)) / (powSum / float64(nBins))

		// rolloff and sub bands on power
		var total float64
		for k := 1; k < nBins; k++ {
			total += s.mags[k] * s.mags[k]
		}
		var cum float64
		rolloff[i] = float64(nBins-1) * binHz
		found := false
		var bandPow [4]float64
		for k := 1; k < nBins; k++ {
			p := s.mags[k] * s.mags[k]
			cum += p
			if !found && total > 0 && cum >= rolloffFraction*total {
				rolloff[i] = float64(k) * binHz
				found = true
			}
			f := float64(k) * binHz
			switch {
			case f < subBandEdges[0]:
			case f < subBandEdges[1]:
				bandPow[0] += p
			case f < subBandEdges[2]:
				bandPow[1] += p
			case f < subBandEdges[3]:
				bandPow[2] += p
			default:
				bandPow[3] += p
			}
			if pc := pitchClass[k]; pc >= 0 {
				fd.chroma[i][pc] += p
			}
		}
		if total > 0 {
			for b := range bands {
				bands[b][i] = bandPow[b] / total
			}
		} else {
			rolloff[i] = 0
		}

		// MFCC: log mel energies then DCT-II
		for m, filter := range s.melFilters {
			var e float64
			for _, w := range filter {
				e += w.weight * s.mags[w.bin] * s.mags[w.bin]
			}
			melEnergy[m] = math.Log(e + 1e-10)
		}
		for c := range mfccCount {
			var sum float64
			for m := range melBands {
				sum += melEnergy[m] * math.Cos(math.Pi*float64(c)*(float64(m)+0.5)/melBands)
			}
			mfcc[c][i] = sum
		}

		s.prevMags, s.mags = s.mags, s.prevMags
	}

	fd.spectral = engine.Spectral{
		Centroid:         toFloat32(fd.centroid),
		Flux:             toFloat32(fd.flux),
		Rolloff:          toFloat32(rolloff),
		Flatness:         toFloat32(fd.flatness),
		Bandwidth:        toFloat32(bandwidth),
		ZeroCrossingRate: toFloat32(zcr),
		SubBandBass:      toFloat32(bands[0]),
		SubBandMid:       toFloat32(bands[1]),
		SubBandHigh:      toFloat32(bands[2]),
		SubBandPresence:  toFloat32(bands[3]),
		MFCC:             make([][]float32, mfccCount),
	}
	for c := range mfcc {
		fd.spectral.MFCC[c] = toFloat32(mfcc[c])
	}
	return fd
}

// ensureMel builds the triangular mel filterbank for sr once per rate.
func (s *session) ensureMel(sr int) {
	if s.melFilters != nil && s.melRate == sr {
		return
	}
	nBins := frameSize/2 + 1
	binHz := float64(sr) / frameSize

	hzToMel := func(f float64) float64 { return 2595 * math.Log10(1+f/700) }
	melToHz := func(m float64) float64 { return 700 * (math.Pow(10, m/2595) - 1) }

	maxMel := hzToMel(float64(sr) / 2)
	edges := make([]float64, melBands+2)
	for i := range edges {
		edges[i] = melToHz(maxMel * float64(i) / float64(melBands+1))
	}

	filters := make([][]melWeight, melBands)
	for m := range melBands {
		lo, mid, hi := edges[m], edges[m+1], edges[m+2]
		for k := range nBins {
			f := float64(k) * binHz
			var w float64
			switch {
			case f > lo && f <= mid:
				w = (f - lo) / (mid - lo)
			case f > mid && f < hi:
				w = (hi - f) / (hi - mid)
			}
			if w > 0 {
				filters[m] = append(filters[m], melWeight{bin: k, weight: w})
			}
		}
	}
	s.melFilters = filters
	s.melRate = sr
}
