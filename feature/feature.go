// Package feature prepares raw PCM for the ASR and speaker-embedding
// backends: resampling, RMS, mel-spectrogram extraction, low-frame-rate
// stacking, and fixed-frame padding.
package feature

import (
	"math"

	"github.com/zhengyishen0/voca-app/errs"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Resample performs linear interpolation from sourceRate to targetRate.
// Output length is floor(len(samples)*targetRate/sourceRate).
func Resample(samples []float32, sourceRate, targetRate int) ([]float32, error) {
	if sourceRate <= 0 || targetRate <= 0 {
		return nil, &errs.InvalidInput{Kind: "resample: non-positive rate"}
	}
	if len(samples) == 0 {
		return nil, nil
	}
	if sourceRate == targetRate {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out, nil
	}

	outLen := len(samples) * targetRate / sourceRate
	out := make([]float32, outLen)
	ratio := float64(sourceRate) / float64(targetRate)

	for i := range out {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)

		if idx+1 < len(samples) {
			out[i] = samples[idx] + float32(frac)*(samples[idx+1]-samples[idx])
		} else {
			out[i] = samples[len(samples)-1]
		}
	}

	return out, nil
}

// RMS returns the root-mean-square amplitude of samples.
func RMS(samples []float32) float32 {
	if len(samples) == 0 {
		return 0
	}
	var sumSq float64
	for _, s := range samples {
		sumSq += float64(s) * float64(s)
	}
	return float32(math.Sqrt(sumSq / float64(len(samples))))
}

// MelConfig parameterizes the STFT and filterbank.
type MelConfig struct {
	SampleRate int
	NMels      int
	NFFT       int
	HopLength  int
	WinLength  int
	Center     bool // true = librosa-style centered frames; false = left-aligned
}

// DefaultMelConfig mirrors the constants restored from the original
// pipeline: 25ms window / 10ms hop at 16kHz, 80 mel bands.
func DefaultMelConfig() MelConfig {
	return MelConfig{
		SampleRate: SampleRate,
		NMels:      NMels,
		NFFT:       NFFT,
		HopLength:  HopLength,
		WinLength:  NFFT,
		Center:     true,
	}
}

// MelProcessor computes log-mel spectrograms with a fixed filterbank
// and window, both built once at construction.
type MelProcessor struct {
	config     MelConfig
	melFilters [][]float64
	window     []float64
	fft        *fourier.FFT
}

// NewMelProcessor builds the mel filterbank (HTK-style triangular
// filters over [0, sampleRate/2]) and Hann window for config.
func NewMelProcessor(config MelConfig) *MelProcessor {
	return &MelProcessor{
		config:     config,
		melFilters: melFilterbank(config.NFFT, config.NMels, config.SampleRate),
		window:     hannWindow(config.WinLength),
		fft:        fourier.NewFFT(config.NFFT),
	}
}

// Compute returns the log-mel spectrogram as [frame][mel band], with
// log(power + 1e-10) per spec.md §4.B.
func (p *MelProcessor) Compute(samples []float32) [][]float32 {
	var numFrames int
	if p.config.Center {
		numFrames = len(samples)/p.config.HopLength + 1
	} else if len(samples) >= p.config.WinLength {
		numFrames = (len(samples)-p.config.WinLength)/p.config.HopLength + 1
	} else {
		numFrames = 1
	}

	melSpec := make([][]float32, numFrames)

	for frame := 0; frame < numFrames; frame++ {
		var frameStart int
		if p.config.Center {
			frameStart = frame*p.config.HopLength - p.config.WinLength/2
		} else {
			frameStart = frame * p.config.HopLength
		}

		frameData := make([]float64, p.config.NFFT)
		for i := 0; i < p.config.WinLength; i++ {
			sampleIdx := frameStart + i
			if sampleIdx >= 0 && sampleIdx < len(samples) {
				frameData[i] = float64(samples[sampleIdx]) * p.window[i]
			}
		}

		coeffs := p.fft.Coefficients(nil, frameData)

		powerSpec := make([]float64, p.config.NFFT/2+1)
		for i := 0; i <= p.config.NFFT/2; i++ {
			re, im := real(coeffs[i]), imag(coeffs[i])
			powerSpec[i] = re*re + im*im
		}

		melSpec[frame] = make([]float32, p.config.NMels)
		for m := 0; m < p.config.NMels; m++ {
			var sum float64
			for k, pw := range powerSpec {
				sum += pw * p.melFilters[m][k]
			}
			melSpec[frame][m] = float32(math.Log(sum + 1e-10))
		}
	}

	return melSpec
}

func melFilterbank(nFFT, nMels, sampleRate int) [][]float64 {
	hzToMel := func(hz float64) float64 { return 2595.0 * math.Log10(1.0+hz/700.0) }
	melToHz := func(mel float64) float64 { return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0) }

	numBins := nFFT/2 + 1
	fMax := float64(sampleRate) / 2.0

	allFreqs := make([]float64, numBins)
	for i := range allFreqs {
		allFreqs[i] = float64(i) * fMax / float64(numBins-1)
	}

	mMin, mMax := hzToMel(0), hzToMel(fMax)
	fPts := make([]float64, nMels+2)
	for i := range fPts {
		mel := mMin + float64(i)*(mMax-mMin)/float64(nMels+1)
		fPts[i] = melToHz(mel)
	}

	fDiff := make([]float64, nMels+1)
	for i := range fDiff {
		fDiff[i] = fPts[i+1] - fPts[i]
	}

	filters := make([][]float64, nMels)
	for m := range filters {
		filters[m] = make([]float64, numBins)
		for k, freq := range allFreqs {
			lower := (freq - fPts[m]) / fDiff[m]
			upper := (fPts[m+2] - freq) / fDiff[m+1]
			val := math.Min(lower, upper)
			if val < 0 {
				val = 0
			}
			filters[m][k] = val
		}
	}

	return filters
}

func hannWindow(size int) []float64 {
	window := make([]float64, size)
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return window
}

// LFRStack stacks LFR_M consecutive mel frames with stride LFR_N,
// producing frames of dimension NMels*LFR_M. At the tail, missing
// frames replicate the last available frame.
func LFRStack(mel [][]float32, m, n int) [][]float32 {
	if len(mel) == 0 {
		return nil
	}
	nMels := len(mel[0])
	numOut := (len(mel) + n - 1) / n

	out := make([][]float32, numOut)
	last := mel[len(mel)-1]

	for t := 0; t < numOut; t++ {
		stacked := make([]float32, 0, nMels*m)
		base := t * n
		for j := 0; j < m; j++ {
			idx := base + j
			if idx < len(mel) {
				stacked = append(stacked, mel[idx]...)
			} else {
				stacked = append(stacked, last...)
			}
		}
		out[t] = stacked
	}

	return out
}

// PadToFixedFrames truncates or zero-pads features to exactly n
// frames: truncate on overflow, zero-pad on underflow.
func PadToFixedFrames(features [][]float32, n int) [][]float32 {
	if len(features) >= n {
		out := make([][]float32, n)
		copy(out, features[:n])
		return out
	}

	dim := 0
	if len(features) > 0 {
		dim = len(features[0])
	}

	out := make([][]float32, n)
	copy(out, features)
	for i := len(features); i < n; i++ {
		out[i] = make([]float32, dim)
	}
	return out
}
