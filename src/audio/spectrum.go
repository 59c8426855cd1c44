package audio

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// analyzeSpectrum applies a Hann window to x in place and returns the
// single-sided magnitude spectrum, len(x)/2 bins.
func analyzeSpectrum(x []float64) []float64 {
	n := len(x)
	if n == 0 {
		return nil
	}
	window.Apply(x, window.Hann)
	spectrum := fft.FFTReal(x)
	result := make([]float64, n/2)
	for i := range result {
		result[i] = cmplx.Abs(spectrum[i]) * 2 / float64(n)
	}
	return result
}

// peakFrequency returns the strongest non-DC frequency in Hz.
func peakFrequency(samples []float32) float64 {
	if len(samples) < 4 {
		return 0
	}
	x := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = float64(s)
	}
	spectrum := analyzeSpectrum(x)
	peak := 0
	for i := 1; i < len(spectrum); i++ {
		if peak == 0 || spectrum[i] > spectrum[peak] {
			peak = i
		}
	}
	return float64(peak) * sampleRate / float64(len(samples))
}
