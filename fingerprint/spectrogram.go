package fingerprint

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// hannWindow returns a symmetric Hann window of the given length, matching
// the cosine-taper construction song-recognition's shazam package uses for
// its own FFT frames.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		theta := 2 * math.Pi * float64(i) / float64(n-1)
		w[i] = 0.5 - 0.5*math.Cos(theta)
	}
	return w
}

// Spectrogram computes the dB-scaled magnitude spectrogram of a single
// real-valued PCM channel. Rows are frequency bins (0..WindowSize/2
// inclusive), columns are time frames. Returns an empty spectrogram if the
// input is shorter than WindowSize.
func Spectrogram(samples []float64) [][]float64 {
	if len(samples) < WindowSize {
		return [][]float64{}
	}

	window := hannWindow(WindowSize)
	numBins := WindowSize/2 + 1
	numFrames := 1 + (len(samples)-WindowSize)/HopSize

	spec := make([][]float64, numBins)
	for i := range spec {
		spec[i] = make([]float64, numFrames)
	}

	frame := make([]float64, WindowSize)
	for t := 0; t < numFrames; t++ {
		start := t * HopSize
		for i := 0; i < WindowSize; i++ {
			frame[i] = samples[start+i] * window[i]
		}

		spectrum := fft.FFTReal(frame)
		for f := 0; f < numBins; f++ {
			mag2 := real(spectrum[f])*real(spectrum[f]) + imag(spectrum[f])*imag(spectrum[f])
			spec[f][t] = 10 * math.Log10(math.Max(mag2, dBFloor))
		}
	}

	return spec
}
