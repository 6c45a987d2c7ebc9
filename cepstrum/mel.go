package cepstrum

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func hzToMel(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melToHz(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// MelFilterbank returns a bands x bins matrix of triangular filters spaced
// evenly on the mel scale between 0 Hz and the Nyquist frequency. Each filter
// is scaled by 2/(upper-lower) so that all filters carry the same area.
// bins is the number of one sided frequency bins of the spectrum.
func MelFilterbank(bands, bins int, sampleRate float64) *mat.Dense {
	nyquist := sampleRate / 2
	fft := 2 * (bins - 1)

	binHz := make([]float64, bins)
	for k := range binHz {
		binHz[k] = float64(k) * sampleRate / float64(fft)
	}

	mels := make([]float64, bands+2)
	floats.Span(mels, hzToMel(0), hzToMel(nyquist))
	edges := make([]float64, len(mels))
	for i, m := range mels {
		edges[i] = melToHz(m)
	}

	weights := mat.NewDense(bands, bins, nil)
	for m := 0; m < bands; m++ {
		lower, center, upper := edges[m], edges[m+1], edges[m+2]
		norm := 2 / (upper - lower)
		for k, hz := range binHz {
			rising := (hz - lower) / (center - lower)
			falling := (upper - hz) / (upper - center)
			w := math.Max(0, math.Min(rising, falling))
			if w > 0 {
				weights.Set(m, k, w*norm)
			}
		}
	}
	return weights
}
