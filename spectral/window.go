package spectral

import "math"

// Hann returns the periodic Hann window of length n, the variant used for
// spectral analysis (the symmetric window of length n+1 without its last point).
func Hann(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return w
}
