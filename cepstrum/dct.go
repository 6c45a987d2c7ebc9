package cepstrum

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// DCTBasis returns the first rows of the orthonormal DCT-II matrix of size n.
// Multiplying it with a column vector yields the DCT-II coefficients.
func DCTBasis(rows, n int) *mat.Dense {
	basis := mat.NewDense(rows, n, nil)
	for k := 0; k < rows; k++ {
		scale := math.Sqrt(2 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1 / float64(n))
		}
		for i := 0; i < n; i++ {
			basis.Set(k, i, scale*math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*float64(n))))
		}
	}
	return basis
}
