package cepstrum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/rodrigo-brito/stockwave/spectral"
)

func prices(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		x := float64(i)
		out[i] = 50 + 0.05*x + 3*math.Sin(x/5) + math.Sin(x/1.7)
	}
	return out
}

func spectrogram(t *testing.T, n int, options ...spectral.Option) *spectral.Spectrogram {
	t.Helper()
	sg, err := spectral.Compute(prices(n), options...)
	require.NoError(t, err)
	return sg
}

func TestExtract(t *testing.T) {
	sg := spectrogram(t, 900)

	t.Run("shape follows spectrogram frames", func(t *testing.T) {
		for _, n := range []int{1, 5, 13, 40} {
			features, err := Extract(sg, WithCoefficients(n))
			require.NoError(t, err)
			require.Equal(t, n, features.Rows())
			require.Equal(t, sg.Frames(), features.Frames())
		}
	})

	t.Run("finite values", func(t *testing.T) {
		features, err := Extract(sg)
		require.NoError(t, err)
		for _, row := range features.Slices() {
			for _, v := range row {
				require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
			}
		}
	})

	t.Run("more coefficients than mel bands", func(t *testing.T) {
		short := spectrogram(t, 600)
		for _, n := range []int{41, 64, 128} {
			features, err := Extract(short, WithCoefficients(n))
			require.NoError(t, err)
			require.Equal(t, n, features.Rows())
			require.Equal(t, short.Frames(), features.Frames())
			for _, row := range features.Slices() {
				for _, v := range row {
					require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
				}
			}
		}
	})

	t.Run("invalid parameters", func(t *testing.T) {
		_, err := Extract(sg, WithMelBands(0))
		require.ErrorIs(t, err, ErrInvalidParameters)

		_, err = Extract(sg, WithCoefficients(0))
		require.ErrorIs(t, err, ErrInvalidParameters)

		_, err = Extract(nil)
		require.ErrorIs(t, err, ErrInvalidParameters)

		_, err = Extract(sg, WithSampleRate(0))
		require.ErrorIs(t, err, ErrInvalidParameters)
	})

	t.Run("silent spectrum hits the floor", func(t *testing.T) {
		silent := &spectral.Spectrogram{Magnitudes: mat.NewDense(129, 3, nil)}
		features, err := Extract(silent, WithCoefficients(2))
		require.NoError(t, err)

		// -100 dB on every band; only the DC coefficient is non zero.
		require.InDelta(t, -100*math.Sqrt(40), features.Coefficients.At(0, 0), 1e-9)
		require.InDelta(t, 0, features.Coefficients.At(1, 2), 1e-9)
	})
}

func TestStandardize(t *testing.T) {
	t.Run("zero mean unit variance", func(t *testing.T) {
		features, err := Extract(spectrogram(t, 900))
		require.NoError(t, err)

		standardized := Standardize(features)
		require.Equal(t, features.Rows(), standardized.Rows())
		require.Equal(t, features.Frames(), standardized.Frames())

		for i, row := range standardized.Slices() {
			original := mat.Row(nil, i, features.Coefficients)
			if stat.PopVariance(original, nil) == 0 {
				continue
			}
			mean, std := stat.PopMeanStdDev(row, nil)
			require.InDelta(t, 0, mean, 1e-6)
			require.InDelta(t, 1, std, 1e-6)
		}
	})

	t.Run("zero variance row stays defined", func(t *testing.T) {
		features := &Features{Coefficients: mat.NewDense(2, 4, []float64{
			3, 3, 3, 3,
			1, 2, 3, 4,
		})}

		standardized := Standardize(features)
		require.Equal(t, []float64{0, 0, 0, 0}, mat.Row(nil, 0, standardized.Coefficients))

		second := mat.Row(nil, 1, standardized.Coefficients)
		require.InDelta(t, 0, floats.Sum(second), 1e-12)
		require.InDelta(t, -3/math.Sqrt(5), second[0], 1e-12)
	})

	t.Run("small but non zero variance is scaled", func(t *testing.T) {
		features := &Features{Coefficients: mat.NewDense(1, 4, []float64{
			1, 1 + 1e-12, 1, 1 + 1e-12,
		})}

		row := mat.Row(nil, 0, Standardize(features).Coefficients)
		require.InDelta(t, -1, row[0], 1e-3)
		require.InDelta(t, 1, row[1], 1e-3)
	})

	t.Run("input untouched", func(t *testing.T) {
		features := &Features{Coefficients: mat.NewDense(1, 3, []float64{1, 2, 3})}
		Standardize(features)
		require.Equal(t, []float64{1, 2, 3}, mat.Row(nil, 0, features.Coefficients))
	})
}

func TestMelFilterbank(t *testing.T) {
	bank := MelFilterbank(40, 129, 22050)
	rows, cols := bank.Dims()
	require.Equal(t, 40, rows)
	require.Equal(t, 129, cols)

	for i := 0; i < rows; i++ {
		for _, w := range mat.Row(nil, i, bank) {
			require.GreaterOrEqual(t, w, 0.0)
		}
	}

	// upper bands are wide enough to cover several bins
	require.Greater(t, floats.Sum(mat.Row(nil, 39, bank)), 0.0)
}

func TestDCTBasis(t *testing.T) {
	basis := DCTBasis(8, 8)

	var identity mat.Dense
	identity.Mul(basis, basis.T())
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			expected := 0.0
			if i == j {
				expected = 1
			}
			require.InDelta(t, expected, identity.At(i, j), 1e-12)
		}
	}
}
