// Package cepstrum derives mel cepstral coefficients from spectrograms.
package cepstrum

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/rodrigo-brito/stockwave/spectral"
	"github.com/rodrigo-brito/stockwave/tools/log"
)

const (
	DefaultCoefficients = 13
	DefaultMelBands     = 40
	DefaultSampleRate   = 22050

	powerFloor = 1e-10
)

var ErrInvalidParameters = errors.New("invalid cepstral parameters")

// Features is a coefficient by frame matrix.
type Features struct {
	Coefficients *mat.Dense
}

// Rows returns the number of coefficients.
func (f *Features) Rows() int {
	r, _ := f.Coefficients.Dims()
	return r
}

// Frames returns the number of time frames.
func (f *Features) Frames() int {
	_, c := f.Coefficients.Dims()
	return c
}

// Slices returns the matrix as row slices.
func (f *Features) Slices() [][]float64 {
	rows := make([][]float64, f.Rows())
	for i := range rows {
		rows[i] = mat.Row(nil, i, f.Coefficients)
	}
	return rows
}

type Option func(*Extractor)

func WithCoefficients(n int) Option {
	return func(e *Extractor) {
		e.coefficients = n
	}
}

func WithMelBands(n int) Option {
	return func(e *Extractor) {
		e.bands = n
	}
}

func WithSampleRate(rate float64) Option {
	return func(e *Extractor) {
		e.sampleRate = rate
	}
}

func WithLogger(logger log.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

type Extractor struct {
	coefficients int
	bands        int
	sampleRate   float64
	logger       log.Logger
}

func NewExtractor(options ...Option) *Extractor {
	extractor := &Extractor{
		coefficients: DefaultCoefficients,
		bands:        DefaultMelBands,
		sampleRate:   DefaultSampleRate,
	}
	for _, option := range options {
		option(extractor)
	}
	extractor.logger = log.OrDiscard(extractor.logger)
	return extractor
}

// Extract is a shorthand for NewExtractor(options...).Extract(sg).
func Extract(sg *spectral.Spectrogram, options ...Option) (*Features, error) {
	return NewExtractor(options...).Extract(sg)
}

// Extract turns every spectrogram frame into cepstral coefficients: power
// spectrum, mel filterbank, decibels, orthonormal DCT-II, leading
// coefficients kept. The filterbank grows to the coefficient count when more
// coefficients than mel bands are requested.
func (e *Extractor) Extract(sg *spectral.Spectrogram) (*Features, error) {
	if e.coefficients < 1 || e.bands < 1 {
		return nil, fmt.Errorf("%w: %d coefficients from %d mel bands",
			ErrInvalidParameters, e.coefficients, e.bands)
	}
	if e.sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %v", ErrInvalidParameters, e.sampleRate)
	}
	if sg == nil || sg.Magnitudes == nil || sg.Bins() < 2 || sg.Frames() == 0 {
		return nil, fmt.Errorf("%w: empty spectrogram", ErrInvalidParameters)
	}

	bins, frames := sg.Magnitudes.Dims()
	bands := max(e.bands, e.coefficients)

	power := mat.NewDense(bins, frames, nil)
	power.Apply(func(_, _ int, v float64) float64 {
		return v * v
	}, sg.Magnitudes)

	var mel mat.Dense
	mel.Mul(MelFilterbank(bands, bins, e.sampleRate), power)
	mel.Apply(func(_, _ int, v float64) float64 {
		return 10 * math.Log10(math.Max(powerFloor, v))
	}, &mel)

	coefficients := mat.NewDense(e.coefficients, frames, nil)
	coefficients.Mul(DCTBasis(e.coefficients, bands), &mel)

	e.logger.WithFields(log.Fields{
		"coefficients": e.coefficients,
		"bands":        bands,
		"frames":       frames,
	}).Debug("cepstral features extracted")

	return &Features{Coefficients: coefficients}, nil
}

// constantScale is the deviation below which a row counts as constant: ten
// machine epsilons, as in scikit-learn's StandardScaler.
var constantScale = 10 * (math.Nextafter(1, 2) - 1)

// Standardize scales every row to zero mean and unit population standard
// deviation across frames. Rows whose deviation is below constantScale
// become zero.
func Standardize(features *Features) *Features {
	rows, frames := features.Coefficients.Dims()
	out := mat.NewDense(rows, frames, nil)

	row := make([]float64, frames)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, features.Coefficients)
		mean, std := stat.PopMeanStdDev(row, nil)
		if !(std >= constantScale) {
			continue
		}
		for j, v := range row {
			out.Set(i, j, (v-mean)/std)
		}
	}
	return &Features{Coefficients: out}
}
