// Package spectral computes magnitude spectrograms of price series.
package spectral

import (
	"fmt"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/rodrigo-brito/stockwave/model"
	"github.com/rodrigo-brito/stockwave/tools/log"
)

const DefaultWindowSize = 256

// Spectrogram holds STFT magnitudes, one row per frequency bin and one column
// per time frame.
type Spectrogram struct {
	Magnitudes *mat.Dense
	Parameters Parameters
}

// Bins returns the number of frequency bins.
func (s *Spectrogram) Bins() int {
	r, _ := s.Magnitudes.Dims()
	return r
}

// Frames returns the number of time frames.
func (s *Spectrogram) Frames() int {
	_, c := s.Magnitudes.Dims()
	return c
}

type Option func(*Analyzer)

func WithWindowSize(size int) Option {
	return func(a *Analyzer) {
		a.windowSize = size
	}
}

// WithHopSize sets the frame step. Out of range values are clamped.
func WithHopSize(hop int) Option {
	return func(a *Analyzer) {
		a.hop = &hop
	}
}

// WithResolution scales the window length; values above 1 trade time frames
// for frequency resolution.
func WithResolution(multiplier float64) Option {
	return func(a *Analyzer) {
		a.multiplier = multiplier
	}
}

func WithLogger(logger log.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

type Analyzer struct {
	windowSize int
	hop        *int
	multiplier float64
	logger     log.Logger
}

func NewAnalyzer(options ...Option) *Analyzer {
	analyzer := &Analyzer{
		windowSize: DefaultWindowSize,
		multiplier: 1,
	}
	for _, option := range options {
		option(analyzer)
	}
	analyzer.logger = log.OrDiscard(analyzer.logger)
	return analyzer
}

// Compute is a shorthand for NewAnalyzer(options...).Compute(series).
func Compute(series []float64, options ...Option) (*Spectrogram, error) {
	return NewAnalyzer(options...).Compute(series)
}

// Parameters resolves the analyzer configuration.
func (a *Analyzer) Parameters() (Parameters, error) {
	return ResolveParameters(a.windowSize, a.hop, a.multiplier, a.logger)
}

// Compute returns the magnitude spectrogram of series.
func (a *Analyzer) Compute(series []float64) (*Spectrogram, error) {
	params, err := a.Parameters()
	if err != nil {
		return nil, err
	}

	window := params.AdjustedWindow
	if len(series) < window {
		return nil, fmt.Errorf("%w: %d samples, window %d", ErrInsufficientData, len(series), window)
	}
	if !model.Finite(series) {
		return nil, fmt.Errorf("%w: series contains non finite values", ErrTransform)
	}

	step := params.Step()
	half := window / 2
	extended := len(series) + 2*half
	padded := make([]float64, extended+tailPadding(extended, window, step))
	copy(padded[half:], series)

	frames := FrameCount(len(series), window, params.Overlap)
	if got := (len(padded)-window)/step + 1; got != frames {
		return nil, fmt.Errorf("%w: expected %d frames, got %d", ErrTransform, frames, got)
	}

	hann := Hann(window)
	scale := 1 / floats.Sum(hann)
	bins := window/2 + 1

	fft := fourier.NewFFT(window)
	magnitudes := mat.NewDense(bins, frames, nil)
	segment := make([]float64, window)
	coefficients := make([]complex128, bins)

	for frame := 0; frame < frames; frame++ {
		start := frame * step
		floats.MulTo(segment, padded[start:start+window], hann)

		coefficients = fft.Coefficients(coefficients, segment)
		if len(coefficients) != bins {
			return nil, fmt.Errorf("%w: expected %d bins, got %d", ErrTransform, bins, len(coefficients))
		}
		for bin, c := range coefficients {
			magnitudes.Set(bin, frame, cmplx.Abs(c)*scale)
		}
	}

	a.logger.WithFields(log.Fields{
		"window":  window,
		"overlap": params.Overlap,
		"bins":    bins,
		"frames":  frames,
	}).Debug("spectrogram computed")

	return &Spectrogram{
		Magnitudes: magnitudes,
		Parameters: params,
	}, nil
}
