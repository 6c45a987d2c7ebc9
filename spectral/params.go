package spectral

import (
	"fmt"
	"math"

	"github.com/rodrigo-brito/stockwave/tools/log"
)

// MinWindow is the smallest window that still leaves room for an overlap
// strictly between zero and the window length.
const MinWindow = 2

// Parameters are the resolved windowing parameters of one transform.
type Parameters struct {
	WindowSize     int     `json:"window_size"`
	Multiplier     float64 `json:"multiplier"`
	AdjustedWindow int     `json:"adjusted_window"`
	Hop            int     `json:"hop"`
	Overlap        int     `json:"overlap"`
}

// Step returns the distance between consecutive frames.
func (p Parameters) Step() int {
	return p.AdjustedWindow - p.Overlap
}

// ResolveParameters normalizes a window selection into parameters the
// transform accepts. A nil hop selects a quarter of the adjusted window.
// After resolution 0 < Overlap < AdjustedWindow holds for any hop.
func ResolveParameters(windowSize int, hop *int, multiplier float64, logger log.Logger) (Parameters, error) {
	logger = log.OrDiscard(logger)

	if windowSize < 1 {
		return Parameters{}, fmt.Errorf("%w: window size %d", ErrInvalidParameters, windowSize)
	}
	if math.IsNaN(multiplier) || math.IsInf(multiplier, 0) || multiplier <= 0 {
		return Parameters{}, fmt.Errorf("%w: resolution multiplier %v", ErrInvalidParameters, multiplier)
	}

	adjusted := int(math.Floor(float64(windowSize) * multiplier))
	if adjusted < MinWindow {
		logger.WithFields(log.Fields{
			"window":     windowSize,
			"multiplier": multiplier,
			"adjusted":   adjusted,
		}).Warnf("adjusted window below %d, raising it", MinWindow)
		adjusted = MinWindow
	}

	step := adjusted / 4
	if hop != nil {
		step = *hop
	}

	fields := logger.WithFields(log.Fields{"window": adjusted, "hop": step})
	fields.Debug("initial spectral parameters")

	if step <= 0 {
		fields.Warn("hop <= 0, setting hop to 1")
		step = 1
	} else if step >= adjusted {
		fields.Warnf("hop >= window, setting hop to %d", adjusted-1)
		step = adjusted - 1
	}

	overlap := adjusted - step
	if overlap >= adjusted {
		fields.WithField("overlap", overlap).Warnf("overlap >= window, setting overlap to %d", adjusted/2)
		overlap = adjusted / 2
	}
	if overlap >= adjusted {
		fields.WithField("overlap", overlap).Errorf("overlap still >= window, forcing %d", adjusted-1)
		overlap = adjusted - 1
	}

	params := Parameters{
		WindowSize:     windowSize,
		Multiplier:     multiplier,
		AdjustedWindow: adjusted,
		Hop:            step,
		Overlap:        overlap,
	}
	logger.WithFields(log.Fields{
		"window":  params.AdjustedWindow,
		"hop":     params.Hop,
		"overlap": params.Overlap,
	}).Debug("resolved spectral parameters")

	return params, nil
}

// FrameCount returns the number of frames a series of length n yields with
// the given window and overlap. Both sides are padded by window/2 zeros and
// the tail is padded so that the last frame is complete.
func FrameCount(n, window, overlap int) int {
	step := window - overlap
	if n < window || step <= 0 {
		return 0
	}
	extended := n + 2*(window/2)
	return (extended+tailPadding(extended, window, step)-window)/step + 1
}

func tailPadding(extended, window, step int) int {
	return (step - (extended-window)%step) % step
}
