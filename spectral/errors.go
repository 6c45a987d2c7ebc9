package spectral

import "errors"

var (
	ErrInsufficientData  = errors.New("insufficient data")
	ErrTransform         = errors.New("spectral transform failed")
	ErrInvalidParameters = errors.New("invalid spectral parameters")
)
