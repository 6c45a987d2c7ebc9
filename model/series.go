package model

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// Series is an ordered sequence of samples indexed from 0.
type Series[T constraints.Ordered] []T

// Values returns the underlying samples.
func (s Series[T]) Values() []T {
	return s
}

// Length returns the number of samples.
func (s Series[T]) Length() int {
	return len(s)
}

// Last returns the value at the given distance from the end.
func (s Series[T]) Last(position int) T {
	return s[len(s)-1-position]
}

// LastValues returns the trailing size samples, or the whole series when shorter.
func (s Series[T]) LastValues(size int) []T {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

// Section returns a copy of the half open range [start, end). Bounds are
// clamped to the series.
func (s Series[T]) Section(start, end int) Series[T] {
	if start < 0 {
		start = 0
	}
	if end > len(s) {
		end = len(s)
	}
	if start >= end {
		return Series[T]{}
	}
	out := make(Series[T], end-start)
	copy(out, s[start:end])
	return out
}

// Copy returns an independent copy of the series.
func (s Series[T]) Copy() Series[T] {
	out := make(Series[T], len(s))
	copy(out, s)
	return out
}

// PriceSeries is a sequence of closing prices.
type PriceSeries = Series[float64]

// Finite reports whether every sample is a finite number.
func Finite(s []float64) bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// NumDecPlaces returns the number of decimal places of v.
func NumDecPlaces(v float64) int64 {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	i := strings.IndexByte(s, '.')
	if i > -1 {
		return int64(len(s) - i - 1)
	}
	return 0
}
