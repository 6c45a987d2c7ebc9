// Package indicator computes technical indicators over closing prices.
// Every output is aligned with its input; positions inside the warm-up
// window hold NaN and encode to JSON null.
package indicator

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Series is an indicator output aligned index for index with the prices.
type Series []float64

func undefined(n int) Series {
	out := make(Series, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// mask replaces the first n values with NaN.
func mask(values []float64, n int) Series {
	out := Series(values)
	for i := 0; i < n && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

// Defined reports whether position i holds a value.
func (s Series) Defined(i int) bool {
	return i >= 0 && i < len(s) && !math.IsNaN(s[i])
}

// FirstDefined returns the first defined index, or -1.
func (s Series) FirstDefined() int {
	for i := range s {
		if s.Defined(i) {
			return i
		}
	}
	return -1
}

// Last returns the last value, NaN for an empty series.
func (s Series) Last() float64 {
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	buf := bytes.NewBuffer(make([]byte, 0, len(s)*8))
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func (s *Series) UnmarshalJSON(data []byte) error {
	var values []*float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	out := make(Series, len(values))
	for i, v := range values {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*s = out
	return nil
}
