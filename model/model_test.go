package model

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSeries_Section(t *testing.T) {
	s := Series[float64]{1, 2, 3, 4, 5}

	tt := []struct {
		name       string
		start, end int
		expected   Series[float64]
	}{
		{"full", 0, 5, Series[float64]{1, 2, 3, 4, 5}},
		{"middle", 1, 3, Series[float64]{2, 3}},
		{"clamped", -2, 10, Series[float64]{1, 2, 3, 4, 5}},
		{"empty", 3, 3, Series[float64]{}},
		{"inverted", 4, 2, Series[float64]{}},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, s.Section(tc.start, tc.end))
		})
	}

	t.Run("section is a copy", func(t *testing.T) {
		section := s.Section(0, 2)
		section[0] = 100
		require.Equal(t, 1.0, s[0])
	})
}

func TestSeries_Last(t *testing.T) {
	s := Series[int]{1, 2, 3}
	require.Equal(t, 3, s.Last(0))
	require.Equal(t, 2, s.Last(1))
	require.Equal(t, []int{2, 3}, s.LastValues(2))
	require.Equal(t, []int{1, 2, 3}, s.LastValues(10))
	require.Equal(t, 3, s.Length())
}

func TestFinite(t *testing.T) {
	require.True(t, Finite([]float64{1, 2}))
	require.False(t, Finite([]float64{1, math.NaN()}))
	require.False(t, Finite([]float64{math.Inf(1)}))
}

func TestNumDecPlaces(t *testing.T) {
	require.Equal(t, int64(0), NumDecPlaces(10))
	require.Equal(t, int64(3), NumDecPlaces(1.125))
}

func TestNewDataframe(t *testing.T) {
	now := time.Now()
	candles := []Candle{
		{Symbol: "AAPL", Time: now, Close: 10, Open: 9},
		{Symbol: "AAPL", Time: now.Add(time.Hour), Close: 11, Open: 10},
		{Symbol: "AAPL", Time: now.Add(2 * time.Hour), Close: 12, Open: 11},
	}

	df := NewDataframe("AAPL", candles)
	require.Equal(t, PriceSeries{10, 11, 12}, df.Prices())
	require.Len(t, df.Time, 3)

	sample := df.Sample(2)
	require.Equal(t, Series[float64]{11, 12}, sample.Close)
	require.Equal(t, now.Add(time.Hour), sample.Time[0])
}

func TestCandle_ToSlice(t *testing.T) {
	c := Candle{Time: time.Unix(60, 0), Open: 1.5, Close: 2, Low: 1, High: 3, Volume: 10}
	require.Equal(t, []string{"60", "1.50", "2.00", "1.00", "3.00", "10.00"}, c.ToSlice(2))
	require.False(t, c.Empty())
	require.True(t, Candle{}.Empty())
}
