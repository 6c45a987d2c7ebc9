package model

import (
	"fmt"
	"strconv"
	"time"
)

// Candle is one bar of a symbol's price history.
type Candle struct {
	Symbol string
	Time   time.Time
	Open   float64
	Close  float64
	Low    float64
	High   float64
	Volume float64

	// Complete is false for a bar still being aggregated.
	Complete bool

	// extra columns read from CSV input
	Metadata map[string]float64
}

// Empty reports whether the candle carries no data.
func (c Candle) Empty() bool {
	return c.Symbol == "" && c.Close == 0 && c.Open == 0 && c.Volume == 0
}

// ToSlice renders the candle as a CSV record.
func (c Candle) ToSlice(precision int) []string {
	return []string{
		fmt.Sprintf("%d", c.Time.Unix()),
		strconv.FormatFloat(c.Open, 'f', precision, 64),
		strconv.FormatFloat(c.Close, 'f', precision, 64),
		strconv.FormatFloat(c.Low, 'f', precision, 64),
		strconv.FormatFloat(c.High, 'f', precision, 64),
		strconv.FormatFloat(c.Volume, 'f', precision, 64),
	}
}

// Dataframe holds a symbol's history column by column.
type Dataframe struct {
	Symbol string

	Close  Series[float64]
	Open   Series[float64]
	High   Series[float64]
	Low    Series[float64]
	Volume Series[float64]

	Time []time.Time
}

// NewDataframe builds a dataframe from candles ordered by time.
func NewDataframe(symbol string, candles []Candle) Dataframe {
	df := Dataframe{
		Symbol: symbol,
		Close:  make(Series[float64], 0, len(candles)),
		Open:   make(Series[float64], 0, len(candles)),
		High:   make(Series[float64], 0, len(candles)),
		Low:    make(Series[float64], 0, len(candles)),
		Volume: make(Series[float64], 0, len(candles)),
		Time:   make([]time.Time, 0, len(candles)),
	}
	for _, c := range candles {
		df.Close = append(df.Close, c.Close)
		df.Open = append(df.Open, c.Open)
		df.High = append(df.High, c.High)
		df.Low = append(df.Low, c.Low)
		df.Volume = append(df.Volume, c.Volume)
		df.Time = append(df.Time, c.Time)
	}
	return df
}

// Sample returns the last positions rows of the dataframe.
func (df Dataframe) Sample(positions int) Dataframe {
	size := len(df.Time)
	start := size - positions
	if start <= 0 {
		return df
	}

	return Dataframe{
		Symbol: df.Symbol,
		Close:  df.Close.LastValues(positions),
		Open:   df.Open.LastValues(positions),
		High:   df.High.LastValues(positions),
		Low:    df.Low.LastValues(positions),
		Volume: df.Volume.LastValues(positions),
		Time:   df.Time[start:],
	}
}

// Prices returns the closing price series.
func (df Dataframe) Prices() PriceSeries {
	return df.Close.Copy()
}
