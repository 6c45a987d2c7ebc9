package indicator

import (
	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	DefaultSMAPeriod   = 20
	DefaultRSIPeriod   = 14
	DefaultMACDFast    = 12
	DefaultMACDSlow    = 26
	DefaultMACDSignal  = 9
	DefaultBandPeriod  = 20
	DefaultBandDevUp   = 2.0
	DefaultBandDevDown = 2.0

	rsiUpper = 100.0
	rsiLower = 0.0
)

// SMA is the simple moving average of the trailing period values.
func SMA(prices []float64, period int) Series {
	if period < 1 || len(prices) < period {
		return undefined(len(prices))
	}
	return mask(talib.Sma(prices, period), period-1)
}

// EMA is the exponential moving average with smoothing 2/(period+1), seeded
// by the simple average of the first period values.
func EMA(prices []float64, period int) Series {
	if period < 1 || len(prices) < period {
		return undefined(len(prices))
	}
	return mask(talib.Ema(prices, period), period-1)
}

// RSI is the relative strength index with Wilder smoothing. The first value
// is defined at index period, once period price changes are known.
func RSI(prices []float64, period int) Series {
	out := undefined(len(prices))
	if period < 1 || len(prices) <= period {
		return out
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	out[period] = relativeStrength(avgGain, avgLoss)

	n := float64(period)
	for i := period + 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		up, down := 0.0, 0.0
		if change > 0 {
			up = change
		} else {
			down = -change
		}
		avgGain = (avgGain*(n-1) + up) / n
		avgLoss = (avgLoss*(n-1) + down) / n
		out[i] = relativeStrength(avgGain, avgLoss)
	}
	return out
}

func relativeStrength(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return rsiUpper
	}
	if avgGain == 0 {
		return rsiLower
	}
	return 100 - 100/(1+avgGain/avgLoss)
}

// MACDResult holds the three oscillator lines.
type MACDResult struct {
	MACD   Series `json:"macd"`
	Signal Series `json:"macdsignal"`
	Hist   Series `json:"macdhist"`
}

// MACD is the difference of the fast and slow EMAs, its signal EMA and the
// histogram between them. hist equals macd minus signal wherever defined.
func MACD(prices []float64, fast, slow, signal int) MACDResult {
	n := len(prices)
	result := MACDResult{
		MACD:   undefined(n),
		Signal: undefined(n),
		Hist:   undefined(n),
	}
	if fast < 1 || slow < 1 || signal < 1 {
		return result
	}

	fastEMA, slowEMA := EMA(prices, fast), EMA(prices, slow)
	start := max(fast, slow) - 1
	if n <= start {
		return result
	}
	for i := start; i < n; i++ {
		result.MACD[i] = fastEMA[i] - slowEMA[i]
	}

	line := EMA(result.MACD[start:], signal)
	for i, v := range line {
		if !line.Defined(i) {
			continue
		}
		result.Signal[start+i] = v
		result.Hist[start+i] = result.MACD[start+i] - v
	}
	return result
}

// BandsResult holds the volatility bands.
type BandsResult struct {
	Upper  Series `json:"upperband"`
	Middle Series `json:"middleband"`
	Lower  Series `json:"lowerband"`
}

// BollingerBands places bands devUp and devDown population standard
// deviations around the simple moving average.
func BollingerBands(prices []float64, period int, devUp, devDown float64) BandsResult {
	n := len(prices)
	if period < 1 || n < period {
		return BandsResult{Upper: undefined(n), Middle: undefined(n), Lower: undefined(n)}
	}

	middle := SMA(prices, period)
	result := BandsResult{Upper: undefined(n), Middle: middle, Lower: undefined(n)}
	for i := period - 1; i < n; i++ {
		std := windowStdDev(prices[i-period+1 : i+1])
		result.Upper[i] = middle[i] + devUp*std
		result.Lower[i] = middle[i] - devDown*std
	}
	return result
}

// windowStdDev is the population deviation around the window mean. Flat
// windows are exactly zero.
func windowStdDev(window []float64) float64 {
	if floats.Max(window) == floats.Min(window) {
		return 0
	}
	return stat.PopStdDev(window, nil)
}
