package indicator

import (
	"sync"
)

// Params selects indicator periods.
type Params struct {
	SMAPeriod   int     `json:"sma_period" yaml:"sma_period" validate:"gte=1"`
	RSIPeriod   int     `json:"rsi_period" yaml:"rsi_period" validate:"gte=1"`
	MACDFast    int     `json:"macd_fast" yaml:"macd_fast" validate:"gte=1"`
	MACDSlow    int     `json:"macd_slow" yaml:"macd_slow" validate:"gte=1"`
	MACDSignal  int     `json:"macd_signal" yaml:"macd_signal" validate:"gte=1"`
	BandPeriod  int     `json:"band_period" yaml:"band_period" validate:"gte=1"`
	BandDevUp   float64 `json:"band_dev_up" yaml:"band_dev_up" validate:"gte=0"`
	BandDevDown float64 `json:"band_dev_down" yaml:"band_dev_down" validate:"gte=0"`
}

// DefaultParams returns the conventional periods.
func DefaultParams() Params {
	return Params{
		SMAPeriod:   DefaultSMAPeriod,
		RSIPeriod:   DefaultRSIPeriod,
		MACDFast:    DefaultMACDFast,
		MACDSlow:    DefaultMACDSlow,
		MACDSignal:  DefaultMACDSignal,
		BandPeriod:  DefaultBandPeriod,
		BandDevUp:   DefaultBandDevUp,
		BandDevDown: DefaultBandDevDown,
	}
}

// Set bundles all indicators of one price series.
type Set struct {
	SMA       Series      `json:"sma"`
	RSI       Series      `json:"rsi"`
	MACD      MACDResult  `json:"macd"`
	Bollinger BandsResult `json:"bollinger_bands"`
}

// Compute builds the full indicator set.
func Compute(prices []float64, params Params) Set {
	engine := NewEngine(prices)
	engine.SMA(params.SMAPeriod)
	engine.RSI(params.RSIPeriod)
	engine.MACD(params.MACDFast, params.MACDSlow, params.MACDSignal)
	engine.BollingerBands(params.BandPeriod, params.BandDevUp, params.BandDevDown)
	return engine.Snapshot()
}

// Engine is the stateful form of the indicator functions. It accumulates
// indicators over a fixed price series; each call replaces its own entry and
// Snapshot returns a copy of what was computed so far.
type Engine struct {
	mu     sync.Mutex
	prices []float64
	set    Set
}

func NewEngine(prices []float64) *Engine {
	cp := make([]float64, len(prices))
	copy(cp, prices)
	return &Engine{prices: cp}
}

func (e *Engine) SMA(period int) Series {
	out := SMA(e.prices, period)
	e.mu.Lock()
	e.set.SMA = out
	e.mu.Unlock()
	return out
}

func (e *Engine) RSI(period int) Series {
	out := RSI(e.prices, period)
	e.mu.Lock()
	e.set.RSI = out
	e.mu.Unlock()
	return out
}

func (e *Engine) MACD(fast, slow, signal int) MACDResult {
	out := MACD(e.prices, fast, slow, signal)
	e.mu.Lock()
	e.set.MACD = out
	e.mu.Unlock()
	return out
}

func (e *Engine) BollingerBands(period int, devUp, devDown float64) BandsResult {
	out := BollingerBands(e.prices, period, devUp, devDown)
	e.mu.Lock()
	e.set.Bollinger = out
	e.mu.Unlock()
	return out
}

// Snapshot returns a deep copy of the accumulated indicators.
func (e *Engine) Snapshot() Set {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Set{
		SMA:  clone(e.set.SMA),
		RSI:  clone(e.set.RSI),
		MACD: MACDResult{
			MACD:   clone(e.set.MACD.MACD),
			Signal: clone(e.set.MACD.Signal),
			Hist:   clone(e.set.MACD.Hist),
		},
		Bollinger: BandsResult{
			Upper:  clone(e.set.Bollinger.Upper),
			Middle: clone(e.set.Bollinger.Middle),
			Lower:  clone(e.set.Bollinger.Lower),
		},
	}
}

func clone(s Series) Series {
	if s == nil {
		return nil
	}
	out := make(Series, len(s))
	copy(out, s)
	return out
}
