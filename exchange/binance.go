package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"

	"github.com/rodrigo-brito/stockwave/model"
	"github.com/rodrigo-brito/stockwave/tools/log"
)

const binanceKlineLimit = 1000

var binanceIntervals = map[string]string{
	"1m": "1m", "5m": "5m", "15m": "15m", "30m": "30m", "1h": "1h",
	"1d": "1d", "1w": "1w", "1mo": "1M",
}

// Binance reads spot klines, for crypto pairs such as BTCUSDT.
type Binance struct {
	client *binance.Client
	logger log.Logger

	APIKey    string
	APISecret string
	BaseURL   string
	SkipPing  bool
}

type BinanceOption func(*Binance)

func WithBinanceCredentials(key, secret string) BinanceOption {
	return func(b *Binance) {
		b.APIKey = key
		b.APISecret = secret
	}
}

func WithBinanceBaseURL(base string) BinanceOption {
	return func(b *Binance) {
		b.BaseURL = base
	}
}

func WithBinanceLogger(logger log.Logger) BinanceOption {
	return func(b *Binance) {
		b.logger = logger
	}
}

// NewBinance creates the client and pings the API.
func NewBinance(ctx context.Context, options ...BinanceOption) (*Binance, error) {
	exchange := &Binance{}
	for _, option := range options {
		option(exchange)
	}
	exchange.logger = log.OrDiscard(exchange.logger)

	exchange.client = binance.NewClient(exchange.APIKey, exchange.APISecret)
	if exchange.BaseURL != "" {
		exchange.client.BaseURL = exchange.BaseURL
	}

	if !exchange.SkipPing {
		if err := exchange.client.NewPingService().Do(ctx); err != nil {
			return nil, fmt.Errorf("binance ping fail: %w", err)
		}
	}

	exchange.logger.Info("[SETUP] Using Binance price source")
	return exchange, nil
}

// CandlesByPeriod pages through klines between start and end.
func (b *Binance) CandlesByPeriod(ctx context.Context, symbol, period string,
	start, end time.Time) ([]model.Candle, error) {

	canonical, err := NormalizeInterval(period)
	if err != nil {
		return nil, err
	}
	interval, ok := binanceIntervals[canonical]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not available on binance", ErrInvalidInterval, period)
	}
	if end.IsZero() {
		end = time.Now()
	}

	candles := make([]model.Candle, 0)
	from := start.UnixMilli()
	for {
		data, err := b.client.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(from).
			EndTime(end.UnixMilli()).
			Limit(binanceKlineLimit).
			Do(ctx)
		if err != nil {
			return nil, err
		}

		for _, d := range data {
			candles = append(candles, CandleFromKline(symbol, *d))
		}

		if len(data) < binanceKlineLimit {
			break
		}
		from = data[len(data)-1].OpenTime + 1
	}

	return candles, nil
}

func CandleFromKline(symbol string, k binance.Kline) model.Candle {
	candle := model.Candle{
		Symbol:   symbol,
		Time:     time.UnixMilli(k.OpenTime).UTC(),
		Complete: true,
	}
	candle.Open, _ = strconv.ParseFloat(k.Open, 64)
	candle.Close, _ = strconv.ParseFloat(k.Close, 64)
	candle.High, _ = strconv.ParseFloat(k.High, 64)
	candle.Low, _ = strconv.ParseFloat(k.Low, 64)
	candle.Volume, _ = strconv.ParseFloat(k.Volume, 64)
	return candle
}
