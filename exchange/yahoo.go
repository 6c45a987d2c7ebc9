package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rodrigo-brito/stockwave/model"
	"github.com/rodrigo-brito/stockwave/tools/log"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

var yahooIntervals = map[string]string{
	"1m": "1m", "2m": "2m", "5m": "5m", "15m": "15m", "30m": "30m", "1h": "60m",
	"1d": "1d", "5d": "5d", "1w": "1wk", "1mo": "1mo", "3mo": "3mo",
}

// Yahoo reads price history from the Yahoo Finance chart endpoint.
type Yahoo struct {
	BaseURL   string
	UserAgent string

	client *http.Client
	logger log.Logger
}

type YahooOption func(*Yahoo)

func WithYahooBaseURL(base string) YahooOption {
	return func(y *Yahoo) {
		y.BaseURL = strings.TrimRight(base, "/")
	}
}

func WithYahooHTTPClient(client *http.Client) YahooOption {
	return func(y *Yahoo) {
		y.client = client
	}
}

func WithYahooLogger(logger log.Logger) YahooOption {
	return func(y *Yahoo) {
		y.logger = logger
	}
}

func NewYahoo(options ...YahooOption) *Yahoo {
	yahoo := &Yahoo{
		BaseURL:   yahooBaseURL,
		UserAgent: "Mozilla/5.0 (compatible; stockwave)",
		client:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, option := range options {
		option(yahoo)
	}
	yahoo.logger = log.OrDiscard(yahoo.logger)
	return yahoo
}

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// CandlesByPeriod fetches bars of symbol between start and end. A zero start
// requests the full history and a zero end means now.
func (y *Yahoo) CandlesByPeriod(ctx context.Context, symbol, period string,
	start, end time.Time) ([]model.Candle, error) {

	interval, err := NormalizeInterval(period)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("interval", yahooIntervals[interval])
	query.Set("events", "history")
	query.Set("includeAdjustedClose", "true")
	if start.IsZero() {
		query.Set("range", "max")
	} else {
		if end.IsZero() {
			end = time.Now()
		}
		query.Set("period1", strconv.FormatInt(start.Unix(), 10))
		query.Set("period2", strconv.FormatInt(end.Unix(), 10))
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", y.BaseURL, url.PathEscape(symbol), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", y.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo %s: status %d: %w", symbol, resp.StatusCode, err)
	}
	if chart.Chart.Error != nil {
		if resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s: %s", ErrUnknownSymbol, symbol, chart.Chart.Error.Description)
		}
		return nil, fmt.Errorf("yahoo %s: %s", symbol, chart.Chart.Error.Description)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo %s: unexpected status %d", symbol, resp.StatusCode)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return []model.Candle{}, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	candles := make([]model.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePrice, ok := at(quote.Close, i)
		if !ok {
			continue
		}
		candle := model.Candle{
			Symbol:   symbol,
			Time:     time.Unix(ts, 0).UTC(),
			Close:    closePrice,
			Complete: true,
		}
		candle.Open, _ = at(quote.Open, i)
		candle.High, _ = at(quote.High, i)
		candle.Low, _ = at(quote.Low, i)
		candle.Volume, _ = at(quote.Volume, i)
		candles = append(candles, candle)
	}

	y.logger.WithFields(log.Fields{
		"symbol":   symbol,
		"interval": interval,
		"candles":  len(candles),
	}).Debug("yahoo candles fetched")

	return candles, nil
}

func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}
