package exchange

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/xhit/go-str2duration/v2"

	"github.com/rodrigo-brito/stockwave/model"
)

// SymbolFeed points to a CSV file holding one symbol's history.
type SymbolFeed struct {
	Symbol    string
	File      string
	Timeframe string
}

// CSVFeed serves candles loaded from CSV files, as written by the download
// command. Files may carry a header row; extra columns become metadata.
type CSVFeed struct {
	Feeds                 map[string]SymbolFeed
	CandleSymbolTimeFrame map[string][]model.Candle
}

func parseHeaders(headers []string) (index map[string]int, additional []string, ok bool) {
	headerMap := map[string]int{
		"time": 0, "open": 1, "close": 2, "low": 3, "high": 4, "volume": 5,
	}

	_, err := strconv.Atoi(headers[0])
	if err == nil {
		return headerMap, additional, false
	}

	for index, h := range headers {
		if _, ok := headerMap[h]; !ok {
			additional = append(additional, h)
		}
		headerMap[h] = index
	}

	return headerMap, additional, true
}

// NewCSVFeed loads every feed and resamples it to targetTimeframe.
func NewCSVFeed(targetTimeframe string, feeds ...SymbolFeed) (*CSVFeed, error) {
	csvFeed := &CSVFeed{
		Feeds:                 make(map[string]SymbolFeed),
		CandleSymbolTimeFrame: make(map[string][]model.Candle),
	}

	targetTimeframe, err := NormalizeInterval(targetTimeframe)
	if err != nil {
		return nil, err
	}

	for _, feed := range feeds {
		feed.Timeframe, err = NormalizeInterval(feed.Timeframe)
		if err != nil {
			return nil, err
		}
		csvFeed.Feeds[feed.Symbol] = feed

		candles, err := readCandles(feed)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", feed.File, err)
		}

		csvFeed.CandleSymbolTimeFrame[csvFeed.feedTimeframeKey(feed.Symbol, feed.Timeframe)] = candles

		err = csvFeed.resample(feed.Symbol, feed.Timeframe, targetTimeframe)
		if err != nil {
			return nil, err
		}
	}

	return csvFeed, nil
}

func readCandles(feed SymbolFeed) ([]model.Candle, error) {
	csvFile, err := os.Open(feed.File)
	if err != nil {
		return nil, err
	}
	defer csvFile.Close()

	csvLines, err := csv.NewReader(csvFile).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(csvLines) == 0 {
		return nil, ErrInsufficientData
	}

	headerMap, additionalHeaders, hasCustomHeaders := parseHeaders(csvLines[0])
	if hasCustomHeaders {
		csvLines = csvLines[1:]
	}

	candles := make([]model.Candle, 0, len(csvLines))
	for _, line := range csvLines {
		timestamp, err := strconv.ParseInt(line[headerMap["time"]], 10, 64)
		if err != nil {
			return nil, err
		}

		candle := model.Candle{
			Time:     time.Unix(timestamp, 0).UTC(),
			Symbol:   feed.Symbol,
			Complete: true,
		}

		fields := []struct {
			name   string
			target *float64
		}{
			{"open", &candle.Open},
			{"close", &candle.Close},
			{"low", &candle.Low},
			{"high", &candle.High},
			{"volume", &candle.Volume},
		}
		for _, f := range fields {
			*f.target, err = strconv.ParseFloat(line[headerMap[f.name]], 64)
			if err != nil {
				return nil, err
			}
		}

		if hasCustomHeaders {
			candle.Metadata = make(map[string]float64)
			for _, header := range additionalHeaders {
				candle.Metadata[header], err = strconv.ParseFloat(line[headerMap[header]], 64)
				if err != nil {
					return nil, err
				}
			}
		}

		candles = append(candles, candle)
	}
	return candles, nil
}

func (c CSVFeed) feedTimeframeKey(symbol, timeframe string) string {
	return fmt.Sprintf("%s--%s", symbol, timeframe)
}

// Limit keeps only the trailing duration of every feed.
func (c *CSVFeed) Limit(duration time.Duration) *CSVFeed {
	for key, candles := range c.CandleSymbolTimeFrame {
		if len(candles) == 0 {
			continue
		}
		start := candles[len(candles)-1].Time.Add(-duration)

		c.CandleSymbolTimeFrame[key] = lo.Filter(candles, func(candle model.Candle, _ int) bool {
			return candle.Time.After(start)
		})
	}
	return c
}

func isFirstCandlePeriod(t time.Time, fromTimeframe, targetTimeframe string) (bool, error) {
	fromDuration, err := str2duration.ParseDuration(fromTimeframe)
	if err != nil {
		return false, err
	}

	prev := t.Add(-fromDuration).UTC()

	return isLastCandlePeriod(prev, fromTimeframe, targetTimeframe)
}

func isLastCandlePeriod(t time.Time, fromTimeframe, targetTimeframe string) (bool, error) {
	if fromTimeframe == targetTimeframe {
		return true, nil
	}

	fromDuration, err := str2duration.ParseDuration(fromTimeframe)
	if err != nil {
		return false, err
	}

	next := t.Add(fromDuration).UTC()

	switch targetTimeframe {
	case "1m":
		return next.Second()%60 == 0, nil
	case "5m":
		return next.Minute()%5 == 0, nil
	case "15m":
		return next.Minute()%15 == 0, nil
	case "30m":
		return next.Minute()%30 == 0, nil
	case "1h":
		return next.Minute()%60 == 0, nil
	case "1d":
		return next.Minute() == 0 && next.Hour()%24 == 0, nil
	case "1w":
		return next.Minute() == 0 && next.Hour()%24 == 0 && next.Weekday() == time.Sunday, nil
	}

	return false, fmt.Errorf("%w: %s", ErrInvalidInterval, targetTimeframe)
}

func (c *CSVFeed) resample(symbol, sourceTimeframe, targetTimeframe string) error {
	sourceKey := c.feedTimeframeKey(symbol, sourceTimeframe)
	targetKey := c.feedTimeframeKey(symbol, targetTimeframe)
	source := c.CandleSymbolTimeFrame[sourceKey]

	var i int
	for ; i < len(source); i++ {
		if ok, err := isFirstCandlePeriod(source[i].Time, sourceTimeframe, targetTimeframe); err != nil {
			return err
		} else if ok {
			break
		}
	}

	candles := make([]model.Candle, 0)
	for ; i < len(source); i++ {
		candle := source[i]
		last, err := isLastCandlePeriod(candle.Time, sourceTimeframe, targetTimeframe)
		if err != nil {
			return err
		}
		candle.Complete = last

		lastIndex := len(candles) - 1
		if lastIndex >= 0 && !candles[lastIndex].Complete {
			candle.Time = candles[lastIndex].Time
			candle.Open = candles[lastIndex].Open
			candle.High = math.Max(candles[lastIndex].High, candle.High)
			candle.Low = math.Min(candles[lastIndex].Low, candle.Low)
			candle.Volume += candles[lastIndex].Volume
			candles = candles[:lastIndex]
		}
		candles = append(candles, candle)
	}

	if len(candles) > 0 && !candles[len(candles)-1].Complete {
		candles = candles[:len(candles)-1]
	}

	c.CandleSymbolTimeFrame[targetKey] = candles
	return nil
}

// CandlesByPeriod returns the bars of symbol within [start, end]. Zero
// bounds are open.
func (c CSVFeed) CandlesByPeriod(_ context.Context, symbol, timeframe string,
	start, end time.Time) ([]model.Candle, error) {

	if canonical, err := NormalizeInterval(timeframe); err == nil {
		timeframe = canonical
	}
	key := c.feedTimeframeKey(symbol, timeframe)
	source, ok := c.CandleSymbolTimeFrame[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", ErrUnknownSymbol, symbol, timeframe)
	}

	return lo.Filter(source, func(candle model.Candle, _ int) bool {
		if !start.IsZero() && candle.Time.Before(start) {
			return false
		}
		if !end.IsZero() && candle.Time.After(end) {
			return false
		}
		return true
	}), nil
}
