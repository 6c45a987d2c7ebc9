// Package exchange provides price history sources and the wrappers that make
// them safe to share across concurrent symbol pipelines.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"

	"github.com/rodrigo-brito/stockwave/model"
	"github.com/rodrigo-brito/stockwave/service"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidInterval  = errors.New("invalid interval")
	ErrUnknownSymbol    = errors.New("unknown symbol")
	ErrUnknownUniverse  = errors.New("unknown universe")
)

// DefaultInterval is the sampling interval used when none is given.
const DefaultInterval = "1d"

var intervalAliases = map[string]string{
	"1m":  "1m",
	"2m":  "2m",
	"5m":  "5m",
	"15m": "15m",
	"30m": "30m",
	"60m": "1h",
	"1h":  "1h",
	"1d":  "1d",
	"5d":  "5d",
	"1w":  "1w",
	"1wk": "1w",
	"1mo": "1mo",
	"1M":  "1mo",
	"3mo": "3mo",
}

// NormalizeInterval maps accepted spellings (1wk, 60m, 1M...) to the
// canonical interval names used across sources. Empty selects the default.
func NormalizeInterval(interval string) (string, error) {
	if interval == "" {
		return DefaultInterval, nil
	}
	if canonical, ok := intervalAliases[interval]; ok {
		return canonical, nil
	}
	if canonical, ok := intervalAliases[strings.ToLower(interval)]; ok {
		return canonical, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidInterval, interval)
}

// Intervals lists the canonical interval names.
func Intervals() []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(intervalAliases))
	for _, canonical := range intervalAliases {
		if !seen[canonical] {
			seen[canonical] = true
			out = append(out, canonical)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di, _ := IntervalDuration(out[i])
		dj, _ := IntervalDuration(out[j])
		return di < dj
	})
	return out
}

// IntervalDuration returns the nominal length of one bar. Months count as
// 30 days.
func IntervalDuration(interval string) (time.Duration, error) {
	canonical, err := NormalizeInterval(interval)
	if err != nil {
		return 0, err
	}
	switch canonical {
	case "1mo":
		return 30 * 24 * time.Hour, nil
	case "3mo":
		return 90 * 24 * time.Hour, nil
	}
	return str2duration.ParseDuration(canonical)
}

// Closes fetches candles and returns their closing prices.
func Closes(ctx context.Context, feeder service.Feeder, symbol, interval string,
	start, end time.Time) (model.PriceSeries, error) {

	candles, err := feeder.CandlesByPeriod(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}
	return model.NewDataframe(symbol, candles).Prices(), nil
}
