package stockwave

import (
	"fmt"
	"strings"
	"time"

	"github.com/StudioSol/set"
	"github.com/samber/lo"

	"github.com/rodrigo-brito/stockwave/exchange"
)

const maxSymbols = 500

// Request describes one batch analysis.
//
// Symbols are used only when Universe is empty. SectionStart applies only
// together with SectionEnd; both index the fetched series as a half open
// range and are clamped to it.
type Request struct {
	Symbols      []string  `json:"symbols" validate:"omitempty,max=500,dive,max=32"`
	Universe     string    `json:"stock_set" validate:"omitempty,max=32"`
	Resolution   float64   `json:"freq_resolution_multiplier" validate:"gte=1"`
	SectionStart int       `json:"section_start" validate:"gte=0"`
	SectionEnd   *int      `json:"section_end" validate:"omitempty,gte=0"`
	Start        time.Time `json:"start_date"`
	End          time.Time `json:"end_date"`
	Interval     string    `json:"interval"`
	Refresh      bool      `json:"refresh"`
}

func (r Request) withDefaults() Request {
	if r.Resolution == 0 {
		r.Resolution = 1
	}
	if r.Interval == "" {
		r.Interval = exchange.DefaultInterval
	}
	return r
}

// ParseSymbols splits a comma separated list, trimming and upper casing each
// entry. Empty entries are dropped and duplicates keep their first position.
func ParseSymbols(raw string) []string {
	return normalizeSymbols(strings.Split(raw, ","))
}

func normalizeSymbols(symbols []string) []string {
	cleaned := lo.Map(symbols, func(s string, _ int) string {
		return strings.ToUpper(strings.TrimSpace(s))
	})
	cleaned = lo.Filter(cleaned, func(s string, _ int) bool {
		return s != ""
	})

	unique := set.NewLinkedHashSetString()
	for _, symbol := range cleaned {
		unique.Add(symbol)
	}

	out := make([]string, 0, len(cleaned))
	for symbol := range unique.Iter() {
		out = append(out, symbol)
	}
	return out
}

func (r Request) symbols() ([]string, error) {
	if strings.TrimSpace(r.Universe) != "" {
		symbols, err := exchange.Universe(r.Universe)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInput, err)
		}
		return symbols, nil
	}

	if len(r.Symbols) == 0 {
		return nil, fmt.Errorf("%w: either symbols or stock_set must be provided", ErrInput)
	}
	symbols := normalizeSymbols(r.Symbols)
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: no valid symbols provided", ErrInput)
	}
	if len(symbols) > maxSymbols {
		return nil, fmt.Errorf("%w: at most %d symbols per request", ErrInput, maxSymbols)
	}
	return symbols, nil
}

// section returns the selected range of prices and its effective bounds.
func (r Request) section(prices PriceSeries) (PriceSeries, int, int) {
	if r.SectionEnd == nil {
		return prices, 0, len(prices)
	}
	start, end := r.SectionStart, *r.SectionEnd
	if end > len(prices) {
		end = len(prices)
	}
	if start > end {
		start = end
	}
	return prices.Section(start, end), start, end
}

// cacheKey identifies requests that produce the same artifacts.
func (r Request) cacheKey() string {
	date := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(time.DateOnly)
	}
	section := "all"
	if r.SectionEnd != nil {
		section = fmt.Sprintf("%d:%d", r.SectionStart, *r.SectionEnd)
	}
	return fmt.Sprintf("interval=%s;start=%s;end=%s;section=%s",
		r.Interval, date(r.Start), date(r.End), section)
}
