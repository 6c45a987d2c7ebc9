package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rodrigo-brito/stockwave"
)

// parseAnalyzeRequest reads the /analyze query string. Validation of the
// values themselves is left to the analyzer.
func parseAnalyzeRequest(r *http.Request) (stockwave.Request, error) {
	query := r.URL.Query()
	req := stockwave.Request{
		Symbols:  stockwave.ParseSymbols(query.Get("symbols")),
		Universe: strings.TrimSpace(query.Get("stock_set")),
		Interval: query.Get("interval"),
	}

	var err error
	if raw := query.Get("freq_resolution_multiplier"); raw != "" {
		if req.Resolution, err = strconv.ParseFloat(raw, 64); err != nil {
			return req, invalid("freq_resolution_multiplier", raw)
		}
	}
	if raw := query.Get("section_start"); raw != "" {
		if req.SectionStart, err = strconv.Atoi(raw); err != nil {
			return req, invalid("section_start", raw)
		}
	}
	if raw := query.Get("section_end"); raw != "" {
		end, err := strconv.Atoi(raw)
		if err != nil {
			return req, invalid("section_end", raw)
		}
		req.SectionEnd = &end
	}
	if raw := query.Get("refresh"); raw != "" {
		if req.Refresh, err = strconv.ParseBool(raw); err != nil {
			return req, invalid("refresh", raw)
		}
	}
	if req.Start, err = parseDate(query, "start_date"); err != nil {
		return req, err
	}
	if req.End, err = parseDate(query, "end_date"); err != nil {
		return req, err
	}
	return req, nil
}

// parseDate reads an optional YYYY-MM-DD parameter.
func parseDate(query url.Values, key string) (time.Time, error) {
	raw := query.Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	date, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, invalid(key, raw)
	}
	return date, nil
}

func invalid(key, value string) error {
	return fmt.Errorf("%w: invalid %s %q", stockwave.ErrInput, key, value)
}
