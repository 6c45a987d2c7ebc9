package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"

	"github.com/rodrigo-brito/stockwave/model"
	"github.com/rodrigo-brito/stockwave/service"
	"github.com/rodrigo-brito/stockwave/tools/log"
)

// RateLimited throttles calls to the wrapped feeder. It is safe for
// concurrent use and is meant to sit in front of a remote source shared by
// all symbol workers.
type RateLimited struct {
	feeder  service.Feeder
	limiter *rate.Limiter
}

// NewRateLimited allows perSecond calls with the given burst.
func NewRateLimited(feeder service.Feeder, perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimited{
		feeder:  feeder,
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (r *RateLimited) CandlesByPeriod(ctx context.Context, symbol, period string,
	start, end time.Time) ([]model.Candle, error) {

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.feeder.CandlesByPeriod(ctx, symbol, period, start, end)
}

// Retry repeats failed fetches with exponential backoff. Errors that cannot
// improve with time (unknown symbol, bad interval, cancelled context) are
// returned at once.
type Retry struct {
	feeder   service.Feeder
	attempts int
	minWait  time.Duration
	maxWait  time.Duration
	logger   log.Logger
}

func NewRetry(feeder service.Feeder, attempts int, minWait, maxWait time.Duration, logger log.Logger) *Retry {
	if attempts < 1 {
		attempts = 1
	}
	return &Retry{
		feeder:   feeder,
		attempts: attempts,
		minWait:  minWait,
		maxWait:  maxWait,
		logger:   log.OrDiscard(logger),
	}
}

func (r *Retry) CandlesByPeriod(ctx context.Context, symbol, period string,
	start, end time.Time) ([]model.Candle, error) {

	ba := &backoff.Backoff{
		Min:    r.minWait,
		Max:    r.maxWait,
		Factor: 2,
	}

	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		var candles []model.Candle
		candles, err = r.feeder.CandlesByPeriod(ctx, symbol, period, start, end)
		if err == nil {
			return candles, nil
		}
		if !retryable(err) || attempt == r.attempts {
			break
		}

		wait := ba.Duration()
		r.logger.WithFields(log.Fields{
			"symbol":  symbol,
			"attempt": attempt,
			"wait":    wait,
		}).WithError(err).Warn("fetch failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, err
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, ErrUnknownSymbol),
		errors.Is(err, ErrInvalidInterval):
		return false
	}
	return true
}
