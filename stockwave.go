// Package stockwave turns price series into spectral features, frame
// similarity graphs and technical indicators, one independent pipeline per
// symbol.
package stockwave

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rodrigo-brito/stockwave/cepstrum"
	"github.com/rodrigo-brito/stockwave/exchange"
	"github.com/rodrigo-brito/stockwave/indicator"
	"github.com/rodrigo-brito/stockwave/plot"
	"github.com/rodrigo-brito/stockwave/service"
	"github.com/rodrigo-brito/stockwave/similarity"
	"github.com/rodrigo-brito/stockwave/spectral"
	"github.com/rodrigo-brito/stockwave/tools/log"
	"github.com/rodrigo-brito/stockwave/tools/metrics"
)

const DefaultSymbolTimeout = 2 * time.Minute

var (
	ErrInput            = errors.New("invalid input")
	ErrEmptyResult      = errors.New("no valid data processed")
	ErrNotFound         = errors.New("not found")
	ErrInsufficientData = errors.New("not enough price data")
	ErrFetch            = errors.New("fetch failed")
	ErrTimeout          = errors.New("symbol timed out")
	ErrPanic            = errors.New("symbol pipeline panicked")
)

type Analyzer struct {
	feeder   service.Feeder
	renderer *plot.Renderer
	notifier service.Notifier
	metrics  *metrics.Recorder
	logger   log.Logger
	validate *validator.Validate

	workers         int
	symbolTimeout   time.Duration
	windowSize      int
	threshold       float64
	indicatorParams indicator.Params
	now             func() time.Time
}

type Option func(*Analyzer)

func WithLogger(logger log.Logger) Option {
	return func(a *Analyzer) {
		a.logger = logger
	}
}

// WithWorkers bounds how many symbols are processed at once.
func WithWorkers(workers int) Option {
	return func(a *Analyzer) {
		a.workers = workers
	}
}

// WithSymbolTimeout sets the budget of a single symbol pipeline.
func WithSymbolTimeout(timeout time.Duration) Option {
	return func(a *Analyzer) {
		a.symbolTimeout = timeout
	}
}

// WithRenderer enables artifact rendering.
func WithRenderer(renderer *plot.Renderer) Option {
	return func(a *Analyzer) {
		a.renderer = renderer
	}
}

func WithNotifier(notifier service.Notifier) Option {
	return func(a *Analyzer) {
		a.notifier = notifier
	}
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(a *Analyzer) {
		a.metrics = recorder
	}
}

func WithIndicatorParams(params indicator.Params) Option {
	return func(a *Analyzer) {
		a.indicatorParams = params
	}
}

// WithWindowSize sets the analysis window of the spectral stage.
func WithWindowSize(size int) Option {
	return func(a *Analyzer) {
		a.windowSize = size
	}
}

// WithThreshold sets the correlation a pair of frames must exceed to be linked.
func WithThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		a.threshold = threshold
	}
}

func NewAnalyzer(feeder service.Feeder, options ...Option) *Analyzer {
	analyzer := &Analyzer{
		feeder:          feeder,
		validate:        validator.New(),
		workers:         runtime.NumCPU(),
		symbolTimeout:   DefaultSymbolTimeout,
		windowSize:      spectral.DefaultWindowSize,
		threshold:       similarity.DefaultThreshold,
		indicatorParams: indicator.DefaultParams(),
		now:             time.Now,
	}
	for _, option := range options {
		option(analyzer)
	}
	if analyzer.workers < 1 {
		analyzer.workers = 1
	}
	analyzer.logger = log.OrDiscard(analyzer.logger)
	return analyzer
}

// Analyze runs the pipeline of every requested symbol concurrently. A symbol
// that fails is logged, reported and left out of the batch; the call only
// fails when the request is invalid or no symbol succeeds.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Batch, error) {
	req = req.withDefaults()
	if err := a.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInput, err)
	}
	if !req.End.IsZero() && req.End.Before(req.Start) {
		return nil, fmt.Errorf("%w: end_date before start_date", ErrInput)
	}

	interval, err := exchange.NormalizeInterval(req.Interval)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInput, err)
	}
	req.Interval = interval

	symbols, err := req.symbols()
	if err != nil {
		return nil, err
	}

	batch := &Batch{
		ID:        uuid.NewString(),
		CreatedAt: a.now().UTC(),
		Results:   make(map[string]*Result, len(symbols)),
		Failures:  make(map[string]string),
	}

	a.logger.WithFields(log.Fields{
		"batch":   batch.ID,
		"symbols": len(symbols),
		"workers": a.workers,
	}).Info("analysis started")

	var (
		mu    sync.Mutex
		group errgroup.Group
	)
	group.SetLimit(a.workers)
	for _, symbol := range symbols {
		symbol := symbol
		group.Go(func() error {
			result, err := a.runSymbol(ctx, symbol, req)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				batch.Failures[symbol] = err.Error()
				a.fail(symbol, err)
				return nil
			}
			batch.Results[symbol] = result
			a.metrics.SymbolProcessed()
			return nil
		})
	}
	_ = group.Wait()

	a.logger.WithFields(log.Fields{
		"batch":     batch.ID,
		"succeeded": len(batch.Results),
		"failed":    len(batch.Failures),
	}).Info("analysis finished")

	if len(batch.Results) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrEmptyResult
	}

	if a.notifier != nil {
		a.notifier.Notify(batch.String())
	}
	return batch, nil
}

func (a *Analyzer) fail(symbol string, err error) {
	a.logger.WithFields(log.Fields{
		"symbol": symbol,
		"error":  err.Error(),
	}).Error("symbol dropped")
	a.metrics.SymbolFailed(failureReason(err))
	if a.notifier != nil {
		a.notifier.OnError(fmt.Errorf("%s: %w", symbol, err))
	}
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrPanic):
		return "panic"
	case errors.Is(err, ErrInsufficientData), errors.Is(err, spectral.ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, exchange.ErrUnknownSymbol):
		return "unknown_symbol"
	case errors.Is(err, ErrFetch):
		return "fetch"
	case errors.Is(err, spectral.ErrTransform):
		return "transform"
	}
	return "error"
}

type outcome struct {
	result *Result
	err    error
}

// runSymbol abandons the pipeline once its budget is spent, so a stuck
// symbol releases its worker slot. The pipeline checks the context between
// stages and stops shortly after.
func (a *Analyzer) runSymbol(ctx context.Context, symbol string, req Request) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, a.symbolTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		result, err := a.pipeline(ctx, symbol, req)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w after %s: %s", ErrTimeout, a.symbolTimeout, ctx.Err())
	}
}

func (a *Analyzer) stage(name string, started time.Time) {
	a.metrics.ObserveStage(name, time.Since(started))
}

func (a *Analyzer) pipeline(ctx context.Context, symbol string, req Request) (*Result, error) {
	logger := a.logger.WithField("symbol", symbol)

	started := time.Now()
	prices, err := exchange.Closes(ctx, a.feeder, symbol, req.Interval, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	a.stage("fetch", started)

	if len(prices) == 0 {
		logger.Warn("no price data found")
		return nil, fmt.Errorf("%w: no price data", ErrInsufficientData)
	}

	selected, sectionStart, sectionEnd := req.section(prices)
	if len(selected) < 2 {
		logger.WithFields(log.Fields{
			"points":        len(selected),
			"section_start": sectionStart,
			"section_end":   sectionEnd,
		}).Warn("not enough price data after section selection")
		return nil, fmt.Errorf("%w: %d points after section selection", ErrInsufficientData, len(selected))
	}

	started = time.Now()
	spec, err := spectral.Compute(selected,
		spectral.WithWindowSize(a.windowSize),
		spectral.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}
	a.stage("spectral", started)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started = time.Now()
	features, err := cepstrum.Extract(spec, cepstrum.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	standardized := cepstrum.Standardize(features)
	a.stage("cepstrum", started)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started = time.Now()
	graph := similarity.Build(standardized,
		similarity.WithThreshold(a.threshold),
		similarity.WithLogger(logger),
	)
	a.stage("similarity", started)
	a.metrics.ObserveEdges(graph.EdgeCount())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started = time.Now()
	indicators := indicator.Compute(selected, a.indicatorParams)
	a.stage("indicators", started)

	result := &Result{
		Symbol:       symbol,
		Nodes:        graph.Nodes(),
		Links:        graph.Links(),
		Prices:       selected,
		Features:     features.Slices(),
		SectionStart: req.SectionStart,
		SectionEnd:   req.SectionEnd,
		Indicators:   indicators,
		Frames:       spec.Frames(),
		Components:   graph.Components(),
		Parameters:   spec.Parameters,
	}

	if a.renderer != nil {
		started = time.Now()
		timeFrequency, err := spectral.Compute(selected,
			spectral.WithWindowSize(a.windowSize),
			spectral.WithResolution(req.Resolution),
			spectral.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("time-frequency: %w", err)
		}

		artifacts, err := a.renderer.Render(ctx, plot.Input{
			Symbol:        symbol,
			Params:        req.cacheKey(),
			Prices:        selected,
			Spectrogram:   spec,
			Features:      features,
			TimeFrequency: timeFrequency,
			Multiplier:    req.Resolution,
		}, req.Refresh)
		if err != nil {
			return nil, fmt.Errorf("render: %w", err)
		}
		a.stage("render", started)

		result.TimeSeriesImage = artifacts.Path(plot.KindTimeSeries)
		result.SpectrogramImage = artifacts.Path(plot.KindSpectrogram)
		result.MFCCImage = artifacts.Path(plot.KindMFCC)
		result.TimeFrequencyImage = artifacts.Path(plot.KindTimeFrequency)
	}

	logger.WithFields(log.Fields{
		"points":     len(selected),
		"frames":     result.Frames,
		"links":      len(result.Links),
		"components": result.Components,
	}).Debug("symbol analyzed")

	return result, nil
}

// Indicators computes the indicator set of one symbol over a period.
func (a *Analyzer) Indicators(ctx context.Context, symbol string, start, end time.Time,
	interval string) (*IndicatorReport, error) {

	symbols := ParseSymbols(symbol)
	if len(symbols) != 1 {
		return nil, fmt.Errorf("%w: a single symbol is required", ErrInput)
	}
	interval, err := exchange.NormalizeInterval(interval)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInput, err)
	}

	prices, err := exchange.Closes(ctx, a.feeder, symbols[0], interval, start, end)
	switch {
	case errors.Is(err, exchange.ErrUnknownSymbol):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	case len(prices) == 0:
		return nil, fmt.Errorf("%w: no price data found for %s", ErrNotFound, symbols[0])
	}

	return &IndicatorReport{
		Symbol:     symbols[0],
		Indicators: indicator.Compute(prices, a.indicatorParams),
	}, nil
}
