package stockwave

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rodrigo-brito/stockwave/exchange"
	"github.com/rodrigo-brito/stockwave/mocks"
	"github.com/rodrigo-brito/stockwave/plot"
	"github.com/rodrigo-brito/stockwave/storage"
	"github.com/rodrigo-brito/stockwave/tools/log"
	"github.com/rodrigo-brito/stockwave/tools/metrics"
)

func candles(symbol string, n int) []Candle {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Candle, n)
	for i := range out {
		price := 100 + 10*math.Sin(2*math.Pi*float64(i)/32) + 0.1*float64(i)
		out[i] = Candle{
			Symbol:   symbol,
			Time:     start.AddDate(0, 0, i),
			Open:     price,
			Close:    price,
			High:     price + 1,
			Low:      price - 1,
			Complete: true,
		}
	}
	return out
}

func expectCandles(feeder *mocks.Feeder, symbol string, n int) *mocks.Feeder_CandlesByPeriod_Call {
	return feeder.EXPECT().
		CandlesByPeriod(mock.Anything, symbol, "1d", mock.Anything, mock.Anything).
		Return(candles(symbol, n), nil)
}

func intPtr(v int) *int {
	return &v
}

func TestParseSymbols(t *testing.T) {
	require.Equal(t, []string{"AAPL", "MSFT", "GOOG"}, ParseSymbols(" aapl, msft,,AAPL ,goog"))
	require.Empty(t, ParseSymbols(" , ,"))
	require.Empty(t, ParseSymbols(""))
}

func TestRequest_Section(t *testing.T) {
	prices := PriceSeries{1, 2, 3, 4, 5}

	selected, start, end := Request{}.section(prices)
	require.Equal(t, prices, selected)
	require.Equal(t, 0, start)
	require.Equal(t, 5, end)

	// the start index is ignored without an end
	selected, _, _ = Request{SectionStart: 3}.section(prices)
	require.Len(t, selected, 5)

	selected, start, end = Request{SectionStart: 1, SectionEnd: intPtr(3)}.section(prices)
	require.Equal(t, PriceSeries{2, 3}, selected)
	require.Equal(t, 1, start)
	require.Equal(t, 3, end)

	selected, _, end = Request{SectionStart: 2, SectionEnd: intPtr(50)}.section(prices)
	require.Equal(t, PriceSeries{3, 4, 5}, selected)
	require.Equal(t, 5, end)

	selected, _, _ = Request{SectionStart: 4, SectionEnd: intPtr(2)}.section(prices)
	require.Empty(t, selected)
}

func TestAnalyzer_Analyze(t *testing.T) {
	ctx := context.Background()

	t.Run("failed symbol is dropped", func(t *testing.T) {
		feeder := mocks.NewFeeder(t)
		expectCandles(feeder, "AAPL", 600).Once()
		feeder.EXPECT().
			CandlesByPeriod(mock.Anything, "MSFT", "1d", mock.Anything, mock.Anything).
			Return(nil, errors.New("connection refused")).Once()

		recorder := metrics.New()
		analyzer := NewAnalyzer(feeder, WithLogger(log.Discard()), WithMetrics(recorder))
		batch, err := analyzer.Analyze(ctx, Request{Symbols: []string{"aapl", "MSFT"}})
		require.NoError(t, err)

		require.Equal(t, []string{"AAPL"}, batch.Symbols())
		require.Contains(t, batch.Failures, "MSFT")
		require.NotEmpty(t, batch.ID)

		result := batch.Results["AAPL"]
		require.Equal(t, 11, result.Frames)
		require.Len(t, result.Nodes, 11)
		require.Len(t, result.Prices, 600)
		require.Len(t, result.Features, 13)
		require.Len(t, result.Features[0], 11)
		require.Len(t, result.Indicators.SMA, 600)
		require.Len(t, result.Indicators.Bollinger.Upper, 600)
		require.Nil(t, result.SectionEnd)
		require.Empty(t, result.TimeSeriesImage)
		require.Equal(t, 256, result.Parameters.AdjustedWindow)

		for _, link := range result.Links {
			require.Less(t, link.Source, link.Target)
			require.Greater(t, link.Value, 0.7)
		}
	})

	t.Run("every symbol failing is an empty result", func(t *testing.T) {
		feeder := mocks.NewFeeder(t)
		feeder.EXPECT().
			CandlesByPeriod(mock.Anything, mock.Anything, "1d", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: NOPE", exchange.ErrUnknownSymbol)).Twice()

		_, err := NewAnalyzer(feeder).Analyze(ctx, Request{Symbols: []string{"NOPE", "NADA"}})
		require.ErrorIs(t, err, ErrEmptyResult)
	})

	t.Run("short series are skipped", func(t *testing.T) {
		feeder := mocks.NewFeeder(t)
		expectCandles(feeder, "AAPL", 600).Once()
		expectCandles(feeder, "TINY", 100).Once()
		expectCandles(feeder, "NONE", 0).Once()

		batch, err := NewAnalyzer(feeder).Analyze(ctx, Request{Symbols: []string{"AAPL", "TINY", "NONE"}})
		require.NoError(t, err)
		require.Equal(t, []string{"AAPL"}, batch.Symbols())
		require.Len(t, batch.Failures, 2)
	})

	t.Run("section selection", func(t *testing.T) {
		feeder := mocks.NewFeeder(t)
		expectCandles(feeder, "AAPL", 600).Once()

		batch, err := NewAnalyzer(feeder).Analyze(ctx, Request{
			Symbols:      []string{"AAPL"},
			SectionStart: 100,
			SectionEnd:   intPtr(400),
		})
		require.NoError(t, err)

		result := batch.Results["AAPL"]
		require.Len(t, result.Prices, 300)
		require.Equal(t, candles("AAPL", 600)[100].Close, result.Prices[0])
		require.Equal(t, 100, result.SectionStart)
		require.Equal(t, 400, *result.SectionEnd)
	})

	t.Run("section with fewer than two points", func(t *testing.T) {
		feeder := mocks.NewFeeder(t)
		expectCandles(feeder, "AAPL", 600).Once()

		_, err := NewAnalyzer(feeder).Analyze(ctx, Request{
			Symbols:      []string{"AAPL"},
			SectionStart: 10,
			SectionEnd:   intPtr(11),
		})
		require.ErrorIs(t, err, ErrEmptyResult)
	})

	t.Run("universe", func(t *testing.T) {
		feeder := mocks.NewFeeder(t)
		dow, err := exchange.Universe("dow")
		require.NoError(t, err)
		for _, symbol := range dow {
			expectCandles(feeder, symbol, 300).Once()
		}

		batch, err := NewAnalyzer(feeder, WithWorkers(3)).Analyze(ctx, Request{
			Universe: "DOW",
			Symbols:  []string{"IGNORED"},
		})
		require.NoError(t, err)
		require.Len(t, batch.Results, len(dow))
	})

	t.Run("panic is isolated", func(t *testing.T) {
		feeder := mocks.NewFeeder(t)
		expectCandles(feeder, "AAPL", 600).Once()
		feeder.EXPECT().
			CandlesByPeriod(mock.Anything, "BOOM", "1d", mock.Anything, mock.Anything).
			RunAndReturn(func(context.Context, string, string, time.Time, time.Time) ([]Candle, error) {
				panic("unexpected")
			}).Once()

		batch, err := NewAnalyzer(feeder).Analyze(ctx, Request{Symbols: []string{"AAPL", "BOOM"}})
		require.NoError(t, err)
		require.Equal(t, []string{"AAPL"}, batch.Symbols())
		require.Contains(t, batch.Failures["BOOM"], ErrPanic.Error())
	})

	t.Run("slow symbol times out without blocking siblings", func(t *testing.T) {
		feeder := mocks.NewFeeder(t)
		expectCandles(feeder, "AAPL", 600).Once()
		feeder.EXPECT().
			CandlesByPeriod(mock.Anything, "SLOW", "1d", mock.Anything, mock.Anything).
			RunAndReturn(func(ctx context.Context, _ string, _ string, _ time.Time, _ time.Time) ([]Candle, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			}).Once()

		started := time.Now()
		batch, err := NewAnalyzer(feeder, WithSymbolTimeout(200*time.Millisecond)).
			Analyze(ctx, Request{Symbols: []string{"SLOW", "AAPL"}})
		require.NoError(t, err)
		require.Less(t, time.Since(started), 10*time.Second)
		require.Equal(t, []string{"AAPL"}, batch.Symbols())
		require.Contains(t, batch.Failures, "SLOW")
	})

	t.Run("notifier receives failures and summary", func(t *testing.T) {
		feeder := mocks.NewFeeder(t)
		expectCandles(feeder, "AAPL", 600).Once()
		expectCandles(feeder, "TINY", 1).Once()

		notifier := mocks.NewNotifier(t)
		notifier.EXPECT().OnError(mock.MatchedBy(func(err error) bool {
			return errors.Is(err, ErrInsufficientData)
		})).Once()
		notifier.EXPECT().Notify(mock.MatchedBy(func(msg string) bool {
			return bytes.Contains([]byte(msg), []byte("1 symbols analyzed"))
		})).Once()

		_, err := NewAnalyzer(feeder, WithNotifier(notifier)).
			Analyze(ctx, Request{Symbols: []string{"AAPL", "TINY"}})
		require.NoError(t, err)
	})

	t.Run("renders artifacts", func(t *testing.T) {
		store, err := storage.FromMemory(log.Discard())
		require.NoError(t, err)
		defer store.Close()

		feeder := mocks.NewFeeder(t)
		expectCandles(feeder, "AAPL", 600).Twice()

		renderer := plot.NewRenderer(store, plot.WithSize(120, 80))
		analyzer := NewAnalyzer(feeder, WithRenderer(renderer))

		req := Request{Symbols: []string{"AAPL"}, Resolution: 1.5}
		batch, err := analyzer.Analyze(ctx, req)
		require.NoError(t, err)

		result := batch.Results["AAPL"]
		require.Regexp(t, `^/images/AAPL_time_series_\d{14}\.png$`, result.TimeSeriesImage)
		require.Regexp(t, `^/images/AAPL_time_frequency_x1\.5_\d{14}\.png$`, result.TimeFrequencyImage)
		require.NotEmpty(t, result.SpectrogramImage)
		require.NotEmpty(t, result.MFCCImage)

		stored, err := store.Get(ctx, result.MFCCImage[len("/images/"):])
		require.NoError(t, err)
		require.NotEmpty(t, stored.Data)

		again, err := analyzer.Analyze(ctx, req)
		require.NoError(t, err)
		require.Equal(t, result.TimeSeriesImage, again.Results["AAPL"].TimeSeriesImage)
	})
}

func TestAnalyzer_AnalyzeInput(t *testing.T) {
	analyzer := NewAnalyzer(mocks.NewFeeder(t))
	ctx := context.Background()

	for name, req := range map[string]Request{
		"no symbols":        {},
		"blank symbols":     {Symbols: []string{" ", ""}},
		"unknown universe":  {Universe: "ftse"},
		"low resolution":    {Symbols: []string{"AAPL"}, Resolution: 0.5},
		"nan resolution":    {Symbols: []string{"AAPL"}, Resolution: math.NaN()},
		"negative section":  {Symbols: []string{"AAPL"}, SectionStart: -1},
		"negative end":      {Symbols: []string{"AAPL"}, SectionEnd: intPtr(-5)},
		"invalid interval":  {Symbols: []string{"AAPL"}, Interval: "7d"},
		"inverted period":   {Symbols: []string{"AAPL"}, Start: time.Now(), End: time.Now().AddDate(0, -1, 0)},
		"too long a symbol": {Symbols: []string{"ABCDEFGHIJKLMNOPQRSTUVWXYZABCDEFGHIJ"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := analyzer.Analyze(ctx, req)
			require.ErrorIs(t, err, ErrInput)
		})
	}
}

func TestAnalyzer_Indicators(t *testing.T) {
	ctx := context.Background()
	feeder := mocks.NewFeeder(t)
	expectCandles(feeder, "AAPL", 60).Once()
	feeder.EXPECT().
		CandlesByPeriod(mock.Anything, "NOPE", "1d", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("%w: NOPE", exchange.ErrUnknownSymbol)).Once()
	expectCandles(feeder, "EMPTY", 0).Once()

	analyzer := NewAnalyzer(feeder)

	report, err := analyzer.Indicators(ctx, " aapl ", time.Time{}, time.Time{}, "")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", report.Symbol)
	assert.Len(t, report.Indicators.RSI, 60)
	assert.True(t, math.IsNaN(report.Indicators.SMA[18]))
	assert.False(t, math.IsNaN(report.Indicators.SMA[19]))

	_, err = analyzer.Indicators(ctx, "NOPE", time.Time{}, time.Time{}, "1d")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = analyzer.Indicators(ctx, "EMPTY", time.Time{}, time.Time{}, "1d")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = analyzer.Indicators(ctx, "AAPL", time.Time{}, time.Time{}, "daily")
	require.ErrorIs(t, err, ErrInput)

	_, err = analyzer.Indicators(ctx, "", time.Time{}, time.Time{}, "1d")
	require.ErrorIs(t, err, ErrInput)
}

func TestBatch_Summary(t *testing.T) {
	feeder := mocks.NewFeeder(t)
	expectCandles(feeder, "AAPL", 600).Once()
	expectCandles(feeder, "TINY", 1).Once()

	batch, err := NewAnalyzer(feeder).Analyze(context.Background(), Request{Symbols: []string{"AAPL", "TINY"}})
	require.NoError(t, err)

	var out bytes.Buffer
	batch.Summary(&out)
	require.Contains(t, out.String(), "AAPL")
	require.Contains(t, out.String(), "TOTAL")
	require.Contains(t, out.String(), "DROPPED")
	require.Contains(t, batch.String(), "1 dropped [TINY]")
}
