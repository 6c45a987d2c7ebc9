package download

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rodrigo-brito/stockwave/exchange"
	"github.com/rodrigo-brito/stockwave/mocks"
	"github.com/rodrigo-brito/stockwave/model"
)

func hourly(_ context.Context, symbol, _ string, start, end time.Time) ([]model.Candle, error) {
	var candles []model.Candle
	for t := start; !t.After(end); t = t.Add(time.Hour) {
		price := 100 + float64(t.Hour())
		candles = append(candles, model.Candle{
			Symbol: symbol,
			Time:   t,
			Open:   price,
			Close:  price + 0.5,
			Low:    price - 1,
			High:   price + 1,
			Volume: 10,
		})
	}
	return candles, nil
}

func newTestDownloader(feeder *mocks.Feeder) Downloader {
	d := NewDownloader(feeder, WithoutProgress(), WithPrecision(2))
	d.now = func() time.Time {
		return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	}
	return d
}

func TestDownloader_Download(t *testing.T) {
	feeder := mocks.NewFeeder(t)
	feeder.EXPECT().
		CandlesByPeriod(mock.Anything, "AAPL", "1h", mock.Anything, mock.Anything).
		RunAndReturn(hourly).
		Times(2)

	output := filepath.Join(t.TempDir(), "AAPL.csv")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	err := newTestDownloader(feeder).Download(context.Background(), "AAPL", "60m", output, WithInterval(start, end))
	require.NoError(t, err)

	feed, err := exchange.NewCSVFeed("1h", exchange.SymbolFeed{Symbol: "AAPL", File: output, Timeframe: "1h"})
	require.NoError(t, err)

	candles, err := feed.CandlesByPeriod(context.Background(), "AAPL", "1h", start, end)
	require.NoError(t, err)
	require.Len(t, candles, 31*24+1)
	require.Equal(t, start, candles[0].Time)
	require.Equal(t, end, candles[len(candles)-1].Time)
	require.Equal(t, 100.5, candles[0].Close)
}

func TestDownloader_Write(t *testing.T) {
	t.Run("skips repeated candles", func(t *testing.T) {
		day := func(d int) model.Candle {
			return model.Candle{Time: time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC), Close: float64(d)}
		}
		feeder := mocks.NewFeeder(t)
		feeder.EXPECT().
			CandlesByPeriod(mock.Anything, "MSFT", "1d", mock.Anything, mock.Anything).
			Return([]model.Candle{day(1), day(2), day(2), day(1), day(3)}, nil)

		var out bytes.Buffer
		err := newTestDownloader(feeder).Write(context.Background(), &out, "MSFT", "1d",
			WithInterval(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, err)

		records, err := csv.NewReader(&out).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 4)
		require.Equal(t, []string{"time", "open", "close", "low", "high", "volume"}, records[0])
		require.Equal(t, "3.00", records[3][2])
	})

	t.Run("source failure", func(t *testing.T) {
		feeder := mocks.NewFeeder(t)
		feeder.EXPECT().
			CandlesByPeriod(mock.Anything, "MSFT", "1d", mock.Anything, mock.Anything).
			Return(nil, errors.New("unavailable"))

		err := newTestDownloader(feeder).Write(context.Background(), &bytes.Buffer{}, "MSFT", "1d",
			WithInterval(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)))
		require.ErrorContains(t, err, "unavailable")
	})

	t.Run("invalid interval", func(t *testing.T) {
		err := newTestDownloader(mocks.NewFeeder(t)).Write(context.Background(), &bytes.Buffer{}, "MSFT", "7h")
		require.ErrorIs(t, err, exchange.ErrInvalidInterval)
	})

	t.Run("inverted period", func(t *testing.T) {
		start := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
		err := newTestDownloader(mocks.NewFeeder(t)).Write(context.Background(), &bytes.Buffer{}, "MSFT", "1d",
			WithInterval(start, start.AddDate(0, 0, -1)))
		require.Error(t, err)
	})
}
