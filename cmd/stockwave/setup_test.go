package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rodrigo-brito/stockwave/config"
	"github.com/rodrigo-brito/stockwave/exchange"
	"github.com/rodrigo-brito/stockwave/tools/log"
)

func TestSymbolFromFile(t *testing.T) {
	require.Equal(t, "AAPL", symbolFromFile("data/aapl.csv"))
	require.Equal(t, "BTCUSDT", symbolFromFile("/tmp/BTCUSDT.csv"))
	require.Equal(t, "MSFT", symbolFromFile("msft"))
}

func TestNewFeeder(t *testing.T) {
	t.Run("csv", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "aapl.csv")
		content := "time,open,close,low,high,volume\n" +
			"1704067200,1,2,0.5,2.5,10\n" +
			"1704153600,2,3,1.5,3.5,10\n"
		require.NoError(t, os.WriteFile(file, []byte(content), 0o600))

		cfg := config.Default().Source
		cfg.Provider = "csv"
		cfg.CSVFiles = []string{file}

		feeder, err := newFeeder(context.Background(), cfg, log.Discard())
		require.NoError(t, err)

		candles, err := feeder.CandlesByPeriod(context.Background(), "AAPL", "1d", time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Len(t, candles, 2)
	})

	t.Run("yahoo", func(t *testing.T) {
		feeder, err := newFeeder(context.Background(), config.Default().Source, log.Discard())
		require.NoError(t, err)
		require.IsType(t, &exchange.RateLimited{}, feeder)
	})
}

func TestBuild(t *testing.T) {
	cfg := config.Default()
	cfg.Storage = config.StorageConfig{Driver: "memory"}

	parts, err := build(context.Background(), &cfg, log.Discard(), true)
	require.NoError(t, err)
	defer parts.Close()

	require.NotNil(t, parts.analyzer)
	require.NotNil(t, parts.store)
	require.NotNil(t, parts.metrics)
	require.Nil(t, parts.bot)
}

func TestNewNotifier(t *testing.T) {
	cfg := config.Default()
	notifier, bot, err := newNotifier(&cfg, log.Discard())
	require.NoError(t, err)
	require.Nil(t, notifier)
	require.Nil(t, bot)

	cfg.Mail = config.MailConfig{Enabled: true, SMTPServerAddress: "smtp.example.com", To: "me@example.com"}
	notifier, bot, err = newNotifier(&cfg, log.Discard())
	require.NoError(t, err)
	require.NotNil(t, notifier)
	require.Nil(t, bot)
}
