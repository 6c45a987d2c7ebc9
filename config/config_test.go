package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stockwave.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, ":8000", cfg.Addr())
	require.Equal(t, "info", cfg.Logger().Level)
	require.Equal(t, 256, cfg.Analysis.WindowSize)
	require.Equal(t, 2*time.Minute, cfg.Analysis.SymbolTimeout)
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load("")
		require.NoError(t, err)
		require.Equal(t, "yahoo", cfg.Source.Provider)
		require.Equal(t, "bunt", cfg.Storage.Driver)
	})

	t.Run("file over defaults and env over file", func(t *testing.T) {
		path := writeFile(t, `
server:
  port: 9000
  allowed_origins: ["https://a.example.com"]
analysis:
  workers: 8
  symbol_timeout: 45s
  indicators:
    rsi_period: 10
source:
  provider: csv
  csv_files: ["data/AAPL.csv"]
`)
		t.Setenv("STOCKWAVE_SERVER_PORT", "9100")
		t.Setenv("STOCKWAVE_ANALYSIS_INDICATORS_SMAPERIOD", "50")
		t.Setenv("STOCKWAVE_SOURCE_RETRY_MAX", "10s")

		cfg, err := Load(path)
		require.NoError(t, err)
		require.Equal(t, 9100, cfg.Server.Port)
		require.Equal(t, []string{"https://a.example.com"}, cfg.Server.AllowedOrigins)
		require.Equal(t, 8, cfg.Analysis.Workers)
		require.Equal(t, 45*time.Second, cfg.Analysis.SymbolTimeout)
		require.Equal(t, 10, cfg.Analysis.Indicators.RSIPeriod)
		require.Equal(t, 50, cfg.Analysis.Indicators.SMAPeriod)
		require.Equal(t, 26, cfg.Analysis.Indicators.MACDSlow)
		require.Equal(t, "csv", cfg.Source.Provider)
		require.Equal(t, []string{"data/AAPL.csv"}, cfg.Source.CSVFiles)
		require.Equal(t, 10*time.Second, cfg.Source.RetryMax)
		require.Equal(t, 500*time.Millisecond, cfg.Source.RetryMin)
	})

	t.Run("telegram from env", func(t *testing.T) {
		t.Setenv("STOCKWAVE_TELEGRAM_ENABLED", "true")
		t.Setenv("STOCKWAVE_TELEGRAM_TOKEN", "secret")
		t.Setenv("STOCKWAVE_TELEGRAM_USERS", "10,20")

		cfg, err := Load("")
		require.NoError(t, err)
		require.True(t, cfg.Telegram.Enabled)
		require.Equal(t, []int64{10, 20}, cfg.Telegram.Users)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed file", func(t *testing.T) {
		_, err := Load(writeFile(t, "server: [1, 2"))
		require.Error(t, err)
	})

	t.Run("malformed env", func(t *testing.T) {
		t.Setenv("STOCKWAVE_ANALYSIS_WORKERS", "many")
		_, err := Load("")
		require.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tt := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Source.Provider = "alpha" }},
		{"csv without files", func(c *Config) { c.Source.Provider = "csv" }},
		{"zero workers", func(c *Config) { c.Analysis.Workers = 0 }},
		{"tiny window", func(c *Config) { c.Analysis.WindowSize = 1 }},
		{"threshold above one", func(c *Config) { c.Analysis.Threshold = 1.5 }},
		{"telegram without token", func(c *Config) { c.Telegram.Enabled = true; c.Telegram.Users = []int64{1} }},
		{"mail without recipient", func(c *Config) { c.Mail.Enabled = true; c.Mail.SMTPServerAddress = "smtp.example.com" }},
		{"invalid mail sender", func(c *Config) { c.Mail.From = "nobody" }},
		{"macd periods swapped", func(c *Config) { c.Analysis.Indicators.MACDFast = 30 }},
		{"retry window inverted", func(c *Config) { c.Source.RetryMax = time.Millisecond }},
		{"file storage without path", func(c *Config) { c.Storage.Path = "" }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(&cfg)
			require.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Storage = StorageConfig{Driver: "memory"}
	require.NoError(t, cfg.Validate())
}
