package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/rodrigo-brito/stockwave"
	"github.com/rodrigo-brito/stockwave/config"
	"github.com/rodrigo-brito/stockwave/exchange"
	"github.com/rodrigo-brito/stockwave/notification"
	"github.com/rodrigo-brito/stockwave/plot"
	"github.com/rodrigo-brito/stockwave/service"
	"github.com/rodrigo-brito/stockwave/storage"
	"github.com/rodrigo-brito/stockwave/tools/log"
	"github.com/rodrigo-brito/stockwave/tools/metrics"
)

// loadConfig reads .env, the optional config file and the environment.
func loadConfig(path string) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return config.Load(path)
}

// newFeeder builds the configured price source behind retries and a rate limit.
func newFeeder(ctx context.Context, cfg config.SourceConfig, logger *logrus.Logger) (service.Feeder, error) {
	var (
		feeder service.Feeder
		err    error
	)

	switch cfg.Provider {
	case "binance":
		feeder, err = exchange.NewBinance(ctx,
			exchange.WithBinanceCredentials(cfg.BinanceKey, cfg.BinanceSecret),
			exchange.WithBinanceLogger(logger))
		if err != nil {
			return nil, err
		}
	case "csv":
		feeds := make([]exchange.SymbolFeed, 0, len(cfg.CSVFiles))
		for _, file := range cfg.CSVFiles {
			feeds = append(feeds, exchange.SymbolFeed{
				Symbol:    symbolFromFile(file),
				File:      file,
				Timeframe: cfg.CSVTimeframe,
			})
		}
		// local files need neither retries nor throttling
		return exchange.NewCSVFeed(cfg.CSVTimeframe, feeds...)
	default:
		options := []exchange.YahooOption{exchange.WithYahooLogger(logger)}
		if cfg.YahooBaseURL != "" {
			options = append(options, exchange.WithYahooBaseURL(cfg.YahooBaseURL))
		}
		feeder = exchange.NewYahoo(options...)
	}

	feeder = exchange.NewRetry(feeder, cfg.Retries, cfg.RetryMin, cfg.RetryMax, logger)
	return exchange.NewRateLimited(feeder, cfg.RateLimit, cfg.Burst), nil
}

// symbolFromFile maps data/aapl.csv to AAPL.
func symbolFromFile(file string) string {
	base := filepath.Base(file)
	return strings.ToUpper(strings.TrimSuffix(base, filepath.Ext(base)))
}

func newStorage(cfg config.StorageConfig, logger *logrus.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case "memory":
		return storage.FromMemory(logger)
	case "sqlite":
		return storage.FromSQL(sqlite.Open(cfg.Path))
	default:
		return storage.FromFile(cfg.Path, logger)
	}
}

// newNotifier returns nil when no channel is enabled. The telegram bot is
// returned separately so it can be attached to the analyzer and started.
func newNotifier(cfg *config.Config, logger *logrus.Logger) (service.Notifier, *notification.Telegram, error) {
	var (
		notifiers []service.Notifier
		bot       *notification.Telegram
	)

	if cfg.Telegram.Enabled {
		var err error
		bot, err = notification.NewTelegram(notification.TelegramSettings{
			Token: cfg.Telegram.Token,
			Users: cfg.Telegram.Users,
		}, notification.WithTelegramLogger(logger), notification.WithAnalysisTimeout(cfg.Analysis.SymbolTimeout*2))
		if err != nil {
			return nil, nil, fmt.Errorf("telegram: %w", err)
		}
		notifiers = append(notifiers, bot)
	}

	if cfg.Mail.Enabled {
		notifiers = append(notifiers, notification.NewMail(notification.MailParams{
			SMTPServerPort:    cfg.Mail.SMTPServerPort,
			SMTPServerAddress: cfg.Mail.SMTPServerAddress,
			To:                cfg.Mail.To,
			From:              cfg.Mail.From,
			Password:          cfg.Mail.Password,
			Logger:            logger,
		}))
	}

	switch len(notifiers) {
	case 0:
		return nil, nil, nil
	case 1:
		return notifiers[0], bot, nil
	default:
		return notification.Multi(notifiers...), bot, nil
	}
}

type components struct {
	analyzer *stockwave.Analyzer
	store    storage.Storage
	metrics  *metrics.Recorder
	bot      *notification.Telegram
}

func (c components) Close() {
	if c.store != nil {
		_ = c.store.Close()
	}
}

// build wires the analyzer with everything the config enables.
func build(ctx context.Context, cfg *config.Config, logger *logrus.Logger, render bool) (components, error) {
	var out components

	feeder, err := newFeeder(ctx, cfg.Source, logger)
	if err != nil {
		return out, err
	}

	out.store, err = newStorage(cfg.Storage, logger)
	if err != nil {
		return out, fmt.Errorf("storage: %w", err)
	}

	notifier, bot, err := newNotifier(cfg, logger)
	if err != nil {
		out.Close()
		return out, err
	}
	out.bot = bot
	out.metrics = metrics.New()

	options := []stockwave.Option{
		stockwave.WithLogger(logger),
		stockwave.WithWorkers(cfg.Analysis.Workers),
		stockwave.WithSymbolTimeout(cfg.Analysis.SymbolTimeout),
		stockwave.WithWindowSize(cfg.Analysis.WindowSize),
		stockwave.WithThreshold(cfg.Analysis.Threshold),
		stockwave.WithIndicatorParams(cfg.Analysis.Indicators),
		stockwave.WithMetrics(out.metrics),
	}
	if notifier != nil {
		options = append(options, stockwave.WithNotifier(notifier))
	}
	if render {
		renderer := plot.NewRenderer(out.store,
			plot.WithSize(cfg.Render.Width, cfg.Render.Height),
			plot.WithLogger(logger))
		options = append(options, stockwave.WithRenderer(renderer))
	}

	out.analyzer = stockwave.NewAnalyzer(feeder, options...)
	if bot != nil {
		bot.Attach(out.analyzer)
	}
	return out, nil
}

func newLogger(cfg *config.Config, level string) *logrus.Logger {
	logCfg := cfg.Logger()
	if level != "" {
		logCfg.Level = level
	}
	return log.New(logCfg)
}
