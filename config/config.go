// Package config loads process settings. Values come from the defaults, then
// an optional YAML file, then STOCKWAVE_* environment variables, each layer
// overriding the previous one. Variable names follow the field path, for
// instance STOCKWAVE_ANALYSIS_SYMBOL_TIMEOUT.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/rodrigo-brito/stockwave"
	"github.com/rodrigo-brito/stockwave/indicator"
	"github.com/rodrigo-brito/stockwave/similarity"
	"github.com/rodrigo-brito/stockwave/spectral"
	"github.com/rodrigo-brito/stockwave/tools/log"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "STOCKWAVE"

type Config struct {
	Log      LogConfig      `yaml:"log" envconfig:"LOG"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
	Source   SourceConfig   `yaml:"source" envconfig:"SOURCE"`
	Storage  StorageConfig  `yaml:"storage" envconfig:"STORAGE"`
	Render   RenderConfig   `yaml:"render" envconfig:"RENDER"`
	Telegram TelegramConfig `yaml:"telegram" envconfig:"TELEGRAM"`
	Mail     MailConfig     `yaml:"mail" envconfig:"MAIL"`
}

type LogConfig struct {
	Level  string `yaml:"level" split_words:"true" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" split_words:"true" validate:"oneof=text json"`
}

type ServerConfig struct {
	Port           int      `yaml:"port" split_words:"true" validate:"min=1,max=65535"`
	AllowedOrigins []string `yaml:"allowed_origins" split_words:"true"`
	Dashboard      bool     `yaml:"dashboard" split_words:"true"`
}

type AnalysisConfig struct {
	Workers       int              `yaml:"workers" split_words:"true" validate:"min=1,max=256"`
	SymbolTimeout time.Duration    `yaml:"symbol_timeout" split_words:"true" validate:"gt=0"`
	WindowSize    int              `yaml:"window_size" split_words:"true" validate:"min=2"`
	Threshold     float64          `yaml:"threshold" split_words:"true" validate:"gte=-1,lte=1"`
	Indicators    indicator.Params `yaml:"indicators" envconfig:"INDICATORS"`
}

type SourceConfig struct {
	Provider      string        `yaml:"provider" split_words:"true" validate:"oneof=yahoo binance csv"`
	YahooBaseURL  string        `yaml:"yahoo_base_url" split_words:"true" validate:"omitempty,url"`
	BinanceKey    string        `yaml:"binance_key" split_words:"true"`
	BinanceSecret string        `yaml:"binance_secret" split_words:"true"`
	CSVFiles      []string      `yaml:"csv_files" split_words:"true" validate:"required_if=Provider csv"`
	CSVTimeframe  string        `yaml:"csv_timeframe" split_words:"true" validate:"required_if=Provider csv"`
	RateLimit     float64       `yaml:"rate_limit" split_words:"true" validate:"gte=0"`
	Burst         int           `yaml:"burst" split_words:"true" validate:"gte=1"`
	Retries       int           `yaml:"retries" split_words:"true" validate:"gte=1"`
	RetryMin      time.Duration `yaml:"retry_min" split_words:"true" validate:"gt=0"`
	RetryMax      time.Duration `yaml:"retry_max" split_words:"true" validate:"gtefield=RetryMin"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" split_words:"true" validate:"oneof=memory bunt sqlite"`
	Path   string `yaml:"path" split_words:"true" validate:"required_unless=Driver memory"`
}

type RenderConfig struct {
	Enabled bool `yaml:"enabled" split_words:"true"`
	Width   int  `yaml:"width" split_words:"true" validate:"min=64"`
	Height  int  `yaml:"height" split_words:"true" validate:"min=64"`
}

type TelegramConfig struct {
	Enabled bool    `yaml:"enabled" split_words:"true"`
	Token   string  `yaml:"token" split_words:"true" validate:"required_if=Enabled true"`
	Users   []int64 `yaml:"users" split_words:"true" validate:"required_if=Enabled true"`
}

type MailConfig struct {
	Enabled           bool   `yaml:"enabled" split_words:"true"`
	SMTPServerAddress string `yaml:"smtp_server_address" split_words:"true" validate:"required_if=Enabled true"`
	SMTPServerPort    int    `yaml:"smtp_server_port" split_words:"true" validate:"min=0,max=65535"`
	From              string `yaml:"from" split_words:"true" validate:"omitempty,email"`
	To                string `yaml:"to" split_words:"true" validate:"omitempty,email"`
	Password          string `yaml:"password" split_words:"true"`
}

// Default returns the settings used when nothing else is configured.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Port:           8000,
			AllowedOrigins: []string{"*"},
			Dashboard:      true,
		},
		Analysis: AnalysisConfig{
			Workers:       4,
			SymbolTimeout: stockwave.DefaultSymbolTimeout,
			WindowSize:    spectral.DefaultWindowSize,
			Threshold:     similarity.DefaultThreshold,
			Indicators:    indicator.DefaultParams(),
		},
		Source: SourceConfig{
			Provider:     "yahoo",
			CSVTimeframe: "1d",
			RateLimit:    5,
			Burst:        5,
			Retries:      3,
			RetryMin:     500 * time.Millisecond,
			RetryMax:     5 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "bunt",
			Path:   "stockwave.db",
		},
		Render: RenderConfig{
			Enabled: true,
			Width:   1000,
			Height:  400,
		},
		Mail: MailConfig{
			SMTPServerPort: 587,
		},
	}
}

// Load reads the YAML file at path, when given, and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Mail.Enabled && c.Mail.To == "" {
		return fmt.Errorf("invalid config: mail notifications need a recipient")
	}
	if c.Analysis.Indicators.MACDFast >= c.Analysis.Indicators.MACDSlow {
		return fmt.Errorf("invalid config: macd fast period must be below the slow period")
	}
	return nil
}

// Logger builds the process logger.
func (c Config) Logger() log.Config {
	return log.Config{
		Level:  c.Log.Level,
		Format: c.Log.Format,
	}
}

// Addr is the listen address of the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
