package log

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	WarnLevel  = logrus.WarnLevel
	InfoLevel  = logrus.InfoLevel
	DebugLevel = logrus.DebugLevel
	ErrorLevel = logrus.ErrorLevel
	FatalLevel = logrus.FatalLevel
	PanicLevel = logrus.PanicLevel
)

type (
	TextFormatter = logrus.TextFormatter
	JSONFormatter = logrus.JSONFormatter
	Level         = logrus.Level
	Fields        = logrus.Fields
	// Logger is the logging handle every component receives.
	Logger = logrus.FieldLogger
)

// Config describes how the process logger is built.
type Config struct {
	Level  string
	Format string
	Output io.Writer
}

// New builds a logger owned by the caller. Nothing is configured at import
// time; the process entry point decides level and format.
func New(cfg Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if cfg.Output != nil {
		logger.SetOutput(cfg.Output)
	}

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return logger
}

// Discard returns a logger that drops everything, used by tests and as the
// fallback when no logger is injected.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// OrDiscard returns logger, or a discarding logger when it is nil.
func OrDiscard(logger Logger) Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}

// CheckErr logs err on the given level when it is not nil.
func CheckErr(logger Logger, level Level, err error) {
	if err != nil {
		Log(logger, level, err)
	}
}

// Log writes messages on the given level.
func Log(logger Logger, level Level, messages ...interface{}) {
	logger = OrDiscard(logger)
	switch level {
	case logrus.InfoLevel:
		logger.Info(messages...)
	case logrus.WarnLevel:
		logger.Warn(messages...)
	case logrus.ErrorLevel:
		logger.Error(messages...)
	case logrus.FatalLevel:
		logger.Fatal(messages...)
	case logrus.PanicLevel:
		logger.Panic(messages...)
	case logrus.DebugLevel:
		fallthrough
	default:
		logger.Debug(messages...)
	}
}
