// Package download exports price history to CSV files readable by
// exchange.CSVFeed.
package download

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/rodrigo-brito/stockwave/exchange"
	"github.com/rodrigo-brito/stockwave/service"
	"github.com/rodrigo-brito/stockwave/tools/log"
)

const (
	batchSize        = 500
	defaultPrecision = 4
)

type Downloader struct {
	feeder    service.Feeder
	logger    log.Logger
	precision int
	silent    bool
	now       func() time.Time
}

type DownloaderOption func(*Downloader)

func WithLogger(logger log.Logger) DownloaderOption {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// WithPrecision sets the decimal places of prices and volumes.
func WithPrecision(precision int) DownloaderOption {
	return func(d *Downloader) {
		d.precision = precision
	}
}

// WithoutProgress hides the progress bar.
func WithoutProgress() DownloaderOption {
	return func(d *Downloader) {
		d.silent = true
	}
}

func NewDownloader(feeder service.Feeder, options ...DownloaderOption) Downloader {
	d := Downloader{
		feeder:    feeder,
		precision: defaultPrecision,
		now:       time.Now,
	}
	for _, option := range options {
		option(&d)
	}
	d.logger = log.OrDiscard(d.logger)
	return d
}

type Parameters struct {
	Start time.Time
	End   time.Time
}

type Option func(*Parameters)

func WithInterval(start, end time.Time) Option {
	return func(parameters *Parameters) {
		parameters.Start = start
		parameters.End = end
	}
}

func WithDays(days int) Option {
	return func(parameters *Parameters) {
		parameters.Start = time.Now().AddDate(0, 0, -days)
		parameters.End = time.Now()
	}
}

func candlesCount(start, end time.Time, timeframe string) (int, time.Duration, error) {
	totalDuration := end.Sub(start)
	interval, err := exchange.IntervalDuration(timeframe)
	if err != nil {
		return 0, 0, err
	}
	return int(totalDuration / interval), interval, nil
}

// Download writes the history of symbol to the file at output.
func (d Downloader) Download(ctx context.Context, symbol, timeframe string, output string, options ...Option) error {
	recordFile, err := os.Create(output)
	if err != nil {
		return err
	}
	defer recordFile.Close()

	return d.Write(ctx, recordFile, symbol, timeframe, options...)
}

// Write fetches the history in batches and writes it as CSV with a header row.
func (d Downloader) Write(ctx context.Context, w io.Writer, symbol, timeframe string, options ...Option) error {
	timeframe, err := exchange.NormalizeInterval(timeframe)
	if err != nil {
		return err
	}

	now := d.now()
	parameters := &Parameters{
		Start: now.AddDate(0, -1, 0),
		End:   now,
	}
	for _, option := range options {
		option(parameters)
	}
	if !parameters.Start.Before(parameters.End) {
		return fmt.Errorf("download %s: start %s is not before end %s",
			symbol, parameters.Start.Format(time.DateOnly), parameters.End.Format(time.DateOnly))
	}

	parameters.Start = time.Date(parameters.Start.Year(), parameters.Start.Month(), parameters.Start.Day(),
		0, 0, 0, 0, time.UTC)

	if now.Sub(parameters.End) > 0 {
		parameters.End = time.Date(parameters.End.Year(), parameters.End.Month(), parameters.End.Day(),
			0, 0, 0, 0, time.UTC)
	} else {
		parameters.End = now
	}

	candlesCount, interval, err := candlesCount(parameters.Start, parameters.End, timeframe)
	if err != nil {
		return err
	}
	candlesCount++

	d.logger.Infof("Downloading %d candles of %s for %s", candlesCount, timeframe, symbol)
	writer := csv.NewWriter(w)

	progressBar := progressbar.Default(int64(candlesCount))
	if d.silent {
		progressBar = progressbar.DefaultSilent(int64(candlesCount))
	}
	lostData := 0
	isLastLoop := false
	var last time.Time

	err = writer.Write([]string{
		"time", "open", "close", "low", "high", "volume",
	})
	if err != nil {
		return err
	}

	for begin := parameters.Start; begin.Before(parameters.End); begin = begin.Add(interval * batchSize) {
		end := begin.Add(interval * batchSize)
		if end.Before(parameters.End) {
			end = end.Add(-1 * time.Second)
		} else {
			end = parameters.End
			isLastLoop = true
		}

		candles, err := d.feeder.CandlesByPeriod(ctx, symbol, timeframe, begin, end)
		if err != nil {
			return fmt.Errorf("download %s: %w", symbol, err)
		}

		written := 0
		for _, candle := range candles {
			if !last.IsZero() && !candle.Time.After(last) {
				continue
			}
			if err := writer.Write(candle.ToSlice(d.precision)); err != nil {
				return err
			}
			last = candle.Time
			written++
		}

		if !isLastLoop && written < batchSize {
			lostData += batchSize - written
		}
		if err = progressBar.Add(written); err != nil {
			d.logger.Warnf("update progresbar fail: %s", err.Error())
		}
	}

	if err = progressBar.Close(); err != nil {
		d.logger.Warnf("close progresbar fail: %s", err.Error())
	}

	if lostData > 0 {
		d.logger.Warnf("%d missing candles", lostData)
	}

	writer.Flush()
	d.logger.Info("Done!")
	return writer.Error()
}
