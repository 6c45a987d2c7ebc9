package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/rodrigo-brito/stockwave"
	"github.com/rodrigo-brito/stockwave/download"
	"github.com/rodrigo-brito/stockwave/exchange"
	"github.com/rodrigo-brito/stockwave/plot"
	"github.com/rodrigo-brito/stockwave/server"
	"github.com/rodrigo-brito/stockwave/tools/log"
)

const dateLayout = "2006-01-02"

func periodFlags() []cli.Flag {
	return []cli.Flag{
		&cli.TimestampFlag{
			Name:    "start",
			Aliases: []string{"s"},
			Usage:   "eg. 2021-12-01",
			Layout:  dateLayout,
		},
		&cli.TimestampFlag{
			Name:    "end",
			Aliases: []string{"e"},
			Usage:   "eg. 2022-12-31",
			Layout:  dateLayout,
		},
		&cli.StringFlag{
			Name:    "interval",
			Aliases: []string{"i"},
			Usage:   "eg. 1d, 1wk, 1h",
			Value:   exchange.DefaultInterval,
		},
	}
}

func period(c *cli.Context) (time.Time, time.Time) {
	var start, end time.Time
	if t := c.Timestamp("start"); t != nil {
		start = *t
	}
	if t := c.Timestamp("end"); t != nil {
		end = *t
	}
	return start, end
}

func printJSON(value interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func main() {
	app := &cli.App{
		Name:     "stockwave",
		HelpName: "stockwave",
		Usage:    "Spectral and cepstral similarity analysis of price series",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML config file",
				EnvVars: []string{"STOCKWAVE_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Commands: []*cli.Command{
			{
				Name:     "serve",
				HelpName: "serve",
				Usage:    "Start the HTTP API and dashboard",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "port",
						Aliases: []string{"p"},
						Usage:   "eg. 8000",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c.String("config"))
					if err != nil {
						return err
					}
					if c.IsSet("port") {
						cfg.Server.Port = c.Int("port")
					}
					logger := newLogger(cfg, c.String("log-level"))

					ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
					defer stop()

					parts, err := build(ctx, cfg, logger, cfg.Render.Enabled)
					if err != nil {
						return err
					}
					defer parts.Close()

					options := []server.Option{
						server.WithLogger(logger),
						server.WithMetrics(parts.metrics),
						server.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
					}
					if cfg.Server.Dashboard {
						dashboard, err := plot.NewDashboard(
							plot.WithDashboardLogger(logger),
							plot.WithChoices(exchange.Universes(), exchange.Intervals()))
						if err != nil {
							return err
						}
						options = append(options, server.WithDashboard(dashboard))
					}

					if parts.bot != nil {
						parts.bot.Start()
					}

					return server.NewServer(parts.analyzer, parts.store, options...).Start(ctx, cfg.Addr())
				},
			},
			{
				Name:     "analyze",
				HelpName: "analyze",
				Usage:    "Analyze symbols and print a report",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "symbols",
						Aliases: []string{"y"},
						Usage:   "eg. AAPL,MSFT,GOOG",
					},
					&cli.StringFlag{
						Name:    "stock-set",
						Aliases: []string{"u"},
						Usage:   "eg. dow, sp500, nasdaq100",
					},
					&cli.Float64Flag{
						Name:  "resolution",
						Usage: "frequency resolution multiplier of the time-frequency image",
						Value: 1,
					},
					&cli.IntFlag{
						Name:  "section-start",
						Usage: "first index of the analyzed section",
					},
					&cli.IntFlag{
						Name:  "section-end",
						Usage: "index after the last one of the analyzed section",
					},
					&cli.BoolFlag{
						Name:  "render",
						Usage: "render and store the images",
					},
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "render again even when stored images exist",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "print the results as JSON",
					},
				}, periodFlags()...),
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c.String("config"))
					if err != nil {
						return err
					}
					logger := newLogger(cfg, c.String("log-level"))

					parts, err := build(c.Context, cfg, logger, c.Bool("render"))
					if err != nil {
						return err
					}
					defer parts.Close()

					start, end := period(c)
					req := stockwave.Request{
						Symbols:      stockwave.ParseSymbols(c.String("symbols")),
						Universe:     c.String("stock-set"),
						Resolution:   c.Float64("resolution"),
						SectionStart: c.Int("section-start"),
						Start:        start,
						End:          end,
						Interval:     c.String("interval"),
						Refresh:      c.Bool("refresh"),
					}
					if c.IsSet("section-end") {
						sectionEnd := c.Int("section-end")
						req.SectionEnd = &sectionEnd
					}

					batch, err := parts.analyzer.Analyze(c.Context, req)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(batch)
					}
					batch.Summary(os.Stdout)
					return nil
				},
			},
			{
				Name:     "indicators",
				HelpName: "indicators",
				Usage:    "Print the technical indicators of a symbol",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "symbol",
						Aliases:  []string{"y"},
						Usage:    "eg. AAPL",
						Required: true,
					},
				}, periodFlags()...),
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c.String("config"))
					if err != nil {
						return err
					}
					logger := newLogger(cfg, c.String("log-level"))

					parts, err := build(c.Context, cfg, logger, false)
					if err != nil {
						return err
					}
					defer parts.Close()

					start, end := period(c)
					report, err := parts.analyzer.Indicators(c.Context, c.String("symbol"), start, end, c.String("interval"))
					if err != nil {
						return err
					}
					return printJSON(report)
				},
			},
			{
				Name:     "download",
				HelpName: "download",
				Usage:    "Download historical data to CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "symbol",
						Aliases:  []string{"y"},
						Usage:    "eg. AAPL",
						Required: true,
					},
					&cli.IntFlag{
						Name:    "days",
						Aliases: []string{"d"},
						Usage:   "eg. 100 (default 30 days)",
					},
					&cli.TimestampFlag{
						Name:    "start",
						Aliases: []string{"s"},
						Usage:   "eg. 2021-12-01",
						Layout:  dateLayout,
					},
					&cli.TimestampFlag{
						Name:    "end",
						Aliases: []string{"e"},
						Usage:   "eg. 2020-12-31",
						Layout:  dateLayout,
					},
					&cli.StringFlag{
						Name:     "timeframe",
						Aliases:  []string{"t"},
						Usage:    "eg. 1d",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "output",
						Aliases:  []string{"o"},
						Usage:    "eg. ./aapl.csv",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "source",
						Usage: "yahoo or binance, overrides the configured provider",
					},
				},
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c.String("config"))
					if err != nil {
						return err
					}
					if c.IsSet("source") {
						cfg.Source.Provider = c.String("source")
					}
					logger := newLogger(cfg, c.String("log-level"))

					feeder, err := newFeeder(c.Context, cfg.Source, logger)
					if err != nil {
						return err
					}

					var options []download.Option
					if days := c.Int("days"); days > 0 {
						options = append(options, download.WithDays(days))
					}

					start := c.Timestamp("start")
					end := c.Timestamp("end")
					if start != nil && end != nil && !start.IsZero() && !end.IsZero() {
						options = append(options, download.WithInterval(*start, *end))
					} else if start != nil || end != nil {
						return fmt.Errorf("START and END must be informed together")
					}

					return download.NewDownloader(feeder, download.WithLogger(logger)).Download(c.Context,
						c.String("symbol"), c.String("timeframe"), c.String("output"), options...)
				},
			},
			{
				Name:     "universes",
				HelpName: "universes",
				Usage:    "List the named symbol universes",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "name",
						Aliases: []string{"n"},
						Usage:   "print the symbols of one universe",
					},
				},
				Action: func(c *cli.Context) error {
					if name := c.String("name"); name != "" {
						symbols, err := exchange.Universe(name)
						if err != nil {
							return err
						}
						for _, symbol := range symbols {
							fmt.Println(symbol)
						}
						return nil
					}

					table := tablewriter.NewWriter(os.Stdout)
					table.SetHeader([]string{"Universe", "Symbols"})
					for _, name := range exchange.Universes() {
						symbols, err := exchange.Universe(name)
						if err != nil {
							return err
						}
						table.Append([]string{name, strconv.Itoa(len(symbols))})
					}
					table.Render()
					return nil
				},
			},
		},
	}

	log.CheckErr(log.New(log.Config{}), log.FatalLevel, app.Run(os.Args))
}
