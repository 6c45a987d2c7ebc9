package stockwave

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"

	"github.com/rodrigo-brito/stockwave/spectral"
	"github.com/rodrigo-brito/stockwave/tools/metrics"
)

// Result is the analysis of one symbol.
type Result struct {
	Symbol string `json:"-"`

	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`

	TimeSeriesImage    string `json:"time_series_image,omitempty"`
	SpectrogramImage   string `json:"spectrogram_image,omitempty"`
	MFCCImage          string `json:"mfccs_image,omitempty"`
	TimeFrequencyImage string `json:"time_frequency_image,omitempty"`

	Prices       PriceSeries  `json:"prices"`
	Features     [][]float64  `json:"mfccs"`
	SectionStart int          `json:"section_start"`
	SectionEnd   *int         `json:"section_end"`
	Indicators   IndicatorSet `json:"indicators"`

	Frames     int                 `json:"frames"`
	Components int                 `json:"components"`
	Parameters spectral.Parameters `json:"parameters"`
}

// Weights returns the link weights.
func (r *Result) Weights() []float64 {
	return lo.Map(r.Links, func(l Link, _ int) float64 {
		return l.Value
	})
}

// Batch collects the results of one Analyze call.
type Batch struct {
	ID        string             `json:"id"`
	CreatedAt time.Time          `json:"created_at"`
	Results   map[string]*Result `json:"results"`
	Failures  map[string]string  `json:"failures,omitempty"`
}

// Symbols returns the analyzed symbols in alphabetical order.
func (b *Batch) Symbols() []string {
	symbols := lo.Keys(b.Results)
	sort.Strings(symbols)
	return symbols
}

func (b *Batch) String() string {
	msg := fmt.Sprintf("batch %s: %d symbols analyzed", b.ID, len(b.Results))
	if len(b.Failures) > 0 {
		failed := lo.Keys(b.Failures)
		sort.Strings(failed)
		msg += fmt.Sprintf(", %d dropped %v", len(failed), failed)
	}
	return msg
}

// IndicatorReport is the indicator set of one symbol.
type IndicatorReport struct {
	Symbol     string       `json:"symbol"`
	Indicators IndicatorSet `json:"indicators"`
}

// Summary writes a per symbol table, a histogram of every link weight and a
// bootstrap confidence interval of the mean weight of each symbol.
func (b *Batch) Summary(w io.Writer) {
	var (
		points, frames, links int
		weights               []float64
	)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Symbol", "Points", "Frames", "Links", "Components", "Density", "RSI", "MACD Hist"})
	table.SetFooterAlignment(tablewriter.ALIGN_RIGHT)

	for _, symbol := range b.Symbols() {
		result := b.Results[symbol]
		table.Append([]string{
			symbol,
			strconv.Itoa(len(result.Prices)),
			strconv.Itoa(result.Frames),
			strconv.Itoa(len(result.Links)),
			strconv.Itoa(result.Components),
			fmt.Sprintf("%.3f", density(result.Frames, len(result.Links))),
			lastDefined(result.Indicators.RSI),
			lastDefined(result.Indicators.MACD.Hist),
		})
		points += len(result.Prices)
		frames += result.Frames
		links += len(result.Links)
		weights = append(weights, result.Weights()...)
	}

	table.SetFooter([]string{
		"TOTAL",
		strconv.Itoa(points),
		strconv.Itoa(frames),
		strconv.Itoa(links),
		"", "", "", "",
	})
	table.Render()

	if len(b.Failures) > 0 {
		fmt.Fprintln(w, "------ DROPPED -------")
		failed := lo.Keys(b.Failures)
		sort.Strings(failed)
		for _, symbol := range failed {
			fmt.Fprintf(w, "%s: %s\n", symbol, b.Failures[symbol])
		}
		fmt.Fprintln(w)
	}

	if len(weights) == 0 {
		return
	}

	fmt.Fprintln(w, "------ LINK WEIGHTS -------")
	hist := histogram.Hist(15, weights)
	if err := histogram.Fprint(w, hist, histogram.Linear(10)); err != nil {
		fmt.Fprintln(w, err)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "------ MEAN WEIGHT CONFIDENCE INTERVAL (95%) -------")
	for _, symbol := range b.Symbols() {
		interval, err := metrics.Bootstrap(b.Results[symbol].Weights(), metrics.Mean, 1000, 0.95)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%-8s %.3f (%.3f ~ %.3f)\n", symbol, interval.Mean, interval.Lower, interval.Upper)
	}
}

func density(frames, links int) float64 {
	if frames < 2 {
		return 0
	}
	return 2 * float64(links) / float64(frames*(frames-1))
}

func lastDefined(series []float64) string {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) {
			return fmt.Sprintf("%.2f", series[i])
		}
	}
	return "-"
}
