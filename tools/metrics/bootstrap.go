package metrics

import (
	"errors"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/stat"
)

var ErrBootstrap = errors.New("bootstrap needs values and a confidence in (0, 1)")

// Interval is a bootstrap estimate of a statistic.
type Interval struct {
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	StdDev float64 `json:"stddev"`
	Mean   float64 `json:"mean"`
}

// Bootstrap resamples values with replacement rounds times, applies measure
// to every resample and returns the two-sided confidence interval of the
// measured statistic.
func Bootstrap(values []float64, measure func([]float64) float64, rounds int,
	confidence float64) (Interval, error) {

	if len(values) == 0 || rounds < 1 || !(confidence > 0 && confidence < 1) {
		return Interval{}, ErrBootstrap
	}

	estimates := make([]float64, rounds)
	sample := make([]float64, len(values))
	for i := range estimates {
		for j := range sample {
			sample[j] = lo.Sample(values)
		}
		estimates[i] = measure(sample)
	}
	sort.Float64s(estimates)

	tail := (1 - confidence) / 2
	mean, stdDev := stat.MeanStdDev(estimates, nil)
	return Interval{
		Lower:  stat.Quantile(tail, stat.LinInterp, estimates, nil),
		Upper:  stat.Quantile(1-tail, stat.LinInterp, estimates, nil),
		StdDev: stdDev,
		Mean:   mean,
	}, nil
}

// Mean is the usual measure for Bootstrap.
func Mean(values []float64) float64 {
	return stat.Mean(values, nil)
}
