package metrics

import (
	"math"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBootstrap(t *testing.T) {
	values := make([]float64, 200)
	for i := range values {
		values[i] = float64(i % 10)
	}

	interval, err := Bootstrap(values, Mean, 500, 0.95)
	require.NoError(t, err)
	require.LessOrEqual(t, interval.Lower, interval.Mean)
	require.GreaterOrEqual(t, interval.Upper, interval.Mean)
	require.InDelta(t, 4.5, interval.Mean, 0.3)
	require.Greater(t, interval.StdDev, 0.0)

	constant, err := Bootstrap([]float64{0.8, 0.8, 0.8}, Mean, 50, 0.9)
	require.NoError(t, err)
	require.InDelta(t, 0.8, constant.Lower, 1e-12)
	require.InDelta(t, 0.8, constant.Upper, 1e-12)

	for _, tc := range []struct {
		values     []float64
		rounds     int
		confidence float64
	}{
		{nil, 10, 0.95},
		{[]float64{1}, 0, 0.95},
		{[]float64{1}, 10, 1},
		{[]float64{1}, 10, math.NaN()},
	} {
		_, err := Bootstrap(tc.values, Mean, tc.rounds, tc.confidence)
		require.ErrorIs(t, err, ErrBootstrap)
	}
}

func TestRecorder(t *testing.T) {
	recorder := New()
	recorder.SymbolProcessed()
	recorder.SymbolProcessed()
	recorder.SymbolFailed("insufficient_data")
	recorder.ObserveStage("spectral", 12*time.Millisecond)
	recorder.ObserveEdges(42)
	recorder.ObserveRequest("/analyze", "GET", 200, time.Second)

	families, err := recorder.Registry().Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				key := family.GetName()
				for _, label := range metric.GetLabel() {
					key += "," + label.GetName() + "=" + label.GetValue()
				}
				values[key] = metric.GetCounter().GetValue()
			case metric.GetHistogram() != nil:
				values[family.GetName()] += float64(metric.GetHistogram().GetSampleCount())
			}
		}
	}

	require.Equal(t, 2.0, values["stockwave_symbols_total,status=ok"])
	require.Equal(t, 1.0, values["stockwave_symbols_total,status=failed"])
	require.Equal(t, 1.0, values["stockwave_symbol_failures_total,reason=insufficient_data"])
	require.Equal(t, 1.0, values["stockwave_stage_duration_seconds"])
	require.Equal(t, 1.0, values["stockwave_graph_edges"])
	require.Equal(t, 1.0, values["stockwave_http_requests_total,method=GET,route=/analyze,status=200"])

	rec := httptest.NewRecorder()
	recorder.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Contains(t, rec.Body.String(), "stockwave_graph_edges_bucket")
}

func TestRecorder_Nil(t *testing.T) {
	var recorder *Recorder
	require.NotPanics(t, func() {
		recorder.SymbolProcessed()
		recorder.SymbolFailed("x")
		recorder.ObserveStage("x", time.Second)
		recorder.ObserveEdges(1)
		recorder.ObserveRequest("/", "GET", 200, time.Second)
	})
}
