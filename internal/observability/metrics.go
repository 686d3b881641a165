package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for a
// correction run.
type Metrics struct {
	DelayEstimations *prometheus.CounterVec // labels: source={nwp,nwp+radar}
	DelayFailures    prometheus.Counter
	RadarFallbacks   prometheus.Counter
	DelayCacheHits   prometheus.Counter

	PairsCorrected prometheus.Counter
	PairsSkipped   *prometheus.CounterVec // labels: reason={missing_baseline,grid_mismatch,data_unavailable}

	EstimateDuration  prometheus.Histogram
	InversionDuration prometheus.Histogram
	RunActive         prometheus.Gauge
}

// NewMetrics creates and registers all run metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.DelayEstimations,
		m.DelayFailures,
		m.RadarFallbacks,
		m.DelayCacheHits,
		m.PairsCorrected,
		m.PairsSkipped,
		m.EstimateDuration,
		m.InversionDuration,
		m.RunActive,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DelayEstimations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "troposar",
			Name:      "delay_estimations_total",
			Help:      "Delay fields computed, by contributing data source.",
		}, []string{"source"}),
		DelayFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "troposar",
			Name:      "delay_failures_total",
			Help:      "Dates for which no delay field could be estimated.",
		}),
		RadarFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "troposar",
			Name:      "radar_fallbacks_total",
			Help:      "Estimates that fell back to the pure weather-model delay.",
		}),
		DelayCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "troposar",
			Name:      "delay_cache_hits_total",
			Help:      "Delay-field lookups served from the per-date cache.",
		}),
		PairsCorrected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "troposar",
			Name:      "pairs_corrected_total",
			Help:      "Interferogram pairs successfully corrected.",
		}),
		PairsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "troposar",
			Name:      "pairs_skipped_total",
			Help:      "Interferogram pairs skipped, by reason.",
		}, []string{"reason"}),
		EstimateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "troposar",
			Name:      "estimate_duration_seconds",
			Help:      "Duration of a single per-date delay estimation.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		InversionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "troposar",
			Name:      "inversion_duration_seconds",
			Help:      "Duration of the network inversion across all cells.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "troposar",
			Name:      "run_active",
			Help:      "1 while a correction run is in flight, 0 otherwise.",
		}),
	}
}
