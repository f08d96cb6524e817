package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "digestcracker"

// Prometheus holds the search counters exported on /metrics. It uses its
// own registry so that several instances can coexist in tests.
type Prometheus struct {
	Registry   *prometheus.Registry
	searches   *prometheus.CounterVec
	candidates *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	active     prometheus.Gauge
}

func NewPrometheus() *Prometheus {
	p := &Prometheus{
		Registry: prometheus.NewRegistry(),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Completed searches by mode, hash type and outcome.",
		}, []string{"mode", "hash_type", "outcome"}),
		candidates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_hashed_total",
			Help:      "Candidates hashed and compared against a target digest.",
		}, []string{"hash_type"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Wall-clock duration of searches.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"mode"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_searches",
			Help:      "Searches currently running.",
		}),
	}

	p.Registry.MustRegister(
		p.searches,
		p.candidates,
		p.duration,
		p.active,
		collectors.NewGoCollector(),
	)
	return p
}

func (p *Prometheus) SearchStarted() {
	p.active.Inc()
}

func (p *Prometheus) SearchFinished(mode, hashType, outcome string, attempts int64, elapsed time.Duration) {
	p.active.Dec()
	p.searches.WithLabelValues(mode, hashType, outcome).Inc()
	p.candidates.WithLabelValues(hashType).Add(float64(attempts))
	p.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{})
}
