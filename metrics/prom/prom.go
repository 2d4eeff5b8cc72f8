package prom

import (
	"time"

	"github.com/IvanBrykalov/cachinggauge/cache"
	"github.com/prometheus/client_golang/prometheus"
)

// Adapter implements cache.Metrics and exports Prometheus counters/gauges
// describing the refresh cache itself (not the cached values).
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	reads     prometheus.Counter
	refreshes prometheus.Counter
	failures  prometheus.Counter
	duration  prometheus.Histogram
	sizeEnt   prometheus.Gauge
}

// New constructs a Prometheus metrics adapter.
//   - reg:          registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub:      Prometheus namespace and subsystem
//   - constLabels:  static labels applied to all metrics (may be nil)
//
// Use distinct constLabels (e.g. {"family": name}) when several caches share a registry.
func New(reg prometheus.Registerer, ns, sub string, constLabels prometheus.Labels) *Adapter {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Adapter{
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "reads_total",
			Help:        "Cached value reads",
			ConstLabels: constLabels,
		}),
		refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "refreshes_total",
			Help:        "Producer invocations",
			ConstLabels: constLabels,
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "refresh_failures_total",
			Help:        "Producer invocations that returned an error or panicked",
			ConstLabels: constLabels,
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "refresh_duration_seconds",
			Help:        "Producer run time",
			Buckets:     prometheus.DefBuckets,
			ConstLabels: constLabels,
		}),
		sizeEnt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   sub,
			Name:        "size_entries",
			Help:        "Number of cached values after the last refresh",
			ConstLabels: constLabels,
		}),
	}
	reg.MustRegister(a.reads, a.refreshes, a.failures, a.duration, a.sizeEnt)
	return a
}

// Read increments the read counter.
func (a *Adapter) Read() { a.reads.Inc() }

// Refresh records one producer invocation.
func (a *Adapter) Refresh(took time.Duration, err error) {
	a.refreshes.Inc()
	a.duration.Observe(took.Seconds())
	if err != nil {
		a.failures.Inc()
	}
}

// Size updates the entries gauge.
func (a *Adapter) Size(entries int) { a.sizeEnt.Set(float64(entries)) }

// Compile-time check: ensure Adapter implements cache.Metrics.
var _ cache.Metrics = (*Adapter)(nil)
