package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered on a per-service registry so tests and the CLI
// can create services freely without duplicate registration panics.
type Metrics struct {
	registry *prometheus.Registry

	uploads     *prometheus.CounterVec
	identifiers prometheus.Histogram
	selections  *prometheus.CounterVec
	packages    *prometheus.CounterVec
	packageTime prometheus.Histogram
	archiveSize prometheus.Histogram
	failures    *prometheus.CounterVec
	sweeps      prometheus.Counter
	swept       *prometheus.CounterVec
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		// uploads counts identifier uploads by result
		uploads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "usergroups_uploads_total",
			Help: "Identifier file uploads by result and format",
		}, []string{"result", "format"}),

		// identifiers tracks upload sizes in identifiers
		identifiers: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "usergroups_upload_identifiers",
			Help:    "Identifiers per accepted upload",
			Buckets: prometheus.ExponentialBuckets(1, 10, 7), // 1 to 1M
		}),

		selections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "usergroups_selections_total",
			Help: "Selections by result",
		}, []string{"result"}),

		packages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "usergroups_packages_total",
			Help: "Generate and pack runs by result",
		}, []string{"result"}),

		packageTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "usergroups_package_duration_seconds",
			Help:    "Generate and pack duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		}),

		archiveSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "usergroups_archive_bytes",
			Help:    "Size of packaged archives in bytes",
			Buckets: prometheus.ExponentialBuckets(512, 4, 10),
		}),

		// failures counts errors by user-facing code
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "usergroups_failures_total",
			Help: "Pipeline failures by error code",
		}, []string{"op", "code"}),

		sweeps: f.NewCounter(prometheus.CounterOpts{
			Name: "usergroups_janitor_sweeps_total",
			Help: "Completed janitor sweeps",
		}),

		swept: f.NewCounterVec(prometheus.CounterOpts{
			Name: "usergroups_janitor_removed_total",
			Help: "Entries removed by the janitor by kind",
		}, []string{"kind"}),
	}
}

// Registry exposes the collectors for an HTTP handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) failed(op string, err error) {
	m.failures.WithLabelValues(op, MapError(err).Code).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
