package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the portal's Prometheus collectors
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	LoginAttempts  *prometheus.CounterVec
	ReportViews    *prometheus.CounterVec
	FileDownloads  *prometheus.CounterVec
	FilterDuration prometheus.Histogram
	FileLookups    *prometheus.CounterVec
	LedgerRows     prometheus.Gauge
}

// New registers the collectors on reg with the given name prefix
func New(reg prometheus.Registerer, prefix string) *Metrics {
	if prefix == "" {
		prefix = "portal"
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		LoginAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_login_attempts_total",
				Help: "Login attempts by role and outcome",
			},
			[]string{"role", "status"},
		),
		ReportViews: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_report_views_total",
				Help: "Dashboards rendered by report category",
			},
			[]string{"category"},
		),
		FileDownloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_file_downloads_total",
				Help: "File downloads by report category and outcome",
			},
			[]string{"category", "status"},
		),
		FilterDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    prefix + "_row_filter_duration_seconds",
				Help:    "Duration of ledger row filtering in seconds",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
		FileLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_file_lookups_total",
				Help: "File existence checks by result (hit, miss, absent, present)",
			},
			[]string{"result"},
		),
		LedgerRows: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: prefix + "_ledger_rows",
				Help: "Number of rows in the loaded ledger",
			},
		),
	}
}

// NewNop returns collectors registered on a private registry
func NewNop() *Metrics {
	return New(prometheus.NewRegistry(), "portal")
}

// ObserveFilter returns a function recording how long a filter took
func (m *Metrics) ObserveFilter() func() {
	start := time.Now()
	return func() {
		m.FilterDuration.Observe(time.Since(start).Seconds())
	}
}
