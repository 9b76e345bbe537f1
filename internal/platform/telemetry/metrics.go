// Package telemetry exposes Prometheus metrics for the alert passes and the
// REDCap API client.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the instrument set registered for this process.
type Metrics struct {
	Registry *prometheus.Registry

	RunsTotal       *prometheus.CounterVec
	RunDuration     prometheus.Histogram
	AlertsEligible  *prometheus.GaugeVec
	StatusesCleared prometheus.Counter
	StatusesSet     prometheus.Counter
	ImportMismatch  prometheus.Counter
	RedcapRequests  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "icaria_alert_runs_total",
			Help: "Resolution passes executed, by project and result.",
		}, []string{"project", "result"}),
		RunDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "icaria_alert_run_duration_seconds",
			Help:    "Wall time of one resolution pass including REDCap I/O.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		AlertsEligible: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "icaria_alerts_eligible",
			Help: "Participants eligible per alert code after the last pass.",
		}, []string{"project", "code"}),
		StatusesCleared: factory.NewCounter(prometheus.CounterOpts{
			Name: "icaria_statuses_cleared_total",
			Help: "Status fields cleared across all passes.",
		}),
		StatusesSet: factory.NewCounter(prometheus.CounterOpts{
			Name: "icaria_statuses_set_total",
			Help: "Status fields written across all passes.",
		}),
		ImportMismatch: factory.NewCounter(prometheus.CounterOpts{
			Name: "icaria_import_mismatches_total",
			Help: "Passes where REDCap reported a different record count than intended.",
		}),
		RedcapRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "icaria_redcap_requests_total",
			Help: "REDCap API calls, by content type and outcome.",
		}, []string{"content", "outcome"}),
	}
}
