// Package metrics exposes fleet counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set bundles every collector the simulation reports into. A nil *Set is
// valid and turns all recording into no-ops, which keeps tests light.
type Set struct {
	registry *prometheus.Registry

	updatesTotal   prometheus.Counter
	issuesDetected *prometheus.CounterVec
	issuesResolved *prometheus.CounterVec
	activeIssues   prometheus.Gauge
	recordsWritten prometheus.Counter
	recordsDropped prometheus.Counter
	queueDepth     prometheus.Gauge
}

func New() *Set {
	s := &Set{
		registry: prometheus.NewRegistry(),
		updatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecohub_device_updates_total",
			Help: "Readings produced by device tick loops.",
		}),
		issuesDetected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecohub_issues_detected_total",
			Help: "Issues detected by the monitor, by kind.",
		}, []string{"issue"}),
		issuesResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecohub_issues_resolved_total",
			Help: "Issues resolved by remediation, by kind.",
		}, []string{"issue"}),
		activeIssues: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ecohub_active_issues",
			Help: "Devices with an unresolved issue.",
		}),
		recordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecohub_storage_records_written_total",
			Help: "Telemetry records appended to the log.",
		}),
		recordsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ecohub_storage_records_dropped_total",
			Help: "Telemetry records dropped on enqueue.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ecohub_storage_queue_depth",
			Help: "Records waiting for the storage worker.",
		}),
	}
	s.registry.MustRegister(
		s.updatesTotal, s.issuesDetected, s.issuesResolved,
		s.activeIssues, s.recordsWritten, s.recordsDropped, s.queueDepth,
	)
	return s
}

// Handler serves the registry for scraping.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

func (s *Set) IncUpdates() {
	if s == nil {
		return
	}
	s.updatesTotal.Inc()
}

func (s *Set) IncDetected(issue string) {
	if s == nil {
		return
	}
	s.issuesDetected.WithLabelValues(issue).Inc()
}

func (s *Set) IncResolved(issue string) {
	if s == nil {
		return
	}
	s.issuesResolved.WithLabelValues(issue).Inc()
}

func (s *Set) SetActiveIssues(n int) {
	if s == nil {
		return
	}
	s.activeIssues.Set(float64(n))
}

func (s *Set) IncWritten() {
	if s == nil {
		return
	}
	s.recordsWritten.Inc()
}

func (s *Set) IncDropped() {
	if s == nil {
		return
	}
	s.recordsDropped.Inc()
}

func (s *Set) SetQueueDepth(n int) {
	if s == nil {
		return
	}
	s.queueDepth.Set(float64(n))
}
