package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/0xPuncker/cronwatch/internal/cron"
	"github.com/0xPuncker/cronwatch/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cronwatch"

// Metrics holds cronwatch's collectors on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	jobs         prometheus.Gauge
	schedules    prometheus.Gauge
	orphans      prometheus.Gauge
	auditRuns    prometheus.Counter
	authFailures prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Job and schedule operations by outcome.",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of job and schedule operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		jobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs",
			Help:      "Watch jobs in the jobs file.",
		}),
		schedules: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "schedules",
			Help:      "Crontab entries owned by cronwatch.",
		}),
		orphans: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orphaned_schedules",
			Help:      "Owned schedules whose job index is missing, as of the last audit.",
		}),
		auditRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_runs_total",
			Help:      "Completed schedule audits.",
		}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_failures_total",
			Help:      "Rejected API requests.",
		}),
	}

	m.registry.MustRegister(
		m.operations,
		m.duration,
		m.jobs,
		m.schedules,
		m.orphans,
		m.auditRuns,
		m.authFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveOperation records one operation. The result label is "ok" or the
// error kind.
func (m *Metrics) ObserveOperation(operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = string(types.KindOf(err))
		if result == "" {
			result = "error"
		}
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetJobs(n int) {
	m.jobs.Set(float64(n))
}

func (m *Metrics) SetSchedules(n int) {
	m.schedules.Set(float64(n))
}

func (m *Metrics) AuthFailed() {
	m.authFailures.Inc()
}

func (m *Metrics) ObserveAudit(_ context.Context, report cron.AuditReport) {
	m.auditRuns.Inc()
	m.schedules.Set(float64(report.Checked))
	m.jobs.Set(float64(report.JobCount))
	m.orphans.Set(float64(len(report.Orphans)))
}
