// Package telemetry exposes the Prometheus collectors scraped from /metrics.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/panelquote/pkg/db"
	"gorm.io/gorm"
)

const (
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonUnknown              = "unknown"
)

// Metrics exposes Prometheus observability primitives.
type Metrics struct {
	apiRequests           *prometheus.CounterVec
	apiDuration           *prometheus.HistogramVec
	correctionTransitions *prometheus.CounterVec
	persistenceFailures   *prometheus.CounterVec
	auditRetries          prometheus.Counter
	jobRuns               *prometheus.CounterVec
	jobDuration           *prometheus.HistogramVec
}

// NewMetrics registers the collectors on registerer, or the default registry when nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	apiRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panelquote_api_requests_total",
		Help: "Counts API requests by method, route and status.",
	}, []string{"method", "route", "status"})

	apiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "panelquote_api_duration_seconds",
		Help:    "API request latency per method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	correctionTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panelquote_correction_transitions_total",
		Help: "Correction state transitions.",
	}, []string{"from", "to"})

	persistenceFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panelquote_persistence_failures_total",
		Help: "Storage failures by operation and low-cardinality reason.",
	}, []string{"operation", "reason"})

	auditRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "panelquote_audit_append_retries_total",
		Help: "Retried write-ahead audit appends.",
	})

	jobRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "panelquote_scheduler_job_runs_total",
		Help: "Background job runs by job and outcome.",
	}, []string{"job", "outcome"})

	jobDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "panelquote_scheduler_job_duration_seconds",
		Help:    "Background job latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})

	registerer.MustRegister(
		apiRequests,
		apiDuration,
		correctionTransitions,
		persistenceFailures,
		auditRetries,
		jobRuns,
		jobDuration,
	)

	return &Metrics{
		apiRequests:           apiRequests,
		apiDuration:           apiDuration,
		correctionTransitions: correctionTransitions,
		persistenceFailures:   persistenceFailures,
		auditRetries:          auditRetries,
		jobRuns:               jobRuns,
		jobDuration:           jobDuration,
	}
}

func (m *Metrics) ObserveAPIRequest(method, route, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.correctionTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) RecordPersistenceFailure(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.persistenceFailures.WithLabelValues(operation, ClassifyPersistenceReason(err)).Inc()
}

func (m *Metrics) RecordAuditRetry() {
	if m == nil {
		return
	}
	m.auditRetries.Inc()
}

func (m *Metrics) ObserveJob(job, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// JobRuns exposes the scheduler run counter for assertions.
func (m *Metrics) JobRuns() *prometheus.CounterVec {
	return m.jobRuns
}

// ClassifyPersistenceReason maps a storage error to a bounded label value.
func ClassifyPersistenceReason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonDeadlineExceeded
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return ReasonDBLockTimeout
		case "40001":
			return ReasonSerializationFailure
		case "23505":
			return ReasonUniqueViolation
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || db.IsDuplicateKeyErr(err) {
		return ReasonUniqueViolation
	}
	return ReasonUnknown
}
