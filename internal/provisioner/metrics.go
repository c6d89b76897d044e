package provisioner

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/imamik/remotexec/internal/platform/ssh"
)

const (
	opCreate = "create"
	opDelete = "delete"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	executionsTotal   *prometheus.CounterVec
	executionDuration *prometheus.HistogramVec
	connectAttempts   *prometheus.CounterVec
	reconcileOutcomes *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		executionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "remotexec",
				Subsystem: "engine",
				Name:      "executions_total",
				Help:      "Total number of bundle executions by operation and result",
			},
			[]string{"operation", "result"},
		),
		executionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "remotexec",
				Subsystem: "engine",
				Name:      "execution_duration_seconds",
				Help:      "Duration of bundle executions in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34min
			},
			[]string{"operation"},
		),
		connectAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "remotexec",
				Subsystem: "transport",
				Name:      "connect_attempts_total",
				Help:      "Total number of connection attempts by result",
			},
			[]string{"result"},
		),
		reconcileOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "remotexec",
				Subsystem: "engine",
				Name:      "reconcile_total",
				Help:      "Total number of unit reconciliations by action",
			},
			[]string{"action"},
		),
	}
	reg.MustRegister(m.executionsTotal, m.executionDuration, m.connectAttempts, m.reconcileOutcomes)
	return m
}

// AttemptObserver returns a transport observer counting connection attempts.
func (m *Metrics) AttemptObserver() ssh.AttemptObserver {
	return func(_ string, _ int, err error) {
		if m == nil {
			return
		}
		m.connectAttempts.WithLabelValues(result(err)).Inc()
	}
}

// RecordOutcome counts a reconciliation.
func (m *Metrics) RecordOutcome(action Action) {
	if m == nil {
		return
	}
	m.reconcileOutcomes.WithLabelValues(string(action)).Inc()
}

func (m *Metrics) observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.executionsTotal.WithLabelValues(operation, result(err)).Inc()
	m.executionDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func result(err error) string {
	var exitErr *ExitError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &exitErr):
		return "nonzero_exit"
	case errors.Is(err, ssh.ErrUnreachable):
		return "unreachable"
	default:
		return "error"
	}
}
