package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks points movement and ledger operation health.
type LedgerMetrics struct {
	credited *prometheus.CounterVec
	debited  *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	credited := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_points_credited_total",
		Help: "Points credited to user balances by transaction type.",
	}, []string{"type"})
	debited := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_points_debited_total",
		Help: "Points debited from user balances by transaction type.",
	}, []string{"type"})
	failures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operation_failures_total",
		Help: "Rejected or failed ledger operations by error code.",
	}, []string{"operation", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_operation_duration_seconds",
		Help:    "Duration of ledger operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(credited, debited, failures, duration)
	return &LedgerMetrics{
		credited: credited,
		debited:  debited,
		failures: failures,
		duration: duration,
	}
}

// AddCredited records points added to a balance.
func (m *LedgerMetrics) AddCredited(kind string, points int) {
	if m == nil || m.credited == nil || points <= 0 {
		return
	}
	m.credited.WithLabelValues(normalizeLabel(kind)).Add(float64(points))
}

// AddDebited records points removed from a balance.
func (m *LedgerMetrics) AddDebited(kind string, points int) {
	if m == nil || m.debited == nil || points <= 0 {
		return
	}
	m.debited.WithLabelValues(normalizeLabel(kind)).Add(float64(points))
}

// IncFailure counts a rejected operation.
func (m *LedgerMetrics) IncFailure(operation, code string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.WithLabelValues(normalizeLabel(operation), normalizeLabel(code)).Inc()
}

// ObserveDuration records how long an operation took.
func (m *LedgerMetrics) ObserveDuration(operation string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
