package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestLedgerMetricsRecordsPoints(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)

	m.AddCredited("purchase", 160)
	m.AddCredited("purchase", 40)
	m.AddDebited("transfer", 100)
	m.AddDebited("transfer", 0)
	m.IncFailure("debit", "INSUFFICIENT_BALANCE")
	m.ObserveDuration("debit", 5*time.Millisecond)

	if got := testutil.ToFloat64(m.credited.WithLabelValues("purchase")); got != 200 {
		t.Fatalf("expected 200 credited, got %v", got)
	}
	if got := testutil.ToFloat64(m.debited.WithLabelValues("transfer")); got != 100 {
		t.Fatalf("expected 100 debited, got %v", got)
	}
	if got := testutil.ToFloat64(m.failures.WithLabelValues("debit", "INSUFFICIENT_BALANCE")); got != 1 {
		t.Fatalf("expected 1 failure, got %v", got)
	}
	if count := testutil.CollectAndCount(m.duration); count != 1 {
		t.Fatalf("expected one histogram series, got %d", count)
	}
}

func TestLedgerMetricsNilSafe(t *testing.T) {
	var m *LedgerMetrics
	m.AddCredited("purchase", 1)
	m.AddDebited("purchase", 1)
	m.IncFailure("op", "code")
	m.ObserveDuration("op", time.Second)

	noop := NewLedgerMetrics(nil)
	noop.AddCredited("purchase", 1)
}

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("transaction_created")
	m.IncFailed("transaction_created")
	m.IncDeadLettered("", "max_attempts")

	if got := testutil.ToFloat64(m.published.WithLabelValues("transaction_created")); got != 1 {
		t.Fatalf("expected 1 published, got %v", got)
	}
	if got := testutil.ToFloat64(m.deadLettered.WithLabelValues("unknown", "max_attempts")); got != 1 {
		t.Fatalf("expected unknown label for empty event type, got %v", got)
	}

	var nilMetrics *OutboxMetrics
	nilMetrics.IncPublished("x")
}

func TestLedgerDurationHistogramGathers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)
	m.ObserveDuration("transfer", 250*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	family := findFamily(mfs, "ledger_operation_duration_seconds")
	if family == nil {
		t.Fatal("duration histogram not gathered")
	}
	hist := family.GetMetric()[0].GetHistogram()
	if hist.GetSampleCount() != 1 || hist.GetSampleSum() <= 0 {
		t.Fatalf("unexpected histogram %+v", hist)
	}
}

func findFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}
