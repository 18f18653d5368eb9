package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestBookingMetricsRegisterAndCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveBooking("create", "ok")
	m.ObserveBooking("create", "conflict")
	m.ObserveConflict("local")
	m.ObserveSweep(3)
	m.ObserveSweep(0)
	m.ObserveWebhook("exists")

	if got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("create", "ok")); got != 1 {
		t.Errorf("bookings ok = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.sweepRuns); got != 2 {
		t.Errorf("sweep runs = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.sweepCancelled); got != 3 {
		t.Errorf("sweep cancelled = %v, want 3", got)
	}
}

func TestNilReceiverIsSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveBooking("create", "ok")
	m.ObserveConflict("calendar")
	m.ObserveRollback("ok")
	m.ObserveSweep(1)
	m.ObserveWebhook("sync")
}
