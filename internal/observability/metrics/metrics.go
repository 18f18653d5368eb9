package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for booking flows and reconciliation.
type BookingMetrics struct {
	bookingsTotal  *prometheus.CounterVec
	conflictsTotal *prometheus.CounterVec
	rollbackTotal  *prometheus.CounterVec
	sweepRuns      prometheus.Counter
	sweepCancelled prometheus.Counter
	webhookTotal   *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnos",
			Subsystem: "booking",
			Name:      "requests_total",
			Help:      "Total booking transactions by result",
		}, []string{"op", "result"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnos",
			Subsystem: "booking",
			Name:      "conflicts_total",
			Help:      "Slot conflicts detected, by source of truth",
		}, []string{"source"}),
		rollbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnos",
			Subsystem: "booking",
			Name:      "rollbacks_total",
			Help:      "Compensating deletions of external events",
		}, []string{"result"}),
		sweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "turnos",
			Subsystem: "sync",
			Name:      "sweep_runs_total",
			Help:      "Reconciliation sweep executions",
		}),
		sweepCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "turnos",
			Subsystem: "sync",
			Name:      "sweep_cancelled_total",
			Help:      "Appointments cancelled because their external event vanished",
		}),
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "turnos",
			Subsystem: "sync",
			Name:      "webhook_total",
			Help:      "Calendar push notifications received, by resource state",
		}, []string{"state"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.conflictsTotal, m.rollbackTotal, m.sweepRuns, m.sweepCancelled, m.webhookTotal)
	return m
}

func (m *BookingMetrics) ObserveBooking(op, result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(op, result).Inc()
}

func (m *BookingMetrics) ObserveConflict(source string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(source).Inc()
}

func (m *BookingMetrics) ObserveRollback(result string) {
	if m == nil {
		return
	}
	m.rollbackTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveSweep(cancelled int) {
	if m == nil {
		return
	}
	m.sweepRuns.Inc()
	m.sweepCancelled.Add(float64(cancelled))
}

func (m *BookingMetrics) ObserveWebhook(state string) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(state).Inc()
}
