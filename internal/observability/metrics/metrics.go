package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for slot lookups, booking decisions and
// the callback pipeline.
type BookingMetrics struct {
	decisionsTotal   *prometheus.CounterVec
	slotsServedTotal *prometheus.CounterVec
	callbacksTotal   *prometheus.CounterVec
	transitionsTotal *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		decisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "booking",
			Name:      "decisions_total",
			Help:      "Booking decisions by channel, outcome and reason",
		}, []string{"channel", "outcome", "reason"}),
		slotsServedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "slots",
			Name:      "served_total",
			Help:      "Slot catalog requests by practice",
		}, []string{"practice_id"}),
		callbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "callbacks",
			Name:      "enqueued_total",
			Help:      "Callback tickets handed to the queue",
		}, []string{"status"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Subsystem: "tickets",
			Name:      "status_transitions_total",
			Help:      "Ticket status changes",
		}, []string{"from", "to"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.decisionsTotal, m.slotsServedTotal, m.callbacksTotal, m.transitionsTotal)
	return m
}

func (m *BookingMetrics) ObserveDecision(channel, outcome, reason string) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(channel, outcome, reason).Inc()
}

func (m *BookingMetrics) ObserveSlotsServed(practiceID string) {
	if m == nil {
		return
	}
	m.slotsServedTotal.WithLabelValues(practiceID).Inc()
}

func (m *BookingMetrics) ObserveCallbackEnqueued(status string) {
	if m == nil {
		return
	}
	m.callbacksTotal.WithLabelValues(status).Inc()
}

func (m *BookingMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to).Inc()
}
