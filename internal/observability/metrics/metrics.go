package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters/histograms for the booking flow.
type BookingMetrics struct {
	transitionsTotal   *prometheus.CounterVec
	slotFetchTotal     *prometheus.CounterVec
	submissionsTotal   *prometheus.CounterVec
	submitLatency      prometheus.Histogram
	notificationsTotal *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "wizard_transitions_total",
			Help:      "Booking wizard transitions by name and outcome",
		}, []string{"transition", "outcome"}),
		slotFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "slot_fetch_total",
			Help:      "Slot availability lookups by result (ok, fallback, stale)",
		}, []string{"result"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Appointment submissions by result",
		}, []string{"result"}),
		submitLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "portal",
			Subsystem: "booking",
			Name:      "submit_latency_seconds",
			Help:      "Latency of create-appointment calls",
			Buckets:   prometheus.DefBuckets,
		}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "portal",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notifications relayed to patients by severity",
		}, []string{"severity"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitionsTotal, m.slotFetchTotal, m.submissionsTotal, m.submitLatency, m.notificationsTotal)
	return m
}

func (m *BookingMetrics) ObserveTransition(transition string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	m.transitionsTotal.WithLabelValues(transition, outcome).Inc()
}

func (m *BookingMetrics) ObserveSlotFetch(result string) {
	if m == nil {
		return
	}
	m.slotFetchTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveSubmission(result string, seconds float64) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(result).Inc()
	if seconds > 0 {
		m.submitLatency.Observe(seconds)
	}
}

func (m *BookingMetrics) ObserveNotification(severity string) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(severity).Inc()
}
