package metrics

import "github.com/prometheus/client_golang/prometheus"

// CallMetrics exposes counters/histograms for the call-flow engine. A nil
// receiver is a no-op, so wiring metrics stays optional in tests.
type CallMetrics struct {
	turnsTotal       *prometheus.CounterVec
	extractionsTotal *prometheus.CounterVec
	bookingsTotal    *prometheus.CounterVec
	turnLatency      *prometheus.HistogramVec
}

func NewCallMetrics(reg prometheus.Registerer) *CallMetrics {
	m := &CallMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicvoice",
			Subsystem: "callflow",
			Name:      "turns_total",
			Help:      "Total dialogue turns processed",
		}, []string{"state", "intent"}),
		extractionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicvoice",
			Subsystem: "callflow",
			Name:      "extractions_total",
			Help:      "Total entity extractions by source path",
		}, []string{"source"}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicvoice",
			Subsystem: "callflow",
			Name:      "bookings_total",
			Help:      "Booking outcomes (booked, rescheduled, cancelled, conflict, failed)",
		}, []string{"outcome"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinicvoice",
			Subsystem: "callflow",
			Name:      "turn_latency_seconds",
			Help:      "Latency of one dialogue turn end to end",
			Buckets:   prometheus.DefBuckets,
		}, []string{"state"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.extractionsTotal, m.bookingsTotal, m.turnLatency)
	return m
}

func (m *CallMetrics) ObserveTurn(state, intent string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(state, intent).Inc()
}

func (m *CallMetrics) ObserveExtraction(source string) {
	if m == nil {
		return
	}
	m.extractionsTotal.WithLabelValues(source).Inc()
}

func (m *CallMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(outcome).Inc()
}

func (m *CallMetrics) ObserveTurnLatency(state string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(state).Observe(seconds)
}
