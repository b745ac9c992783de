package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCallMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCallMetrics(reg)
	m.ObserveTurn("collecting_intent", "schedule")
	m.ObserveExtraction("fallback")
	m.ObserveBooking("booked")
	m.ObserveTurnLatency("confirming", 0.2)
}

func TestCallMetricsNilSafe(t *testing.T) {
	var m *CallMetrics
	m.ObserveTurn("state", "intent")
	m.ObserveExtraction("llm")
	m.ObserveBooking("conflict")
	m.ObserveTurnLatency("state", 0.1)
}
