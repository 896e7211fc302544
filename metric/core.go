package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values for EventsProcessed
const (
	OutcomeAcknowledged = "acknowledged"
	OutcomeDeadLettered = "dead_lettered"
	OutcomeRedelivered  = "redelivered"
)

// Metrics contains all pipeline-level metrics
type Metrics struct {
	EventsReceived     *prometheus.CounterVec
	EventsProcessed    *prometheus.CounterVec
	DeadLettered       *prometheus.CounterVec
	RetriesTotal       *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
	ProcessingDuration prometheus.Histogram
	ResultsPublished   prometheus.Counter
	InFlight           prometheus.Gauge
	SlotWaitDuration   prometheus.Histogram
	SlotWaitExceeded   prometheus.Counter

	// NATS metrics
	NATSConnected  prometheus.Gauge
	NATSReconnects prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all pipeline metrics
func NewMetrics() *Metrics {
	return &Metrics{
		EventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nsai",
				Subsystem: "pipeline",
				Name:      "events_received_total",
				Help:      "Total number of events received from the stream",
			},
			[]string{"subject"},
		),

		EventsProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nsai",
				Subsystem: "pipeline",
				Name:      "events_processed_total",
				Help:      "Total number of events reaching a terminal outcome",
			},
			[]string{"outcome"},
		),

		DeadLettered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nsai",
				Subsystem: "pipeline",
				Name:      "dead_lettered_total",
				Help:      "Total number of events routed to the dead-letter subject",
			},
			[]string{"stage", "class"},
		),

		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "nsai",
				Subsystem: "pipeline",
				Name:      "retries_total",
				Help:      "Total number of retryable failures that triggered a backoff",
			},
			[]string{"stage"},
		),

		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "nsai",
				Subsystem: "pipeline",
				Name:      "stage_duration_seconds",
				Help:      "Time spent per processing stage",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"stage"},
		),

		ProcessingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "nsai",
				Subsystem: "pipeline",
				Name:      "processing_duration_seconds",
				Help:      "End-to-end processing latency per event",
				Buckets:   prometheus.DefBuckets,
			},
		),

		ResultsPublished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "nsai",
				Subsystem: "pipeline",
				Name:      "results_published_total",
				Help:      "Total number of results published downstream",
			},
		),

		InFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "nsai",
				Subsystem: "pipeline",
				Name:      "in_flight_events",
				Help:      "Events currently holding a work slot",
			},
		),

		SlotWaitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "nsai",
				Subsystem: "pipeline",
				Name:      "slot_wait_seconds",
				Help:      "Time spent waiting for a work slot",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0},
			},
		),

		SlotWaitExceeded: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "nsai",
				Subsystem: "pipeline",
				Name:      "slot_wait_exceeded_total",
				Help:      "Deliveries left unacknowledged because no work slot freed in time",
			},
		),

		NATSConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "nsai",
				Subsystem: "nats",
				Name:      "connected",
				Help:      "NATS connection status (0=disconnected, 1=connected)",
			},
		),

		NATSReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "nsai",
				Subsystem: "nats",
				Name:      "reconnects_total",
				Help:      "Total number of NATS reconnections",
			},
		),
	}
}

// RecordEventReceived increments the received counter for a subject
func (m *Metrics) RecordEventReceived(subject string) {
	m.EventsReceived.WithLabelValues(subject).Inc()
}

// RecordOutcome increments the terminal outcome counter
func (m *Metrics) RecordOutcome(outcome string) {
	m.EventsProcessed.WithLabelValues(outcome).Inc()
}

// RecordDeadLettered increments the dead-letter counter
func (m *Metrics) RecordDeadLettered(stage, class string) {
	m.DeadLettered.WithLabelValues(stage, class).Inc()
}

// RecordRetry increments the retry counter for a stage
func (m *Metrics) RecordRetry(stage string) {
	m.RetriesTotal.WithLabelValues(stage).Inc()
}

// RecordStageDuration records time spent in a processing stage
func (m *Metrics) RecordStageDuration(stage string, d time.Duration) {
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RecordProcessingDuration records end-to-end latency for one event
func (m *Metrics) RecordProcessingDuration(d time.Duration) {
	m.ProcessingDuration.Observe(d.Seconds())
}

// RecordResultPublished increments the published results counter
func (m *Metrics) RecordResultPublished() {
	m.ResultsPublished.Inc()
}

// RecordInFlightDelta adjusts the in-flight gauge
func (m *Metrics) RecordInFlightDelta(delta float64) {
	m.InFlight.Add(delta)
}

// RecordSlotWait records time spent waiting for a work slot
func (m *Metrics) RecordSlotWait(d time.Duration) {
	m.SlotWaitDuration.Observe(d.Seconds())
}

// RecordSlotWaitExceeded increments the slot-wait-exceeded counter
func (m *Metrics) RecordSlotWaitExceeded() {
	m.SlotWaitExceeded.Inc()
}

// RecordNATSStatus updates the NATS connection status gauge
func (m *Metrics) RecordNATSStatus(connected bool) {
	value := 0.0
	if connected {
		value = 1.0
	}
	m.NATSConnected.Set(value)
}

// RecordNATSReconnect increments the reconnection counter
func (m *Metrics) RecordNATSReconnect() {
	m.NATSReconnects.Inc()
}
