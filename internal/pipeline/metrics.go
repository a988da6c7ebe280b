package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagebeat_events_admitted_total",
		Help: "Events accepted into the admission buffer.",
	})

	eventsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagebeat_events_rejected_total",
		Help: "Events rejected with backpressure because the buffer was full.",
	})

	bufferOccupancy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pagebeat_buffer_occupancy",
		Help: "Current admission buffer occupancy in the configured policy unit.",
	})

	batchesFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagebeat_batches_flushed_total",
		Help: "Batches successfully written to storage.",
	})

	eventsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagebeat_events_persisted_total",
		Help: "Events durably written to storage.",
	})

	batchesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagebeat_batches_dropped_total",
		Help: "Batches dropped after retry exhaustion or pending-queue overflow.",
	})

	sinkRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pagebeat_sink_retries_total",
		Help: "Storage write attempts that failed and were retried.",
	})
)
