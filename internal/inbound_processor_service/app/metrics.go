package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	natsEventsReceivedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inbound",
			Name:      "nats_events_received_total",
			Help:      "Total raw webhook entries received from NATS.",
		},
		[]string{"subject"},
	)

	eventsProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inbound",
			Name:      "events_processed_total",
			Help:      "Total webhook events processed by kind and outcome.",
		},
		[]string{"kind", "outcome"}, // outcome: "ok", "error"
	)

	unrecognizedEventsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inbound",
			Name:      "events_unrecognized_total",
			Help:      "Total webhook events that matched no known shape.",
		},
	)
)
