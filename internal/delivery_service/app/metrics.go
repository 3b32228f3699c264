package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	natsSendJobsReceivedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "delivery",
			Name:      "nats_jobs_received_total",
			Help:      "Total NATS campaign send jobs received.",
		},
		[]string{"subject"},
	)

	recipientsProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "delivery",
			Name:      "recipients_processed_total",
			Help:      "Total campaign recipients processed by send outcome.",
		},
		[]string{"channel", "status"}, // status: "sent", "failed"
	)

	providerRequestDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "delivery",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of HTTP requests to channel providers.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"channel"},
	)

	campaignProcessingDurationHist = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "delivery",
			Name:      "campaign_processing_duration_seconds",
			Help:      "Duration of full campaign send jobs.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{},
	)
)
