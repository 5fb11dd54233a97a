package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "messages_processed_total",
			Help:      "Total number of chat messages processed by the content filter.",
		},
		[]string{"outcome"}, // outcome="clean" or "redacted"
	)

	blockedReasonsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "blocked_reasons_total",
			Help:      "Total number of content filter detections by category.",
		},
		[]string{"reason"},
	)

	fanoutPublishErrorsCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chat",
			Name:      "fanout_publish_errors_total",
			Help:      "Total number of failed NATS publishes of persisted messages.",
		},
	)
)
