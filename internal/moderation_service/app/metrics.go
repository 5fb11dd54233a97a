package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	natsMessagesReceivedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moderation",
			Name:      "nats_messages_received_total",
			Help:      "Total number of chat message events received from NATS.",
		},
		[]string{"subject"},
	)

	flagsCreatedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "moderation",
			Name:      "flags_created_total",
			Help:      "Total number of moderation flags created, by first reason.",
		},
		[]string{"reason"},
	)

	messagesSkippedCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "moderation",
			Name:      "messages_skipped_total",
			Help:      "Total number of clean messages that required no flag.",
		},
	)
)
