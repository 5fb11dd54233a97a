package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	checkInsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracking",
			Name:      "check_ins_total",
			Help:      "Total number of successful check-ins.",
		},
		[]string{"in_range"}, // "true" / "false"
	)

	checkOutsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracking",
			Name:      "check_outs_total",
			Help:      "Total number of successful check-outs.",
		},
		[]string{"in_range"},
	)

	positionFailuresCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tracking",
			Name:      "position_failures_total",
			Help:      "Total number of aborted operations due to position acquisition failures.",
		},
		[]string{"kind"}, // "permission_denied" / "unavailable"
	)
)
