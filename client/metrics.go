package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storynest_client",
			Name:      "generations_enqueued_total",
			Help:      "Story generations accepted into the shard executor.",
		},
		[]string{"shard"},
	)

	generationsFailedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "storynest_client",
			Name:      "generation_failures_total",
			Help:      "Story generations that failed after all retries.",
		},
		[]string{"shard"},
	)
)
