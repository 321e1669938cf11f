package repository

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeHit   = "hit"
	outcomeMiss  = "miss"
	outcomeStale = "stale"
)

var cacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "storynest",
		Subsystem: "repository",
		Name:      "cache_lookups_total",
		Help:      "Repository cache lookups by outcome. stale counts reads answered from an expired entry after a failed fetch.",
	},
	[]string{"resource", "outcome"},
)
