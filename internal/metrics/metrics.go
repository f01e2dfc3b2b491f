package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Engine counters. Registered on the default registry; main exposes them at
// /metrics via promhttp.
var (
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cinecircle_membership_actions_total",
		Help: "Membership actions executed, by kind and outcome.",
	}, []string{"kind", "outcome"})

	ReconcilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinecircle_membership_reconciles_total",
		Help: "Reconciliation passes that actually ran (change-gated).",
	})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinecircle_membership_cache_hits_total",
		Help: "Unexpired membership hints served from the local cache.",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cinecircle_membership_cache_misses_total",
		Help: "Cache lookups that found no usable hint.",
	})
)
