package vm

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	editSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "msynth_edit_seconds",
		Help:    "Time an edit holds the engine lock.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	})
	editWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "msynth_edit_wait_seconds",
		Help:    "Time an edit waits for the engine lock.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	})
	editsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "msynth_edits_rejected_total",
		Help: "Edits rolled back because of an error.",
	})
	nodesLive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "msynth_nodes_live",
		Help: "Allocated graph nodes.",
	})
	variablesBound = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "msynth_variables",
		Help: "Bound variables.",
	})
)
