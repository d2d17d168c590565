package player

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	samplesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "msynth_samples_total",
		Help: "Frames accepted by the audio backend.",
	})
	underrunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "msynth_underruns_total",
		Help: "Buffer underruns recovered.",
	})
	resumesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "msynth_resumes_total",
		Help: "Suspended devices resumed.",
	})
	periodSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "msynth_period_render_seconds",
		Help:    "Time to render one period, engine lock included.",
		Buckets: prometheus.ExponentialBuckets(1e-5, 2, 14),
	})
	peakLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "msynth_peak",
		Help: "Peak absolute sample value of the last period, before volume.",
	}, []string{"channel"})
	rmsLevel = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "msynth_rms",
		Help: "RMS level of the last period, before volume.",
	}, []string{"channel"})
)
