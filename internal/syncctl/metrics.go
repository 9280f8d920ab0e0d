package syncctl

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the sync controller's Prometheus collectors.
type Metrics struct {
	saves          *prometheus.CounterVec
	reloads        *prometheus.CounterVec
	echoSuppressed prometheus.Counter
	saveDuration   prometheus.Histogram
}

// NewMetrics registers the collectors with reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		saves: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_sync_saves_total",
			Help: "Graph saves by result",
		}, []string{"result"}),
		reloads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_sync_reloads_total",
			Help: "Graph reloads by reason (initial, remote, force) and result",
		}, []string{"reason", "result"}),
		echoSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "nexus_sync_echo_suppressed_total",
			Help: "Change notifications discarded as echoes of our own saves",
		}),
		saveDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "nexus_sync_save_duration_seconds",
			Help:    "Duration of graph saves",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
