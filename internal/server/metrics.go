package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors.
type Metrics struct {
	WagersPlaced       *prometheus.CounterVec
	RoundsSettled      *prometheus.CounterVec
	ActiveParticipants prometheus.Gauge
}

// NewMetrics registers the collectors on the given registry. Each server
// owns its own registry so tests can run servers side by side.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		WagersPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flipside_wagers_total",
			Help: "Total number of accepted wagers, by side.",
		}, []string{"side"}),
		RoundsSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flipside_rounds_settled_total",
			Help: "Total number of settled rounds, by winning outcome.",
		}, []string{"winner"}),
		ActiveParticipants: factory.NewGauge(prometheus.GaugeOpts{
			Name: "flipside_active_participants",
			Help: "Number of currently connected participants.",
		}),
	}
}
