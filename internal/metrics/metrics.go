// Package metrics exposes operational counters for the session server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	SessionsOpen prometheus.Gauge
	RoomsOpen    prometheus.Gauge
	ActionsTotal *prometheus.CounterVec
	EventsSent   prometheus.Counter
}

func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SessionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_open",
			Help:      "Number of connected websocket sessions",
		}),
		RoomsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms_open",
			Help:      "Number of live rooms",
		}),
		ActionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Total number of client actions processed",
		}, []string{"action"}),
		EventsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_sent_total",
			Help:      "Total number of events delivered to sessions",
		}),
	}

	m.registry.MustRegister(
		m.SessionsOpen,
		m.RoomsOpen,
		m.ActionsTotal,
		m.EventsSent,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
