package realtime

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	ChangesPublished *prometheus.CounterVec
	ActiveListeners  *prometheus.GaugeVec
	WsClients        prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ChangesPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notebook_sync",
			Name:      "changes_published_total",
			Help:      "Changes published to the feed, by topic and origin.",
		}, []string{"topic", "origin"}),
		ActiveListeners: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "notebook_sync",
			Name:      "active_listeners",
			Help:      "Listeners currently subscribed, by kind.",
		}, []string{"kind"}),
		WsClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "notebook_sync",
			Name:      "websocket_clients",
			Help:      "Connected websocket clients on this instance.",
		}),
	}
}
