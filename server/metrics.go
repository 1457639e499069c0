package server

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var connectionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "evroam",
	Subsystem: "server",
	Name:      "feed_connections_active",
	Help:      "Number of active websocket feed connections.",
})

var requestCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "evroam",
	Subsystem: "server",
	Name:      "api_requests_total",
	Help:      "API requests by route and response status.",
}, []string{"route", "code"})

func observeConnections(delta int) {
	connectionsGauge.Add(float64(delta))
}

func observeRequest(route string, code int) {
	if len(route) == 0 {
		return
	}
	requestCounter.With(prometheus.Labels{"route": route, "code": strconv.Itoa(code)}).Inc()
}
