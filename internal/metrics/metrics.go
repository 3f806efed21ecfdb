// Package metrics provides Prometheus instrumentation for the planner chat
// endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ChatRequestsTotal counts /chat requests by outcome: "success" or the
	// failing error code.
	ChatRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_chat_requests_total",
		Help: "Total number of chat requests by outcome",
	}, []string{"outcome"})

	// CalculateRequestsTotal counts /calculate requests by outcome.
	CalculateRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_calculate_requests_total",
		Help: "Total number of calculate requests by outcome",
	}, []string{"outcome"})

	// ChatLatency records end-to-end /chat handling time in seconds.
	ChatLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_chat_latency_seconds",
		Help:    "Chat request handling latency in seconds",
		Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	})
)

func init() {
	prometheus.MustRegister(ChatRequestsTotal, CalculateRequestsTotal, ChatLatency)
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
