package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pickpoint",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	orderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pickpoint",
			Name:      "order_transitions_total",
			Help:      "Order status transitions by (from, to) pair.",
		},
		[]string{"from", "to"},
	)

	refreshResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pickpoint",
			Name:      "poll_refreshes_total",
			Help:      "Poll refresh outcomes: applied, discarded or failed.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, orderTransitions, refreshResults)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncOrderTransition records a committed status transition. Creation uses
// an empty "from" label.
func IncOrderTransition(from, to string) {
	orderTransitions.WithLabelValues(from, to).Inc()
}

// IncRefresh records a poll refresh outcome.
func IncRefresh(outcome string) {
	refreshResults.WithLabelValues(outcome).Inc()
}
