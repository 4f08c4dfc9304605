package relay

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors the Handler updates after every
// request.
type Metrics struct {
	requestsTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers the relay's collectors against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "laeproxy",
			Name:      "requests_total",
			Help:      "Total proxied requests by method, status and result string.",
		}, []string{"method", "status", "result"}),
	}
	reg.MustRegister(m.requestsTotal)
	return m
}

// Observe records one completed request.
func (m *Metrics) Observe(method string, status int, result string) {
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(status), resultLabel(result)).Inc()
}

// resultLabel collapses the handful of result strings that embed variable
// data (a timestamp, an error's text, a byte count) into a stable label so
// series cardinality stays bounded.
func resultLabel(result string) string {
	switch {
	case strings.HasPrefix(result, "Retrieved from network"):
		return "Retrieved from network"
	case strings.HasPrefix(result, "Unexpected error:"):
		return "Unexpected error"
	case strings.HasPrefix(result, "Range specifies"):
		return "Range specifies N bytes"
	default:
		return result
	}
}
