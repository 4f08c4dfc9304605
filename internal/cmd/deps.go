package cmd

import (
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// promRegisterer returns the default Prometheus registry; split out so a
// future test can substitute a fresh prometheus.NewRegistry() without
// touching runServer's wiring.
func promRegisterer() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

// newLimiter builds the token-bucket limiter modeling the platform's
// outbound fetch quota (see relay.HTTPFetcher). A non-positive qps disables
// the limiter entirely.
func newLimiter(qps float64) *rate.Limiter {
	if qps <= 0 {
		return nil
	}
	burst := int(qps)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(qps), burst)
}
