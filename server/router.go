// Package server wires the relay.Handler into an HTTP router: the catch-all
// proxy route ("^/http(s)?/.*") plus a sibling /metrics endpoint, each on
// its own mux so a client probing arbitrary proxy paths can never reach
// metrics.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewProxyRouter mounts proxyHandler at the proxy-encoded-URL pattern
// "/<scheme>/<host>[/<rest>]". Method filtering happens here: only the
// methods relay.AllowedMethods lists are routed to the handler, everything
// else gets chi's default 405 — not the relay engine's responsibility.
func NewProxyRouter(proxyHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	for _, m := range []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodDelete} {
		r.Method(m, "/http/*", proxyHandler)
		r.Method(m, "/https/*", proxyHandler)
	}

	return r
}

// NewMetricsRouter serves Prometheus's text exposition format at /metrics,
// kept on a separate listener/router from the proxy route so a client
// probing arbitrary "/<scheme>/<host>" paths can never reach it.
func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	return r
}
