package relaytest

import (
	"net/http/httptest"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/getlantern/laeproxy/internal/relay"
	"github.com/getlantern/laeproxy/server"
)

// Proxy is a fully-wired proxy stack (server.NewProxyRouter over
// relay.NewHandler, backed by a real relay.HTTPFetcher) exposed as an
// httptest.Server, plus the mock origin it's expected to be pointed at.
type Proxy struct {
	Server *httptest.Server
	Origin *httptest.Server
	Quotas relay.Quotas
}

// NewProxy starts both servers. quotas lets scenario tests shrink the
// quotas that would otherwise take whole seconds to exercise (response size
// ceiling, overall deadline) down to values a unit test can afford.
func NewProxy(quotas relay.Quotas) *Proxy {
	origin := NewMockOrigin()

	metrics := relay.NewMetrics(prometheus.NewRegistry())
	handler := relay.NewHandler(relay.NewHTTPFetcher(nil), quotas, "relaytest", zap.NewNop(), metrics)
	router := server.NewProxyRouter(handler)

	return &Proxy{
		Server: httptest.NewServer(router),
		Origin: origin,
		Quotas: quotas,
	}
}

// Close tears down both servers.
func (p *Proxy) Close() {
	p.Server.Close()
	p.Origin.Close()
}

// OriginAuthority returns the mock origin's host:port, the form a
// proxy-encoded path embeds as its host segment.
func (p *Proxy) OriginAuthority() string {
	return p.Origin.Listener.Addr().String()
}

// ProxyAuthority returns the proxy's own host:port, usable to construct a
// recursive-request path ("/http/<this>/...").
func (p *Proxy) ProxyAuthority() string {
	return p.Server.Listener.Addr().String()
}
