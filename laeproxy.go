// Package laeproxy is a forward proxy that lets a client on a censored
// network fetch arbitrary URLs by encoding the target in the request path
// (see internal/relay for the wire encoding and relay semantics) and
// relaying the result back. It is built to run on an application platform
// that enforces hard per-request quotas on outbound fetch size, outbound
// fetch time, inbound response size, and overall request wall time; most of
// the engineering in this repository exists to operate correctly at the
// seam between those quotas and RFC 2616 intermediary semantics.
package laeproxy

// Version is the proxy's semver build string. It is stamped onto every
// outgoing response via the X-laeproxy-version header (see internal/relay).
const Version = "1.0.0"
