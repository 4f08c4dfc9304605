package relay

import (
	"net/http"
	"strings"
)

// SanitizeRequestHeaders returns a copy of headers with all hop-by-hop
// headers (RFC 2616 §13.5.1), any header named in an incoming Connection
// header, and Host removed. Comparison is case-insensitive: every key is
// lowercased before lookup, so non-canonical keys are matched too.
func SanitizeRequestHeaders(headers http.Header) http.Header {
	strip := stripSet(headers.Get("Connection"))
	strip["host"] = true
	return stripHeaders(headers, strip)
}

// SanitizeResponseHeaders performs the symmetric strip on a fetched
// response's headers before it is relayed to the client.
func SanitizeResponseHeaders(headers http.Header) http.Header {
	strip := stripSet(headers.Get("Connection"))
	return stripHeaders(headers, strip)
}

// stripSet parses a Connection header value as a comma-separated list of
// header names and unions it with the fixed hop-by-hop set.
func stripSet(connection string) map[string]bool {
	strip := make(map[string]bool, len(hopByHop)+1)
	for k := range hopByHop {
		strip[k] = true
	}
	for _, f := range strings.Split(connection, ",") {
		f = strings.ToLower(strings.TrimSpace(f))
		if f != "" {
			strip[f] = true
		}
	}
	return strip
}

// stripHeaders copies headers into a new http.Header, omitting any name
// (compared case-insensitively by lowercasing it) present in
// strip. Sanitizing an already-sanitized header set is idempotent: strip is
// always recomputed from the (already-stripped) Connection header, which
// will be empty/absent after the first pass.
func stripHeaders(headers http.Header, strip map[string]bool) http.Header {
	out := make(http.Header, len(headers))
	for k, v := range headers {
		if strip[strings.ToLower(k)] {
			continue
		}
		out[k] = append([]string(nil), v...)
	}
	return out
}
