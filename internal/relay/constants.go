// Package relay implements the per-request proxy engine: decoding the
// proxy-encoded target URL from the client's path, sanitizing headers,
// admitting and validating Range requests, invoking the outbound Fetch
// capability, shaping the response, and annotating every outcome with a
// uniform diagnostic header set.
package relay

import "time"

// Quotas bundles the numeric limits the hosting platform enforces on every
// request. Reference values match the App Engine urlfetch/runtime quotas
// this proxy was originally built against.
type Quotas struct {
	// URLFetchReqMaxBytes bounds the outbound request payload (PUT/POST
	// body forwarded to the origin).
	URLFetchReqMaxBytes int64
	// URLFetchResMaxBytes bounds the inbound response body the platform
	// will deliver before truncating it.
	URLFetchResMaxBytes int64
	// URLFetchReqMaxSecs bounds the deadline passed to a single Fetch call.
	URLFetchReqMaxSecs time.Duration
	// GAEReqMaxSecs bounds the entire request, from dispatch to response
	// write, including the Fetch call.
	GAEReqMaxSecs time.Duration
	// RangeReqSize caps the number of bytes a client may request via a
	// single closed byte-range; chosen to match the downstream client's
	// chunk size and to stay under URLFetchResMaxBytes.
	RangeReqSize int64
}

// DefaultQuotas mirrors the reference App Engine urlfetch/runtime limits
// this proxy was originally built against.
var DefaultQuotas = Quotas{
	URLFetchReqMaxBytes: 5 * 1024 * 1024,
	URLFetchResMaxBytes: 32 * 1024 * 1024,
	URLFetchReqMaxSecs:  60 * time.Second,
	GAEReqMaxSecs:       60 * time.Second,
	RangeReqSize:        2_000_000,
}

// Method is one of the five methods this proxy relays.
type Method string

const (
	MethodDelete Method = "DELETE"
	MethodGet    Method = "GET"
	MethodHead   Method = "HEAD"
	MethodPut    Method = "PUT"
	MethodPost   Method = "POST"
)

// AllowedMethods is the set of methods the dispatcher will relay. Any other
// method is rejected by the HTTP router before it ever reaches this
// package.
var AllowedMethods = map[Method]bool{
	MethodDelete: true,
	MethodGet:    true,
	MethodHead:   true,
	MethodPut:    true,
	MethodPost:   true,
}

// IsRangeMethod reports whether requests of this method must carry (and
// have validated) a Range header. Only GET is a range method.
func IsRangeMethod(m Method) bool { return m == MethodGet }

// IsPayloadMethod reports whether the request body should be forwarded as
// the outbound fetch payload.
func IsPayloadMethod(m Method) bool { return m == MethodPut || m == MethodPost }

// hopByHop is RFC 2616 §13.5.1's set of headers meaningful only for a
// single transport-level connection, and therefore never forwarded by an
// intermediary.
var hopByHop = map[string]bool{
	"connection":          true,
	"keep-alive":          true,
	"proxy-authenticate":  true,
	"proxy-authorization": true,
	"te":                  true,
	"trailer":             true,
	"transfer-encoding":   true,
	"upgrade":             true,
}

// Result strings. Exactly one of these (or a dynamically formatted
// variant, e.g. RetrievedFromNetwork or the range/unexpected-error
// messages built at call sites) is stamped onto X-laeproxy-result.
const (
	ResultInvalidURL            = "Invalid url"
	ResultMissingHost           = "Missing host"
	ResultIgnoredRecursive      = "Ignored recursive request"
	ResultReqTooLarge           = "Request size exceeds urlfetch limit"
	ResultMissingOrInvalidRange = "Missing or invalid range header"
	ResultMultipleRanges        = "Multiple ranges unsupported"
	ResultRangeMustBeClosed     = "Range must be of the form bytes=x-y"
	ResultRangeOrderInvalid     = "Range must satisfy 0 <= range_start <= range_end"
	ResultMissedURLFetchDeadline = "Missed urlfetch deadline"
	ResultMissedGAEDeadline     = " Missed GAE deadline"
	ResultExceededURLFetchQuota = "Exceeded urlfetch quota"
)

// Header names of the diagnostic set every response carries, success or
// failure, so a client or operator can always tell what this proxy did.
const (
	HeaderVersion              = "X-laeproxy-version"
	HeaderResult               = "X-laeproxy-result"
	HeaderUpstreamServer       = "X-laeproxy-upstream-server"
	HeaderUpstreamStatusCode   = "X-laeproxy-upstream-status-code"
	HeaderUpstreamContentRange = "X-laeproxy-upstream-content-range"
	HeaderTruncated            = "X-laeproxy-truncated"
)
