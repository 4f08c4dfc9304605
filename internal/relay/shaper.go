package relay

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var (
	errNotBytesRange         = errors.New("content-range only supported in bytes")
	errMalformedContentRange = errors.New("malformed content-range")
)

// ShapedResponse is the result of running a completed FetchResult through
// the Response Shaper: status and body to write, plus the annotation
// fields the Result Annotator needs.
type ShapedResponse struct {
	Status              int
	Headers             http.Header
	Body                []byte
	UpstreamServer      string
	UpstreamStatusCode  int
	UpstreamContentRange string
	Truncated           bool
}

// Shape turns a completed FetchResult into the response this proxy will
// write: sanitizing headers, absolutizing a relative Location against
// scheme/host, and — for range requests — checking the upstream's
// Content-Range against rangeSpec purely for diagnostic logging, since an
// upstream that answers a range request oddly still gets its response
// relayed as-is.
func Shape(log *zap.Logger, result *FetchResult, method Method, rangeSpec RangeSpec, scheme, host string) ShapedResponse {
	headers := SanitizeResponseHeaders(result.Headers)

	if loc := headers.Get("Location"); loc != "" && !strings.HasPrefix(loc, "http") {
		path := loc
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		abs := scheme + "://" + host + path
		log.Debug("correcting relative Location header",
			zap.String("original", loc), zap.String("corrected", abs))
		headers.Set("Location", abs)
	}

	out := ShapedResponse{
		Status:             result.Status,
		Headers:            headers,
		Body:               result.Body,
		UpstreamServer:     result.Headers.Get("Server"),
		UpstreamStatusCode: result.Status,
		Truncated:          result.Truncated,
	}

	if result.Truncated {
		log.Warn("urlfetch returned truncated response, returning as-is, originator should verify")
		return out
	}

	if !IsRangeMethod(method) {
		log.Debug("non-range method, returning response as-is")
		return out
	}

	if result.Status == 200 {
		// RFC 2616 §14.35.2's last paragraph permits a proxy to convert a
		// 200 to a 206 and cache the remainder; deliberately not done here
		// given this platform's memory and latency constraints.
		log.Debug("destination server does not support range requests, returning response as-is")
		return out
	}

	if result.Status == 206 {
		crange := result.Headers.Get("Content-Range")
		out.UpstreamContentRange = crange
		log.Debug("upstream Content-Range", zap.String("content_range", crange))

		start, end, total, err := parseContentRange(crange)
		if err != nil {
			log.Warn("error parsing upstream Content-Range, returning 206 response as-is",
				zap.String("content_range", crange), zap.Error(err))
			return out
		}

		entire := start == 0 && end == total-1
		fulfills := start == rangeSpec.Start && end <= rangeSpec.End
		log.Debug("parsed Content-Range",
			zap.Int64("start", start), zap.Int64("end", end), zap.Int64("total", total),
			zap.Bool("entire_entity", entire), zap.Bool("fulfills_request", fulfills))
		if !fulfills {
			log.Warn("upstream Content-Range does not match range requested upstream, returning as-is; originator should verify",
				zap.String("content_range", crange),
				zap.String("requested_range", rangeSpec.Header()))
		}
		return out
	}

	log.Debug("non-200/206 response to range request, returning response as-is", zap.Int("status", result.Status))
	return out
}

// parseContentRange parses a strict "bytes S-E/T" Content-Range value.
func parseContentRange(v string) (start, end, total int64, err error) {
	const prefix = "bytes "
	if !strings.HasPrefix(v, prefix) {
		return 0, 0, 0, errNotBytesRange
	}
	rest := v[len(prefix):]
	sent, totalStr, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, 0, 0, errMalformedContentRange
	}
	startStr, endStr, ok := strings.Cut(sent, "-")
	if !ok {
		return 0, 0, 0, errMalformedContentRange
	}
	start, err = strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	end, err = strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	total, err = strconv.ParseInt(totalStr, 10, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	return start, end, total, nil
}
