package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler is the request dispatcher and deadline guard. It wires URL
// decoding, header sanitization, Range admission, the outbound Fetch,
// response shaping and result annotation into a single request's control
// flow, and bounds the whole pipeline by Quotas.GAEReqMaxSecs.
type Handler struct {
	Fetcher Fetcher
	Quotas  Quotas
	Version string
	Log     *zap.Logger
	Metrics *Metrics

	// Now is overridable in tests; defaults to time.Now.
	Now func() time.Time
}

// NewHandler builds a Handler with its Now hook defaulting to time.Now.
func NewHandler(fetcher Fetcher, quotas Quotas, version string, log *zap.Logger, metrics *Metrics) *Handler {
	return &Handler{
		Fetcher: fetcher,
		Quotas:  quotas,
		Version: version,
		Log:     log,
		Metrics: metrics,
		Now:     time.Now,
	}
}

// outcome is what dispatch produces for ServeHTTP to serialize: the status,
// headers and body to write. Only the success path's headers already carry
// the version header; ServeHTTP (the sole writer to the wire) always stamps
// it last on every outcome.
type outcome struct {
	status  int
	headers http.Header
	body    []byte
}

// ServeHTTP implements http.Handler. It never panics out through to the
// server: every exit path (success, rejection, fetch error, or overall
// deadline) writes a status and the full set of annotation headers. The
// deadline guard state machine (RUNNING -> {DONE_OK, DONE_ERROR,
// DEADLINE_EXPIRED}) is realized by racing dispatch's result channel
// against ctx.Done().
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.NewString()
	log := h.Log.With(zap.String("request_id", reqID), zap.String("method", r.Method), zap.String("path", r.URL.RequestURI()))

	ctx, cancel := context.WithTimeout(r.Context(), h.Quotas.GAEReqMaxSecs)
	defer cancel()

	results := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				log.Error("panic in dispatch", zap.Any("panic", p))
				headers := make(http.Header)
				headers.Set(HeaderResult, fmt.Sprintf("Unexpected error: %v", p))
				results <- outcome{status: 500, headers: headers}
			}
		}()
		results <- h.dispatch(ctx, r, log)
	}()

	var final outcome
	select {
	case final = <-results:
		// RUNNING -> DONE_OK or DONE_ERROR; dispatch already set the
		// result string appropriate to whichever it was.
	case <-ctx.Done():
		// RUNNING -> DEADLINE_EXPIRED. The in-flight fetch, if any, is
		// abandoned; the response starts from an empty header set with
		// just the deadline suffix appended.
		final = outcome{status: 504, headers: make(http.Header)}
		AppendDeadlineSuffix(final.headers)
		log.Warn("missed overall request deadline")
	}

	if final.headers == nil {
		final.headers = make(http.Header)
	}
	final.headers.Set(HeaderVersion, h.Version)

	for k, v := range final.headers {
		w.Header()[k] = v
	}
	w.WriteHeader(final.status)
	if len(final.body) > 0 {
		_, _ = w.Write(final.body)
	}

	if h.Metrics != nil {
		h.Metrics.Observe(r.Method, final.status, final.headers.Get(HeaderResult))
	}
}

// dispatch runs the per-request pipeline and returns the outcome to
// serialize. It never touches the ResponseWriter directly, so ServeHTTP's
// deadline guard can safely abandon it mid-flight.
func (h *Handler) dispatch(ctx context.Context, r *http.Request, log *zap.Logger) outcome {
	headers := make(http.Header)

	method := Method(r.Method)
	if !AllowedMethods[method] {
		// The router is expected to reject other methods before dispatch,
		// but fail closed rather than relay an unsupported verb.
		headers.Set(HeaderResult, "Unsupported method")
		return outcome{status: 405, headers: headers}
	}

	target, err := DecodeURL(r.URL.RequestURI(), r.Host)
	if err != nil {
		var derr *DecodeError
		if errors.As(err, &derr) {
			headers.Set(HeaderResult, derr.Result)
			return outcome{status: derr.Status, headers: headers}
		}
		headers.Set(HeaderResult, fmt.Sprintf("Unexpected error: %v", err))
		return outcome{status: 500, headers: headers}
	}
	log.Debug("decoded target url", zap.String("target", target.String()))

	var payload []byte
	if IsPayloadMethod(method) {
		body, err := io.ReadAll(io.LimitReader(r.Body, h.Quotas.URLFetchReqMaxBytes+1))
		if err != nil {
			headers.Set(HeaderResult, fmt.Sprintf("Unexpected error: %v", err))
			return outcome{status: 500, headers: headers}
		}
		payload = body
	}
	if int64(len(payload)) >= h.Quotas.URLFetchReqMaxBytes {
		headers.Set(HeaderResult, ResultReqTooLarge)
		return outcome{status: 400, headers: headers}
	}

	reqHeaders := SanitizeRequestHeaders(r.Header)

	var rangeSpec RangeSpec
	if IsRangeMethod(method) {
		rangeSpec, err = ParseRange(r.Header.Get("Range"), h.Quotas)
		if err != nil {
			var rerr *RangeError
			if errors.As(err, &rerr) {
				headers.Set(HeaderResult, rerr.Result)
				return outcome{status: rerr.Status, headers: headers}
			}
			headers.Set(HeaderResult, fmt.Sprintf("Unexpected error: %v", err))
			return outcome{status: 500, headers: headers}
		}
		reqHeaders.Set("Range", rangeSpec.Header())
	}

	fetchReq := &OutgoingFetch{
		Method:  r.Method,
		URL:     target.String(),
		Headers: reqHeaders,
		Body:    payload,
	}

	result, err := h.Fetcher.Fetch(ctx, fetchReq, h.Quotas.URLFetchReqMaxSecs, h.Quotas.URLFetchResMaxBytes)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidURL):
			log.Debug("invalid url at fetch", zap.String("target", target.String()))
			headers.Set(HeaderResult, ResultInvalidURL)
			return outcome{status: 404, headers: headers}
		case errors.Is(err, ErrDeadlineExceeded):
			log.Warn(ResultMissedURLFetchDeadline)
			headers.Set(HeaderResult, ResultMissedURLFetchDeadline)
			return outcome{status: 504, headers: headers}
		case errors.Is(err, ErrQuotaExceeded):
			log.Warn(ResultExceededURLFetchQuota)
			headers.Set(HeaderResult, ResultExceededURLFetchQuota)
			return outcome{status: 503, headers: headers}
		default:
			log.Error("unexpected fetch error", zap.Error(err))
			headers.Set(HeaderResult, fmt.Sprintf("Unexpected error: %v", err))
			return outcome{status: 500, headers: headers}
		}
	}

	log.Debug("fetch completed",
		zap.String("upstream_bytes", humanize.Bytes(uint64(len(result.Body)))),
		zap.Bool("truncated", result.Truncated))

	shaped := Shape(log, result, method, rangeSpec, target.Scheme, target.Host)
	for k, v := range shaped.Headers {
		headers[k] = v
	}

	upstreamServer := shaped.UpstreamServer
	upstreamStatus := shaped.UpstreamStatusCode
	ann := Annotation{
		Result:             RetrievedFromNetwork(h.Now()),
		UpstreamServer:     &upstreamServer,
		UpstreamStatusCode: &upstreamStatus,
		Truncated:          shaped.Truncated,
	}
	if shaped.UpstreamContentRange != "" {
		cr := shaped.UpstreamContentRange
		ann.UpstreamContentRange = &cr
	}
	Annotate(headers, h.Version, ann)

	return outcome{status: shaped.Status, headers: headers, body: shaped.Body}
}
