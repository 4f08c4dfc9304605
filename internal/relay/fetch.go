package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// FetchResult is what a Fetcher returns for a completed outbound request.
type FetchResult struct {
	Status    int
	Headers   http.Header
	Body      []byte
	Truncated bool
}

// Sentinel errors a Fetcher implementation returns so the dispatcher can
// classify failures into a specific result string. Anything else is the
// "Unexpected error" branch.
var (
	// ErrInvalidURL is returned when the target URL is malformed or names
	// an unsupported scheme.
	ErrInvalidURL = errors.New("laeproxy: invalid url")
	// ErrDeadlineExceeded is returned when the fetch did not complete
	// before its deadline.
	ErrDeadlineExceeded = errors.New("laeproxy: missed urlfetch deadline")
	// ErrQuotaExceeded is returned when the host-imposed outbound fetch
	// quota is exhausted.
	ErrQuotaExceeded = errors.New("laeproxy: exceeded urlfetch quota")
)

// Fetcher is the abstract outbound-fetch capability: one method, a closed
// set of failure kinds, redirects never auto-followed, certificate
// validation always on, truncation of oversized responses always
// permitted. deadline bounds this one call; maxResBytes is the platform's
// inbound response ceiling, past which FetchResult.Truncated is set rather
// than the call failing.
type Fetcher interface {
	Fetch(ctx context.Context, req *OutgoingFetch, deadline time.Duration, maxResBytes int64) (*FetchResult, error)
}

// OutgoingFetch is the fully-prepared outbound request the Fetch Invoker
// hands to a Fetcher.
type OutgoingFetch struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// HTTPFetcher is the production Fetcher, implemented over net/http with
// deadline/redirect/cert/truncation semantics. It additionally models a
// host-imposed outbound quota with a token-bucket rate.Limiter, since that
// failure mode is otherwise an untestable property of a hosted platform.
type HTTPFetcher struct {
	Client  *http.Client
	Limiter *rate.Limiter
}

// NewHTTPFetcher builds an HTTPFetcher that never follows redirects and
// validates TLS certificates (the zero-value http.Transport already does),
// paired with a limiter allowing burst outbound fetches per second.
func NewHTTPFetcher(limiter *rate.Limiter) *HTTPFetcher {
	return &HTTPFetcher{
		Client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Limiter: limiter,
	}
}

// Fetch performs the outbound request, bounded by deadline, permitting
// response truncation at maxResBytes, and refusing to follow redirects.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *OutgoingFetch, deadline time.Duration, maxResBytes int64) (*FetchResult, error) {
	if req.URL == "" {
		return nil, ErrInvalidURL
	}

	if f.Limiter != nil && !f.Limiter.Allow() {
		return nil, ErrQuotaExceeded
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var result *FetchResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var body io.Reader
		if len(req.Body) > 0 {
			body = bytes.NewReader(req.Body)
		}
		httpReq, err := http.NewRequestWithContext(gctx, req.Method, req.URL, body)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidURL, err)
		}
		httpReq.Header = req.Headers

		resp, err := f.Client.Do(httpReq)
		if err != nil {
			if errors.Is(gctx.Err(), context.DeadlineExceeded) {
				return ErrDeadlineExceeded
			}
			return classifyTransportError(err)
		}
		defer resp.Body.Close()

		limited := io.LimitReader(resp.Body, maxResBytes+1)
		data, err := io.ReadAll(limited)
		if err != nil {
			return fmt.Errorf("reading response body: %w", err)
		}

		truncated := int64(len(data)) > maxResBytes
		if truncated {
			data = data[:maxResBytes]
		}

		result = &FetchResult{
			Status:    resp.StatusCode,
			Headers:   resp.Header,
			Body:      data,
			Truncated: truncated,
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, ErrDeadlineExceeded
		}
		return nil, err
	}
	return result, nil
}

// classifyTransportError maps the net/http errors we can attribute to a
// malformed/unsupported URL into ErrInvalidURL, leaving everything else to
// surface as the "Unexpected error" branch.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrDeadlineExceeded
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		msg := uerr.Unwrap()
		if msg != nil && (strings.Contains(msg.Error(), "unsupported protocol scheme") ||
			strings.Contains(msg.Error(), "missing protocol scheme") ||
			strings.Contains(msg.Error(), "no Host in request URL") ||
			strings.Contains(msg.Error(), "invalid URL")) {
			return ErrInvalidURL
		}
	}
	return err
}
