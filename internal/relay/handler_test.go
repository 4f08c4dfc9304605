package relay

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func testQuotas() Quotas {
	return Quotas{
		URLFetchReqMaxBytes: 1024,
		URLFetchResMaxBytes: 2048,
		URLFetchReqMaxSecs:  2 * time.Second,
		GAEReqMaxSecs:       3 * time.Second,
		RangeReqSize:        2_000_000,
	}
}

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	m := NewMetrics(prometheus.NewRegistry())
	return NewHandler(NewHTTPFetcher(nil), testQuotas(), "test-version", zap.NewNop(), m)
}

func TestHandler_EchoRangeHonored(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "bytes 0-4/5")
		w.WriteHeader(206)
		w.Write([]byte("hello"))
	}))
	defer origin.Close()

	h := newTestHandler(t)
	req := httptest.NewRequest("GET", "/http/"+origin.Listener.Addr().String()+"/echo?msg=hello", nil)
	req.Header.Set("Range", "bytes=0-1999999")
	req.Host = "proxy.example.net"
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != 206 {
		t.Fatalf("status = %d, want 206; headers=%v body=%s", rr.Code, rr.Header(), rr.Body.String())
	}
	if rr.Body.String() != "hello" {
		t.Errorf("body = %q, want %q", rr.Body.String(), "hello")
	}
	if got := rr.Header().Get(HeaderUpstreamStatusCode); got != "206" {
		t.Errorf("upstream status header = %q", got)
	}
}

func TestHandler_InvalidRangesRejected(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("hello"))
	}))
	defer origin.Close()

	cases := []string{"", "garbage", "bytes=5-", "bytes=-5", "bytes=2-1", "bytes=4-5,7-8", "bytes=0-2000000"}
	for _, rangeHeader := range cases {
		t.Run(rangeHeader, func(t *testing.T) {
			h := newTestHandler(t)
			req := httptest.NewRequest("GET", "/http/"+origin.Listener.Addr().String()+"/echo", nil)
			if rangeHeader != "" {
				req.Header.Set("Range", rangeHeader)
			}
			req.Host = "proxy.example.net"
			rr := httptest.NewRecorder()

			h.ServeHTTP(rr, req)

			if rr.Code != 400 && rr.Code != 416 {
				t.Errorf("status = %d, want 400 or 416", rr.Code)
			}
			if rr.Header().Get(HeaderUpstreamStatusCode) != "" {
				t.Errorf("expected no upstream-status-code header on a rejected range")
			}
		})
	}
}

func TestHandler_TruncationSignaled(t *testing.T) {
	big := make([]byte, 200)
	for i := range big {
		big[i] = 'a'
	}
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write(big)
	}))
	defer origin.Close()

	q := testQuotas()
	q.URLFetchResMaxBytes = 100
	m := NewMetrics(prometheus.NewRegistry())
	h := NewHandler(NewHTTPFetcher(nil), q, "test-version", zap.NewNop(), m)

	req := httptest.NewRequest("GET", "/http/"+origin.Listener.Addr().String()+"/size", nil)
	req.Header.Set("Range", "bytes=0-1999999")
	req.Host = "proxy.example.net"
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Body.Len() != 100 {
		t.Errorf("body len = %d, want 100", rr.Body.Len())
	}
	if rr.Header().Get(HeaderTruncated) != "true" {
		t.Errorf("truncated header = %q, want \"true\"", rr.Header().Get(HeaderTruncated))
	}
	if rr.Header().Get(HeaderUpstreamStatusCode) != "200" {
		t.Errorf("upstream status = %q, want 200", rr.Header().Get(HeaderUpstreamStatusCode))
	}
}

func TestHandler_RecursiveRequestRefused(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest("GET", "/http/proxy.example.net/anything", nil)
	req.Header.Set("Range", "bytes=0-1999999")
	req.Host = "proxy.example.net"
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != 404 {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
	if got := rr.Header().Get(HeaderResult); got != ResultIgnoredRecursive {
		t.Errorf("result = %q, want %q", got, ResultIgnoredRecursive)
	}
	if rr.Header().Get(HeaderUpstreamStatusCode) != "" {
		t.Errorf("expected no upstream headers on a recursive request")
	}
}

func TestHandler_PutTooLarge(t *testing.T) {
	h := newTestHandler(t)
	body := make([]byte, h.Quotas.URLFetchReqMaxBytes)
	req := httptest.NewRequest("PUT", "/http/example.com/echo", bytes.NewReader(body))
	req.Host = "proxy.example.net"
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != 400 {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
	if got := rr.Header().Get(HeaderResult); got != ResultReqTooLarge {
		t.Errorf("result = %q, want %q", got, ResultReqTooLarge)
	}
}

func TestHandler_OverallDeadlineExceeded(t *testing.T) {
	block := make(chan struct{})
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer origin.Close()
	defer close(block)

	q := testQuotas()
	q.GAEReqMaxSecs = 20 * time.Millisecond
	q.URLFetchReqMaxSecs = time.Hour
	m := NewMetrics(prometheus.NewRegistry())
	h := NewHandler(NewHTTPFetcher(nil), q, "test-version", zap.NewNop(), m)

	req := httptest.NewRequest("GET", "/http/"+origin.Listener.Addr().String()+"/hang", nil)
	req.Header.Set("Range", "bytes=0-1999999")
	req.Host = "proxy.example.net"
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != 504 {
		t.Fatalf("status = %d, want 504", rr.Code)
	}
	result := rr.Header().Get(HeaderResult)
	want := ResultMissedGAEDeadline
	if len(result) < len(want) || result[len(result)-len(want):] != want {
		t.Errorf("result = %q, want suffix %q", result, want)
	}
	if rr.Header().Get(HeaderVersion) == "" {
		t.Errorf("expected version header to be present even on deadline expiry")
	}
}
