// Package relaytest provides an in-process origin server and a fully-wired
// proxy stack (server.NewProxyRouter over relay.NewHandler) for driving
// end-to-end proxy scenarios against a real HTTP client.
package relaytest

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"time"
)

// NewMockOrigin starts an httptest.Server exposing three routes:
//
//   - /echo?msg=X            writes X as the body (default "hello").
//   - /size?size=N&ignore_range=bool  writes N bytes; when ignore_range is
//     true (or the request carries no usable Range) it answers 200 with the
//     full body, mimicking an origin that does not implement Range at all.
//   - /hang                  never answers (see handleHang).
//
// /echo and /size honor Range when present and ignore_range is not set, so a
// 206-echo and a range-ignoring 200 can be driven by the same mock.
func NewMockOrigin() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/echo", handleEcho)
	mux.HandleFunc("/size", handleSize)
	mux.HandleFunc("/hang", handleHang)
	return httptest.NewServer(mux)
}

// handleHang never writes a response within any test's patience, standing
// in for an origin that is merely slow rather than one that errors, so the
// Deadline Guard (not error classification) is what's actually exercised.
func handleHang(w http.ResponseWriter, r *http.Request) {
	select {
	case <-r.Context().Done():
	case <-time.After(time.Minute):
	}
}

func handleEcho(w http.ResponseWriter, r *http.Request) {
	msg := r.URL.Query().Get("msg")
	if msg == "" {
		msg = "hello"
	}
	serveRangeAware(w, r, []byte(msg), false)
}

func handleSize(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(r.URL.Query().Get("size"))
	if err != nil || n < 0 {
		http.Error(w, "bad size", http.StatusBadRequest)
		return
	}
	body := make([]byte, n)
	for i := range body {
		body[i] = 'a'
	}
	ignoreRange := r.URL.Query().Get("ignore_range") == "True" || r.URL.Query().Get("ignore_range") == "true"
	serveRangeAware(w, r, body, ignoreRange)
}

// serveRangeAware writes body as a plain 200 when ignoreRange is set or no
// Range header was sent; otherwise it honors a single "bytes=start-end"
// range and answers 206 with a matching Content-Range, the shape the
// Response Shaper's fulfillment check expects.
func serveRangeAware(w http.ResponseWriter, r *http.Request, body []byte, ignoreRange bool) {
	w.Header().Set("Server", "relaytest-mock-origin")

	rangeHeader := r.Header.Get("Range")
	if ignoreRange || rangeHeader == "" {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	start, end, ok := parseSimpleRange(rangeHeader, len(body))
	if !ok {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
		return
	}

	w.Header().Set("Content-Range", "bytes "+strconv.Itoa(start)+"-"+strconv.Itoa(end)+"/"+strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusPartialContent)
	_, _ = w.Write(body[start : end+1])
}

// parseSimpleRange parses "bytes=start-end", clamping end to the body's
// last valid index. Only the one form this mock needs to emit a 206.
func parseSimpleRange(header string, bodyLen int) (start, end int, ok bool) {
	const prefix = "bytes="
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return 0, 0, false
	}
	spec := header[len(prefix):]
	dash := -1
	for i, c := range spec {
		if c == '-' {
			dash = i
			break
		}
	}
	if dash < 0 {
		return 0, 0, false
	}
	s, serr := strconv.Atoi(spec[:dash])
	e, eerr := strconv.Atoi(spec[dash+1:])
	if serr != nil || eerr != nil || s < 0 || s > e {
		return 0, 0, false
	}
	if e >= bodyLen {
		e = bodyLen - 1
	}
	if bodyLen == 0 {
		return 0, -1, true
	}
	return s, e, true
}
