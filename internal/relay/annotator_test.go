package relay

import (
	"net/http"
	"testing"
	"time"
)

func TestAnnotate_AlwaysSetsVersionAndResult(t *testing.T) {
	headers := make(http.Header)
	Annotate(headers, "1.2.3", Annotation{Result: "Invalid url"})

	if headers.Get(HeaderVersion) != "1.2.3" {
		t.Errorf("version = %q", headers.Get(HeaderVersion))
	}
	if headers.Get(HeaderResult) != "Invalid url" {
		t.Errorf("result = %q", headers.Get(HeaderResult))
	}
	if headers.Get(HeaderUpstreamServer) != "" {
		t.Errorf("expected no upstream-server header on a short-circuited request")
	}
}

func TestAnnotate_OverwritesForwardedHeader(t *testing.T) {
	headers := make(http.Header)
	headers.Set(HeaderResult, "forwarded-from-origin-somehow")

	Annotate(headers, "1.2.3", Annotation{Result: "Retrieved from network now"})

	if headers.Get(HeaderResult) != "Retrieved from network now" {
		t.Errorf("annotation should win over any forwarded value, got %q", headers.Get(HeaderResult))
	}
}

func TestAppendDeadlineSuffix_PreservesPriorContext(t *testing.T) {
	headers := make(http.Header)
	headers.Set(HeaderResult, "Invalid url")

	AppendDeadlineSuffix(headers)

	want := "Invalid url Missed GAE deadline"
	if got := headers.Get(HeaderResult); got != want {
		t.Errorf("result = %q, want %q", got, want)
	}
}

func TestRetrievedFromNetwork_IsUTC(t *testing.T) {
	loc := time.FixedZone("TEST", -5*3600)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, loc)

	got := RetrievedFromNetwork(now)
	if got == "" {
		t.Fatal("empty result string")
	}
	// 03:04:05 -05:00 is 08:04:05 UTC.
	want := "Retrieved from network 2026-01-02 08:04:05.000000"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
