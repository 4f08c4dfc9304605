package relay

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Annotation carries the diagnostic headers stamped onto every outgoing
// response. Result is always set; everything else only when the
// corresponding data is available.
type Annotation struct {
	Result               string
	UpstreamServer       *string
	UpstreamStatusCode   *int
	UpstreamContentRange *string
	Truncated            bool
}

// RetrievedFromNetwork renders the success result string, stamped with the
// UTC time the fetch completed.
func RetrievedFromNetwork(now time.Time) string {
	return fmt.Sprintf("Retrieved from network %s", now.UTC().Format("2006-01-02 15:04:05.000000"))
}

// Annotate writes Version and the annotation fields onto headers,
// overwriting any forwarded header of the same name: annotation is always
// applied last so it wins over anything the origin sent.
func Annotate(headers http.Header, version string, a Annotation) {
	headers.Set(HeaderVersion, version)
	headers.Set(HeaderResult, a.Result)
	if a.UpstreamServer != nil {
		headers.Set(HeaderUpstreamServer, *a.UpstreamServer)
	}
	if a.UpstreamStatusCode != nil {
		headers.Set(HeaderUpstreamStatusCode, strconv.Itoa(*a.UpstreamStatusCode))
	}
	if a.UpstreamContentRange != nil {
		headers.Set(HeaderUpstreamContentRange, *a.UpstreamContentRange)
	}
	if a.Truncated {
		headers.Set(HeaderTruncated, "true")
	}
}

// AppendDeadlineSuffix appends the " Missed GAE deadline" suffix to
// whatever result string is already set, preserving prior context about
// how far processing got before the deadline guard cut it off.
func AppendDeadlineSuffix(headers http.Header) {
	headers.Set(HeaderResult, headers.Get(HeaderResult)+ResultMissedGAEDeadline)
}
