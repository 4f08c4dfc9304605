package relay

import (
	"fmt"
	"strconv"
	"strings"
)

// RangeSpec is a single validated closed byte range, end-inclusive per HTTP
// semantics: Start and End are both the index of an included byte.
type RangeSpec struct {
	Start int64
	End   int64
}

// Length returns the number of bytes the range covers.
func (r RangeSpec) Length() int64 { return r.End - r.Start + 1 }

// RangeError is returned by ParseRange when the client's Range header
// cannot be admitted. Status is the HTTP status to answer with; Result is
// the diagnostic string to stamp onto the result header.
type RangeError struct {
	Status int
	Result string
}

func (e *RangeError) Error() string { return e.Result }

// ParseRange validates a GET request's Range header: exactly one
// well-formed closed range, 0 <= start <= end, and length <=
// quotas.RangeReqSize.
//
// header is the raw value of the incoming Range header (empty string if
// absent).
func ParseRange(header string, quotas Quotas) (RangeSpec, error) {
	if header == "" {
		return RangeSpec{}, &RangeError{Status: 400, Result: ResultMissingOrInvalidRange}
	}

	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return RangeSpec{}, &RangeError{Status: 400, Result: ResultMissingOrInvalidRange}
	}

	if strings.Contains(spec, ",") {
		return RangeSpec{}, &RangeError{Status: 400, Result: ResultMultipleRanges}
	}

	startStr, endStr, ok := strings.Cut(spec, "-")
	if !ok {
		return RangeSpec{}, &RangeError{Status: 400, Result: ResultMissingOrInvalidRange}
	}

	// Suffix form ("-N") or open-ended form ("X-") are not closed ranges.
	if startStr == "" || endStr == "" {
		return RangeSpec{}, &RangeError{Status: 400, Result: ResultRangeMustBeClosed}
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return RangeSpec{}, &RangeError{Status: 400, Result: ResultMissingOrInvalidRange}
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return RangeSpec{}, &RangeError{Status: 400, Result: ResultMissingOrInvalidRange}
	}

	if start < 0 || start > end {
		return RangeSpec{}, &RangeError{Status: 416, Result: ResultRangeOrderInvalid}
	}

	length := end - start + 1
	if length > quotas.RangeReqSize {
		return RangeSpec{}, &RangeError{
			Status: 400,
			Result: fmt.Sprintf("Range specifies %d bytes, limit is %d", length, quotas.RangeReqSize),
		}
	}

	return RangeSpec{Start: start, End: end}, nil
}

// Header renders the range as the outbound "Range: bytes=X-Y" value.
func (r RangeSpec) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}
