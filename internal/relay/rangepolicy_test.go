package relay

import "testing"

func TestParseRange_Valid(t *testing.T) {
	spec, err := ParseRange("bytes=0-1999999", DefaultQuotas)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if spec.Start != 0 || spec.End != 1999999 || spec.Length() != 2000000 {
		t.Errorf("got %+v", spec)
	}
}

func TestParseRange_Invalid(t *testing.T) {
	cases := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"empty", "", 400},
		{"garbage", "garbage", 400},
		{"open-ended-start", "bytes=5-", 400},
		{"suffix", "bytes=-5", 400},
		{"reversed", "bytes=2-1", 416},
		{"multiple", "bytes=4-5,7-8", 400},
		{"too-large", "bytes=0-2000000", 400},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := ParseRange(c.header, DefaultQuotas)
			rerr, ok := err.(*RangeError)
			if !ok {
				t.Fatalf("expected *RangeError, got %T: %v", err, err)
			}
			if rerr.Status != c.wantStatus {
				t.Errorf("status = %d, want %d (result: %s)", rerr.Status, c.wantStatus, rerr.Result)
			}
		})
	}
}

func TestParseRange_TooLargeMessage(t *testing.T) {
	_, err := ParseRange("bytes=0-2000000", DefaultQuotas)
	rerr := err.(*RangeError)
	want := "Range specifies 2000001 bytes, limit is 2000000"
	if rerr.Result != want {
		t.Errorf("result = %q, want %q", rerr.Result, want)
	}
}

func TestRangeSpec_Header(t *testing.T) {
	r := RangeSpec{Start: 10, End: 20}
	if got, want := r.Header(), "bytes=10-20"; got != want {
		t.Errorf("Header() = %q, want %q", got, want)
	}
}
