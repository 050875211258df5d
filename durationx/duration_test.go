package durationx_test

import (
	"testing"
	"time"

	"github.com/sabouaram/ahttp/durationx"
)

func TestParseAndString(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"30s", 30 * time.Second},
		{"2h", 2 * time.Hour},
		{"1d", 24 * time.Hour},
		{"5d23h15m13s", 5*24*time.Hour + 23*time.Hour + 15*time.Minute + 13*time.Second},
	}

	for _, c := range cases {
		d, err := durationx.Parse(c.in)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", c.in, err)
		}
		if d.Time() != c.want {
			t.Fatalf("Parse(%q) = %v, want %v", c.in, d.Time(), c.want)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	d := durationx.MustParse("5d23h15m13s")
	s := d.String()

	back, err := durationx.Parse(s)
	if err != nil {
		t.Fatalf("round trip parse error: %v", err)
	}
	if back != d {
		t.Fatalf("round trip mismatch: %v != %v", back, d)
	}
}

func TestMarshalJSON(t *testing.T) {
	d := durationx.MustParse("1h2m3s")
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON error: %v", err)
	}
	if string(b) != `"1h2m3s"` {
		t.Fatalf("unexpected JSON: %s", b)
	}

	var got durationx.Duration
	if err := got.UnmarshalJSON(b); err != nil {
		t.Fatalf("UnmarshalJSON error: %v", err)
	}
	if got != d {
		t.Fatalf("unmarshal mismatch: %v != %v", got, d)
	}
}
