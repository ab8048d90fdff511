package repository

import (
	"testing"
	"time"
)

func TestIntervalDuration(t *testing.T) {
	cases := []struct {
		in   string
		want time.Duration
	}{
		{"1m", time.Minute},
		{"5m", 5 * time.Minute},
		{"1h", time.Hour},
		{"4h", 4 * time.Hour},
		{"30s", 30 * time.Second},
		{"1d", 24 * time.Hour},
		{"1H", time.Hour},
	}
	for _, c := range cases {
		got, err := IntervalDuration(c.in)
		if err != nil {
			t.Fatalf("%s: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("%s: expected %v, got %v", c.in, c.want, got)
		}
	}
}

func TestIntervalDurationRejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "m", "1w", "0m", "-5m", "abc", "1"} {
		if _, err := IntervalDuration(in); err == nil {
			t.Fatalf("%q: expected error", in)
		}
	}
}

func TestNormalizeInterval(t *testing.T) {
	if got := NormalizeInterval(""); got != "1m" {
		t.Fatalf("expected default 1m, got %s", got)
	}
	if got := NormalizeInterval(" 1H "); got != "1h" {
		t.Fatalf("expected lowercased 1h, got %s", got)
	}
}
