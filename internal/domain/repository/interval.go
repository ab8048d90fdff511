package repository

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IntervalDuration parses a candle interval string ("30s", "1m", "4h", "1d")
// into its bucket duration. Unrecognized strings are a hard error rather than
// a silent one-minute fallback so that a typo cannot quietly misplace the
// lookback window.
func IntervalDuration(interval string) (time.Duration, error) {
	s := strings.TrimSpace(strings.ToLower(interval))
	if len(s) < 2 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	unit := s[len(s)-1]
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid interval %q", interval)
	}
	switch unit {
	case 's':
		return time.Duration(n) * time.Second, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported interval unit %q in %q", string(unit), interval)
	}
}

// IsValidInterval reports whether interval parses.
func IsValidInterval(interval string) bool {
	_, err := IntervalDuration(interval)
	return err == nil
}

// DefaultInterval is used when a request omits the interval.
func DefaultInterval() string { return "1m" }

// NormalizeInterval lowercases and trims the raw string, falling back to the
// default when empty. Validation stays with IntervalDuration.
func NormalizeInterval(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return DefaultInterval()
	}
	return s
}
