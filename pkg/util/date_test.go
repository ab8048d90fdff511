package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}
func TestAlignRange(t *testing.T) {
    from := time.Date(2024, 10, 10, 10, 10, 37, 0, time.UTC)
    to := time.Date(2024, 10, 10, 12, 59, 59, 0, time.UTC)
    gotFrom, gotTo := AlignRange(from, to, time.Minute)
    if gotFrom.Second() != 0 || gotTo.Second() != 0 {
        t.Fatalf("expected aligned seconds, got %v %v", gotFrom, gotTo)
    }
    if !gotFrom.Equal(time.Date(2024, 10, 10, 10, 10, 0, 0, time.UTC)) {
        t.Fatalf("unexpected from %v", gotFrom)
    }

    // zero step leaves the range untouched
    gotFrom, gotTo = AlignRange(from, to, 0)
    if !gotFrom.Equal(from) || !gotTo.Equal(to) {
        t.Fatalf("expected unchanged range")
    }
}
