package resolver

import (
	"math"
	"testing"
	"time"
)

func TestParseNamePrefix(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
		want time.Time
	}{
		{"2024050112304500-0123ABCD.jpg", true, time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)},
		{"20240501123045.jpg", true, time.Date(2024, 5, 1, 12, 30, 45, 0, time.UTC)},
		{"2024-05-01_12-30-45.jpg", false, time.Time{}},
		{"2024130112304500.jpg", false, time.Time{}},
		{"short.jpg", false, time.Time{}},
	}
	for _, tc := range cases {
		got, ok := parseNamePrefix(tc.name, time.UTC)
		if ok != tc.ok || (ok && !got.Equal(tc.want)) {
			t.Fatalf("parseNamePrefix(%q) = %v, %v; want %v, %v", tc.name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAbsDelta(t *testing.T) {
	if absDelta(100, 300) != 200 || absDelta(300, 100) != 200 || absDelta(5, 5) != 0 {
		t.Fatal("unexpected delta")
	}
	if got := absDelta(math.MaxInt64, math.MinInt64); got != math.MaxUint64 {
		t.Fatalf("expected full-range delta, got %d", got)
	}
}
