package util

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-01-01T08:00:00Z", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
		{"2024-01-01T08:00:00", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
		{"2024-01-01T08:00:00.250000", time.Date(2024, 1, 1, 8, 0, 0, 250_000_000, time.UTC)},
		{"2024-01-01T10:00:00+02:00", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		got, err := ParseTimestamp(tc.in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", tc.in, err)
		}
		if !got.Equal(tc.want) {
			t.Errorf("ParseTimestamp(%q) = %v; want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"", "yesterday", "01/02/2024"} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Errorf("ParseTimestamp(%q): expected error", bad)
		}
	}
}
