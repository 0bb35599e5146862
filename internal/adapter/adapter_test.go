package adapter

import (
	"testing"
	"time"
)

func TestWindow_Contains(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	w := Window{Start: start, End: start.AddDate(0, 0, 21)}

	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"inclusive start", start, true},
		{"inside", start.Add(10 * 24 * time.Hour), true},
		{"before", start.Add(-time.Second), false},
		{"exclusive end", w.End, false},
		{"after", w.End.Add(time.Second), false},
	}

	for _, tc := range cases {
		if got := w.Contains(tc.t); got != tc.want {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
