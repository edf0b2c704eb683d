package export

import (
	"testing"
	"time"
)

func TestResolveWindow(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}
	now := time.Date(2025, 6, 10, 14, 30, 0, 0, loc)

	w := ResolveWindow(now, 1, 2, loc)

	wantStart := time.Date(2025, 6, 9, 0, 0, 0, 0, loc)
	wantEnd := time.Date(2025, 6, 12, 0, 0, 0, 0, loc)
	if !w.Start.Equal(wantStart) {
		t.Errorf("Start = %v, want %v", w.Start, wantStart)
	}
	if !w.End.Equal(wantEnd) {
		t.Errorf("End = %v, want %v", w.End, wantEnd)
	}
}

func TestWindowContainsHalfOpen(t *testing.T) {
	loc := time.UTC
	w := Window{
		Start: time.Date(2025, 6, 9, 0, 0, 0, 0, loc),
		End:   time.Date(2025, 6, 12, 0, 0, 0, 0, loc),
	}

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{name: "before start", t: w.Start.Add(-time.Second), want: false},
		{name: "at start inclusive", t: w.Start, want: true},
		{name: "inside", t: w.Start.Add(24 * time.Hour), want: true},
		{name: "just before end", t: w.End.Add(-time.Second), want: true},
		{name: "at end exclusive", t: w.End, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Contains(tt.t); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}
