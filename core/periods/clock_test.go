package periods

import "testing"

func TestClockCurrent(t *testing.T) {
	clock, err := NewClock(100, 1000)
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	cases := []struct {
		now  int64
		want uint64
	}{
		{100, 0},
		{1099, 0},
		{1100, 1},
		{5100, 5},
		{50, 0},
	}
	for _, tc := range cases {
		if got := clock.Current(tc.now); got != tc.want {
			t.Fatalf("Current(%d) = %d, want %d", tc.now, got, tc.want)
		}
	}
}

func TestClockRejectsBadDuration(t *testing.T) {
	if _, err := NewClock(0, 0); err != ErrInvalidDuration {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if _, err := NewClock(0, -5); err != ErrInvalidDuration {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestClockSetDurationCheckpoints(t *testing.T) {
	clock, err := NewClock(0, 1000)
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	// 3 full periods and half of the fourth have passed.
	if got := clock.Current(3500); got != 3 {
		t.Fatalf("pre-change period = %d, want 3", got)
	}
	if err := clock.SetDuration(3500, 100); err != nil {
		t.Fatalf("set duration: %v", err)
	}
	// The change must not rewind or skip the period index.
	if got := clock.Current(3500); got != 3 {
		t.Fatalf("post-change period = %d, want 3", got)
	}
	if got := clock.Current(3600); got != 4 {
		t.Fatalf("period after one new duration = %d, want 4", got)
	}
	if got := clock.Current(4000); got != 8 {
		t.Fatalf("period after five new durations = %d, want 8", got)
	}
}

func TestClockSetDurationRejectsPast(t *testing.T) {
	clock, err := NewClock(500, 1000)
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	if err := clock.SetDuration(400, 100); err != ErrBeforeStart {
		t.Fatalf("expected ErrBeforeStart, got %v", err)
	}
	if err := clock.SetDuration(600, 0); err != ErrInvalidDuration {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestClockFinalQuarterWindow(t *testing.T) {
	clock, err := NewClock(0, 1000)
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	cases := []struct {
		now  int64
		want bool
	}{
		{0, false},
		{500, false},
		{749, false},
		{750, true},
		{999, true},
		{1000, false},
		{1749, false},
		{1750, true},
	}
	for _, tc := range cases {
		if got := clock.InFinalQuarter(tc.now); got != tc.want {
			t.Fatalf("InFinalQuarter(%d) = %v, want %v", tc.now, got, tc.want)
		}
	}
}

func TestClockBounds(t *testing.T) {
	clock, err := NewClock(100, 1000)
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	start, end, err := clock.Bounds(2)
	if err != nil {
		t.Fatalf("bounds: %v", err)
	}
	if start != 2100 || end != 3100 {
		t.Fatalf("bounds(2) = [%d, %d), want [2100, 3100)", start, end)
	}
}

func TestClockCloneIsIndependent(t *testing.T) {
	clock, err := NewClock(0, 1000)
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	clone := clock.Clone()
	if err := clone.SetDuration(2000, 10); err != nil {
		t.Fatalf("set duration on clone: %v", err)
	}
	if got := clock.Duration(); got != 1000 {
		t.Fatalf("original duration changed to %d", got)
	}
}
