package periods

import (
	"errors"
	"fmt"
)

const (
	// windowNumerator and windowDenominator fix the sub-period window to the
	// final quarter of each period.
	windowNumerator   = 3
	windowDenominator = 4
)

var (
	// ErrInvalidDuration indicates a non-positive period duration.
	ErrInvalidDuration = errors.New("periods: duration must be positive")
	// ErrBeforeStart indicates a timestamp earlier than the clock's reference
	// start time.
	ErrBeforeStart = errors.New("periods: timestamp precedes start time")
)

// Clock converts wall-clock time into sequential period numbers. Periods are
// not stored; they are a pure function of the current time, the reference
// start time and the configured duration. Every duration change checkpoints
// the accumulated period count and re-bases the start time, so bounds of
// periods closed before the most recent change are only approximately
// recoverable.
type Clock struct {
	startTime   int64
	accumulated uint64
	duration    int64
}

// NewClock constructs a clock starting its first period at start with the
// given duration in seconds.
func NewClock(start int64, duration int64) (*Clock, error) {
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	return &Clock{startTime: start, duration: duration}, nil
}

// NewClockAt reconstructs a clock from checkpointed state.
func NewClockAt(start int64, accumulated uint64, duration int64) (*Clock, error) {
	if duration <= 0 {
		return nil, ErrInvalidDuration
	}
	return &Clock{startTime: start, accumulated: accumulated, duration: duration}, nil
}

// Clone returns a deep copy of the clock.
func (c *Clock) Clone() *Clock {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// Duration returns the active period duration in seconds.
func (c *Clock) Duration() int64 { return c.duration }

// StartTime returns the reference start time of the latest checkpoint.
func (c *Clock) StartTime() int64 { return c.startTime }

// AccumulatedPeriods returns the period count checkpointed at the latest
// duration change.
func (c *Clock) AccumulatedPeriods() uint64 { return c.accumulated }

// Current returns the period number active at now. Between duration changes
// the result is monotonically non-decreasing in now.
func (c *Clock) Current(now int64) uint64 {
	if now <= c.startTime {
		return c.accumulated
	}
	return c.accumulated + uint64((now-c.startTime)/c.duration)
}

// SetDuration checkpoints the accumulated period count at now and re-bases
// the start time before switching to the new duration. The period open at
// now is cut short; the next period begins immediately under the new
// duration.
func (c *Clock) SetDuration(now int64, duration int64) error {
	if duration <= 0 {
		return ErrInvalidDuration
	}
	if now < c.startTime {
		return ErrBeforeStart
	}
	c.accumulated = c.Current(now)
	c.startTime = now
	c.duration = duration
	return nil
}

// Bounds returns the [start, end) wall-clock bounds of the given period,
// extrapolated linearly from the most recent checkpoint. For periods closed
// before the latest duration change the result is approximate: the original
// checkpoint data is not retained.
func (c *Clock) Bounds(period uint64) (int64, int64, error) {
	offset := int64(period) - int64(c.accumulated)
	start := c.startTime + offset*c.duration
	if start < c.startTime && period >= c.accumulated {
		return 0, 0, fmt.Errorf("periods: period %d out of range", period)
	}
	return start, start + c.duration, nil
}

// ElapsedInPeriod returns how many seconds of the period open at now have
// passed.
func (c *Clock) ElapsedInPeriod(now int64) int64 {
	if now <= c.startTime {
		return 0
	}
	return (now - c.startTime) % c.duration
}

// InFinalQuarter reports whether now falls inside the sub-period window: the
// last quarter of the currently open period.
func (c *Clock) InFinalQuarter(now int64) bool {
	if now < c.startTime {
		return false
	}
	return c.ElapsedInPeriod(now)*windowDenominator >= c.duration*windowNumerator
}
