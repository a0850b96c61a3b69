// Package clock holds the reversal-window arithmetic.
//
// Everything here is a pure function of its inputs: the same start, length
// and now always give the same answer, so "is it allowed" and "how long is
// left" can never disagree.
package clock

import "time"

// DefaultReconsiderWindow is the reversal window used when none is configured.
const DefaultReconsiderWindow = 48 * time.Hour

// Window is a fixed wall-clock period starting at some event.
type Window struct {
	Length time.Duration
}

// NewWindow returns a window of the given length, or the default when length <= 0.
func NewWindow(length time.Duration) Window {
	if length <= 0 {
		length = DefaultReconsiderWindow
	}
	return Window{Length: length}
}

// Status is the evaluation of a window at one instant.
type Status struct {
	Open      bool          `json:"open"`
	Elapsed   time.Duration `json:"-"`
	Remaining time.Duration `json:"-"`
	ClosesAt  time.Time     `json:"closes_at"`
}

// RemainingSeconds is the remaining time truncated to whole seconds.
func (s Status) RemainingSeconds() int64 {
	return int64(s.Remaining / time.Second)
}

// Evaluate reports whether now falls within the window opened at start.
// The boundary is inclusive: exactly Length after start is still open.
// A now before start (clock skew) counts as zero elapsed.
func (w Window) Evaluate(start, now time.Time) Status {
	elapsed := now.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := w.Length - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Open:      elapsed <= w.Length,
		Elapsed:   elapsed,
		Remaining: remaining,
		ClosesAt:  start.Add(w.Length),
	}
}

// Allows is shorthand for Evaluate(start, now).Open.
func (w Window) Allows(start, now time.Time) bool {
	return w.Evaluate(start, now).Open
}
