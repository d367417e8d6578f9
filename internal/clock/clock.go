// Package clock provides time operations. The interface enables deterministic testing.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// Real implements Clock using the actual system time.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time {
	return time.Now()
}

// Fixed implements Clock with a settable time for testing.
type Fixed struct {
	Time time.Time
}

// Now returns the fixed time.
func (f *Fixed) Now() time.Time {
	return f.Time
}

// Advance moves the fixed time forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.Time = f.Time.Add(d)
}

// OrReal returns c, or a Real clock when c is nil.
func OrReal(c Clock) Clock {
	if c == nil {
		return Real{}
	}
	return c
}
