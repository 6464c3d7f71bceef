// Package clock provides a small time source seam so stores, caches and the
// scheduler can be tested without real sleeps.
package clock

import "time"

// Clock abstracts wall-clock access.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	Sleep(d time.Duration)
}

// Real is the production clock.
type Real struct{}

func (Real) Now() time.Time                  { return time.Now() }
func (Real) Since(t time.Time) time.Duration { return time.Since(t) }
func (Real) Sleep(d time.Duration)           { time.Sleep(d) }

// Fake is a manually-advanced clock for tests. Sleep advances the fake time
// instead of blocking.
type Fake struct {
	Current time.Time
	Slept   []time.Duration
}

func NewFake(start time.Time) *Fake {
	return &Fake{Current: start}
}

func (f *Fake) Now() time.Time { return f.Current }

func (f *Fake) Since(t time.Time) time.Duration { return f.Current.Sub(t) }

func (f *Fake) Sleep(d time.Duration) {
	f.Slept = append(f.Slept, d)
	f.Current = f.Current.Add(d)
}

// Advance moves the fake clock forward.
func (f *Fake) Advance(d time.Duration) {
	f.Current = f.Current.Add(d)
}
