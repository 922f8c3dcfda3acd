package simclock

import "time"

// Fake is a controllable `Clock` for deterministic tests: production math,
// build-queue completion, and fleet arrival all key off elapsed time, so
// tests advance this instead of sleeping in real time.
type Fake struct {
	now time.Time
}

// NewFake returns a Fake parked at the given instant. A zero `start`
// starts the fake at the Unix epoch rather than silently reading the
// real wall clock, so tests stay fully deterministic.
func NewFake(start time.Time) *Fake {
	if start.IsZero() {
		start = time.Unix(0, 0)
	}
	return &Fake{now: start.UTC()}
}

func (f *Fake) Now() time.Time {
	return f.now
}

// Sleep does not block; it advances the fake clock by `d` so code under
// test observes time passing without the test itself waiting.
func (f *Fake) Sleep(d time.Duration) {
	f.now = f.now.Add(d)
}

// Advance moves the fake clock forward by `d` without going through
// `Sleep`, for tests that want to mutate time and then call a system
// directly rather than go through the scheduler.
func (f *Fake) Advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// Set pins the fake clock to an absolute instant.
func (f *Fake) Set(t time.Time) {
	f.now = t.UTC()
}
