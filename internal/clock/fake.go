package clock

import "time"

// FakeClock is a manually stepped Clock for tests. Due dates, late-fee
// grace periods, and scheduler billing windows all derive from Now, so
// tests pin a moment and move time with Advance instead of sleeping.
type FakeClock struct {
	now time.Time
}

// NewFakeClock pins the clock at t, normalized to UTC.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t.UTC()}
}

func (c *FakeClock) Now() time.Time {
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
