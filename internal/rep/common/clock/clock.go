// Package clock abstracts time so cache TTLs, update eligibility windows,
// backup timestamps, and retry delays are deterministic under test.
package clock

import "time"

type Clock interface {
	Now() time.Time
	// After returns a channel that delivers once d has elapsed.
	After(d time.Duration) <-chan time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (c RealClock) Now() time.Time {
	return time.Now()
}

func (c RealClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// MockClock is a manually advanced clock for tests. After fires immediately
// and records the requested delay, keeping retry loops synchronous under
// test while the schedule stays assertable via Waits.
type MockClock struct {
	currentTime time.Time
	waits       []time.Duration
}

func NewMock(start time.Time) *MockClock {
	return &MockClock{currentTime: start}
}

func (c *MockClock) Now() time.Time {
	return c.currentTime
}

func (c *MockClock) After(d time.Duration) <-chan time.Time {
	c.waits = append(c.waits, d)
	ch := make(chan time.Time, 1)
	ch <- c.currentTime
	return ch
}

func (c *MockClock) Advance(d time.Duration) {
	c.currentTime = c.currentTime.Add(d)
}

// Waits returns the delays requested through After, in order.
func (c *MockClock) Waits() []time.Duration {
	return c.waits
}
