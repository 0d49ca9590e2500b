package managehub

import (
	"sync"
	"time"
)

// Clock supplies the logical time (seconds) that expiries and time-locks are
// compared against. The engine never waits on it; deadlines are evaluated on
// every read.
type Clock interface {
	Now() uint64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current Unix time in seconds.
func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// ManualClock is a settable clock for tests and replay.
type ManualClock struct {
	mu  sync.Mutex
	now uint64
}

// NewManualClock creates a ManualClock starting at the given time.
func NewManualClock(start uint64) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d seconds.
func (c *ManualClock) Advance(d uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}

// Set jumps the clock to t. Moving backwards is not supported.
func (c *ManualClock) Set(t uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t > c.now {
		c.now = t
	}
}
