package testutil

import (
	"sync"
	"time"
)

// StepClock is a wall clock for tests that advances by a fixed step on every
// reading, so timestamps and execution times are reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StepClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	n     int64
}

// NewStepClock creates a clock whose first Now returns start.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{start: start, step: step}
}

// Now returns start + n*step for the n-th call (0-based).
// Its method value satisfies engine.WithNow and events.WithNow.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.start.Add(time.Duration(c.n) * c.step)
	c.n++
	return t
}

// Readings returns how many times Now has been called.
func (c *StepClock) Readings() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset rewinds the clock so the next Now returns start again.
func (c *StepClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
