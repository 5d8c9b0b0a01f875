package events

import "sync/atomic"

// Clock is a monotonic logical clock used to stamp events.
//
// Safe for concurrent use; every Next call returns a unique, increasing value.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}
