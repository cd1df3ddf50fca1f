package log

import "sync/atomic"

// Clock is the monotonic logical clock stamping record IDs.
//
// All ordering in Concord uses sequence numbers from this clock, never
// wall-clock timestamps. This keeps ordering deterministic and makes
// replayed logs comparable byte for byte.
//
// Thread-safety: safe for concurrent use (atomic operations). Appends from
// independent causal chains may race on Next; each still receives a unique,
// strictly increasing value.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a specific sequence number.
// Used when rehydrating a log from a journal.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
