package engine

import (
	"context"

	"github.com/concordkit/concord/internal/ir"
)

// invocation is one pending action dispatch within a causal chain.
// Sync is the provenance of the dispatch; empty for the external trigger.
type invocation struct {
	Concept string
	Op      string
	Input   ir.Object
	Sync    string
}

// cascade is the per-chain driver state. One cascade exists for the
// lifetime of one external trigger; all matching and dispatch for the
// chain runs on the goroutine that called Trigger.
//
// Dispatch is a trampoline, not recursion: matching a freshly appended
// record enqueues invocations here, and the Trigger loop pops them in
// FIFO order. The queue keeps chain depth out of the Go stack and makes
// the depth guard a plain counter.
type cascade struct {
	causalID string
	ctx      context.Context
	queue    []invocation
	steps    int
	fault    error
}

func (c *cascade) enqueue(inv invocation) {
	c.queue = append(c.queue, inv)
}

func (c *cascade) pop() (invocation, bool) {
	if len(c.queue) == 0 {
		return invocation{}, false
	}
	inv := c.queue[0]
	c.queue = c.queue[1:]
	return inv, true
}
