// Package concept defines the boundary between the sync engine and the
// capability units it coordinates.
//
// A concept owns private state and exposes actions (state-mutating,
// recorded in the action log) and queries (read-only, never recorded).
// The engine consumes concepts through this narrow interface and knows
// nothing about their internals.
package concept

import (
	"context"

	"github.com/concordkit/concord/internal/ir"
)

// Concept is an encapsulated capability unit.
//
// Contract for implementers:
//   - Action returns the tagged output for the invocation. Expected failure
//     (a precondition violation, a domain error) is the error variant of the
//     Output, NOT a Go error. A non-nil Go error means an infrastructure
//     fault escaped the concept - the engine treats that as a defect and
//     aborts the whole causal chain.
//   - Query must not mutate state and must be safe to invoke concurrently
//     and repeatedly; the engine fans queries out across frames.
//   - Name is immutable once the concept is registered.
type Concept interface {
	Name() string
	Actions() []string
	Queries() []string
	Action(ctx context.Context, op string, input ir.Object) (ir.Output, error)
	Query(ctx context.Context, op string, input ir.Object) (ir.Output, error)
}
