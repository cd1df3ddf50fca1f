package concept

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/concordkit/concord/internal/ir"
)

// ActionFunc computes an action's tagged output from its input.
type ActionFunc func(ctx context.Context, input ir.Object) ir.Output

// QueryFunc computes a query's tagged output from its input.
type QueryFunc func(ctx context.Context, input ir.Object) ir.Output

// Scripted is a concept assembled from handler functions.
// It backs the scenario harness and tests, and is a convenient base for
// small in-process concepts. Handlers run under an internal mutex for
// actions (one writer) and without one for queries (read-only contract).
type Scripted struct {
	name    string
	mu      sync.Mutex
	actions map[string]ActionFunc
	queries map[string]QueryFunc
}

// NewScripted creates an empty scripted concept.
func NewScripted(name string) *Scripted {
	return &Scripted{
		name:    name,
		actions: make(map[string]ActionFunc),
		queries: make(map[string]QueryFunc),
	}
}

// WithAction registers an action handler. Returns the concept for chaining.
func (s *Scripted) WithAction(op string, fn ActionFunc) *Scripted {
	s.actions[op] = fn
	return s
}

// WithQuery registers a query handler. Returns the concept for chaining.
func (s *Scripted) WithQuery(op string, fn QueryFunc) *Scripted {
	s.queries[op] = fn
	return s
}

// Name implements Concept.
func (s *Scripted) Name() string { return s.name }

// Actions implements Concept.
func (s *Scripted) Actions() []string {
	ops := make([]string, 0, len(s.actions))
	for op := range s.actions {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	return ops
}

// Queries implements Concept.
func (s *Scripted) Queries() []string {
	ops := make([]string, 0, len(s.queries))
	for op := range s.queries {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	return ops
}

// Action implements Concept.
func (s *Scripted) Action(ctx context.Context, op string, input ir.Object) (ir.Output, error) {
	fn, ok := s.actions[op]
	if !ok {
		return ir.Output{}, fmt.Errorf("scripted concept %q has no action %q", s.name, op)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, input), nil
}

// Query implements Concept.
func (s *Scripted) Query(ctx context.Context, op string, input ir.Object) (ir.Output, error) {
	fn, ok := s.queries[op]
	if !ok {
		return ir.Output{}, fmt.Errorf("scripted concept %q has no query %q", s.name, op)
	}
	return fn(ctx, input), nil
}
