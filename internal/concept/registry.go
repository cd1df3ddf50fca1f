package concept

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/concordkit/concord/internal/ir"
)

// Registry holds the registered concepts by name.
// Registration happens at process start; lookups are safe from any
// goroutine afterwards.
type Registry struct {
	mu       sync.RWMutex
	concepts map[string]Concept
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{concepts: make(map[string]Concept)}
}

// Register adds a concept. Identity is immutable once registered;
// re-registering a name is an error, not a replacement.
func (r *Registry) Register(c Concept) error {
	if c == nil {
		return fmt.Errorf("nil concept")
	}
	name := c.Name()
	if name == "" {
		return fmt.Errorf("concept has empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.concepts[name]; exists {
		return fmt.Errorf("concept %q already registered", name)
	}
	r.concepts[name] = c
	return nil
}

// Lookup returns a concept by name.
func (r *Registry) Lookup(name string) (Concept, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.concepts[name]
	return c, ok
}

// HasAction reports whether the named concept exposes the action.
func (r *Registry) HasAction(concept, op string) bool {
	c, ok := r.Lookup(concept)
	return ok && slices.Contains(c.Actions(), op)
}

// HasQuery reports whether the named concept exposes the query.
func (r *Registry) HasQuery(concept, op string) bool {
	c, ok := r.Lookup(concept)
	return ok && slices.Contains(c.Queries(), op)
}

// Action invokes an action on the named concept.
// An unknown concept or op is an authoring-level miss surfaced as a Go
// error; the engine converts it to a chain fault.
func (r *Registry) Action(ctx context.Context, ref ir.Ref, input ir.Object) (ir.Output, error) {
	c, ok := r.Lookup(ref.Concept)
	if !ok {
		return ir.Output{}, fmt.Errorf("unknown concept %q", ref.Concept)
	}
	if !slices.Contains(c.Actions(), ref.Op) {
		return ir.Output{}, fmt.Errorf("concept %q has no action %q", ref.Concept, ref.Op)
	}
	return c.Action(ctx, ref.Op, input)
}

// Query invokes a query on the named concept.
func (r *Registry) Query(ctx context.Context, ref ir.Ref, input ir.Object) (ir.Output, error) {
	c, ok := r.Lookup(ref.Concept)
	if !ok {
		return ir.Output{}, fmt.Errorf("unknown concept %q", ref.Concept)
	}
	if !slices.Contains(c.Queries(), ref.Op) {
		return ir.Output{}, fmt.Errorf("concept %q has no query %q", ref.Concept, ref.Op)
	}
	return c.Query(ctx, ref.Op, input)
}
