package engine

import (
	"fmt"
	"sort"

	"github.com/concordkit/concord/internal/frame"
	"github.com/concordkit/concord/internal/ir"
)

// Sync is a declarative rule: when a group of action completions appears
// in one causal chain (When), optionally enriched and filtered (Where),
// invoke further actions (Then).
type Sync struct {
	Name  string
	When  []ir.Pattern
	Where []Step
	Then  []ir.ThenClause
}

// Step is one stage of a where pipeline. Implementations are Query,
// Filter, and Map; the marker method seals the set.
type Step interface {
	step()
}

// Query invokes a concept query per frame. Input is resolved against the
// frame's bindings; Output is matched against the result the same way a
// when pattern matches a record, so repeated variables join and shape
// mismatches drop the frame.
type Query struct {
	Concept string
	Op      string
	Input   ir.Template
	Output  ir.Template
}

func (Query) step() {}

// Filter keeps only frames for which Keep returns true.
type Filter struct {
	Keep func(frame.Frame) bool
}

func (Filter) step() {}

// Map rewrites each frame, typically to derive new bindings from
// existing ones.
type Map struct {
	Apply func(frame.Frame) frame.Frame
}

func (Map) step() {}

// validate checks a sync at registration time. reg answers whether the
// referenced concept operations exist. Validation is the authoring-time
// safety net: an unbound variable or a dangling operation reference is a
// defect in the sync, not a runtime condition.
func (s *Sync) validate(reg opChecker) error {
	if s.Name == "" {
		return &RegistrationError{Sync: s.Name, Reason: "sync name must be non-empty"}
	}
	if len(s.When) == 0 {
		return &RegistrationError{Sync: s.Name, Reason: "when clause must name at least one pattern"}
	}
	if len(s.Then) == 0 {
		return &RegistrationError{Sync: s.Name, Reason: "then clause must name at least one action"}
	}

	// dynamic flips once a Map step appears: maps can bind variables that
	// static analysis cannot see, so later unbound checks defer to the
	// runtime resolver.
	dynamic := false
	bound := map[string]bool{}
	for i, p := range s.When {
		if err := p.Validate(); err != nil {
			return &RegistrationError{Sync: s.Name, Reason: fmt.Sprintf("when[%d]: %v", i, err)}
		}
		if !reg.HasAction(p.Concept, p.Op) {
			return &RegistrationError{Sync: s.Name, Reason: fmt.Sprintf("when[%d]: unknown action %s.%s", i, p.Concept, p.Op)}
		}
		for _, v := range p.Input.Vars() {
			bound[v] = true
		}
		for _, v := range p.Output.Vars() {
			bound[v] = true
		}
	}

	for i, st := range s.Where {
		q, ok := st.(Query)
		if !ok {
			if _, isMap := st.(Map); isMap {
				dynamic = true
			}
			continue
		}
		if !reg.HasQuery(q.Concept, q.Op) {
			return &RegistrationError{Sync: s.Name, Reason: fmt.Sprintf("where[%d]: unknown query %s.%s", i, q.Concept, q.Op)}
		}
		if err := q.Input.Validate(); err != nil {
			return &RegistrationError{Sync: s.Name, Reason: fmt.Sprintf("where[%d] input: %v", i, err)}
		}
		if err := q.Output.Validate(); err != nil {
			return &RegistrationError{Sync: s.Name, Reason: fmt.Sprintf("where[%d] output: %v", i, err)}
		}
		if missing := unbound(q.Input.Vars(), bound); !dynamic && len(missing) > 0 {
			return &RegistrationError{Sync: s.Name, Reason: fmt.Sprintf("where[%d]: unbound variables %v in query input", i, missing)}
		}
		// Query outputs extend the binding environment for later stages.
		for _, v := range q.Output.Vars() {
			bound[v] = true
		}
	}

	for i, t := range s.Then {
		if !reg.HasAction(t.Concept, t.Op) {
			return &RegistrationError{Sync: s.Name, Reason: fmt.Sprintf("then[%d]: unknown action %s.%s", i, t.Concept, t.Op)}
		}
		if err := t.Input.Validate(); err != nil {
			return &RegistrationError{Sync: s.Name, Reason: fmt.Sprintf("then[%d] input: %v", i, err)}
		}
		if missing := unbound(t.Input.Vars(), bound); !dynamic && len(missing) > 0 {
			return &RegistrationError{Sync: s.Name, Reason: fmt.Sprintf("then[%d]: unbound variables %v in action input", i, missing)}
		}
	}
	return nil
}

// opChecker is the slice of the concept registry that validation needs.
type opChecker interface {
	HasAction(concept, op string) bool
	HasQuery(concept, op string) bool
}

func unbound(vars []string, bound map[string]bool) []string {
	var missing []string
	for _, v := range vars {
		if !bound[v] {
			missing = append(missing, v)
		}
	}
	sort.Strings(missing)
	return missing
}
