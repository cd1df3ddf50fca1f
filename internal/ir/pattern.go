package ir

import "fmt"

// Term is a sealed interface over the two template entries: a literal value
// (equality filter) or a free variable (binding site). A variable repeated
// across positions within one sync is a join key.
type Term interface {
	term()
}

// Lit is a literal template entry; a record field matches only if its value
// equals the literal.
type Lit struct {
	Value Value
}

func (Lit) term() {}

// Var is a variable template entry; the first occurrence binds the record
// field's value, later occurrences require equality with the bound value.
type Var struct {
	Name string
}

func (Var) term() {}

// L is shorthand for a literal term.
func L(v Value) Term { return Lit{Value: v} }

// V is shorthand for a variable term.
func V(name string) Term { return Var{Name: name} }

// Template maps field names to terms. Fields absent from the template are
// unconstrained and do not bind.
type Template map[string]Term

// Vars returns the variable names the template binds, in no particular order.
func (t Template) Vars() []string {
	var names []string
	for _, term := range t {
		if v, ok := term.(Var); ok {
			names = append(names, v.Name)
		}
	}
	return names
}

// Validate rejects templates with empty variable names or nil literals.
func (t Template) Validate() error {
	for field, term := range t {
		switch tv := term.(type) {
		case Var:
			if tv.Name == "" {
				return fmt.Errorf("field %q: empty variable name", field)
			}
		case Lit:
			if tv.Value == nil {
				return fmt.Errorf("field %q: nil literal", field)
			}
		case nil:
			return fmt.Errorf("field %q: nil term", field)
		default:
			return fmt.Errorf("field %q: unknown term type %T", field, term)
		}
	}
	return nil
}

// Pattern matches action records in a sync's when clause.
// Concept and Op select the action; Case constrains the output variant
// ("" matches either); Input and Output templates filter fields and bind
// variables.
type Pattern struct {
	Concept string
	Op      string
	Case    string
	Input   Template
	Output  Template
}

// Ref returns the pattern's action reference.
func (p Pattern) Ref() Ref {
	return Ref{Concept: p.Concept, Op: p.Op}
}

// Validate checks the pattern's structural shape.
func (p Pattern) Validate() error {
	if p.Concept == "" || p.Op == "" {
		return fmt.Errorf("pattern requires concept and op, got %q.%q", p.Concept, p.Op)
	}
	if p.Case != "" && p.Case != CaseOK && p.Case != CaseError {
		return fmt.Errorf("pattern %s: unknown output case %q", p.Ref(), p.Case)
	}
	if err := p.Input.Validate(); err != nil {
		return fmt.Errorf("pattern %s input: %w", p.Ref(), err)
	}
	if err := p.Output.Validate(); err != nil {
		return fmt.Errorf("pattern %s output: %w", p.Ref(), err)
	}
	return nil
}

// ThenClause names a follow-up action with a templated input.
// Variables in the input template must be bound by the owning sync's
// when/where steps; registration rejects anything else.
type ThenClause struct {
	Concept string
	Op      string
	Input   Template
}

// Ref returns the clause's action reference.
func (t ThenClause) Ref() Ref {
	return Ref{Concept: t.Concept, Op: t.Op}
}

// Resolve computes the clause's concrete input from bindings.
// Every variable must be bound; a miss is an authoring error that
// registration-time validation is supposed to have caught.
func (t ThenClause) Resolve(bindings Object) (Object, error) {
	return ResolveTemplate(t.Input, bindings)
}

// ResolveTemplate instantiates a template against a binding set: literals
// pass through, variables substitute their bound value.
func ResolveTemplate(t Template, bindings Object) (Object, error) {
	out := make(Object, len(t))
	for field, term := range t {
		switch tv := term.(type) {
		case Lit:
			out[field] = tv.Value
		case Var:
			v, ok := bindings[tv.Name]
			if !ok {
				return nil, fmt.Errorf("variable %q not bound (referenced by field %q)", tv.Name, field)
			}
			out[field] = v
		default:
			return nil, fmt.Errorf("field %q: unknown term type %T", field, term)
		}
	}
	return out, nil
}
