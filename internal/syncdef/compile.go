// Package syncdef compiles CUE sync definitions into engine syncs.
//
// A definition file declares syncs under the top-level "sync" field:
//
//	sync: "notify-on-order": {
//		when: [{
//			action: "Order.place"
//			case:   "ok"
//			input: {item: "?item"}
//			output: {order: "?order"}
//		}]
//		where: [{
//			query: "Inventory.reserved"
//			input: {item: "?item"}
//			output: {count: "?count"}
//		}]
//		then: [{
//			action: "Notify.send"
//			input: {order: "?order", count: "?count"}
//		}]
//	}
//
// Inside templates, a string starting with "?" names a variable; "??"
// escapes a literal leading question mark. Everything else is a literal
// matched (or sent) verbatim. Floats are rejected wholesale, same as in
// the rest of the data model.
package syncdef

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"

	"github.com/concordkit/concord/internal/engine"
	"github.com/concordkit/concord/internal/ir"
)

// CompileSync parses one CUE sync struct into an engine.Sync. The value
// is the sync body; its name comes from the struct label.
func CompileSync(v cue.Value) (*engine.Sync, error) {
	if err := v.Err(); err != nil {
		return nil, err
	}

	s := &engine.Sync{Name: syncLabel(v)}

	whenVal := v.LookupPath(cue.ParsePath("when"))
	if !whenVal.Exists() {
		return nil, &CompileError{Sync: s.Name, Field: "when", Message: "when clause is required", Pos: v.Pos()}
	}
	patterns, err := compilePatterns(s.Name, whenVal)
	if err != nil {
		return nil, err
	}
	s.When = patterns

	whereVal := v.LookupPath(cue.ParsePath("where"))
	if whereVal.Exists() {
		steps, err := compileWhere(s.Name, whereVal)
		if err != nil {
			return nil, err
		}
		s.Where = steps
	}

	thenVal := v.LookupPath(cue.ParsePath("then"))
	if !thenVal.Exists() {
		return nil, &CompileError{Sync: s.Name, Field: "then", Message: "then clause is required", Pos: v.Pos()}
	}
	clauses, err := compileThen(s.Name, thenVal)
	if err != nil {
		return nil, err
	}
	s.Then = clauses

	return s, nil
}

func syncLabel(v cue.Value) string {
	sels := v.Path().Selectors()
	if len(sels) == 0 {
		return ""
	}
	return strings.Trim(sels[len(sels)-1].String(), `"`)
}

func compilePatterns(sync string, v cue.Value) ([]ir.Pattern, error) {
	var patterns []ir.Pattern
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Sync: sync, Field: "when", Message: "when must be a list of patterns", Pos: v.Pos()}
	}
	for i := 0; iter.Next(); i++ {
		field := fmt.Sprintf("when[%d]", i)
		pv := iter.Value()

		ref, err := refField(sync, field, pv, "action")
		if err != nil {
			return nil, err
		}
		p := ir.Pattern{Concept: ref.Concept, Op: ref.Op}

		caseVal := pv.LookupPath(cue.ParsePath("case"))
		if caseVal.Exists() {
			c, err := caseVal.String()
			if err != nil {
				return nil, &CompileError{Sync: sync, Field: field + ".case", Message: "case must be a string", Pos: caseVal.Pos()}
			}
			if c != ir.CaseOK && c != ir.CaseError {
				return nil, &CompileError{Sync: sync, Field: field + ".case", Message: fmt.Sprintf("invalid case %q, must be %q or %q", c, ir.CaseOK, ir.CaseError), Pos: caseVal.Pos()}
			}
			p.Case = c
		}

		if p.Input, err = templateField(sync, field+".input", pv, "input"); err != nil {
			return nil, err
		}
		if p.Output, err = templateField(sync, field+".output", pv, "output"); err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, nil
}

func compileWhere(sync string, v cue.Value) ([]engine.Step, error) {
	var steps []engine.Step
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Sync: sync, Field: "where", Message: "where must be a list of query steps", Pos: v.Pos()}
	}
	for i := 0; iter.Next(); i++ {
		field := fmt.Sprintf("where[%d]", i)
		sv := iter.Value()

		ref, err := refField(sync, field, sv, "query")
		if err != nil {
			return nil, err
		}
		q := engine.Query{Concept: ref.Concept, Op: ref.Op}
		if q.Input, err = templateField(sync, field+".input", sv, "input"); err != nil {
			return nil, err
		}
		if q.Output, err = templateField(sync, field+".output", sv, "output"); err != nil {
			return nil, err
		}
		steps = append(steps, q)
	}
	return steps, nil
}

func compileThen(sync string, v cue.Value) ([]ir.ThenClause, error) {
	var clauses []ir.ThenClause
	iter, err := v.List()
	if err != nil {
		return nil, &CompileError{Sync: sync, Field: "then", Message: "then must be a list of actions", Pos: v.Pos()}
	}
	for i := 0; iter.Next(); i++ {
		field := fmt.Sprintf("then[%d]", i)
		tv := iter.Value()

		ref, err := refField(sync, field, tv, "action")
		if err != nil {
			return nil, err
		}
		t := ir.ThenClause{Concept: ref.Concept, Op: ref.Op}
		if t.Input, err = templateField(sync, field+".input", tv, "input"); err != nil {
			return nil, err
		}
		clauses = append(clauses, t)
	}
	return clauses, nil
}

// refField reads a "Concept.op" reference from the named string field.
func refField(sync, field string, v cue.Value, name string) (ir.Ref, error) {
	rv := v.LookupPath(cue.ParsePath(name))
	if !rv.Exists() {
		return ir.Ref{}, &CompileError{Sync: sync, Field: field, Message: fmt.Sprintf("%q field is required", name), Pos: v.Pos()}
	}
	s, err := rv.String()
	if err != nil {
		return ir.Ref{}, &CompileError{Sync: sync, Field: field + "." + name, Message: fmt.Sprintf("%q must be a string reference", name), Pos: rv.Pos()}
	}
	ref, err := ir.ParseRef(s)
	if err != nil {
		return ir.Ref{}, &CompileError{Sync: sync, Field: field + "." + name, Message: err.Error(), Pos: rv.Pos()}
	}
	return ref, nil
}

// templateField compiles an optional struct field into a template.
// A missing field compiles to an empty template, which matches anything.
func templateField(sync, field string, v cue.Value, name string) (ir.Template, error) {
	tv := v.LookupPath(cue.ParsePath(name))
	if !tv.Exists() {
		return nil, nil
	}
	iter, err := tv.Fields()
	if err != nil {
		return nil, &CompileError{Sync: sync, Field: field, Message: fmt.Sprintf("%q must be a struct", name), Pos: tv.Pos()}
	}
	t := ir.Template{}
	for iter.Next() {
		key := iter.Label()
		term, err := compileTerm(sync, field+"."+key, iter.Value())
		if err != nil {
			return nil, err
		}
		t[key] = term
	}
	return t, nil
}

// compileTerm turns one CUE value into a pattern term. Strings opening
// with "?" are variables, "??" escapes a literal question mark.
func compileTerm(sync, field string, v cue.Value) (ir.Term, error) {
	if v.Kind() == cue.StringKind {
		s, err := v.String()
		if err != nil {
			return nil, &CompileError{Sync: sync, Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		if strings.HasPrefix(s, "??") {
			return ir.L(ir.String(s[1:])), nil
		}
		if strings.HasPrefix(s, "?") {
			name := s[1:]
			if name == "" {
				return nil, &CompileError{Sync: sync, Field: field, Message: "variable name must be non-empty", Pos: v.Pos()}
			}
			return ir.V(name), nil
		}
		return ir.L(ir.String(s)), nil
	}
	val, err := compileValue(sync, field, v)
	if err != nil {
		return nil, err
	}
	return ir.L(val), nil
}

// compileValue converts a concrete CUE value into the data model.
func compileValue(sync, field string, v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, &CompileError{Sync: sync, Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return ir.String(s), nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, &CompileError{Sync: sync, Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return ir.Int(n), nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, &CompileError{Sync: sync, Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		return ir.Bool(b), nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{Sync: sync, Field: field, Message: "float values are not allowed in the data model", Pos: v.Pos()}
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, &CompileError{Sync: sync, Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		var arr ir.Array
		for i := 0; iter.Next(); i++ {
			el, err := compileValue(sync, fmt.Sprintf("%s[%d]", field, i), iter.Value())
			if err != nil {
				return nil, err
			}
			arr = append(arr, el)
		}
		return arr, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, &CompileError{Sync: sync, Field: field, Message: err.Error(), Pos: v.Pos()}
		}
		obj := ir.Object{}
		for iter.Next() {
			key := iter.Label()
			el, err := compileValue(sync, field+"."+key, iter.Value())
			if err != nil {
				return nil, err
			}
			obj[key] = el
		}
		return obj, nil
	default:
		return nil, &CompileError{Sync: sync, Field: field, Message: fmt.Sprintf("unsupported value kind %v", v.Kind()), Pos: v.Pos()}
	}
}
