// Package frame implements the binding/join algebra used by sync matching.
//
// A Frame is one consistent assignment of variables to values with
// provenance back to the records that produced each binding. A FrameSet is
// the ordered candidate set at a given matching stage; order is insertion
// order and carries no meaning beyond deterministic output.
//
// All operations are pure and total: the empty FrameSet is a valid result,
// never an error. Frames with no consistent candidate are dropped, never
// padded with nulls.
package frame

import (
	"github.com/concordkit/concord/internal/ir"
)

// Frame is one consistent variable assignment.
// Sources maps each variable to the IDs of the records that bound it;
// where-step bindings have no record source and are absent from Sources.
type Frame struct {
	Bindings ir.Object
	Sources  map[string][]int64
}

// NewFrame returns an empty frame.
func NewFrame() Frame {
	return Frame{Bindings: ir.Object{}, Sources: map[string][]int64{}}
}

// Clone returns a deep copy; extending a frame never aliases its parent.
func (f Frame) Clone() Frame {
	out := Frame{
		Bindings: f.Bindings.Clone(),
		Sources:  make(map[string][]int64, len(f.Sources)),
	}
	for k, ids := range f.Sources {
		out.Sources[k] = append([]int64(nil), ids...)
	}
	return out
}

// Bind sets a variable, recording the source record when one exists.
// Binding an already-bound variable to an unequal value reports false and
// leaves the frame unchanged.
func (f Frame) Bind(name string, v ir.Value, recordID int64) (Frame, bool) {
	if existing, ok := f.Bindings[name]; ok {
		if !ir.Equal(existing, v) {
			return f, false
		}
		if recordID != 0 {
			out := f.Clone()
			out.Sources[name] = append(out.Sources[name], recordID)
			return out, true
		}
		return f, true
	}
	out := f.Clone()
	out.Bindings[name] = v
	if recordID != 0 {
		out.Sources[name] = []int64{recordID}
	}
	return out, true
}

// Lookup returns a variable's bound value.
func (f Frame) Lookup(name string) (ir.Value, bool) {
	v, ok := f.Bindings[name]
	return v, ok
}

// matchTemplate checks a template against record fields under the frame's
// existing bindings, returning the extended frame. Literals require field
// equality; variables bind or join. A template field absent from the record
// fails the match (the record does not carry the constrained field).
func (f Frame) matchTemplate(t ir.Template, fields ir.Object, recordID int64) (Frame, bool) {
	out := f
	for field, term := range t {
		actual, present := fields[field]
		if !present {
			return f, false
		}
		switch tv := term.(type) {
		case ir.Lit:
			if !ir.Equal(tv.Value, actual) {
				return f, false
			}
		case ir.Var:
			next, ok := out.Bind(tv.Name, actual, recordID)
			if !ok {
				return f, false
			}
			out = next
		default:
			return f, false
		}
	}
	return out, true
}

// Match checks a pattern against one record under the frame's bindings.
// The output case gate runs first: a pattern requesting the ok variant can
// never see error fields and vice versa, so a success-shape binding and an
// error binding cannot coexist in one frame.
func (f Frame) Match(p ir.Pattern, rec *ir.ActionRecord) (Frame, bool) {
	if p.Concept != rec.Concept || p.Op != rec.Op {
		return f, false
	}
	if p.Case != "" && p.Case != rec.Output.Case {
		return f, false
	}
	out, ok := f.matchTemplate(p.Input, rec.Input, rec.ID)
	if !ok {
		return f, false
	}
	out, ok = out.matchTemplate(p.Output, rec.Output.Fields, rec.ID)
	if !ok {
		return f, false
	}
	return out, true
}

// MatchOutput checks only an output template (used for where-step query
// results, which have no backing record).
func (f Frame) MatchOutput(t ir.Template, fields ir.Object) (Frame, bool) {
	return f.matchTemplate(t, fields, 0)
}
