package frame

import (
	"github.com/concordkit/concord/internal/ir"
)

// Set is an ordered sequence of frames.
type Set []Frame

// Unit returns a singleton set holding one frame.
func Unit(f Frame) Set {
	return Set{f}
}

// Seed builds the initial set for a sync from its triggering record: one
// frame per consistent match of the head pattern, which for a single record
// is zero or one frames.
func Seed(p ir.Pattern, rec *ir.ActionRecord) Set {
	f, ok := NewFrame().Match(p, rec)
	if !ok {
		return nil
	}
	return Unit(f)
}

// Extend joins a set against candidate records under a pattern.
// For each frame, every candidate consistent with both the pattern's
// literals and the frame's existing bindings produces one extended frame
// (inner-join semantics). Frames with no consistent candidate are dropped.
// Candidate order is preserved per frame, keeping output deterministic.
func Extend(s Set, p ir.Pattern, candidates []*ir.ActionRecord) Set {
	var out Set
	for _, f := range s {
		for _, rec := range candidates {
			if extended, ok := f.Match(p, rec); ok {
				out = append(out, extended)
			}
		}
	}
	return out
}

// Project discards bindings outside the kept variable list.
// Purely a size optimization before dispatch; never changes which frames
// survive.
func Project(s Set, keep []string) Set {
	kept := make(map[string]bool, len(keep))
	for _, name := range keep {
		kept[name] = true
	}

	out := make(Set, 0, len(s))
	for _, f := range s {
		projected := NewFrame()
		for name, v := range f.Bindings {
			if !kept[name] {
				continue
			}
			projected.Bindings[name] = v
			if ids, ok := f.Sources[name]; ok {
				projected.Sources[name] = append([]int64(nil), ids...)
			}
		}
		out = append(out, projected)
	}
	return out
}

// Filter keeps frames for which the predicate holds.
func Filter(s Set, keep func(Frame) bool) Set {
	var out Set
	for _, f := range s {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// Map applies a pure transform to every frame.
func Map(s Set, apply func(Frame) Frame) Set {
	out := make(Set, 0, len(s))
	for _, f := range s {
		out = append(out, apply(f))
	}
	return out
}
