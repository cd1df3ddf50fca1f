package ir

import (
	"fmt"
	"strings"
)

// Ref identifies a concept operation as (concept, op).
// The textual form is "Concept.op", e.g. "Session.start".
type Ref struct {
	Concept string
	Op      string
}

// ParseRef parses "Concept.op" into a Ref.
// Both components must be non-empty; the op may not contain further dots.
func ParseRef(s string) (Ref, error) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return Ref{}, fmt.Errorf("invalid action reference %q: want \"Concept.op\"", s)
	}
	return Ref{Concept: s[:i], Op: s[i+1:]}, nil
}

// String returns the "Concept.op" form.
func (r Ref) String() string {
	return r.Concept + "." + r.Op
}
