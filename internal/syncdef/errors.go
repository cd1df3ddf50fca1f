package syncdef

import (
	"fmt"

	"cuelang.org/go/cue/token"
)

// CompileError is an authoring error in a sync definition file.
type CompileError struct {
	Sync    string
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	loc := ""
	if e.Pos.IsValid() {
		loc = fmt.Sprintf("%s:%d:%d: ", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
	}
	if e.Sync != "" {
		return fmt.Sprintf("%ssync %q: %s: %s", loc, e.Sync, e.Field, e.Message)
	}
	return fmt.Sprintf("%s%s: %s", loc, e.Field, e.Message)
}
