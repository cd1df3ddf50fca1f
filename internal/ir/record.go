package ir

import "fmt"

// Output case tags. Every action and query result is exactly one of these.
const (
	CaseOK    = "ok"
	CaseError = "error"
)

// ErrorField is the single field carried by the error variant.
const ErrorField = "error"

// Output is the two-case tagged result of an action or query invocation.
// Exactly one of the cases applies: the ok variant carries arbitrary success
// fields, the error variant carries a single message under ErrorField.
// The matcher checks the tag exhaustively; key-presence duck typing is
// deliberately not part of the model.
type Output struct {
	Case   string `json:"case"`
	Fields Object `json:"fields"`
}

// OK builds a success output.
func OK(fields Object) Output {
	if fields == nil {
		fields = Object{}
	}
	return Output{Case: CaseOK, Fields: fields}
}

// Error builds an error output with the given message.
func Error(message string) Output {
	return Output{Case: CaseError, Fields: Object{ErrorField: String(message)}}
}

// Errorf builds an error output with a formatted message.
func Errorf(format string, args ...any) Output {
	return Error(fmt.Sprintf(format, args...))
}

// IsOK reports whether the output is the success variant.
func (o Output) IsOK() bool {
	return o.Case == CaseOK
}

// Validate checks the tagged-union shape: a known case tag, and for the
// error variant exactly one string message under ErrorField. The ok variant
// must not reuse ErrorField, keeping the two key sets disjoint.
func (o Output) Validate() error {
	switch o.Case {
	case CaseOK:
		if _, ok := o.Fields[ErrorField]; ok {
			return fmt.Errorf("ok output must not carry the %q field", ErrorField)
		}
		return nil
	case CaseError:
		if len(o.Fields) != 1 {
			return fmt.Errorf("error output must carry exactly the %q field, got %d fields", ErrorField, len(o.Fields))
		}
		msg, ok := o.Fields[ErrorField]
		if !ok {
			return fmt.Errorf("error output missing %q field", ErrorField)
		}
		if _, ok := msg.(String); !ok {
			return fmt.Errorf("error message must be a string, got %T", msg)
		}
		return nil
	default:
		return fmt.Errorf("unknown output case %q", o.Case)
	}
}

// Message returns the error message for the error variant, or "".
func (o Output) Message() string {
	if o.Case != CaseError {
		return ""
	}
	if s, ok := o.Fields[ErrorField].(String); ok {
		return string(s)
	}
	return ""
}

// ActionRecord is one immutable entry of the append-only action log.
// Records are created exactly once per action invocation and never mutated
// or deleted. ID is a process-wide monotonic sequence number; CausalID
// threads one external trigger through every record it transitively caused.
type ActionRecord struct {
	ID       int64  `json:"id"`
	CausalID string `json:"causal_id"`
	Concept  string `json:"concept"`
	Op       string `json:"op"`
	Input    Object `json:"input"`
	Output   Output `json:"output"`
}

// Ref returns the record's action reference ("Concept.op").
func (r *ActionRecord) Ref() Ref {
	return Ref{Concept: r.Concept, Op: r.Op}
}
