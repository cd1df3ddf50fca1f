package engine

import (
	"errors"
	"fmt"
)

// OverflowError aborts a causal chain when the cascade depth guard fires.
// The partial chain up to the abort remains in the log.
type OverflowError struct {
	CausalID string
	Steps    int
	Limit    int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("cascade overflow in chain %s: %d invocations exceeds limit %d", e.CausalID, e.Steps, e.Limit)
}

// FaultError aborts a causal chain when a collaborator (a concept action
// or query, or the journal) returns a Go error. Expected failures travel
// in the error output variant and never produce a FaultError.
type FaultError struct {
	CausalID string
	Concept  string
	Op       string
	Err      error
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("fault in chain %s at %s.%s: %v", e.CausalID, e.Concept, e.Op, e.Err)
}

func (e *FaultError) Unwrap() error { return e.Err }

// RegistrationError rejects a malformed sync at registration time.
type RegistrationError struct {
	Sync   string
	Reason string
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("sync %q: %s", e.Sync, e.Reason)
}

// IsOverflow reports whether err is (or wraps) an OverflowError.
func IsOverflow(err error) bool {
	var oe *OverflowError
	return errors.As(err, &oe)
}

// IsFault reports whether err is (or wraps) a FaultError.
func IsFault(err error) bool {
	var fe *FaultError
	return errors.As(err, &fe)
}
