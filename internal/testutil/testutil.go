// Package testutil holds deterministic helpers shared by package tests
// and the scenario harness.
package testutil

import (
	"github.com/concordkit/concord/internal/ir"
)

// Record builds an action record with an ok output, for log and frame
// tests that need prefabricated history.
func Record(id int64, causalID, concept, op string, input, output ir.Object) *ir.ActionRecord {
	return &ir.ActionRecord{
		ID:       id,
		CausalID: causalID,
		Concept:  concept,
		Op:       op,
		Input:    input,
		Output:   ir.OK(output),
	}
}

// ErrRecord builds an action record with an error output.
func ErrRecord(id int64, causalID, concept, op string, input ir.Object, msg string) *ir.ActionRecord {
	return &ir.ActionRecord{
		ID:       id,
		CausalID: causalID,
		Concept:  concept,
		Op:       op,
		Input:    input,
		Output:   ir.Error(msg),
	}
}
