// Package harness runs declarative YAML scenarios against an engine and
// checks the resulting trace, with golden-file comparison for full trace
// snapshots.
//
// The harness owns the engine wiring for a scenario run: callers supply
// the concepts and syncs (those are Go code, not data), the scenario
// supplies the triggers and expectations. Causal ids come from a fixed
// sequential generator so the same scenario always produces the same
// trace bytes.
package harness

import (
	"context"
	"fmt"

	"github.com/concordkit/concord/internal/concept"
	"github.com/concordkit/concord/internal/engine"
	"github.com/concordkit/concord/internal/ir"
	"github.com/concordkit/concord/internal/log"
)

// Setup declares the fixed parts of a scenario run.
type Setup struct {
	// Concepts to register before triggering.
	Concepts []concept.Concept

	// Syncs to register, in order.
	Syncs []*engine.Sync

	// MaxSteps overrides the cascade depth guard when positive.
	MaxSteps int
}

// Result is the outcome of running a scenario.
type Result struct {
	// Trace holds every action record, in append order.
	Trace []*ir.ActionRecord

	// TriggerRecords holds each trigger's own record, in trigger order.
	TriggerRecords []*ir.ActionRecord

	// Err is the first chain abort, if any. Triggers after an abort are
	// still fired; each chain fails independently.
	Err error
}

// Run executes every trigger of a scenario against a fresh engine.
//
// Expectation failures return an error naming the trigger; chain aborts
// land in Result.Err so a scenario can deliberately provoke an overflow
// and still assert on the partial trace.
func Run(scenario *Scenario, setup Setup) (*Result, error) {
	reg := concept.NewRegistry()
	for _, c := range setup.Concepts {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	l := log.New()
	opts := []engine.Option{
		engine.WithGenerator(&engine.FixedGenerator{Prefix: "chain"}),
	}
	if setup.MaxSteps > 0 {
		opts = append(opts, engine.WithMaxSteps(setup.MaxSteps))
	}
	eng := engine.New(l, reg, opts...)
	for _, s := range setup.Syncs {
		if err := eng.Register(s); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	result := &Result{}
	ctx := context.Background()
	for i, tr := range scenario.Triggers {
		ref, err := ir.ParseRef(tr.Invoke)
		if err != nil {
			return nil, fmt.Errorf("triggers[%d]: %w", i, err)
		}
		input, err := ir.ObjectFromGo(tr.Input)
		if err != nil {
			return nil, fmt.Errorf("triggers[%d] input: %w", i, err)
		}
		rec, err := eng.Trigger(ctx, ref.Concept, ref.Op, input)
		if err != nil && result.Err == nil {
			result.Err = err
		}
		if rec != nil {
			result.TriggerRecords = append(result.TriggerRecords, rec)
		}
		if tr.Expect != nil {
			if err := checkExpect(i, tr.Expect, rec); err != nil {
				return nil, err
			}
		}
	}
	result.Trace = l.Records()
	return result, nil
}

func checkExpect(i int, exp *Expect, rec *ir.ActionRecord) error {
	if rec == nil {
		return fmt.Errorf("triggers[%d]: expected a completion but the trigger produced no record", i)
	}
	if rec.Output.Case != exp.Case {
		return fmt.Errorf("triggers[%d]: expected case %q, got %q (%s)", i, exp.Case, rec.Output.Case, rec.Output.Message())
	}
	if exp.Fields == nil {
		return nil
	}
	want, err := ir.ObjectFromGo(exp.Fields)
	if err != nil {
		return fmt.Errorf("triggers[%d] expect fields: %w", i, err)
	}
	for k, v := range want {
		got, ok := rec.Output.Fields[k]
		if !ok {
			return fmt.Errorf("triggers[%d]: expected output field %q is missing", i, k)
		}
		if !ir.Equal(got, v) {
			return fmt.Errorf("triggers[%d]: output field %q = %v, want %v", i, k, got, v)
		}
	}
	return nil
}
