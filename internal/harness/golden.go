package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/concordkit/concord/internal/ir"
)

// snapshot converts a trace into the canonical object that golden files
// store. Record ids and causal ids are included: with the fixed causal
// id generator they are deterministic, and drift in either is exactly
// what a golden comparison should catch.
func snapshot(scenarioName string, trace []*ir.ActionRecord) ir.Object {
	records := make(ir.Array, 0, len(trace))
	for _, rec := range trace {
		entry := ir.Object{
			"id":        ir.Int(rec.ID),
			"causal_id": ir.String(rec.CausalID),
			"action":    ir.String(rec.Ref().String()),
			"input":     rec.Input,
			"case":      ir.String(rec.Output.Case),
			"output":    rec.Output.Fields,
		}
		records = append(records, entry)
	}
	return ir.Object{
		"scenario": ir.String(scenarioName),
		"trace":    records,
	}
}

// RunWithGolden runs a scenario, checks its assertions, and compares the
// full trace against testdata/golden/<name>.golden.
//
// Regenerate goldens with:
//
//	go test ./... -update
func RunWithGolden(t *testing.T, scenario *Scenario, setup Setup) *Result {
	t.Helper()

	result, err := Run(scenario, setup)
	if err != nil {
		t.Fatalf("scenario %s: %v", scenario.Name, err)
	}
	for _, err := range CheckAssertions(scenario, result) {
		t.Errorf("scenario %s: %v", scenario.Name, err)
	}

	data, err := ir.MarshalCanonical(snapshot(scenario.Name, result.Trace))
	if err != nil {
		t.Fatalf("scenario %s: canonical trace: %v", scenario.Name, err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result
}
