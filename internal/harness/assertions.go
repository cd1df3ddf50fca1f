package harness

import (
	"fmt"

	"github.com/concordkit/concord/internal/ir"
)

// CheckAssertions validates every scenario assertion against a trace.
// All failures are collected rather than stopping at the first.
func CheckAssertions(scenario *Scenario, result *Result) []error {
	var errs []error
	for i, a := range scenario.Assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertContains(&a, result.Trace)
		case AssertTraceOrder:
			err = assertOrder(&a, result.Trace)
		case AssertTraceCount:
			err = assertCount(&a, result.Trace)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("assertions[%d] (%s): %w", i, a.Type, err))
		}
	}
	return errs
}

func assertContains(a *Assertion, trace []*ir.ActionRecord) error {
	wantInput, err := ir.ObjectFromGo(a.Input)
	if err != nil {
		return fmt.Errorf("input: %w", err)
	}
	for _, rec := range trace {
		if rec.Ref().String() != a.Action {
			continue
		}
		if a.Case != "" && rec.Output.Case != a.Case {
			continue
		}
		if subsetMatch(wantInput, rec.Input) {
			return nil
		}
	}
	return fmt.Errorf("no record of %s matches", a.Action)
}

func assertOrder(a *Assertion, trace []*ir.ActionRecord) error {
	next := 0
	for _, rec := range trace {
		if next < len(a.Actions) && rec.Ref().String() == a.Actions[next] {
			next++
		}
	}
	if next < len(a.Actions) {
		return fmt.Errorf("trace never reaches %s (matched %d of %d)", a.Actions[next], next, len(a.Actions))
	}
	return nil
}

func assertCount(a *Assertion, trace []*ir.ActionRecord) error {
	n := 0
	for _, rec := range trace {
		if rec.Ref().String() == a.Action {
			n++
		}
	}
	if n != a.Count {
		return fmt.Errorf("%s appears %d times, want %d", a.Action, n, a.Count)
	}
	return nil
}

// subsetMatch reports whether every field of want equals the same field
// of got. Extra fields in got are fine.
func subsetMatch(want, got ir.Object) bool {
	for k, v := range want {
		g, ok := got[k]
		if !ok || !ir.Equal(g, v) {
			return false
		}
	}
	return true
}
