package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is a declarative conformance test: a sequence of external
// triggers fired at an engine, with expectations on each trigger's own
// output and assertions over the resulting trace.
type Scenario struct {
	// Name uniquely identifies the scenario; golden files key on it.
	Name string `yaml:"name"`

	// Description explains what the scenario validates.
	Description string `yaml:"description"`

	// Triggers are the external action invocations, fired in order.
	// Each opens its own causal chain.
	Triggers []Trigger `yaml:"triggers"`

	// Assertions validate the final trace.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Trigger is one external action invocation.
type Trigger struct {
	// Invoke is the action reference, e.g. "Order.place".
	Invoke string `yaml:"invoke"`

	// Input holds the action input. Values pass through the strict
	// data-model conversion, so floats are rejected.
	Input map[string]any `yaml:"input"`

	// Expect validates the trigger's own completion. Nil means the
	// trigger is assumed to succeed with any output.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect constrains a trigger's recorded output.
type Expect struct {
	// Case is the expected output variant, "ok" or "error".
	Case string `yaml:"case"`

	// Fields are expected output fields, compared as a subset.
	Fields map[string]any `yaml:"fields,omitempty"`
}

// Assertion validates the trace after all triggers settle.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count.
	Type string `yaml:"type"`

	// Action is the action reference for trace_contains and trace_count.
	Action string `yaml:"action,omitempty"`

	// Input is a subset match on the record's input (trace_contains).
	Input map[string]any `yaml:"input,omitempty"`

	// Case optionally constrains the output variant (trace_contains).
	Case string `yaml:"case,omitempty"`

	// Count is the expected number of occurrences (trace_count).
	Count int `yaml:"count,omitempty"`

	// Actions is the expected relative order (trace_order). The trace
	// may interleave other records between them.
	Actions []string `yaml:"actions,omitempty"`
}

const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields
// are rejected so a typo fails loudly instead of silently skipping an
// assertion.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing scenario YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Triggers) == 0 {
		return fmt.Errorf("triggers list is required and must be non-empty")
	}
	for i, tr := range s.Triggers {
		if tr.Invoke == "" {
			return fmt.Errorf("triggers[%d]: invoke is required", i)
		}
		if tr.Expect != nil && tr.Expect.Case == "" {
			return fmt.Errorf("triggers[%d].expect: case is required", i)
		}
	}
	for i, a := range s.Assertions {
		switch a.Type {
		case AssertTraceContains:
			if a.Action == "" {
				return fmt.Errorf("assertions[%d]: action is required for trace_contains", i)
			}
		case AssertTraceOrder:
			if len(a.Actions) < 2 {
				return fmt.Errorf("assertions[%d]: trace_order needs at least two actions", i)
			}
		case AssertTraceCount:
			if a.Action == "" {
				return fmt.Errorf("assertions[%d]: action is required for trace_count", i)
			}
			if a.Count < 0 {
				return fmt.Errorf("assertions[%d]: count must be non-negative", i)
			}
		case "":
			return fmt.Errorf("assertions[%d]: type is required", i)
		default:
			return fmt.Errorf("assertions[%d]: unknown assertion type %q", i, a.Type)
		}
	}
	return nil
}
