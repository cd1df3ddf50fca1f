package concept

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concordkit/concord/internal/ir"
)

func counterConcept() *Scripted {
	count := int64(0)
	return NewScripted("Counter").
		WithAction("increment", func(ctx context.Context, input ir.Object) ir.Output {
			by := int64(1)
			if v, ok := input["by"].(ir.Int); ok {
				by = int64(v)
			}
			count += by
			return ir.OK(ir.Object{"count": ir.Int(count)})
		}).
		WithQuery("current", func(ctx context.Context, input ir.Object) ir.Output {
			return ir.OK(ir.Object{"count": ir.Int(count)})
		})
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(counterConcept()))

	err := reg.Register(counterConcept())
	assert.Error(t, err, "duplicate concept name")

	c, ok := reg.Lookup("Counter")
	require.True(t, ok)
	assert.Equal(t, "Counter", c.Name())

	_, ok = reg.Lookup("Missing")
	assert.False(t, ok)
}

func TestRegistry_OperationChecks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(counterConcept()))

	assert.True(t, reg.HasAction("Counter", "increment"))
	assert.False(t, reg.HasAction("Counter", "current"), "queries are not actions")
	assert.True(t, reg.HasQuery("Counter", "current"))
	assert.False(t, reg.HasQuery("Counter", "increment"), "actions are not queries")
	assert.False(t, reg.HasAction("Missing", "increment"))
}

func TestRegistry_ActionAndQuery(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry()
	require.NoError(t, reg.Register(counterConcept()))

	out, err := reg.Action(ctx, ir.Ref{Concept: "Counter", Op: "increment"}, ir.Object{"by": ir.Int(3)})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(3), out.Fields["count"])

	out, err = reg.Query(ctx, ir.Ref{Concept: "Counter", Op: "current"}, ir.Object{})
	require.NoError(t, err)
	assert.Equal(t, ir.Int(3), out.Fields["count"])

	_, err = reg.Action(ctx, ir.Ref{Concept: "Counter", Op: "vanish"}, ir.Object{})
	assert.Error(t, err, "unknown operation is an infrastructure fault")

	_, err = reg.Query(ctx, ir.Ref{Concept: "Nobody", Op: "current"}, ir.Object{})
	assert.Error(t, err, "unknown concept is an infrastructure fault")
}

func TestScripted_ExpectedFailureIsOutput(t *testing.T) {
	ctx := context.Background()
	c := NewScripted("Inventory").
		WithAction("reserve", func(ctx context.Context, input ir.Object) ir.Output {
			return ir.Error("out of stock")
		})

	out, err := c.Action(ctx, "reserve", ir.Object{})
	require.NoError(t, err, "an expected failure travels in the output, not the error")
	assert.False(t, out.IsOK())
	assert.Equal(t, "out of stock", out.Message())
}
