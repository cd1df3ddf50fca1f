package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concordkit/concord/internal/concept"
	"github.com/concordkit/concord/internal/frame"
	"github.com/concordkit/concord/internal/ir"
)

func validationRegistry(t *testing.T) *concept.Registry {
	t.Helper()
	reg := concept.NewRegistry()
	c := concept.NewScripted("Order").
		WithAction("place", func(ctx context.Context, input ir.Object) ir.Output {
			return ir.OK(ir.Object{})
		}).
		WithQuery("status", func(ctx context.Context, input ir.Object) ir.Output {
			return ir.OK(ir.Object{})
		})
	require.NoError(t, reg.Register(c))
	n := concept.NewScripted("Notify").
		WithAction("send", func(ctx context.Context, input ir.Object) ir.Output {
			return ir.OK(ir.Object{})
		})
	require.NoError(t, reg.Register(n))
	return reg
}

func TestSync_Validate(t *testing.T) {
	reg := validationRegistry(t)

	valid := func() *Sync {
		return &Sync{
			Name: "test-sync",
			When: []ir.Pattern{{
				Concept: "Order", Op: "place",
				Input: ir.Template{"item": ir.V("item")},
			}},
			Then: []ir.ThenClause{{
				Concept: "Notify", Op: "send",
				Input: ir.Template{"item": ir.V("item")},
			}},
		}
	}
	require.NoError(t, valid().validate(reg))

	testCases := []struct {
		name   string
		mutate func(*Sync)
	}{
		{"empty name", func(s *Sync) { s.Name = "" }},
		{"empty when", func(s *Sync) { s.When = nil }},
		{"empty then", func(s *Sync) { s.Then = nil }},
		{"unknown when action", func(s *Sync) { s.When[0].Op = "vanish" }},
		{"query used as when action", func(s *Sync) { s.When[0].Op = "status" }},
		{"unknown then action", func(s *Sync) { s.Then[0].Concept = "Nobody" }},
		{"unbound then variable", func(s *Sync) {
			s.Then[0].Input = ir.Template{"who": ir.V("user")}
		}},
		{"invalid when pattern case", func(s *Sync) { s.When[0].Case = "Success" }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := valid()
			tc.mutate(s)
			err := s.validate(reg)
			require.Error(t, err)
			var re *RegistrationError
			assert.ErrorAs(t, err, &re)
		})
	}
}

func TestSync_Validate_WhereSteps(t *testing.T) {
	reg := validationRegistry(t)

	base := func(where []Step, then ir.Template) *Sync {
		return &Sync{
			Name: "with-where",
			When: []ir.Pattern{{
				Concept: "Order", Op: "place",
				Input: ir.Template{"item": ir.V("item")},
			}},
			Where: where,
			Then: []ir.ThenClause{{
				Concept: "Notify", Op: "send", Input: then,
			}},
		}
	}

	t.Run("query output binds later variables", func(t *testing.T) {
		s := base([]Step{Query{
			Concept: "Order", Op: "status",
			Input:  ir.Template{"item": ir.V("item")},
			Output: ir.Template{"state": ir.V("state")},
		}}, ir.Template{"state": ir.V("state")})
		assert.NoError(t, s.validate(reg))
	})

	t.Run("unknown query", func(t *testing.T) {
		s := base([]Step{Query{Concept: "Order", Op: "nonexistent"}}, ir.Template{})
		assert.Error(t, s.validate(reg))
	})

	t.Run("action used as query", func(t *testing.T) {
		s := base([]Step{Query{Concept: "Order", Op: "place"}}, ir.Template{})
		assert.Error(t, s.validate(reg))
	})

	t.Run("unbound query input variable", func(t *testing.T) {
		s := base([]Step{Query{
			Concept: "Order", Op: "status",
			Input: ir.Template{"user": ir.V("user")},
		}}, ir.Template{})
		assert.Error(t, s.validate(reg))
	})

	t.Run("map step defers unbound checks to runtime", func(t *testing.T) {
		s := base([]Step{
			Map{Apply: func(f frame.Frame) frame.Frame {
				out, _ := f.Bind("derived", ir.String("x"), 0)
				return out
			}},
		}, ir.Template{"derived": ir.V("derived")})
		assert.NoError(t, s.validate(reg))
	})
}

func TestEngine_Register_DuplicateName(t *testing.T) {
	r := newRig(t)
	r.addConcept(t, echoConcept("Order", "place"))
	r.addConcept(t, echoConcept("Notify", "send"))

	mk := func() *Sync {
		return &Sync{
			Name: "dup",
			When: []ir.Pattern{{Concept: "Order", Op: "place"}},
			Then: []ir.ThenClause{{Concept: "Notify", Op: "send", Input: ir.Template{}}},
		}
	}
	require.NoError(t, r.engine.Register(mk()))
	err := r.engine.Register(mk())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}
