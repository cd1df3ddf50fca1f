package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/concordkit/concord/internal/ir"
	"github.com/concordkit/concord/internal/testutil"
)

func TestSeed(t *testing.T) {
	p := ir.Pattern{
		Concept: "Order", Op: "place", Case: ir.CaseOK,
		Input: ir.Template{"item": ir.V("item")},
	}

	s := Seed(p, placeRecord(1, "widget", "ord-1"))
	require.Len(t, s, 1)
	assert.Equal(t, ir.String("widget"), s[0].Bindings["item"])

	s = Seed(p, testutil.Record(2, "chain-1", "Cart", "checkout", ir.Object{}, ir.Object{}))
	assert.Empty(t, s, "non-matching record seeds the empty set")
}

func TestExtend_InnerJoin(t *testing.T) {
	// Seed frames bind "item" from two different orders; extending over
	// shipment records must pair each order only with shipments for the
	// same item. No cross product.
	head := ir.Pattern{
		Concept: "Order", Op: "place",
		Input:  ir.Template{"item": ir.V("item")},
		Output: ir.Template{"order": ir.V("order")},
	}
	s := Seed(head, placeRecord(1, "widget", "ord-1"))
	s = append(s, Seed(head, placeRecord(2, "gadget", "ord-2"))...)
	require.Len(t, s, 2)

	shipments := []*ir.ActionRecord{
		testutil.Record(3, "chain-1", "Shipping", "ship",
			ir.Object{"item": ir.String("widget")}, ir.Object{"tracking": ir.String("t-1")}),
		testutil.Record(4, "chain-1", "Shipping", "ship",
			ir.Object{"item": ir.String("gadget")}, ir.Object{"tracking": ir.String("t-2")}),
		testutil.Record(5, "chain-1", "Shipping", "ship",
			ir.Object{"item": ir.String("widget")}, ir.Object{"tracking": ir.String("t-3")}),
	}
	joinOn := ir.Pattern{
		Concept: "Shipping", Op: "ship",
		Input:  ir.Template{"item": ir.V("item")},
		Output: ir.Template{"tracking": ir.V("tracking")},
	}

	joined := Extend(s, joinOn, shipments)
	require.Len(t, joined, 3, "widget order joins two shipments, gadget order joins one")

	// Insertion order: frames in set order, candidates in record order.
	assert.Equal(t, ir.String("t-1"), joined[0].Bindings["tracking"])
	assert.Equal(t, ir.String("t-3"), joined[1].Bindings["tracking"])
	assert.Equal(t, ir.String("t-2"), joined[2].Bindings["tracking"])
	assert.Equal(t, ir.String("ord-2"), joined[2].Bindings["order"])
}

func TestExtend_DropsFramesWithoutCandidates(t *testing.T) {
	head := ir.Pattern{
		Concept: "Order", Op: "place",
		Input: ir.Template{"item": ir.V("item")},
	}
	s := Seed(head, placeRecord(1, "widget", "ord-1"))

	joinOn := ir.Pattern{
		Concept: "Shipping", Op: "ship",
		Input: ir.Template{"item": ir.V("item")},
	}
	joined := Extend(s, joinOn, nil)
	assert.Empty(t, joined, "no candidates drops the frame, never null-pads")
}

func TestProject(t *testing.T) {
	f := NewFrame()
	f, _ = f.Bind("keep", ir.Int(1), 10)
	f, _ = f.Bind("drop", ir.Int(2), 11)

	out := Project(Set{f}, []string{"keep"})
	require.Len(t, out, 1)
	assert.Equal(t, ir.Object{"keep": ir.Int(1)}, out[0].Bindings)
	assert.Equal(t, []int64{10}, out[0].Sources["keep"])
	assert.NotContains(t, out[0].Sources, "drop")
}

func TestFilterAndMap(t *testing.T) {
	var s Set
	for i := 1; i <= 4; i++ {
		f := NewFrame()
		f, _ = f.Bind("n", ir.Int(int64(i)), 0)
		s = append(s, f)
	}

	even := Filter(s, func(f Frame) bool {
		n, _ := f.Lookup("n")
		return int64(n.(ir.Int))%2 == 0
	})
	require.Len(t, even, 2)

	doubled := Map(even, func(f Frame) Frame {
		n, _ := f.Lookup("n")
		out, _ := f.Bind("double", ir.Int(int64(n.(ir.Int))*2), 0)
		return out
	})
	assert.Equal(t, ir.Int(4), doubled[0].Bindings["double"])
	assert.Equal(t, ir.Int(8), doubled[1].Bindings["double"])
}
