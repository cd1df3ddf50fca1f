package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplate_Vars(t *testing.T) {
	tpl := Template{
		"item":  V("item"),
		"qty":   L(Int(1)),
		"owner": V("user"),
	}
	assert.ElementsMatch(t, []string{"item", "user"}, tpl.Vars())
}

func TestTemplate_Validate(t *testing.T) {
	assert.NoError(t, Template{"a": V("x"), "b": L(String("lit"))}.Validate())
	assert.Error(t, Template{"a": V("")}.Validate(), "empty variable name")
	assert.Error(t, Template{"a": nil}.Validate(), "nil term")
}

func TestPattern_Validate(t *testing.T) {
	p := Pattern{
		Concept: "Order",
		Op:      "place",
		Case:    CaseOK,
		Input:   Template{"item": V("item")},
		Output:  Template{"order": V("order")},
	}
	require.NoError(t, p.Validate())

	bad := p
	bad.Concept = ""
	assert.Error(t, bad.Validate())

	bad = p
	bad.Case = "Success"
	assert.Error(t, bad.Validate(), "case must be ok or error when set")

	p.Case = ""
	assert.NoError(t, p.Validate(), "empty case matches either variant")
}

func TestResolveTemplate(t *testing.T) {
	bindings := Object{"item": String("widget"), "qty": Int(3)}

	got, err := ResolveTemplate(Template{
		"sku":    V("item"),
		"amount": V("qty"),
		"source": L(String("web")),
	}, bindings)
	require.NoError(t, err)
	assert.Equal(t, Object{
		"sku":    String("widget"),
		"amount": Int(3),
		"source": String("web"),
	}, got)
}

func TestResolveTemplate_UnboundVariable(t *testing.T) {
	_, err := ResolveTemplate(Template{"x": V("missing")}, Object{})
	assert.Error(t, err)
}

func TestThenClause_Resolve(t *testing.T) {
	tc := ThenClause{
		Concept: "Notify",
		Op:      "send",
		Input:   Template{"order": V("order")},
	}
	got, err := tc.Resolve(Object{"order": String("ord-1")})
	require.NoError(t, err)
	assert.Equal(t, Object{"order": String("ord-1")}, got)
	assert.Equal(t, "Notify.send", tc.Ref().String())
}
