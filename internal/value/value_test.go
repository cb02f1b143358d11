package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithConfidenceClampsAndReplaces(t *testing.T) {
	v := WithConfidence(NewInt(5), 0.8)
	assert.InDelta(t, 0.8, v.Conf, 1e-9)
	assert.False(t, v.Certain())

	// Re-annotating replaces the old confidence; nesting is impossible by
	// construction.
	v = WithConfidence(v, 0.3)
	assert.InDelta(t, 0.3, v.Conf, 1e-9)
	assert.Equal(t, Int{V: 5}, v.Data)

	assert.Equal(t, 1.0, WithConfidence(NewInt(1), 2.5).Conf)
	assert.Equal(t, 0.0, WithConfidence(NewInt(1), -0.1).Conf)
}

func TestTruthy(t *testing.T) {
	truthy := []Value{
		NewInt(1), NewFloat(0.5), NewText("x"), NewBool(true),
		NewList([]Value{NewInt(1)}, false),
	}
	for _, v := range truthy {
		assert.True(t, Truthy(v), Display(v))
	}

	m := NewMap(false)
	falsy := []Value{
		NewInt(0), NewFloat(0), NewText(""), NewBool(false),
		NewNull(), NewUnit(), NewList(nil, false), Of(m),
	}
	for _, v := range falsy {
		assert.False(t, Truthy(v), Display(v))
	}

	// Confidence does not affect truthiness.
	assert.True(t, Truthy(WithConfidence(NewBool(true), 0.01)))
}

func TestEqualCrossNumeric(t *testing.T) {
	assert.True(t, Equal(NewInt(3), NewFloat(3.0)))
	assert.True(t, Equal(NewFloat(3.0), NewInt(3)))
	assert.False(t, Equal(NewInt(3), NewFloat(3.5)))
	assert.False(t, Equal(NewInt(3), NewText("3")))
}

func TestEqualIgnoresConfidence(t *testing.T) {
	a := WithConfidence(NewInt(7), 0.4)
	b := NewInt(7)
	assert.True(t, Equal(a, b))
}

func TestEqualDeep(t *testing.T) {
	a := NewList([]Value{NewInt(1), NewText("x")}, false)
	b := NewList([]Value{NewInt(1), NewText("x")}, true)
	assert.True(t, Equal(a, b), "mutability does not affect equality")

	m1 := NewMap(false)
	m1.Put("a", NewInt(1))
	m2 := NewMap(true)
	m2.Put("a", WithConfidence(NewInt(1), 0.5))
	assert.True(t, Equal(Of(m1), Of(m2)))

	m2.Put("b", NewInt(2))
	assert.False(t, Equal(Of(m1), Of(m2)))
}

func TestMapOrderPreserved(t *testing.T) {
	m := NewMap(true)
	m.Put("b", NewInt(2))
	m.Put("a", NewInt(1))
	m.Put("b", NewInt(3)) // update keeps position
	assert.Equal(t, []string{"b", "a"}, m.Keys)

	require.True(t, m.Delete("b"))
	assert.Equal(t, []string{"a"}, m.Keys)
	assert.False(t, m.Delete("b"))
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "42", Display(NewInt(42)))
	assert.Equal(t, "2.5", Display(NewFloat(2.5)))
	assert.Equal(t, "hi", Display(NewText("hi")))
	assert.Equal(t, "null", Display(NewNull()))
	assert.Equal(t, "[1, 2]", Display(NewList([]Value{NewInt(1), NewInt(2)}, false)))

	m := NewMap(false)
	m.Put("a", NewInt(1))
	assert.Equal(t, "{a: 1}", Display(Of(m)))

	assert.Equal(t, "5 ~0.8", Display(WithConfidence(NewInt(5), 0.8)))
}

func TestEnvGetSetDefine(t *testing.T) {
	env := NewEnv()
	require.NoError(t, env.Define("x", NewInt(1), true))
	require.NoError(t, env.Define("k", NewInt(2), false))

	v, err := env.Get("x")
	require.NoError(t, err)
	assert.True(t, Equal(v, NewInt(1)))

	require.NoError(t, env.Set("x", NewInt(9)))

	err = env.Set("k", NewInt(0))
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ErrImmutable, verr.Kind)

	err = env.Set("missing", NewInt(0))
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ErrName, verr.Kind)

	_, err = env.Get("missing")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ErrName, verr.Kind)
}

func TestEnvChildChain(t *testing.T) {
	root := NewEnv()
	require.NoError(t, root.Define("x", NewInt(1), true))
	child := root.Child()

	// Reads resolve through the chain; sets mutate the owning scope.
	v, err := child.Get("x")
	require.NoError(t, err)
	assert.True(t, Equal(v, NewInt(1)))

	require.NoError(t, child.Set("x", NewInt(2)))
	v, err = root.Get("x")
	require.NoError(t, err)
	assert.True(t, Equal(v, NewInt(2)))

	// Shadowing in the child does not disturb the parent.
	require.NoError(t, child.Define("x", NewInt(10), false))
	v, err = child.Get("x")
	require.NoError(t, err)
	assert.True(t, Equal(v, NewInt(10)))
	v, err = root.Get("x")
	require.NoError(t, err)
	assert.True(t, Equal(v, NewInt(2)))

	// Redeclaring in the same scope is an error.
	assert.Error(t, child.Define("x", NewInt(0), false))

	// DefineOrUpdate overwrites silently.
	child.DefineOrUpdate("x", NewInt(11), false)
	v, _ = child.Get("x")
	assert.True(t, Equal(v, NewInt(11)))
}

func TestErrorRendering(t *testing.T) {
	err := Typef("cannot add %s and %s", "Text", "Bool")
	assert.Equal(t, "TypeError: cannot add Text and Bool", err.Error())

	pos := err.WithPos(3, 7)
	assert.Equal(t, "TypeError at 3:7: cannot add Text and Bool", pos.Error())

	// WithPos never overwrites an existing position.
	again := pos.WithPos(9, 9)
	assert.Equal(t, 3, again.Line)
}
