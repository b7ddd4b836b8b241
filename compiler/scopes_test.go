package compiler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopesShadowAndRestore(t *testing.T) {
	scopes := []Scope{NewScope()}
	outer := &Symbol{Levity: Unboxed, Const: 1}
	Put(scopes, "x", outer)

	PushScope(&scopes)
	inner := &Symbol{Levity: Unboxed, Const: 2}
	Put(scopes, "x", inner)

	got, ok := Get(scopes, "x")
	require.True(t, ok)
	require.Same(t, inner, got)

	PopScope(&scopes)
	got, ok = Get(scopes, "x")
	require.True(t, ok)
	require.Same(t, outer, got)
}

func TestScopesOuterVisibleFromInner(t *testing.T) {
	scopes := []Scope{NewScope()}
	Put(scopes, "a", &Symbol{Levity: Unboxed, Const: 7})

	PushScope(&scopes)
	got, ok := Get(scopes, "a")
	require.True(t, ok)
	require.Equal(t, int64(7), got.Const)

	_, ok = Get(scopes, "missing")
	require.False(t, ok)
}

func TestScopesBoxedHandleIsShared(t *testing.T) {
	// Binding a Boxed entry copies only the handle: the inner scope's
	// view and the outer binding are the same cell.
	scopes := []Scope{NewScope()}
	cell := &Symbol{Levity: Boxed}
	Put(scopes, "m", cell)

	PushScope(&scopes)
	inner, ok := Get(scopes, "m")
	require.True(t, ok)
	require.Same(t, cell, inner)
	require.Equal(t, cell.Val, inner.Val)
}

func TestScopesNamesSorted(t *testing.T) {
	scopes := []Scope{NewScope()}
	Put(scopes, "b", &Symbol{})
	Put(scopes, "a", &Symbol{})
	PushScope(&scopes)
	Put(scopes, "c", &Symbol{})
	Put(scopes, "a", &Symbol{}) // shadow, counted once

	require.Equal(t, []string{"a", "b", "c"}, Names(scopes))
}

func TestPopOutermostScopePanics(t *testing.T) {
	scopes := []Scope{NewScope()}
	require.Panics(t, func() { PopScope(&scopes) })
}
