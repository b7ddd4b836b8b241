package compiler

import (
	"testing"

	"github.com/rill-lang/rill/token"
	"github.com/stretchr/testify/require"
)

func TestFindCallsDedup(t *testing.T) {
	program := mustParse(t, "calls", "f(1); f(2); 0")
	calls, errs := findCalls(program)
	require.Empty(t, errs)
	require.Len(t, calls, 1)
	require.Equal(t, 1, calls["f"].Arity)
}

func TestFindCallsNested(t *testing.T) {
	// Calls inside call arguments, scopes and loops are all discovered.
	src := `let mut i = h();
while g(i) { i = i - 1; 0 };
f(g(1) + g(2))`
	program := mustParse(t, "calls", src)
	calls, errs := findCalls(program)
	require.Empty(t, errs)
	require.Len(t, calls, 3)
	require.Equal(t, 1, calls["f"].Arity)
	require.Equal(t, 1, calls["g"].Arity)
	require.Equal(t, 0, calls["h"].Arity)
}

func TestFindCallsArityConflictAcrossSites(t *testing.T) {
	// The conflict spans two distinct statements; detection must compare
	// against the table accumulated over the whole traversal.
	program := mustParse(t, "calls", "f(1); { f(1, 2) }")
	_, errs := findCalls(program)
	require.Len(t, errs, 1)
	require.Equal(t, token.ArityConflict, errs[0].Kind)
	require.Contains(t, errs[0].Msg, "f")
}

func TestFindCallsConflictReportedOncePerName(t *testing.T) {
	program := mustParse(t, "calls", "f(1); f(1, 2); f(1, 2, 3); 0")
	_, errs := findCalls(program)
	require.Len(t, errs, 1)
}
