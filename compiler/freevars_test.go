package compiler

import (
	"testing"

	"github.com/rill-lang/rill/ast"
	"github.com/stretchr/testify/require"
)

// endExpr parses src as a program and returns its trailing expression.
func endExpr(t *testing.T, src string) ast.Expression {
	t.Helper()
	return mustParse(t, "freevars", src).Block.End
}

func names(set map[string]struct{}) []string {
	out := []string{}
	for n := range set {
		out = append(out, n)
	}
	return out
}

func TestRhsVars(t *testing.T) {
	tests := []struct {
		src  string
		want []string
	}{
		{"42", []string{}},
		{"x", []string{"x"}},
		{"x + y * x", []string{"x", "y"}},
		// The callee name is not a variable read.
		{"f(a, b + c)", []string{"a", "b", "c"}},
		{"{ p; q }", []string{"p", "q"}},
		{"while n { m; 0 }", []string{"n", "m"}},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got := rhsVars(endExpr(t, tt.src))
			require.ElementsMatch(t, tt.want, names(got))
		})
	}
}

func TestBlockRhsVarsIncludesStatements(t *testing.T) {
	src := `let a = x;
let mut b = y;
b = z;
w;
a`
	block := mustParse(t, "freevars", src).Block
	got := blockRhsVars(block)
	// Bound/assigned names are writes; only right-hand sides and the
	// trailing expression count as reads.
	require.ElementsMatch(t, []string{"x", "y", "z", "w", "a"}, names(got))
}
