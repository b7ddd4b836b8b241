package compiler

import (
	"fmt"

	"github.com/rill-lang/rill/ast"
)

// rhsVars returns the set of variable names an expression reads. It is
// a pure read-only analysis; its only consumer is loop lowering, which
// uses it to pick the merge-point candidates for a while condition.
func rhsVars(expr ast.Expression) map[string]struct{} {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return nil

	case *ast.Identifier:
		return map[string]struct{}{e.Value: {}}

	case *ast.InfixExpression:
		return union(rhsVars(e.Left), rhsVars(e.Right))

	case *ast.CallExpression:
		// The callee name itself is not a variable read.
		var vars map[string]struct{}
		for _, arg := range e.Arguments {
			vars = union(vars, rhsVars(arg))
		}
		return vars

	case *ast.ScopeExpression:
		return blockRhsVars(e.Block)

	case *ast.WhileExpression:
		return union(rhsVars(e.Cond), blockRhsVars(e.Body))

	default:
		panic(fmt.Sprintf("unhandled expression type: %T", e))
	}
}

// stmtRhsVars returns the variables read by a statement's right-hand
// side. Names being bound or assigned are writes, not reads.
func stmtRhsVars(stmt ast.Statement) map[string]struct{} {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		return rhsVars(s.Expression)
	case *ast.LetStatement:
		return rhsVars(s.Value)
	case *ast.LetMutStatement:
		return rhsVars(s.Value)
	case *ast.AssignStatement:
		return rhsVars(s.Value)
	default:
		panic(fmt.Sprintf("unhandled statement type: %T", s))
	}
}

func blockRhsVars(block *ast.Block) map[string]struct{} {
	var vars map[string]struct{}
	for _, stmt := range block.Stmts {
		vars = union(vars, stmtRhsVars(stmt))
	}
	return union(vars, rhsVars(block.End))
}

func union(l, r map[string]struct{}) map[string]struct{} {
	if len(r) == 0 {
		return l
	}
	if l == nil {
		l = make(map[string]struct{}, len(r))
	}
	for name := range r {
		l[name] = struct{}{}
	}
	return l
}
