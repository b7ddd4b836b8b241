package compiler

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/rill-lang/rill/ast"
	"github.com/rill-lang/rill/token"
	"tinygo.org/x/go-llvm"
)

// Callee is a pre-declared external function signature.
type Callee struct {
	Fn    llvm.Value
	Type  llvm.Type
	Arity int
}

// callInfo is one discovered callee: the arity of its first observed
// site plus that site's token for diagnostics.
type callInfo struct {
	Arity int
	Tok   token.Token
}

// callSites accumulates one arity per callee name across a whole
// traversal. Conflicting observations are recorded once per name so
// every conflict in the program surfaces together.
type callSites struct {
	calls      map[string]callInfo
	conflicted map[string]struct{}
	errs       []*token.CompileError
}

// findCalls discovers every distinct callee name and its arity in the
// program, failing with ArityConflict when the same name is observed
// with two different argument counts anywhere. It runs once, before any
// lowering, so forward and mutually referenced callees can be declared
// up front.
func findCalls(program *ast.Program) (map[string]callInfo, []*token.CompileError) {
	cs := &callSites{
		calls:      make(map[string]callInfo),
		conflicted: make(map[string]struct{}),
	}
	cs.block(program.Block)
	return cs.calls, cs.errs
}

func (cs *callSites) expr(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral, *ast.Identifier:
	case *ast.InfixExpression:
		cs.expr(e.Left)
		cs.expr(e.Right)
	case *ast.CallExpression:
		cs.observe(e)
		for _, arg := range e.Arguments {
			cs.expr(arg)
		}
	case *ast.ScopeExpression:
		cs.block(e.Block)
	case *ast.WhileExpression:
		cs.expr(e.Cond)
		cs.block(e.Body)
	default:
		panic(fmt.Sprintf("unhandled expression type: %T", e))
	}
}

func (cs *callSites) stmt(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.ExpressionStatement:
		cs.expr(s.Expression)
	case *ast.LetStatement:
		cs.expr(s.Value)
	case *ast.LetMutStatement:
		cs.expr(s.Value)
	case *ast.AssignStatement:
		cs.expr(s.Value)
	default:
		panic(fmt.Sprintf("unhandled statement type: %T", s))
	}
}

func (cs *callSites) block(block *ast.Block) {
	for _, stmt := range block.Stmts {
		cs.stmt(stmt)
	}
	cs.expr(block.End)
}

func (cs *callSites) observe(call *ast.CallExpression) {
	info, seen := cs.calls[call.Name]
	if !seen {
		cs.calls[call.Name] = callInfo{Arity: call.Arity(), Tok: call.Tok()}
		return
	}
	if info.Arity == call.Arity() {
		return
	}
	if _, done := cs.conflicted[call.Name]; done {
		return
	}
	cs.conflicted[call.Name] = struct{}{}
	cs.errs = append(cs.errs, &token.CompileError{
		Token: call.Tok(),
		Kind:  token.ArityConflict,
		Msg: fmt.Sprintf("function %s is called with %d arguments but also with %d elsewhere",
			call.Name, call.Arity(), info.Arity),
	})
}

// declareCallees declares every discovered callee as an external
// function of arity i32 parameters returning i32, and records the
// signatures for call lowering. Declaration order is sorted by name so
// identical programs produce identical modules.
func (c *Compiler) declareCallees(calls map[string]callInfo) {
	for _, name := range slices.Sorted(maps.Keys(calls)) {
		info := calls[name]
		if strings.ContainsRune(name, 0) {
			c.Errors = append(c.Errors, &token.CompileError{
				Token: info.Tok,
				Kind:  token.BadIdent,
				Msg:   fmt.Sprintf("function name %q cannot be encoded for the backend", name),
			})
			continue
		}
		params := make([]llvm.Type, info.Arity)
		for i := range params {
			params[i] = c.Context.Int32Type()
		}
		fnType := llvm.FunctionType(c.Context.Int32Type(), params, false)
		fn := llvm.AddFunction(c.Module, name, fnType)
		c.callees[name] = &Callee{Fn: fn, Type: fnType, Arity: info.Arity}
	}
}
