package compiler

import (
	"fmt"
	"strings"

	"github.com/rill-lang/rill/ast"
	"github.com/rill-lang/rill/token"
	"tinygo.org/x/go-llvm"
)

// Compiler lowers one program into one LLVM module. The builder is the
// single construction cursor for that module; a Compiler must not be
// shared between concurrent lowering calls.
type Compiler struct {
	Scopes  []Scope
	Context llvm.Context
	Module  llvm.Module
	builder llvm.Builder
	callees map[string]*Callee
	Errors  []*token.CompileError
}

func NewCompiler(ctx llvm.Context, name string) *Compiler {
	module := ctx.NewModule(name)
	builder := ctx.NewBuilder()

	return &Compiler{
		Scopes:  []Scope{NewScope()},
		Context: ctx,
		Module:  module,
		builder: builder,
		callees: make(map[string]*Callee),
		Errors:  []*token.CompileError{},
	}
}

// Compile lowers program into the module. Failures from independent
// steps are aggregated into the returned list so the caller sees every
// top-level problem at once; a non-empty result means the module must
// be discarded.
func (c *Compiler) Compile(program *ast.Program) []*token.CompileError {
	calls, errs := findCalls(program)
	if len(errs) > 0 {
		// Arity conflicts fail the build before any IR is emitted.
		c.Errors = append(c.Errors, errs...)
		return c.Errors
	}
	c.declareCallees(calls)

	c.addEntry()
	val, errs := c.compileBlock(program.Block)
	if len(errs) > 0 {
		c.Errors = append(c.Errors, errs...)
		return c.Errors
	}
	c.builder.CreateRet(val)

	return c.Errors
}

// addEntry declares the entry function (no parameters, i32 return) and
// positions the builder at its entry block.
func (c *Compiler) addEntry() {
	mainType := llvm.FunctionType(c.Context.Int32Type(), []llvm.Type{}, false)
	mainFunc := llvm.AddFunction(c.Module, "main", mainType)
	entry := c.Context.AddBasicBlock(mainFunc, "entry")
	c.builder.SetInsertPointAtEnd(entry)
}

// GenerateIR serializes the module as textual LLVM IR.
func (c *Compiler) GenerateIR() string {
	return c.Module.String()
}

func (c *Compiler) ConstI32(v uint64) llvm.Value {
	return llvm.ConstInt(c.Context.Int32Type(), v, false)
}

// createEntryBlockAlloca allocates a cell in the current function's
// entry block so the allocation runs once even when the binding site is
// inside a loop.
func (c *Compiler) createEntryBlockAlloca(ty llvm.Type, name string) llvm.Value {
	current := c.builder.GetInsertBlock()
	fn := current.Parent()
	entry := fn.EntryBasicBlock()
	first := entry.FirstInstruction()

	if first.IsNil() {
		c.builder.SetInsertPointAtEnd(entry)
	} else {
		c.builder.SetInsertPointBefore(first)
	}

	alloca := c.builder.CreateAlloca(ty, name)
	c.builder.SetInsertPointAtEnd(current)
	return alloca
}

func (c *Compiler) createStore(val llvm.Value, ptr llvm.Value) llvm.Value {
	storeInst := c.builder.CreateStore(val, ptr)
	storeInst.SetAlignment(4)
	return storeInst
}

func (c *Compiler) createLoad(ptr llvm.Value, name string) llvm.Value {
	loadInst := c.builder.CreateLoad(c.Context.Int32Type(), ptr, name)
	loadInst.SetAlignment(4)
	return loadInst
}

// compileBlock threads the environment through the statement sequence
// strictly in order, then lowers the trailing expression against the
// final environment. The first failing statement aborts the block.
func (c *Compiler) compileBlock(block *ast.Block) (llvm.Value, []*token.CompileError) {
	for _, stmt := range block.Stmts {
		switch s := stmt.(type) {
		case *ast.ExpressionStatement:
			if _, errs := c.compileExpression(s.Expression); len(errs) > 0 {
				return llvm.Value{}, errs
			}

		case *ast.LetStatement:
			if errs := c.compileLet(s); len(errs) > 0 {
				return llvm.Value{}, errs
			}

		case *ast.LetMutStatement:
			if errs := c.compileLetMut(s); len(errs) > 0 {
				return llvm.Value{}, errs
			}

		case *ast.AssignStatement:
			if errs := c.compileAssign(s); len(errs) > 0 {
				return llvm.Value{}, errs
			}

		default:
			panic(fmt.Sprintf("unhandled statement type: %T", s))
		}
	}

	return c.compileExpression(block.End)
}

// compileLet binds an immutable name. The right-hand side must have
// lowered to an integer constant; anything else is rejected at bind
// time.
func (c *Compiler) compileLet(stmt *ast.LetStatement) []*token.CompileError {
	if err := checkName(stmt.Name); err != nil {
		return []*token.CompileError{err}
	}
	val, errs := c.compileExpression(stmt.Value)
	if len(errs) > 0 {
		return errs
	}

	if val.IsAConstantInt().IsNil() {
		return []*token.CompileError{{
			Token: stmt.Tok(),
			Kind:  token.NonConstantLet,
			Msg:   fmt.Sprintf("let %s requires a compile-time constant value", stmt.Name.Value),
		}}
	}

	Put(c.Scopes, stmt.Name.Value, &Symbol{Val: val, Levity: Unboxed, Const: val.SExtValue()})
	return nil
}

// compileLetMut allocates a fresh addressable cell, stores the lowered
// right-hand side into it, and binds the name as Boxed. The cell is
// module-owned storage; later environment copies alias it through the
// handle.
func (c *Compiler) compileLetMut(stmt *ast.LetMutStatement) []*token.CompileError {
	if err := checkName(stmt.Name); err != nil {
		return []*token.CompileError{err}
	}
	val, errs := c.compileExpression(stmt.Value)
	if len(errs) > 0 {
		return errs
	}

	cell := c.createEntryBlockAlloca(c.Context.Int32Type(), stmt.Name.Value+".mem")
	c.createStore(val, cell)
	Put(c.Scopes, stmt.Name.Value, &Symbol{Val: cell, Levity: Boxed})
	return nil
}

// compileAssign stores into an existing mutable binding. The cell
// identity is unchanged, so every environment copy holding the binding
// observes the update.
func (c *Compiler) compileAssign(stmt *ast.AssignStatement) []*token.CompileError {
	sym, ok := Get(c.Scopes, stmt.Name.Value)
	if !ok {
		return []*token.CompileError{undeclaredVariable(stmt.Name)}
	}
	if sym.Levity == Unboxed {
		return []*token.CompileError{{
			Token: stmt.Name.Token,
			Kind:  token.ImmutableAssignment,
			Msg:   fmt.Sprintf("variable %s is immutable, so it cannot be mutated", stmt.Name.Value),
		}}
	}

	val, errs := c.compileExpression(stmt.Value)
	if len(errs) > 0 {
		return errs
	}
	c.createStore(val, sym.Val)
	return nil
}

// compileExpression recursively converts one expression node against
// the current environment into an IR value. Failures short-circuit: the
// first failure aborts the subtree, except call arguments, which are
// all lowered so their errors aggregate.
func (c *Compiler) compileExpression(expr ast.Expression) (llvm.Value, []*token.CompileError) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return llvm.ConstInt(c.Context.Int32Type(), uint64(e.Value), true), nil

	case *ast.Identifier:
		sym, ok := Get(c.Scopes, e.Value)
		if !ok {
			return llvm.Value{}, []*token.CompileError{undeclaredVariable(e)}
		}
		if sym.Levity == Boxed {
			return c.createLoad(sym.Val, e.Value+"_load"), nil
		}
		return sym.Val, nil

	case *ast.InfixExpression:
		return c.compileInfix(e)

	case *ast.CallExpression:
		return c.compileCall(e)

	case *ast.ScopeExpression:
		// Fork a nested environment: bindings made inside are discarded
		// on exit and only the block's result value escapes.
		PushScope(&c.Scopes)
		defer PopScope(&c.Scopes)
		return c.compileBlock(e.Block)

	case *ast.WhileExpression:
		return c.compileWhile(e)

	default:
		panic(fmt.Sprintf("unhandled expression type: %T", e))
	}
}

// compileInfix lowers both operands against the environment in effect
// at entry. Expression lowering leaves the scope stack as it found it,
// so neither operand observes bindings made while lowering the other.
func (c *Compiler) compileInfix(expr *ast.InfixExpression) (llvm.Value, []*token.CompileError) {
	left, errs := c.compileExpression(expr.Left)
	if len(errs) > 0 {
		return llvm.Value{}, errs
	}
	right, errs := c.compileExpression(expr.Right)
	if len(errs) > 0 {
		return llvm.Value{}, errs
	}

	switch expr.Operator {
	case "+":
		return c.builder.CreateAdd(left, right, "add"), nil
	case "-":
		return c.builder.CreateSub(left, right, "sub"), nil
	case "*":
		return c.builder.CreateMul(left, right, "mul"), nil
	case "/":
		return c.builder.CreateSDiv(left, right, "div"), nil
	default:
		panic("unknown operator " + expr.Operator)
	}
}

// compileCall looks up the pre-declared signature and lowers each
// argument in order. Every argument is lowered even after a failure so
// independent argument errors all surface together.
func (c *Compiler) compileCall(call *ast.CallExpression) (llvm.Value, []*token.CompileError) {
	callee, ok := c.callees[call.Name]
	if !ok {
		return llvm.Value{}, []*token.CompileError{{
			Token: call.Tok(),
			Kind:  token.UndeclaredFunction,
			Msg:   fmt.Sprintf("function %s isn't declared", call.Name),
		}}
	}

	args := make([]llvm.Value, 0, len(call.Arguments))
	var errs []*token.CompileError
	for _, arg := range call.Arguments {
		val, argErrs := c.compileExpression(arg)
		if len(argErrs) > 0 {
			errs = append(errs, argErrs...)
			continue
		}
		args = append(args, val)
	}
	if len(errs) > 0 {
		return llvm.Value{}, errs
	}

	return c.builder.CreateCall(callee.Type, callee.Fn, args, "call"+call.Name), nil
}

func undeclaredVariable(ident *ast.Identifier) *token.CompileError {
	return &token.CompileError{
		Token: ident.Token,
		Kind:  token.UndeclaredVariable,
		Msg:   fmt.Sprintf("variable %s isn't declared yet", ident.Value),
	}
}

// checkName rejects binding names the backend's C naming surface cannot
// carry.
func checkName(ident *ast.Identifier) *token.CompileError {
	if !strings.ContainsRune(ident.Value, 0) {
		return nil
	}
	return &token.CompileError{
		Token: ident.Token,
		Kind:  token.BadIdent,
		Msg:   fmt.Sprintf("name %q cannot be encoded for the backend", ident.Value),
	}
}
