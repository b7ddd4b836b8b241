package compiler

import (
	"slices"

	"github.com/rill-lang/rill/ast"
	"github.com/rill-lang/rill/token"
	"tinygo.org/x/go-llvm"
)

// pendingPhi is a loop-header merge point whose latch edge is not yet
// known. The preheader edge is added at creation; the latch edge is
// patched in once the loop body's final value for the name is known.
type pendingPhi struct {
	name string
	phi  llvm.Value
}

// compileWhile lowers a while loop:
//
//	preheader -> loop (header+body+latch) -> afterloop
//	                ^___________back-edge______|
//
// The condition is lowered once against the preheader environment and
// compared to zero. The header carries one two-edge merge point for
// every condition variable that has a current binding: the preheader
// edge with the pre-loop value, and a pending latch edge patched with
// the post-body value. The body and the latch condition are lowered
// against the merged environment; everything after the loop sees the
// environment from before it. The loop expression's value is the
// constant 0.
func (c *Compiler) compileWhile(expr *ast.WhileExpression) (llvm.Value, []*token.CompileError) {
	cond, errs := c.compileExpression(expr.Cond)
	if len(errs) > 0 {
		return llvm.Value{}, errs
	}

	zero := c.ConstI32(0)
	isZero := c.builder.CreateICmp(llvm.IntEQ, cond, zero, "iszero")

	preheader := c.builder.GetInsertBlock()
	fn := preheader.Parent()
	loop := c.Context.AddBasicBlock(fn, "loop")
	afterLoop := c.Context.AddBasicBlock(fn, "afterloop")
	c.builder.CreateCondBr(isZero, afterLoop, loop)

	c.builder.SetInsertPointAtEnd(loop)

	// The merged environment shadows the phi candidates; it is
	// discarded once lowering continues at afterloop.
	PushScope(&c.Scopes)
	defer PopScope(&c.Scopes)

	pending := c.buildLoopPhis(expr.Cond, preheader)

	// The body runs in its own nested scope: shadow bindings made per
	// iteration are discarded, while mutations flow through the shared
	// Boxed cells. The post-body environment seen by the latch and the
	// patch step is therefore the merged environment plus those cell
	// effects.
	PushScope(&c.Scopes)
	_, errs = c.compileBlock(expr.Body)
	PopScope(&c.Scopes)
	if len(errs) > 0 {
		// Abandoning the half-built loop is the caller's problem; the
		// whole module is discarded on failure.
		return llvm.Value{}, errs
	}

	// Re-derive the condition for the next iteration against the
	// post-body environment. This must happen before the back-edge is
	// patched: condition lowering may open new blocks (a nested while),
	// and only the block it finishes in is the true latch.
	cond, errs = c.compileExpression(expr.Cond)
	if len(errs) > 0 {
		return llvm.Value{}, errs
	}
	isZero = c.builder.CreateICmp(llvm.IntEQ, cond, zero, "iszero")
	latch := c.builder.GetInsertBlock()

	// Patch each pending edge with the post-body value. Condition
	// lowering cannot rebind names, so these are the values in effect
	// when the body finished.
	for _, p := range pending {
		sym, _ := Get(c.Scopes, p.name)
		p.phi.AddIncoming([]llvm.Value{sym.Val}, []llvm.BasicBlock{latch})
	}

	c.builder.CreateCondBr(isZero, afterLoop, loop)
	c.builder.SetInsertPointAtEnd(afterLoop)
	return zero, nil
}

// buildLoopPhis creates the header merge points: one per variable the
// condition reads that has a current binding, in sorted order so
// lowering is deterministic. Boxed bindings merge over the cell handle
// and stay Boxed; Unboxed bindings merge over the value. Each phi gets
// its preheader edge now and is returned with its latch edge pending.
func (c *Compiler) buildLoopPhis(cond ast.Expression, preheader llvm.BasicBlock) []pendingPhi {
	condVars := rhsVars(cond)
	names := make([]string, 0, len(condVars))
	for name := range condVars {
		names = append(names, name)
	}
	slices.Sort(names)

	pending := make([]pendingPhi, 0, len(names))
	for _, name := range names {
		sym, ok := Get(c.Scopes, name)
		if !ok {
			continue
		}

		var phi llvm.Value
		switch sym.Levity {
		case Boxed:
			ty := llvm.PointerType(c.Context.Int32Type(), 0)
			phi = c.builder.CreatePHI(ty, name)
			phi.AddIncoming([]llvm.Value{sym.Val}, []llvm.BasicBlock{preheader})
			Put(c.Scopes, name, &Symbol{Val: phi, Levity: Boxed})
		case Unboxed:
			phi = c.builder.CreatePHI(c.Context.Int32Type(), name)
			phi.AddIncoming([]llvm.Value{sym.Val}, []llvm.BasicBlock{preheader})
			// The merged value is no longer the bind-time constant, but
			// the binding keeps its levity.
			Put(c.Scopes, name, &Symbol{Val: phi, Levity: Unboxed, Const: sym.Const})
		}
		pending = append(pending, pendingPhi{name: name, phi: phi})
	}
	return pending
}
