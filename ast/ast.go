package ast

import (
	"bytes"
	"strings"

	"github.com/rill-lang/rill/token"
)

// The base Node interface
type Node interface {
	Tok() token.Token
	String() string
}

// All statement nodes implement this
type Statement interface {
	Node
	statementNode()
}

// All expression nodes implement this
type Expression interface {
	Node
	expressionNode()
}

// Program is the whole source file: one block body terminated by EOF.
type Program struct {
	Block *Block
}

func (p *Program) Tok() token.Token {
	if p.Block != nil {
		return p.Block.Tok()
	}
	return token.Token{Type: token.EOF}
}

func (p *Program) String() string {
	if p.Block == nil {
		return ""
	}
	return p.Block.String()
}

// Block is an ordered statement sequence plus a mandatory trailing
// expression whose value is the block's result. There is no implicit
// unit value.
type Block struct {
	Token token.Token // the token opening the block
	Stmts []Statement
	End   Expression
}

func (b *Block) Tok() token.Token { return b.Token }

func (b *Block) String() string {
	var out bytes.Buffer
	for _, s := range b.Stmts {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	if b.End != nil {
		out.WriteString(b.End.String())
	}
	return out.String()
}

// Statements

// ExpressionStatement is an expression evaluated for effect; its value
// is discarded.
type ExpressionStatement struct {
	Token      token.Token // first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()   {}
func (es *ExpressionStatement) Tok() token.Token { return es.Token }
func (es *ExpressionStatement) String() string {
	return es.Expression.String() + ";"
}

// LetStatement binds an immutable name. The right-hand side must lower
// to a compile-time integer constant.
type LetStatement struct {
	Token token.Token // the token.LET token
	Name  *Identifier
	Value Expression
}

func (ls *LetStatement) statementNode()   {}
func (ls *LetStatement) Tok() token.Token { return ls.Token }
func (ls *LetStatement) String() string {
	return "let " + ls.Name.String() + " = " + ls.Value.String() + ";"
}

// LetMutStatement binds a mutable name backed by an addressable cell.
type LetMutStatement struct {
	Token token.Token // the token.LET token
	Name  *Identifier
	Value Expression
}

func (lm *LetMutStatement) statementNode()   {}
func (lm *LetMutStatement) Tok() token.Token { return lm.Token }
func (lm *LetMutStatement) String() string {
	return "let mut " + lm.Name.String() + " = " + lm.Value.String() + ";"
}

// AssignStatement stores into an existing mutable binding.
type AssignStatement struct {
	Token token.Token // the token.ASSIGN token
	Name  *Identifier
	Value Expression
}

func (as *AssignStatement) statementNode()   {}
func (as *AssignStatement) Tok() token.Token { return as.Token }
func (as *AssignStatement) String() string {
	return as.Name.String() + " = " + as.Value.String() + ";"
}

// Expressions

type IntegerLiteral struct {
	Token token.Token
	Value int64
}

func (il *IntegerLiteral) expressionNode()  {}
func (il *IntegerLiteral) Tok() token.Token { return il.Token }
func (il *IntegerLiteral) String() string   { return il.Token.Literal }

type Identifier struct {
	Token token.Token
	Value string
}

func (i *Identifier) expressionNode()  {}
func (i *Identifier) Tok() token.Token { return i.Token }
func (i *Identifier) String() string   { return i.Value }

type InfixExpression struct {
	Token    token.Token // the operator token
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()  {}
func (ie *InfixExpression) Tok() token.Token { return ie.Token }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// CallExpression invokes an externally linked function by name.
type CallExpression struct {
	Token     token.Token // the '(' token
	Name      string
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()  {}
func (ce *CallExpression) Tok() token.Token { return ce.Token }
func (ce *CallExpression) String() string {
	args := make([]string, 0, len(ce.Arguments))
	for _, a := range ce.Arguments {
		args = append(args, a.String())
	}
	return ce.Name + "(" + strings.Join(args, ", ") + ")"
}

// Arity is the argument count observed at this call site.
func (ce *CallExpression) Arity() int { return len(ce.Arguments) }

// ScopeExpression is a nested block in expression position. Bindings
// introduced inside are discarded on exit; only the result escapes.
type ScopeExpression struct {
	Token token.Token // the '{' token
	Block *Block
}

func (se *ScopeExpression) expressionNode()  {}
func (se *ScopeExpression) Tok() token.Token { return se.Token }
func (se *ScopeExpression) String() string {
	return "{ " + se.Block.String() + " }"
}

// WhileExpression loops while Cond is non-zero. Its own value is the
// constant 0.
type WhileExpression struct {
	Token token.Token // the token.WHILE token
	Cond  Expression
	Body  *Block
}

func (we *WhileExpression) expressionNode()  {}
func (we *WhileExpression) Tok() token.Token { return we.Token }
func (we *WhileExpression) String() string {
	return "while " + we.Cond.String() + " { " + we.Body.String() + " }"
}
