package parser

import (
	"fmt"
	"strconv"

	"github.com/rill-lang/rill/ast"
	"github.com/rill-lang/rill/lexer"
	"github.com/rill-lang/rill/token"
)

const (
	_ int = iota
	LOWEST
	SUM     // + or -
	PRODUCT // * or /
	CALL    // add(x, y)
)

var precedences = map[token.TokenType]int{
	token.ADD:    SUM,
	token.SUB:    SUM,
	token.MUL:    PRODUCT,
	token.QUO:    PRODUCT,
	token.LPAREN: CALL,
}

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type Parser struct {
	l      *lexer.Lexer
	errors []string

	curToken  token.Token
	peekToken token.Token

	prefixParseFns map[token.TokenType]prefixParseFn
	infixParseFns  map[token.TokenType]infixParseFn
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{
		l:      l,
		errors: []string{},
	}

	p.prefixParseFns = make(map[token.TokenType]prefixParseFn)
	p.registerPrefix(token.IDENT, p.parseIdentifier)
	p.registerPrefix(token.INT, p.parseIntegerLiteral)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACE, p.parseScopeExpression)
	p.registerPrefix(token.WHILE, p.parseWhileExpression)

	p.infixParseFns = make(map[token.TokenType]infixParseFn)
	p.registerInfix(token.ADD, p.parseInfixExpression)
	p.registerInfix(token.SUB, p.parseInfixExpression)
	p.registerInfix(token.MUL, p.parseInfixExpression)
	p.registerInfix(token.QUO, p.parseInfixExpression)
	p.registerInfix(token.LPAREN, p.parseCallExpression)

	// Read two tokens, so curToken and peekToken are both set
	p.nextToken()
	p.nextToken()

	return p
}

func (p *Parser) registerPrefix(tokenType token.TokenType, fn prefixParseFn) {
	p.prefixParseFns[tokenType] = fn
}

func (p *Parser) registerInfix(tokenType token.TokenType, fn infixParseFn) {
	p.infixParseFns[tokenType] = fn
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(t token.TokenType) bool {
	return p.curToken.Type == t
}

func (p *Parser) peekTokenIs(t token.TokenType) bool {
	return p.peekToken.Type == t
}

func (p *Parser) expectPeek(t token.TokenType) bool {
	if p.peekTokenIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

func (p *Parser) Errors() []string {
	return p.errors
}

func (p *Parser) peekError(t token.TokenType) {
	msg := fmt.Sprintf("%d:%d: expected next token to be %s, got %s instead",
		p.peekToken.Line, p.peekToken.Column, t, p.peekToken)
	p.errors = append(p.errors, msg)
}

func (p *Parser) noPrefixParseFnError(t token.Token) {
	msg := fmt.Sprintf("%d:%d: no prefix parse function for %s found",
		t.Line, t.Column, t)
	p.errors = append(p.errors, msg)
}

// ParseProgram parses the whole source file as one block body.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	program.Block = p.parseBlockBody(token.EOF)
	return program
}

// parseBlockBody parses statements followed by the block's trailing
// expression, stopping at end. On return curToken is the end token.
func (p *Parser) parseBlockBody(end token.TokenType) *ast.Block {
	block := &ast.Block{Token: p.curToken}

	for !p.curTokenIs(end) && !p.curTokenIs(token.EOF) {
		switch {
		case p.curTokenIs(token.LET):
			stmt := p.parseLetStatement()
			if stmt == nil {
				return block
			}
			block.Stmts = append(block.Stmts, stmt)
			p.nextToken()

		case p.curTokenIs(token.IDENT) && p.peekTokenIs(token.ASSIGN):
			stmt := p.parseAssignStatement()
			if stmt == nil {
				return block
			}
			block.Stmts = append(block.Stmts, stmt)
			p.nextToken()

		default:
			tok := p.curToken
			expr := p.parseExpression(LOWEST)
			if expr == nil {
				return block
			}
			if p.peekTokenIs(token.SEMICOLON) {
				p.nextToken() // onto ';'
				block.Stmts = append(block.Stmts, &ast.ExpressionStatement{Token: tok, Expression: expr})
				p.nextToken() // past ';'
				continue
			}
			// No semicolon: this is the block's trailing expression.
			block.End = expr
			if !p.expectPeek(end) {
				return block
			}
		}
	}

	if block.End == nil {
		p.errors = append(p.errors, fmt.Sprintf("%d:%d: block must end with an expression",
			p.curToken.Line, p.curToken.Column))
	}
	return block
}

func (p *Parser) parseLetStatement() ast.Statement {
	letTok := p.curToken

	mut := false
	if p.peekTokenIs(token.MUT) {
		p.nextToken()
		mut = true
	}

	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()

	value := p.parseExpression(LOWEST)
	if value == nil {
		return nil
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}

	if mut {
		return &ast.LetMutStatement{Token: letTok, Name: name, Value: value}
	}
	return &ast.LetStatement{Token: letTok, Name: name, Value: value}
}

func (p *Parser) parseAssignStatement() ast.Statement {
	name := &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}

	p.nextToken() // onto '='
	assignTok := p.curToken
	p.nextToken()

	value := p.parseExpression(LOWEST)
	if value == nil {
		return nil
	}
	if !p.expectPeek(token.SEMICOLON) {
		return nil
	}

	return &ast.AssignStatement{Token: assignTok, Name: name, Value: value}
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.noPrefixParseFnError(p.curToken)
		return nil
	}
	leftExp := prefix()

	for leftExp != nil && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Type]
		if infix == nil {
			return leftExp
		}
		p.nextToken()
		leftExp = infix(leftExp)
	}

	return leftExp
}

func (p *Parser) peekPrecedence() int {
	if prec, ok := precedences[p.peekToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.curToken.Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) parseIdentifier() ast.Expression {
	return &ast.Identifier{Token: p.curToken, Value: p.curToken.Literal}
}

func (p *Parser) parseIntegerLiteral() ast.Expression {
	lit := &ast.IntegerLiteral{Token: p.curToken}

	value, err := strconv.ParseInt(p.curToken.Literal, 10, 64)
	if err != nil {
		msg := fmt.Sprintf("%d:%d: could not parse %q as integer",
			p.curToken.Line, p.curToken.Column, p.curToken.Literal)
		p.errors = append(p.errors, msg)
		return nil
	}

	lit.Value = value
	return lit
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()

	exp := p.parseExpression(LOWEST)
	if exp == nil {
		return nil
	}
	if !p.expectPeek(token.RPAREN) {
		return nil
	}

	return exp
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	expression := &ast.InfixExpression{
		Token:    p.curToken,
		Left:     left,
		Operator: p.curToken.Literal,
	}

	precedence := p.curPrecedence()
	p.nextToken()
	expression.Right = p.parseExpression(precedence)
	if expression.Right == nil {
		return nil
	}

	return expression
}

func (p *Parser) parseCallExpression(function ast.Expression) ast.Expression {
	ident, ok := function.(*ast.Identifier)
	if !ok {
		p.errors = append(p.errors, fmt.Sprintf("%d:%d: only named functions can be called",
			p.curToken.Line, p.curToken.Column))
		return nil
	}

	exp := &ast.CallExpression{Token: p.curToken, Name: ident.Value}
	exp.Arguments = p.parseExpressionList(token.RPAREN)
	return exp
}

func (p *Parser) parseExpressionList(end token.TokenType) []ast.Expression {
	list := []ast.Expression{}

	if p.peekTokenIs(end) {
		p.nextToken()
		return list
	}

	p.nextToken()
	list = append(list, p.parseExpression(LOWEST))

	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		list = append(list, p.parseExpression(LOWEST))
	}

	if !p.expectPeek(end) {
		return nil
	}

	return list
}

func (p *Parser) parseScopeExpression() ast.Expression {
	scope := &ast.ScopeExpression{Token: p.curToken}

	p.nextToken()
	scope.Block = p.parseBlockBody(token.RBRACE)
	return scope
}

func (p *Parser) parseWhileExpression() ast.Expression {
	expression := &ast.WhileExpression{Token: p.curToken}

	p.nextToken()
	expression.Cond = p.parseExpression(LOWEST)
	if expression.Cond == nil {
		return nil
	}

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	p.nextToken()
	expression.Body = p.parseBlockBody(token.RBRACE)

	return expression
}
