package token

import (
	"fmt"
	"strconv"
)

type TokenType int

const (
	ILLEGAL TokenType = iota
	EOF

	// Identifiers + literals
	IDENT // x, count, fib, ...
	INT   // 1343456

	// Operators and delimiters
	ASSIGN // =
	ADD    // +
	SUB    // -
	MUL    // *
	QUO    // /

	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	COMMA     // ,
	SEMICOLON // ;

	// Keywords
	LET
	MUT
	WHILE
)

var tokens = [...]string{
	ILLEGAL: "ILLEGAL",
	EOF:     "EOF",

	IDENT: "IDENT",
	INT:   "INT",

	ASSIGN: "=",
	ADD:    "+",
	SUB:    "-",
	MUL:    "*",
	QUO:    "/",

	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	COMMA:     ",",
	SEMICOLON: ";",

	LET:   "let",
	MUT:   "mut",
	WHILE: "while",
}

var keywords = map[string]TokenType{
	"let":   LET,
	"mut":   MUT,
	"while": WHILE,
}

// LookupIdent returns the keyword type for ident if it is a keyword,
// IDENT otherwise.
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

type Token struct {
	FileName string
	Type     TokenType
	Literal  string
	Line     int
	Column   int
}

func (t Token) String() string {
	return t.Type.String()
}

func (tokenType TokenType) String() string {
	s := ""
	if 0 <= tokenType && tokenType < TokenType(len(tokens)) {
		s = tokens[tokenType]
	}

	if s == "" {
		s = "token(" + strconv.Itoa(int(tokenType)) + ")"
	}

	return s
}

// ErrorKind classifies a CompileError so callers can distinguish the
// failure taxonomy without parsing messages.
type ErrorKind int

const (
	UndeclaredVariable ErrorKind = iota
	ImmutableAssignment
	UndeclaredFunction
	ArityConflict
	NonConstantLet
	BadIdent
)

type CompileError struct {
	Token Token
	Kind  ErrorKind
	Msg   string
}

func (ce *CompileError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", ce.Token.FileName, ce.Token.Line, ce.Token.Column, ce.Msg)
}
