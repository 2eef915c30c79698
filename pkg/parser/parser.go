// Package parser implements the two expression grammars spec.md §4.2
// describes: Standard (a full Pratt-style expression grammar) and Unary
// (the decision-table cell mini-language evaluated against an implicit `$`
// reference). Both share postfix (`.`, `[]`, call), literal, and
// array/interval parsing through the same Parser struct and helper methods,
// the way a real hand-rolled compiler front end shares statement/expression
// plumbing between related grammars rather than duplicating it.
//
// Parsing never aborts: a malformed subtree is replaced with an *ast.Error
// node carrying the expected/received token kinds and span, and parsing
// continues from the next token it can make sense of. The Compiler is the
// layer that refuses to proceed past an Error node (spec.md §4.3).
package parser

import (
	"github.com/ruleforge/engine/pkg/ast"
	"github.com/ruleforge/engine/pkg/token"
)

// Parser holds the shared state for both grammars: the token stream, the
// Arena new nodes are allocated from, and a closure-nesting depth counter
// used to validate `#` (Pointer) occurrences.
type Parser struct {
	toks  []token.Token
	pos   int
	arena *ast.Arena
	depth int // closure/array nesting depth, for pointer validity
}

// New constructs a Parser over an already-tokenized input.
func New(toks []token.Token, arena *ast.Arena) *Parser {
	return &Parser{toks: toks, arena: arena}
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) curKind() token.Kind { return p.cur().Kind }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

// mark/reset implement the parser's backtracking: remembering a token
// position and rewinding to it when a tentative parse (e.g. "is this an
// interval or an array literal?") doesn't pan out.
func (p *Parser) mark() int   { return p.pos }
func (p *Parser) reset(m int) { p.pos = m }

func (p *Parser) at(kind token.Kind) bool { return p.curKind() == kind }

func (p *Parser) errorNode(msg string, expected ...token.Kind) *ast.Error {
	t := p.cur()
	n := ast.NewError(t.Span, msg, expected, t.Kind)
	return ast.Track(p.arena, n)
}

// expect consumes a token of the given kind, or produces an *ast.Error
// (without advancing) when the current token doesn't match.
func (p *Parser) expect(kind token.Kind) (token.Token, *ast.Error) {
	if p.at(kind) {
		return p.advance(), nil
	}
	return token.Token{}, p.errorNode("unexpected token", kind)
}

// ParseStandard parses a complete Standard-grammar expression (spec.md
// §4.2's full Pratt grammar).
func ParseStandard(toks []token.Token, arena *ast.Arena) ast.Node {
	p := New(toks, arena)
	return p.parseTernary()
}

// ParseUnary parses a complete Unary-grammar (decision-table cell)
// expression against the implicit `$` reference (spec.md §4.2).
func ParseUnary(toks []token.Token, arena *ast.Arena) ast.Node {
	p := New(toks, arena)
	return p.parseUnaryTop()
}
