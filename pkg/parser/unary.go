package parser

import (
	"github.com/ruleforge/engine/pkg/ast"
	"github.com/ruleforge/engine/pkg/token"
)

// Unary is the decision-table cell grammar: a comma-separated list of
// conditions, each implicitly compared against the `$` reference, joined
// by OR. A bare comparison operator ("> 250") borrows `$` as its left-hand
// side; a bare value ("300") becomes `$ == 300`; an array or interval
// ("[1..5]") becomes `$ in [1..5]`; anything else that already reads as a
// full boolean expression (an "and"/"or" chain, a negation, a call) is
// taken at face value and left untouched, on the assumption it already
// refers to `$` itself (spec.md §4.2).
//
// An empty cell means "always true", the convention decision tables use
// for a column that doesn't constrain a given row.

var unaryCmpOps = map[token.Kind]ast.BinaryOp{
	token.Lt: ast.BinLt, token.LtEq: ast.BinLtEq,
	token.Gt: ast.BinGt, token.GtEq: ast.BinGtEq,
	token.EqEq: ast.BinEq, token.NotEq: ast.BinNotEq,
	token.In: ast.BinIn, token.NotIn: ast.BinNotIn,
}

func (p *Parser) parseUnaryTop() ast.Node {
	if p.at(token.EOF) {
		return ast.Track(p.arena, ast.NewBool(p.cur().Span, true))
	}
	start := p.cur().Span
	left := p.parseUnaryCell()
	for p.at(token.Comma) || p.at(token.And) || p.at(token.Or) {
		op := ast.BinOr
		if p.at(token.And) {
			op = ast.BinAnd
		}
		p.advance()
		right := p.parseUnaryCell()
		left = spanned(ast.Track(p.arena, &ast.Binary{Op: op, Left: left, Right: right}), span2(start, right.Span()))
	}
	return left
}

// parseUnaryCell parses one comma-delimited alternative.
func (p *Parser) parseUnaryCell() ast.Node {
	if op, ok := unaryCmpOps[p.curKind()]; ok {
		t := p.advance()
		root := ast.Track(p.arena, ast.NewRoot(t.Span))
		rhs := p.parseAdditive()
		return spanned(ast.Track(p.arena, &ast.Binary{Op: op, Left: root, Right: rhs}), span2(t.Span, rhs.Span()))
	}

	start := p.cur().Span
	n := p.parseTernary()

	switch v := n.(type) {
	case *ast.Binary:
		switch v.Op {
		case ast.BinAnd, ast.BinOr:
			// Already a full boolean expression referring to $ itself.
			return n
		case ast.BinIn, ast.BinNotIn:
			return n
		default:
			return n
		}
	case *ast.Unary:
		if v.Op == ast.UnaryNot {
			return n
		}
		return wrapUnaryEq(p, start, n)
	case *ast.BuiltIn:
		return n
	case *ast.ArrayLit, *ast.Interval:
		root := ast.Track(p.arena, ast.NewRoot(start))
		return spanned(ast.Track(p.arena, &ast.Binary{Op: ast.BinIn, Left: root, Right: n}), span2(start, n.Span()))
	case *ast.Error:
		return n
	default:
		return wrapUnaryEq(p, start, n)
	}
}

func wrapUnaryEq(p *Parser, start token.Span, n ast.Node) ast.Node {
	root := ast.Track(p.arena, ast.NewRoot(start))
	return spanned(ast.Track(p.arena, &ast.Binary{Op: ast.BinEq, Left: root, Right: n}), span2(start, n.Span()))
}
