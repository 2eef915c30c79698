package parser

import (
	"github.com/ruleforge/engine/pkg/ast"
	"github.com/ruleforge/engine/pkg/lexer"
	"github.com/ruleforge/engine/pkg/token"
)

// Precedence ladder, low to high, per spec.md §4.2:
//
//	?:  ??  or  and  in/not-in/comparisons  additive  multiplicative  power  unary  postfix
//
// Arithmetic is left-associative except power, which is right-associative.

func (p *Parser) parseTernary() ast.Node {
	cond := p.parseNullCoalesce()
	if p.at(token.Question) {
		start := cond.Span()
		p.advance()
		then := p.parseTernary()
		if _, errN := p.expect(token.Colon); errN != nil {
			return errN
		}
		elseN := p.parseTernary()
		return spanned(ast.Track(p.arena, &ast.Conditional{
			Cond: cond, Then: then, Else: elseN,
		}), span2(start, elseN.Span()))
	}
	if p.at(token.Elvis) {
		start := cond.Span()
		p.advance()
		elseN := p.parseTernary()
		return spanned(ast.Track(p.arena, &ast.Conditional{
			Cond: cond, Then: cond, Else: elseN,
		}), span2(start, elseN.Span()))
	}
	return cond
}

func (p *Parser) parseNullCoalesce() ast.Node {
	left := p.parseOr()
	for p.at(token.NullCoalesce) {
		p.advance()
		right := p.parseOr()
		left = ast.Track(p.arena, &ast.Binary{Op: ast.BinNullCoalesce, Left: left, Right: right})
	}
	return left
}

func (p *Parser) parseOr() ast.Node {
	left := p.parseAnd()
	for p.at(token.Or) {
		p.advance()
		right := p.parseAnd()
		left = ast.Track(p.arena, &ast.Binary{Op: ast.BinOr, Left: left, Right: right})
	}
	return left
}

func (p *Parser) parseAnd() ast.Node {
	left := p.parseComparison()
	for p.at(token.And) {
		p.advance()
		right := p.parseComparison()
		left = ast.Track(p.arena, &ast.Binary{Op: ast.BinAnd, Left: left, Right: right})
	}
	return left
}

var comparisonOps = map[token.Kind]ast.BinaryOp{
	token.EqEq: ast.BinEq, token.NotEq: ast.BinNotEq,
	token.Lt: ast.BinLt, token.LtEq: ast.BinLtEq,
	token.Gt: ast.BinGt, token.GtEq: ast.BinGtEq,
	token.In: ast.BinIn, token.NotIn: ast.BinNotIn,
}

func (p *Parser) parseComparison() ast.Node {
	left := p.parseAdditive()
	for {
		op, ok := comparisonOps[p.curKind()]
		if !ok {
			return left
		}
		p.advance()
		right := p.parseAdditive()
		left = ast.Track(p.arena, &ast.Binary{Op: op, Left: left, Right: right})
	}
}

func (p *Parser) parseAdditive() ast.Node {
	left := p.parseMultiplicative()
	for p.at(token.Plus) || p.at(token.Minus) {
		op := ast.BinAdd
		if p.curKind() == token.Minus {
			op = ast.BinSub
		}
		p.advance()
		right := p.parseMultiplicative()
		left = ast.Track(p.arena, &ast.Binary{Op: op, Left: left, Right: right})
	}
	return left
}

func (p *Parser) parseMultiplicative() ast.Node {
	left := p.parsePower()
	for p.at(token.Star) || p.at(token.Slash) || p.at(token.Percent) {
		var op ast.BinaryOp
		switch p.curKind() {
		case token.Star:
			op = ast.BinMul
		case token.Slash:
			op = ast.BinDiv
		default:
			op = ast.BinMod
		}
		p.advance()
		right := p.parsePower()
		left = ast.Track(p.arena, &ast.Binary{Op: op, Left: left, Right: right})
	}
	return left
}

// parsePower is right-associative: a ^ b ^ c == a ^ (b ^ c).
func (p *Parser) parsePower() ast.Node {
	left := p.parseUnary()
	if p.at(token.Caret) {
		p.advance()
		right := p.parsePower()
		return ast.Track(p.arena, &ast.Binary{Op: ast.BinPow, Left: left, Right: right})
	}
	return left
}

func (p *Parser) parseUnary() ast.Node {
	if p.at(token.Minus) {
		start := p.cur().Span
		p.advance()
		inner := p.parseUnary()
		return spanned(ast.Track(p.arena, &ast.Unary{Op: ast.UnaryNegate, Node: inner}), span2From(start, inner.Span()))
	}
	if p.at(token.Not) {
		start := p.cur().Span
		p.advance()
		inner := p.parseUnary()
		return spanned(ast.Track(p.arena, &ast.Unary{Op: ast.UnaryNot, Node: inner}), span2From(start, inner.Span()))
	}
	return p.parsePostfix()
}

// parsePostfix handles `.property`, `[index]`, `[from:to]` and call
// argument lists chained after a primary expression. Both grammars share
// this method.
func (p *Parser) parsePostfix() ast.Node {
	n := p.parsePrimary()
	for {
		switch p.curKind() {
		case token.Dot:
			p.advance()
			nameTok := p.cur()
			if nameTok.Kind != token.Identifier {
				return p.errorNode("expected property name", token.Identifier)
			}
			p.advance()
			prop := ast.Track(p.arena, ast.NewIdentifier(nameTok.Span, nameTok.Value))
			n = ast.Track(p.arena, &ast.Member{Node: n, Property: prop, Computed: false})
		case token.LBracket:
			n = p.parseBracketSuffix(n)
		default:
			return n
		}
	}
}

// parseBracketSuffix parses `[expr]` (index/computed member) or
// `[from:to]` (slice) following a primary expression.
func (p *Parser) parseBracketSuffix(n ast.Node) ast.Node {
	p.advance() // consume [
	if p.at(token.Colon) {
		p.advance()
		var to ast.Node
		if !p.at(token.RBracket) {
			to = p.parseTernary()
		}
		if _, errN := p.expect(token.RBracket); errN != nil {
			return errN
		}
		return ast.Track(p.arena, &ast.Slice{Node: n, From: nil, To: to})
	}
	first := p.parseTernary()
	if p.at(token.Colon) {
		p.advance()
		var to ast.Node
		if !p.at(token.RBracket) {
			to = p.parseTernary()
		}
		if _, errN := p.expect(token.RBracket); errN != nil {
			return errN
		}
		return ast.Track(p.arena, &ast.Slice{Node: n, From: first, To: to})
	}
	if _, errN := p.expect(token.RBracket); errN != nil {
		return errN
	}
	return ast.Track(p.arena, &ast.Member{Node: n, Property: first, Computed: true})
}

var builtinClosureNames = map[string]ast.BuiltInKind{
	"all": ast.BuiltInAll, "some": ast.BuiltInSome, "none": ast.BuiltInNone,
	"filter": ast.BuiltInFilter, "map": ast.BuiltInMap, "count": ast.BuiltInCount,
}

func (p *Parser) parsePrimary() ast.Node {
	t := p.cur()
	switch t.Kind {
	case token.Number:
		p.advance()
		return ast.Track(p.arena, ast.NewNumber(t.Span, t.Value))
	case token.String:
		p.advance()
		return ast.Track(p.arena, ast.NewString(t.Span, t.Value))
	case token.TemplateStringPart:
		p.advance()
		return p.parseTemplateString(t)
	case token.True, token.False:
		p.advance()
		return ast.Track(p.arena, ast.NewBool(t.Span, t.Kind == token.True))
	case token.Null:
		p.advance()
		return ast.Track(p.arena, ast.NewNull(t.Span))
	case token.Dollar:
		p.advance()
		return ast.Track(p.arena, ast.NewRoot(t.Span))
	case token.Hash:
		if p.depth == 0 {
			p.advance()
			return p.errorNode("'#' is only valid inside a closure")
		}
		p.advance()
		return ast.Track(p.arena, ast.NewPointer(t.Span))
	case token.Identifier:
		return p.parseIdentifierOrCall(t)
	case token.LParen:
		return p.parseParenOrConditional(t)
	case token.LBracket:
		return p.parseArrayOrInterval(t, token.LBracket)
	case token.LBrace:
		return p.parseObjectOrClosure(t)
	default:
		p.advance()
		return p.errorNode("unexpected token in expression")
	}
}

func (p *Parser) parseTemplateString(t token.Token) ast.Node {
	var parts []ast.TemplatePart
	raw := t.Value
	i := 0
	for i < len(raw) {
		if raw[i] == '$' && i+1 < len(raw) && raw[i+1] == '{' {
			j := i + 2
			depth := 1
			for j < len(raw) && depth > 0 {
				if raw[j] == '{' {
					depth++
				} else if raw[j] == '}' {
					depth--
				}
				if depth > 0 {
					j++
				}
			}
			inner := raw[i+2 : j]
			subArena := p.arena
			toks, lerr := lexer.Tokenize(inner)
			if lerr != nil {
				parts = append(parts, ast.TemplatePart{Expr: p.errorNode("invalid template expression")})
			} else {
				sub := New(toks, subArena)
				sub.depth = p.depth
				parts = append(parts, ast.TemplatePart{Expr: sub.parseTernary()})
			}
			i = j + 1
			continue
		}
		start := i
		for i < len(raw) && !(raw[i] == '$' && i+1 < len(raw) && raw[i+1] == '{') {
			i++
		}
		parts = append(parts, ast.TemplatePart{Literal: raw[start:i]})
	}
	return spanned(ast.Track(p.arena, &ast.TemplateStringLit{Parts: parts}), t.Span)
}

func (p *Parser) parseIdentifierOrCall(t token.Token) ast.Node {
	p.advance()
	if kind, ok := builtinClosureNames[t.Value]; ok && p.at(token.LParen) {
		return p.parseBuiltinCall(t, kind)
	}
	if p.at(token.LParen) {
		return p.parseGenericCall(t)
	}
	return ast.Track(p.arena, ast.NewIdentifier(t.Span, t.Value))
}

// parseBuiltinCall parses `all(array, #expr)`-shaped comprehension builtins:
// first argument is the source array, the remaining arguments form a
// Closure body evaluated once per element with `#` bound to the element.
func (p *Parser) parseBuiltinCall(t token.Token, kind ast.BuiltInKind) ast.Node {
	p.advance() // (
	var args []ast.Node
	if !p.at(token.RParen) {
		src := p.parseTernary()
		args = append(args, src)
		for p.at(token.Comma) {
			p.advance()
			p.depth++
			body := p.parseTernary()
			p.depth--
			args = append(args, ast.Track(p.arena, &ast.Closure{Inner: body}))
		}
	}
	end, errN := p.expect(token.RParen)
	if errN != nil {
		return errN
	}
	return spanned(ast.Track(p.arena, &ast.BuiltIn{Kind: kind, Name: t.Value, Args: args}), span2(t.Span, end.Span))
}

func (p *Parser) parseGenericCall(t token.Token) ast.Node {
	p.advance() // (
	var args []ast.Node
	if !p.at(token.RParen) {
		args = append(args, p.parseTernary())
		for p.at(token.Comma) {
			p.advance()
			args = append(args, p.parseTernary())
		}
	}
	end, errN := p.expect(token.RParen)
	if errN != nil {
		return errN
	}
	return spanned(ast.Track(p.arena, &ast.BuiltIn{Kind: ast.BuiltInFunctionCall, Name: t.Value, Args: args}), span2(t.Span, end.Span))
}

func (p *Parser) parseParenOrConditional(t token.Token) ast.Node {
	// Could be `(expr)` or the open-bracket of an interval `(a..b]`/`(a..b)`.
	// Try interval first; on failure, backtrack to a parenthesized expr.
	mark := p.mark()
	if n, ok := p.tryParseInterval(t, token.LParen); ok {
		return n
	}
	p.reset(mark)
	p.advance() // consume (
	inner := p.parseTernary()
	end, errN := p.expect(token.RParen)
	if errN != nil {
		return errN
	}
	return spanned(ast.Track(p.arena, &ast.Parenthesized{Inner: inner}), span2(t.Span, end.Span))
}

// parseArrayOrInterval commits to interval only once the `..` range
// operator is actually seen; otherwise it backtracks and parses an array
// literal (spec.md §4.2).
func (p *Parser) parseArrayOrInterval(t token.Token, openKind token.Kind) ast.Node {
	mark := p.mark()
	if n, ok := p.tryParseInterval(t, openKind); ok {
		return n
	}
	p.reset(mark)
	return p.parseArrayLiteral(t)
}

func (p *Parser) tryParseInterval(t token.Token, openKind token.Kind) (ast.Node, bool) {
	openBracket := openKind == token.LBracket
	p.advance() // consume [ or (
	p.depth++
	left := p.parseAdditive()
	p.depth--
	if !p.at(token.DotDot) {
		return nil, false
	}
	p.advance()
	p.depth++
	right := p.parseAdditive()
	p.depth--
	var closeKind token.Kind
	var closeBracket bool
	switch p.curKind() {
	case token.RBracket:
		closeKind = token.RBracket
		closeBracket = true
	case token.RParen:
		closeKind = token.RParen
		closeBracket = false
	default:
		return nil, false
	}
	end := p.advance()
	_ = closeKind
	brackets := intervalBrackets(openBracket, closeBracket)
	n := spanned(ast.Track(p.arena, &ast.Interval{Left: left, Right: right, Brackets: brackets}), span2(t.Span, end.Span))
	return n, true
}

func intervalBrackets(openClosed, closeClosed bool) ast.BracketKind {
	switch {
	case openClosed && closeClosed:
		return ast.ClosedClosed
	case !openClosed && closeClosed:
		return ast.OpenClosed
	case openClosed && !closeClosed:
		return ast.ClosedOpen
	default:
		return ast.OpenOpen
	}
}

func (p *Parser) parseArrayLiteral(t token.Token) ast.Node {
	p.advance() // consume [
	var items []ast.Node
	p.depth++
	if !p.at(token.RBracket) {
		items = append(items, p.parseTernary())
		for p.at(token.Comma) {
			p.advance()
			if p.at(token.RBracket) {
				break
			}
			items = append(items, p.parseTernary())
		}
	}
	p.depth--
	end, errN := p.expect(token.RBracket)
	if errN != nil {
		return errN
	}
	return spanned(ast.Track(p.arena, &ast.ArrayLit{Items: items}), span2(t.Span, end.Span))
}

// parseObjectOrClosure parses `{ key: value, ... }`. An empty `{}` is an
// empty object; `{ #.field }`-shaped bodies used as closures are handled by
// the comprehension builtins directly, not here.
func (p *Parser) parseObjectOrClosure(t token.Token) ast.Node {
	p.advance() // consume {
	var entries []ast.ObjectEntry
	if !p.at(token.RBrace) {
		entries = append(entries, p.parseObjectEntry())
		for p.at(token.Comma) {
			p.advance()
			if p.at(token.RBrace) {
				break
			}
			entries = append(entries, p.parseObjectEntry())
		}
	}
	end, errN := p.expect(token.RBrace)
	if errN != nil {
		return errN
	}
	return spanned(ast.Track(p.arena, &ast.ObjectLit{Entries: entries}), span2(t.Span, end.Span))
}

func (p *Parser) parseObjectEntry() ast.ObjectEntry {
	var key ast.Node
	kt := p.cur()
	switch kt.Kind {
	case token.Identifier:
		p.advance()
		key = ast.Track(p.arena, ast.NewIdentifier(kt.Span, kt.Value))
	case token.String:
		p.advance()
		key = ast.Track(p.arena, ast.NewString(kt.Span, kt.Value))
	default:
		key = p.errorNode("expected object key", token.Identifier, token.String)
	}
	if _, errN := p.expect(token.Colon); errN != nil {
		return ast.ObjectEntry{Key: key, Value: errN}
	}
	val := p.parseTernary()
	return ast.ObjectEntry{Key: key, Value: val}
}

func span2(a, b token.Span) token.Span { return token.Span{Start: a.Start, End: b.End} }
func span2From(a token.Span, b token.Span) token.Span {
	return token.Span{Start: a.Start, End: b.End}
}

// spanned sets a computed span on a freshly-constructed node and returns it,
// so construction sites that need a span covering more than the opening
// token can do so inline rather than in two statements.
type spanSetter interface {
	ast.Node
	SetSpan(token.Span)
}

func spanned[T spanSetter](n T, s token.Span) T {
	n.SetSpan(s)
	return n
}
