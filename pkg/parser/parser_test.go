package parser

import (
	"testing"

	"github.com/ruleforge/engine/pkg/ast"
	"github.com/ruleforge/engine/pkg/lexer"
)

func parseStd(t *testing.T, src string) ast.Node {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("tokenize %q: %v", src, err)
	}
	arena := ast.NewArena()
	return ParseStandard(toks, arena)
}

func parseUnary(t *testing.T, src string) ast.Node {
	t.Helper()
	toks, err := lexer.Tokenize(src)
	if err != nil {
		t.Fatalf("tokenize %q: %v", src, err)
	}
	arena := ast.NewArena()
	return ParseUnary(toks, arena)
}

func TestParseTernaryAndElvis(t *testing.T) {
	n := parseStd(t, "a ? b : c")
	cond, ok := n.(*ast.Conditional)
	if !ok {
		t.Fatalf("got %T", n)
	}
	if _, ok := cond.Cond.(*ast.Identifier); !ok {
		t.Fatalf("cond not identifier: %T", cond.Cond)
	}

	n2 := parseStd(t, "a ?: b")
	cond2, ok := n2.(*ast.Conditional)
	if !ok {
		t.Fatalf("got %T", n2)
	}
	if cond2.Cond != cond2.Then {
		t.Fatalf("elvis should reuse cond as then branch")
	}
}

func TestParseArithmeticPrecedence(t *testing.T) {
	n := parseStd(t, "1 + 2 * 3 ^ 2")
	b, ok := n.(*ast.Binary)
	if !ok || b.Op != ast.BinAdd {
		t.Fatalf("got %#v", n)
	}
	rhs, ok := b.Right.(*ast.Binary)
	if !ok || rhs.Op != ast.BinMul {
		t.Fatalf("expected multiplication on rhs, got %#v", b.Right)
	}
	pow, ok := rhs.Right.(*ast.Binary)
	if !ok || pow.Op != ast.BinPow {
		t.Fatalf("expected power nested under multiplication, got %#v", rhs.Right)
	}
}

func TestParsePowerRightAssociative(t *testing.T) {
	n := parseStd(t, "2 ^ 3 ^ 2")
	b, ok := n.(*ast.Binary)
	if !ok || b.Op != ast.BinPow {
		t.Fatalf("got %#v", n)
	}
	if _, ok := b.Left.(*ast.NumberLit); !ok {
		t.Fatalf("left should be the leaf 2, got %#v", b.Left)
	}
	rhs, ok := b.Right.(*ast.Binary)
	if !ok || rhs.Op != ast.BinPow {
		t.Fatalf("right should itself be a power node (right-assoc), got %#v", b.Right)
	}
}

func TestParseArrayLiteralVsInterval(t *testing.T) {
	arr := parseStd(t, "[1, 2, 3]")
	if _, ok := arr.(*ast.ArrayLit); !ok {
		t.Fatalf("expected ArrayLit, got %#v", arr)
	}

	closedClosed := parseStd(t, "1 in [1..5]")
	b, ok := closedClosed.(*ast.Binary)
	if !ok || b.Op != ast.BinIn {
		t.Fatalf("got %#v", closedClosed)
	}
	iv, ok := b.Right.(*ast.Interval)
	if !ok || iv.Brackets != ast.ClosedClosed {
		t.Fatalf("expected closed-closed interval, got %#v", b.Right)
	}
}

func TestParseIntervalBracketVariants(t *testing.T) {
	cases := []struct {
		src  string
		want ast.BracketKind
	}{
		{"(1..5]", ast.OpenClosed},
		{"[1..5)", ast.ClosedOpen},
		{"(1..5)", ast.OpenOpen},
		{"[1..5]", ast.ClosedClosed},
	}
	for _, c := range cases {
		n := parseStd(t, c.src)
		iv, ok := n.(*ast.Interval)
		if !ok {
			t.Fatalf("%s: got %#v", c.src, n)
		}
		if iv.Brackets != c.want {
			t.Fatalf("%s: got brackets %v want %v", c.src, iv.Brackets, c.want)
		}
	}
}

func TestParseParenthesizedNotConfusedWithInterval(t *testing.T) {
	n := parseStd(t, "(1 + 2) * 3")
	b, ok := n.(*ast.Binary)
	if !ok || b.Op != ast.BinMul {
		t.Fatalf("got %#v", n)
	}
	if _, ok := b.Left.(*ast.Parenthesized); !ok {
		t.Fatalf("expected parenthesized lhs, got %#v", b.Left)
	}
}

func TestParsePostfixChain(t *testing.T) {
	n := parseStd(t, "a.b[0][1:2]")
	sl, ok := n.(*ast.Slice)
	if !ok {
		t.Fatalf("got %#v", n)
	}
	if _, ok := sl.Node.(*ast.Member); !ok {
		t.Fatalf("expected member beneath slice, got %#v", sl.Node)
	}
}

func TestParseBuiltinComprehension(t *testing.T) {
	n := parseStd(t, "all(items, #.age >= 18)")
	bi, ok := n.(*ast.BuiltIn)
	if !ok || bi.Kind != ast.BuiltInAll {
		t.Fatalf("got %#v", n)
	}
	if len(bi.Args) != 2 {
		t.Fatalf("expected source + closure args, got %d", len(bi.Args))
	}
	if _, ok := bi.Args[1].(*ast.Closure); !ok {
		t.Fatalf("expected closure body, got %#v", bi.Args[1])
	}
}

func TestParsePointerOutsideClosureIsError(t *testing.T) {
	n := parseStd(t, "#")
	if !ast.ContainsError(n) {
		t.Fatalf("expected error node for '#' outside closure, got %#v", n)
	}
}

func TestParseTemplateStringInterpolation(t *testing.T) {
	n := parseStd(t, "`hello ${name}`")
	tmpl, ok := n.(*ast.TemplateStringLit)
	if !ok {
		t.Fatalf("got %#v", n)
	}
	if len(tmpl.Parts) != 2 {
		t.Fatalf("expected literal + expr parts, got %d", len(tmpl.Parts))
	}
	if _, ok := tmpl.Parts[1].Expr.(*ast.Identifier); !ok {
		t.Fatalf("expected identifier in interpolation, got %#v", tmpl.Parts[1].Expr)
	}
}

func TestParseMalformedExpressionProducesErrorNode(t *testing.T) {
	n := parseStd(t, "1 +")
	if !ast.ContainsError(n) {
		t.Fatalf("expected an error node somewhere in %#v", n)
	}
}

func TestParseUnaryBareComparison(t *testing.T) {
	n := parseUnary(t, "> 250")
	b, ok := n.(*ast.Binary)
	if !ok || b.Op != ast.BinGt {
		t.Fatalf("got %#v", n)
	}
	if _, ok := b.Left.(*ast.Root); !ok {
		t.Fatalf("expected implicit $ on lhs, got %#v", b.Left)
	}
}

func TestParseUnaryCommaIsOr(t *testing.T) {
	n := parseUnary(t, "> 250, < 350, == 300")
	top, ok := n.(*ast.Binary)
	if !ok || top.Op != ast.BinOr {
		t.Fatalf("got %#v", n)
	}
}

func TestParseUnaryBareValueBecomesEquality(t *testing.T) {
	n := parseUnary(t, "300")
	b, ok := n.(*ast.Binary)
	if !ok || b.Op != ast.BinEq {
		t.Fatalf("got %#v", n)
	}
	if _, ok := b.Left.(*ast.Root); !ok {
		t.Fatalf("expected implicit $ on lhs, got %#v", b.Left)
	}
	if num, ok := b.Right.(*ast.NumberLit); !ok || num.Value != "300" {
		t.Fatalf("expected rhs literal 300, got %#v", b.Right)
	}
}

func TestParseUnaryArrayBecomesIn(t *testing.T) {
	n := parseUnary(t, "[1, 2, 3]")
	b, ok := n.(*ast.Binary)
	if !ok || b.Op != ast.BinIn {
		t.Fatalf("got %#v", n)
	}
	if _, ok := b.Right.(*ast.ArrayLit); !ok {
		t.Fatalf("expected array literal rhs, got %#v", b.Right)
	}
}

func TestParseUnaryIntervalBecomesIn(t *testing.T) {
	n := parseUnary(t, "[1..5]")
	b, ok := n.(*ast.Binary)
	if !ok || b.Op != ast.BinIn {
		t.Fatalf("got %#v", n)
	}
	if _, ok := b.Right.(*ast.Interval); !ok {
		t.Fatalf("expected interval rhs, got %#v", b.Right)
	}
}

func TestParseUnaryEmptyCellIsAlwaysTrue(t *testing.T) {
	n := parseUnary(t, "")
	bl, ok := n.(*ast.BoolLit)
	if !ok || !bl.Value {
		t.Fatalf("expected literal true for empty cell, got %#v", n)
	}
}

func TestParseUnaryLogicalExpressionLeftAsIs(t *testing.T) {
	n := parseUnary(t, "$ > 250 and $ < 350")
	b, ok := n.(*ast.Binary)
	if !ok || b.Op != ast.BinAnd {
		t.Fatalf("expected untouched and-expression, got %#v", n)
	}
}

func TestParseUnaryBareComparisonsJoinedByAnd(t *testing.T) {
	n := parseUnary(t, "> 250 and < 350")
	b, ok := n.(*ast.Binary)
	if !ok || b.Op != ast.BinAnd {
		t.Fatalf("expected an and-join of the two bare comparisons, got %#v", n)
	}
	left, ok := b.Left.(*ast.Binary)
	if !ok || left.Op != ast.BinGt {
		t.Fatalf("expected left side to be $ > 250, got %#v", b.Left)
	}
	right, ok := b.Right.(*ast.Binary)
	if !ok || right.Op != ast.BinLt {
		t.Fatalf("expected right side to be $ < 350, got %#v", b.Right)
	}
}

func TestParseUnaryBareComparisonsJoinedByOr(t *testing.T) {
	n := parseUnary(t, "< 10 or > 90")
	b, ok := n.(*ast.Binary)
	if !ok || b.Op != ast.BinOr {
		t.Fatalf("expected an or-join of the two bare comparisons, got %#v", n)
	}
}
