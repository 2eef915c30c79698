package lexer

import (
	"testing"

	"github.com/ruleforge/engine/pkg/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeNumberWithSeparators(t *testing.T) {
	toks, err := Tokenize("223_000.48")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != token.Number || toks[0].Value != "223000.48" {
		t.Fatalf("got %+v", toks[0])
	}
}

func TestTokenizeNotIn(t *testing.T) {
	toks, err := Tokenize("x not in y")
	if err != nil {
		t.Fatal(err)
	}
	got := kinds(toks)
	want := []token.Kind{token.Identifier, token.NotIn, token.Identifier, token.EOF}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestTokenizeStringEscapes(t *testing.T) {
	toks, err := Tokenize(`"a\nb"`)
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Value != "a\nb" {
		t.Fatalf("got %q", toks[0].Value)
	}
}

func TestTokenizeOperators(t *testing.T) {
	toks, err := Tokenize("a ?? b ?: c == d != e <= f >= g .. h")
	if err != nil {
		t.Fatal(err)
	}
	want := []token.Kind{
		token.Identifier, token.NullCoalesce, token.Identifier, token.Elvis, token.Identifier,
		token.EqEq, token.Identifier, token.NotEq, token.Identifier, token.LtEq, token.Identifier,
		token.GtEq, token.Identifier, token.DotDot, token.Identifier, token.EOF,
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v want %v", i, got[i], want[i])
		}
	}
}

func TestTokenizeTemplateString(t *testing.T) {
	toks, err := Tokenize("`${name} #${n}`")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Kind != token.TemplateStringPart {
		t.Fatalf("got %+v", toks[0])
	}
	if toks[0].Value != "${name} #${n}" {
		t.Fatalf("got %q", toks[0].Value)
	}
}

func TestTokenizeUnterminatedStringErrors(t *testing.T) {
	_, err := Tokenize(`"abc`)
	if err == nil {
		t.Fatal("expected error for unterminated string")
	}
}

func TestTokenizeInvalidCharacterErrors(t *testing.T) {
	_, err := Tokenize("a & b")
	if err == nil {
		t.Fatal("expected error for invalid character")
	}
}

func TestTokenizeSpansAreByteOffsets(t *testing.T) {
	toks, err := Tokenize("ab + cd")
	if err != nil {
		t.Fatal(err)
	}
	if toks[0].Span.Start != 0 || toks[0].Span.End != 2 {
		t.Fatalf("got span %+v", toks[0].Span)
	}
}
