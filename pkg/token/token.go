// Package token defines the lexical tokens produced by pkg/lexer.
package token

// Kind enumerates the lexical categories the lexer recognizes. Spans are
// carried on Token, not here, so Kind stays a plain comparable value.
type Kind int

const (
	EOF Kind = iota
	ILLEGAL

	Identifier
	Number
	String
	TemplateStringPart // the whole raw interior of a backtick template, as one token

	// keywords
	True
	False
	Null
	And
	Or
	Not
	NotIn
	In

	// operators
	Plus
	Minus
	Star
	Slash
	Percent
	Caret
	EqEq
	NotEq
	Lt
	LtEq
	Gt
	GtEq
	NullCoalesce // ??
	Elvis        // ?:
	Question
	Colon
	Dot
	DotDot // ..
	Comma
	Hash // # pointer to current element in a closure
	Dollar

	// brackets
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
)

var names = map[Kind]string{
	EOF: "EOF", ILLEGAL: "ILLEGAL",
	Identifier: "identifier", Number: "number", String: "string", TemplateStringPart: "template",
	True: "true", False: "false", Null: "null", And: "and", Or: "or", Not: "not", NotIn: "not in", In: "in",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%", Caret: "^",
	EqEq: "==", NotEq: "!=", Lt: "<", LtEq: "<=", Gt: ">", GtEq: ">=",
	NullCoalesce: "??", Elvis: "?:", Question: "?", Colon: ":",
	Dot: ".", DotDot: "..", Comma: ",", Hash: "#", Dollar: "$",
	LParen: "(", RParen: ")", LBrace: "{", RBrace: "}", LBracket: "[", RBracket: "]",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "unknown"
}

// Span is a half-open byte range [Start, End) into the source text.
type Span struct {
	Start int
	End   int
}

// Token is one lexical unit: its kind, the exact source substring, and its
// span. Keywords and operators carry their canonical text in Value so the
// parser never needs to re-slice the source.
type Token struct {
	Kind  Kind
	Value string
	Span  Span
}

var keywords = map[string]Kind{
	"true": True, "false": False, "null": Null,
	"and": And, "or": Or, "not": Not, "in": In,
}

// LookupKeyword returns the keyword Kind for an identifier-shaped lexeme, or
// (Identifier, false) when it is not reserved.
func LookupKeyword(ident string) (Kind, bool) {
	if k, ok := keywords[ident]; ok {
		return k, true
	}
	return Identifier, false
}
