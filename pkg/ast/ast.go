// Package ast defines the expression-language abstract syntax tree.
//
// Nodes are allocated out of a per-parse Arena (see arena.go) so a whole
// parse can be discarded in one shot between Isolate runs, the way the
// teacher's Program/CommandDecl tree is rebuilt fresh per compile. Parsing
// never aborts: a malformed subtree becomes an *Error node instead of a Go
// error, so tooling can still walk the rest of the tree.
package ast

import "github.com/ruleforge/engine/pkg/token"

// Node is implemented by every AST variant.
type Node interface {
	Span() token.Span
	node()
}

type base struct{ span token.Span }

func (b base) Span() token.Span     { return b.span }
func (base) node()                  {}
func (b *base) SetSpan(s token.Span) { b.span = s }

// NullLit, BoolLit, NumberLit, StringLit are leaf literals.
type NullLit struct{ base }

type BoolLit struct {
	base
	Value bool
}

type NumberLit struct {
	base
	Value string // raw decimal text, parsed lazily by the compiler/VM
}

type StringLit struct {
	base
	Value string
}

// TemplatePart is either a literal chunk or an embedded expression inside a
// backtick template string.
type TemplatePart struct {
	Literal string // set when Expr == nil
	Expr    Node
}

type TemplateStringLit struct {
	base
	Parts []TemplatePart
}

// Pointer is `#`, referring to the current element inside a closure
// (comprehension). The node carries no nesting depth; the parser tracks
// closure depth itself and rejects `#` outside any closure.
type Pointer struct{ base }

// Root is `$`, the implicit reference value bound by Isolate.SetReference.
type Root struct{ base }

// Identifier is a bare name resolved against the environment at eval time.
type Identifier struct {
	base
	Name string
}

type ArrayLit struct {
	base
	Items []Node
}

type ObjectEntry struct {
	Key   Node // usually a StringLit or Identifier used as a literal key
	Value Node
}

type ObjectLit struct {
	base
	Entries []ObjectEntry
}

// Member is `node.property` or `node[property]` (computed member access is
// represented the same way the Standard parser lowers `[...]` to Member
// with a non-identifier Property).
type Member struct {
	base
	Node     Node
	Property Node
	Computed bool
}

// Slice is `node[from:to]`-shaped; From/To are nil when omitted, in which
// case the compiler pushes Null and the VM applies the defaults 0 / len-1.
type Slice struct {
	base
	Node Node
	From Node
	To   Node
}

// BracketKind records which of the four interval delimiters was used so the
// compiler can choose the right inclusive/exclusive comparison opcodes.
type BracketKind int

const (
	ClosedClosed BracketKind = iota // [a..b]
	OpenClosed                      // (a..b]
	ClosedOpen                      // [a..b)
	OpenOpen                        // (a..b)
)

type Interval struct {
	base
	Left, Right Node
	Brackets    BracketKind
}

type Conditional struct {
	base
	Cond, Then, Else Node
}

type UnaryOp int

const (
	UnaryNegate UnaryOp = iota
	UnaryNot
)

type Unary struct {
	base
	Op   UnaryOp
	Node Node
}

type BinaryOp int

const (
	BinAdd BinaryOp = iota
	BinSub
	BinMul
	BinDiv
	BinMod
	BinPow
	BinEq
	BinNotEq
	BinLt
	BinLtEq
	BinGt
	BinGtEq
	BinAnd
	BinOr
	BinIn
	BinNotIn
	BinNullCoalesce
)

type Binary struct {
	base
	Op          BinaryOp
	Left, Right Node
}

// Closure is a sub-expression evaluated per element during iteration
// (array comprehension); Inner typically contains Pointer nodes referring
// to the current element.
type Closure struct {
	base
	Inner Node
}

type BuiltInKind int

const (
	BuiltInAll BuiltInKind = iota
	BuiltInSome
	BuiltInNone
	BuiltInFilter
	BuiltInMap
	BuiltInCount
	BuiltInFunctionCall // generic call to a name in the builtin/user-function registry
)

type BuiltIn struct {
	base
	Kind BuiltInKind
	Name string // set when Kind == BuiltInFunctionCall
	Args []Node
}

type Parenthesized struct {
	base
	Inner Node
}

// Error is a non-fatal parse failure embedded in the tree in place of the
// subtree that could not be parsed, carrying enough detail for tooling to
// render a diagnostic.
type Error struct {
	base
	Message  string
	Expected []token.Kind
	Found    token.Kind
}

func newBase(span token.Span) base { return base{span: span} }

// Constructors. Each returns an ordinary Go pointer; the parser registers
// it with an Arena through Track — see arena.go for the allocation
// discipline.

func NewNull(span token.Span) *NullLit       { return &NullLit{base: newBase(span)} }
func NewBool(span token.Span, v bool) *BoolLit { return &BoolLit{base: newBase(span), Value: v} }
func NewNumber(span token.Span, v string) *NumberLit {
	return &NumberLit{base: newBase(span), Value: v}
}
func NewString(span token.Span, v string) *StringLit {
	return &StringLit{base: newBase(span), Value: v}
}
func NewIdentifier(span token.Span, name string) *Identifier {
	return &Identifier{base: newBase(span), Name: name}
}
func NewPointer(span token.Span) *Pointer { return &Pointer{base: newBase(span)} }
func NewRoot(span token.Span) *Root       { return &Root{base: newBase(span)} }
func NewError(span token.Span, msg string, expected []token.Kind, found token.Kind) *Error {
	return &Error{base: newBase(span), Message: msg, Expected: expected, Found: found}
}

// ContainsError reports whether n or any descendant is an *Error node. The
// compiler uses this to reject trees it cannot lower (spec.md §4.3).
func ContainsError(n Node) bool {
	found := false
	Walk(n, func(child Node) bool {
		if _, ok := child.(*Error); ok {
			found = true
			return false
		}
		return true
	})
	return found
}

// Walk visits n and its descendants pre-order, calling visit on each. If
// visit returns false, Walk does not descend into that node's children (but
// continues with siblings).
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch t := n.(type) {
	case *TemplateStringLit:
		for _, p := range t.Parts {
			if p.Expr != nil {
				Walk(p.Expr, visit)
			}
		}
	case *ArrayLit:
		for _, it := range t.Items {
			Walk(it, visit)
		}
	case *ObjectLit:
		for _, e := range t.Entries {
			Walk(e.Key, visit)
			Walk(e.Value, visit)
		}
	case *Member:
		Walk(t.Node, visit)
		Walk(t.Property, visit)
	case *Slice:
		Walk(t.Node, visit)
		if t.From != nil {
			Walk(t.From, visit)
		}
		if t.To != nil {
			Walk(t.To, visit)
		}
	case *Interval:
		Walk(t.Left, visit)
		Walk(t.Right, visit)
	case *Conditional:
		Walk(t.Cond, visit)
		Walk(t.Then, visit)
		Walk(t.Else, visit)
	case *Unary:
		Walk(t.Node, visit)
	case *Binary:
		Walk(t.Left, visit)
		Walk(t.Right, visit)
	case *Closure:
		Walk(t.Inner, visit)
	case *BuiltIn:
		for _, a := range t.Args {
			Walk(a, visit)
		}
	case *Parenthesized:
		Walk(t.Inner, visit)
	}
}
