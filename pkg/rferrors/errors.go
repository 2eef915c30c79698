// Package rferrors implements the engine's layered, JSON-serializable error
// taxonomy (spec.md §4.8/§7). Each layer has its own typed error; higher
// layers wrap lower-layer errors with %w rather than discarding them.
// Every error type exposes Type() so external bindings can render it without
// language-specific exceptions.
package rferrors

import (
	"encoding/json"
	"fmt"

	"github.com/ruleforge/engine/pkg/token"
)

// LexerError is raised by pkg/lexer: unterminated literals, invalid
// characters.
type LexerError struct {
	Message string
	Span    token.Span
}

func (e *LexerError) Error() string { return fmt.Sprintf("lexer error at %d:%d: %s", e.Span.Start, e.Span.End, e.Message) }
func (e *LexerError) Type() string  { return "lexerError" }
func (e *LexerError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string     `json:"type"`
		Message string     `json:"message"`
		Span    token.Span `json:"span"`
	}{e.Type(), e.Message, e.Span})
}

// ParserError is raised by pkg/isolate when a parsed tree contains an
// *ast.Error node: unexpected token, unknown built-in, malformed cell.
type ParserError struct {
	Message  string
	Expected []token.Kind
	Found    token.Kind
	Span     token.Span
}

func (e *ParserError) Error() string { return fmt.Sprintf("parser error: %s", e.Message) }
func (e *ParserError) Type() string  { return "parserError" }
func (e *ParserError) MarshalJSON() ([]byte, error) {
	expected := make([]string, len(e.Expected))
	for i, k := range e.Expected {
		expected[i] = k.String()
	}
	return json.Marshal(struct {
		Type     string     `json:"type"`
		Message  string     `json:"message"`
		Expected []string   `json:"expected,omitempty"`
		Found    string     `json:"found"`
		Span     token.Span `json:"span"`
	}{e.Type(), e.Message, expected, e.Found.String(), e.Span})
}

// CompilerError is raised by pkg/compiler: unknown operator/built-in,
// missing argument, or an *ast.Error node reaching compilation
// (UnexpectedErrorNode).
type CompilerError struct {
	Kind    string // "unexpectedErrorNode" | "unknownOperator" | "unknownBuiltin" | "missingArgument"
	Message string
}

func (e *CompilerError) Error() string { return fmt.Sprintf("compiler error (%s): %s", e.Kind, e.Message) }
func (e *CompilerError) Type() string  { return "compilerError" }
func (e *CompilerError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Kind    string `json:"kind"`
		Message string `json:"message"`
	}{e.Type(), e.Kind, e.Message})
}

func UnexpectedErrorNode(msg string) *CompilerError {
	return &CompilerError{Kind: "unexpectedErrorNode", Message: msg}
}

// VMError is raised by pkg/vm: stack/opcode out-of-bounds, unsupported
// operand types, division by zero, invalid regex.
type VMError struct {
	Opcode  string
	Message string
}

func (e *VMError) Error() string { return fmt.Sprintf("vm error (%s): %s", e.Opcode, e.Message) }
func (e *VMError) Type() string  { return "vmError" }
func (e *VMError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Opcode  string `json:"opcode"`
		Message string `json:"message"`
	}{e.Type(), e.Opcode, e.Message})
}

// ValueCastError and ReferenceError are IsolateError variants (spec.md
// §4.6): a type conversion that cannot succeed, or set_reference/lookup
// failing.
type ValueCastError struct {
	From, To string
}

func (e *ValueCastError) Error() string { return fmt.Sprintf("cannot cast %s to %s", e.From, e.To) }
func (e *ValueCastError) Type() string  { return "valueCastError" }
func (e *ValueCastError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		From string `json:"from"`
		To   string `json:"to"`
	}{e.Type(), e.From, e.To})
}

type ReferenceError struct {
	Message string
}

func (e *ReferenceError) Error() string { return e.Message }
func (e *ReferenceError) Type() string  { return "referenceError" }
func (e *ReferenceError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}{e.Type(), e.Message})
}

// DecisionGraphValidationError is the typed family spec.md §4.7 names:
// InvalidInputCount, CyclicGraph, MissingNode (also InvalidOutputCount,
// carried for symmetry with the wire format in spec.md §6).
type DecisionGraphValidationError struct {
	Kind      string // "invalidInputCount" | "invalidOutputCount" | "cyclicGraph" | "missingNode"
	NodeCount int    `json:"nodeCount,omitempty"`
	NodeID    string `json:"nodeId,omitempty"`
}

func (e *DecisionGraphValidationError) Error() string {
	switch e.Kind {
	case "invalidInputCount":
		return fmt.Sprintf("graph must have exactly one input node, found %d", e.NodeCount)
	case "invalidOutputCount":
		return fmt.Sprintf("graph must have at least one output node, found %d", e.NodeCount)
	case "cyclicGraph":
		return "graph contains a cycle"
	case "missingNode":
		return fmt.Sprintf("edge references missing node %q", e.NodeID)
	default:
		return "decision graph validation error"
	}
}
func (e *DecisionGraphValidationError) Type() string { return e.Kind }
func (e *DecisionGraphValidationError) MarshalJSON() ([]byte, error) {
	out := map[string]any{"type": e.Kind}
	if e.NodeCount != 0 {
		out["nodeCount"] = e.NodeCount
	}
	if e.NodeID != "" {
		out["nodeId"] = e.NodeID
	}
	return json.Marshal(out)
}

func InvalidInputCount(n int) *DecisionGraphValidationError {
	return &DecisionGraphValidationError{Kind: "invalidInputCount", NodeCount: n}
}
func InvalidOutputCount(n int) *DecisionGraphValidationError {
	return &DecisionGraphValidationError{Kind: "invalidOutputCount", NodeCount: n}
}
func CyclicGraph() *DecisionGraphValidationError {
	return &DecisionGraphValidationError{Kind: "cyclicGraph"}
}
func MissingNode(id string) *DecisionGraphValidationError {
	return &DecisionGraphValidationError{Kind: "missingNode", NodeID: id}
}

// NodeError wraps any lower-layer error with the node it failed on and,
// when tracing is enabled, the trace accumulated up to the point of
// failure (spec.md §4.7/§7).
type NodeError struct {
	NodeID string
	Source error
	Trace  any // map[string]*graph.TraceEntry, left untyped here to avoid an import cycle
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q failed: %v", e.NodeID, e.Source)
}
func (e *NodeError) Unwrap() error { return e.Source }
func (e *NodeError) Type() string  { return "nodeError" }
func (e *NodeError) MarshalJSON() ([]byte, error) {
	var sourceJSON any = e.Source
	if m, ok := e.Source.(json.Marshaler); ok {
		raw, err := m.MarshalJSON()
		if err == nil {
			sourceJSON = json.RawMessage(raw)
		}
	} else if e.Source != nil {
		sourceJSON = e.Source.Error()
	}
	return json.Marshal(struct {
		Type   string `json:"type"`
		NodeID string `json:"nodeId"`
		Source any    `json:"source"`
		Trace  any    `json:"trace,omitempty"`
	}{e.Type(), e.NodeID, sourceJSON, e.Trace})
}

func WrapNode(nodeID string, source error, trace any) *NodeError {
	return &NodeError{NodeID: nodeID, Source: source, Trace: trace}
}
