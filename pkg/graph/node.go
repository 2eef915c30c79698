// Package graph implements the decision-graph evaluator spec.md §4.7
// describes: a validated DAG of typed nodes, walked in dependency order by
// a worklist algorithm, with Switch-driven pruning and an optional trace.
package graph

import "github.com/ruleforge/engine/pkg/variable"

// Kind discriminates the eight node kinds spec.md §3/§4.7 name.
type Kind string

const (
	KindInput         Kind = "inputNode"
	KindOutput        Kind = "outputNode"
	KindExpression    Kind = "expressionNode"
	KindDecisionTable Kind = "decisionTableNode"
	KindFunction      Kind = "functionNode"
	KindDecision      Kind = "decisionNode"
	KindSwitch        Kind = "switchNode"
	KindCustom        Kind = "customNode"
)

// Node is one DecisionNode: `{id, name, kind}` plus a kind-specific content
// payload (spec.md §3/§6). Content is left as `any`; each node handler
// type-asserts the shape it expects (ExpressionContent, SwitchContent, …).
type Node struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Content any    `json:"content"`
}

// Edge is one DecisionEdge: `{id, source_id, target_id, source_handle?}`.
// SourceHandle is populated only for edges leaving a Switch node, matching
// one of its statement ids.
type Edge struct {
	ID            string `json:"id"`
	SourceID      string `json:"sourceId"`
	TargetID      string `json:"targetId"`
	SourceHandle  string `json:"sourceHandle,omitempty"`
}

// ExpressionContent is KindExpression's payload: a set of name→expression
// pairs evaluated in Standard mode against the node's merged input.
type ExpressionContent struct {
	Expressions map[string]string `json:"expressions"`
}

// HitPolicy selects how many Switch statements / DecisionTable rows may
// "win" (spec.md §4.7's First|Collect and Decision table's first|collect).
type HitPolicy string

const (
	HitFirst   HitPolicy = "first"
	HitCollect HitPolicy = "collect"
)

// SwitchStatement is one {id, condition} pair evaluated in Unary mode
// against the node's input.
type SwitchStatement struct {
	ID        string `json:"id"`
	Condition string `json:"condition"`
}

// SwitchContent is KindSwitch's payload.
type SwitchContent struct {
	HitPolicy  HitPolicy         `json:"hitPolicy"`
	Statements []SwitchStatement `json:"statements"`
}

// DecisionTableRow is one row: input expressions (Unary mode, all must be
// true) and output expressions (Standard mode, name→expression).
type DecisionTableRow struct {
	Inputs  map[string]string `json:"inputs"`
	Outputs map[string]string `json:"outputs"`
}

// DecisionTableContent is KindDecisionTable's payload.
type DecisionTableContent struct {
	HitPolicy HitPolicy           `json:"hitPolicy"`
	Rows      []DecisionTableRow  `json:"rows"`
}

// FunctionContent is KindFunction's payload: the code handed to the
// configured funcruntime.Runtime, with an optional per-node timeout
// override of the process-wide default.
type FunctionContent struct {
	Code           string `json:"code"`
	TimeoutMillis  int64  `json:"timeoutMillis,omitempty"`
}

// DecisionContent is KindDecision's payload: the id of a nested
// DecisionGraph (resolved by the caller-supplied Loader) to evaluate with
// this node's merged input.
type DecisionContent struct {
	GraphID string `json:"graphId"`
}

// CustomContent is KindCustom's payload: an opaque kind name plus
// arbitrary config, dispatched to a caller-registered handler.
type CustomContent struct {
	CustomKind string             `json:"customKind"`
	Config     variable.Variable `json:"config"`
}
