// Package handlers implements the typed node handlers spec.md §4.7 names:
// Input, Output, Expression, DecisionTable, Function, Decision, Switch, and
// Custom. Each handler is a graph.Handler, wiring graph.Node content
// payloads to pkg/isolate and pkg/funcruntime without graph itself knowing
// about either package.
package handlers

import (
	"context"

	"github.com/ruleforge/engine/pkg/graph"
	"github.com/ruleforge/engine/pkg/variable"
)

// Input assigns the top-level evaluation input as the node's output
// (spec.md §4.7). The walker already resolves an Input node's merged
// input to the top-level value, so this handler only needs to echo it.
func Input() graph.Handler {
	return graph.HandlerFunc(func(_ context.Context, _ graph.Node, input variable.Variable, _ *graph.Eval) (graph.NodeResult, error) {
		return graph.NodeResult{Output: input}, nil
	})
}

// Output terminates evaluation; its input becomes the evaluation result
// (the walker reads this directly off the node's merged input, so the
// handler's own output is only used if an Output node somehow has a
// successor, which a well-formed document never has).
func Output() graph.Handler {
	return graph.HandlerFunc(func(_ context.Context, _ graph.Node, input variable.Variable, _ *graph.Eval) (graph.NodeResult, error) {
		return graph.NodeResult{Output: input}, nil
	})
}
