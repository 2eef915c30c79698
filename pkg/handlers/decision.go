package handlers

import (
	"context"
	"fmt"

	"github.com/ruleforge/engine/pkg/graph"
	"github.com/ruleforge/engine/pkg/rferrors"
	"github.com/ruleforge/engine/pkg/variable"
)

// DecisionHandler invokes a nested DecisionGraph referenced by id,
// propagating trace, depth+1, and max_depth (spec.md §4.7). The nested
// graph is resolved through graph.Eval's Loader, set by whatever
// constructed the enclosing DecisionGraph (e.g. a document store keyed by
// graph id).
type DecisionHandler struct{}

func NewDecisionHandler() *DecisionHandler { return &DecisionHandler{} }

func (h *DecisionHandler) Handle(ctx context.Context, n graph.Node, input variable.Variable, ev *graph.Eval) (graph.NodeResult, error) {
	content, ok := n.Content.(graph.DecisionContent)
	if !ok {
		return graph.NodeResult{}, &rferrors.VMError{Opcode: "decisionNode", Message: "missing DecisionContent"}
	}
	if ev.Loader == nil {
		return graph.NodeResult{}, &rferrors.VMError{Opcode: "decisionNode", Message: "no graph loader configured"}
	}

	nested, err := ev.Loader(content.GraphID)
	if err != nil {
		return graph.NodeResult{}, fmt.Errorf("loading graph %q: %w", content.GraphID, err)
	}

	result, err := nested.EvaluateWith(ctx, input, graph.Options{
		Trace:    ev.Trace,
		Depth:    ev.Depth + 1,
		MaxDepth: ev.MaxDepth,
		Loader:   ev.Loader,
	})
	if err != nil {
		return graph.NodeResult{}, err
	}
	return graph.NodeResult{Output: result.Value, TraceData: result.Trace}, nil
}
