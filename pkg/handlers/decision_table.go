package handlers

import (
	"context"
	"fmt"

	"github.com/ruleforge/engine/pkg/graph"
	"github.com/ruleforge/engine/pkg/isolate"
	"github.com/ruleforge/engine/pkg/rferrors"
	"github.com/ruleforge/engine/pkg/variable"
)

// DecisionTableHandler iterates rows under a hit policy (spec.md §4.7):
// each row's input expressions are evaluated in Unary mode against the
// node's input and must all be true, with `$` bound per input column to the
// column key evaluated as a Standard expression against that input (column
// "age" with cell "> 18" tests age > 18); a matching row's output expressions
// are evaluated in Standard mode. HitFirst stops at the first matching row;
// HitCollect merges every matching row's outputs left to right.
type DecisionTableHandler struct {
	NewIsolate func() *isolate.Isolate
}

func NewDecisionTableHandler() *DecisionTableHandler {
	return &DecisionTableHandler{NewIsolate: isolate.New}
}

func (h *DecisionTableHandler) Handle(_ context.Context, n graph.Node, input variable.Variable, _ *graph.Eval) (graph.NodeResult, error) {
	content, ok := n.Content.(graph.DecisionTableContent)
	if !ok {
		return graph.NodeResult{}, &rferrors.VMError{Opcode: "decisionTableNode", Message: "missing DecisionTableContent"}
	}

	acc := variable.Null
	matched := 0
	for i, row := range content.Rows {
		ok, err := h.rowMatches(row, input)
		if err != nil {
			return graph.NodeResult{}, fmt.Errorf("row %d: %w", i, err)
		}
		if !ok {
			continue
		}
		matched++

		out, err := h.rowOutput(row, input)
		if err != nil {
			return graph.NodeResult{}, fmt.Errorf("row %d: %w", i, err)
		}
		if acc.IsNull() {
			acc = out
		} else {
			acc = variable.Merge(acc, out)
		}

		if content.HitPolicy != graph.HitCollect {
			break
		}
	}
	return graph.NodeResult{Output: acc, TraceData: map[string]any{"matchedRows": matched}}, nil
}

func (h *DecisionTableHandler) rowMatches(row graph.DecisionTableRow, input variable.Variable) (bool, error) {
	for _, key := range sortedKeys(row.Inputs) {
		iso := h.NewIsolate()
		// A one-level copy, so installing `$` does not write into input.
		iso.SetEnvironment(input.DepthClone(1))
		if err := iso.SetReference(key); err != nil {
			return false, fmt.Errorf("column %q: %w", key, err)
		}
		result, err := iso.RunUnary(row.Inputs[key])
		if err != nil {
			return false, fmt.Errorf("column %q: %w", key, err)
		}
		if !result.AsBool() {
			return false, nil
		}
	}
	return true, nil
}

func (h *DecisionTableHandler) rowOutput(row graph.DecisionTableRow, input variable.Variable) (variable.Variable, error) {
	iso := h.NewIsolate()
	iso.SetEnvironment(input)
	out := variable.NewObject()
	for _, key := range sortedKeys(row.Outputs) {
		v, err := iso.RunStandard(row.Outputs[key])
		if err != nil {
			return variable.Null, fmt.Errorf("column %q: %w", key, err)
		}
		out.ObjectSet(key, v)
	}
	return out, nil
}
