package handlers

import (
	"context"
	"fmt"

	"github.com/ruleforge/engine/pkg/graph"
	"github.com/ruleforge/engine/pkg/isolate"
	"github.com/ruleforge/engine/pkg/rferrors"
	"github.com/ruleforge/engine/pkg/variable"
)

// SwitchHandler evaluates an ordered list of {id, condition} statements
// (Unary mode) against the node's input and reports which ids were chosen
// as graph.NodeResult.Handles; the walker prunes outgoing edges whose
// SourceHandle is not among them (spec.md §4.7).
type SwitchHandler struct {
	NewIsolate func() *isolate.Isolate
}

func NewSwitchHandler() *SwitchHandler {
	return &SwitchHandler{NewIsolate: isolate.New}
}

func (h *SwitchHandler) Handle(_ context.Context, n graph.Node, input variable.Variable, _ *graph.Eval) (graph.NodeResult, error) {
	content, ok := n.Content.(graph.SwitchContent)
	if !ok {
		return graph.NodeResult{}, &rferrors.VMError{Opcode: "switchNode", Message: "missing SwitchContent"}
	}

	iso := h.NewIsolate()
	iso.SetEnvironment(input)

	var chosen []string
	for _, stmt := range content.Statements {
		result, err := iso.RunUnary(stmt.Condition)
		if err != nil {
			return graph.NodeResult{}, fmt.Errorf("statement %q: %w", stmt.ID, err)
		}
		if result.AsBool() {
			chosen = append(chosen, stmt.ID)
			if content.HitPolicy != graph.HitCollect {
				break
			}
		}
	}
	return graph.NodeResult{Output: input, Handles: chosen}, nil
}
