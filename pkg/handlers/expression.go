package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/ruleforge/engine/pkg/graph"
	"github.com/ruleforge/engine/pkg/isolate"
	"github.com/ruleforge/engine/pkg/rferrors"
	"github.com/ruleforge/engine/pkg/variable"
)

// ExpressionHandler runs each configured name→expression pair (Standard
// grammar) against the node's merged input, producing an Object of
// name→value (spec.md §4.7). On the first expression error it reports the
// failing key so callers can locate the broken rule.
type ExpressionHandler struct {
	// NewIsolate builds a fresh Isolate per invocation. Defaults to
	// isolate.New with no extra configuration.
	NewIsolate func() *isolate.Isolate
}

// NewExpressionHandler constructs an ExpressionHandler with isolate.New.
func NewExpressionHandler() *ExpressionHandler {
	return &ExpressionHandler{NewIsolate: isolate.New}
}

func (h *ExpressionHandler) Handle(_ context.Context, n graph.Node, input variable.Variable, _ *graph.Eval) (graph.NodeResult, error) {
	content, ok := n.Content.(graph.ExpressionContent)
	if !ok {
		return graph.NodeResult{}, &rferrors.VMError{Opcode: "expressionNode", Message: "missing ExpressionContent"}
	}

	iso := h.NewIsolate()
	iso.SetEnvironment(input)

	out := variable.NewObject()
	for _, key := range sortedKeys(content.Expressions) {
		v, err := iso.RunStandard(content.Expressions[key])
		if err != nil {
			return graph.NodeResult{}, fmt.Errorf("expression %q: %w", key, err)
		}
		out.ObjectSet(key, v)
	}
	return graph.NodeResult{Output: out}, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
