package handlers

import (
	"context"
	"time"

	"github.com/ruleforge/engine/pkg/config"
	"github.com/ruleforge/engine/pkg/funcruntime"
	"github.com/ruleforge/engine/pkg/graph"
	"github.com/ruleforge/engine/pkg/rferrors"
	"github.com/ruleforge/engine/pkg/variable"
)

// FunctionHandler hands the node's input to a configured funcruntime.Runtime
// (spec.md §4.7/§6): send input, receive an Output Variable within a
// deadline; on timeout or error the node fails. The deadline is the node's
// own FunctionContent.TimeoutMillis when set, else the process-wide
// config.Config.FunctionTimeout.
type FunctionHandler struct {
	Runtime funcruntime.Runtime
}

func NewFunctionHandler(rt funcruntime.Runtime) *FunctionHandler {
	return &FunctionHandler{Runtime: rt}
}

func (h *FunctionHandler) Handle(ctx context.Context, n graph.Node, input variable.Variable, _ *graph.Eval) (graph.NodeResult, error) {
	content, ok := n.Content.(graph.FunctionContent)
	if !ok {
		return graph.NodeResult{}, &rferrors.VMError{Opcode: "functionNode", Message: "missing FunctionContent"}
	}

	timeout := config.Current().FunctionTimeout
	if content.TimeoutMillis > 0 {
		timeout = time.Duration(content.TimeoutMillis) * time.Millisecond
	}
	deadline := time.Now().Add(timeout)

	out, err := h.Runtime.Invoke(ctx, content.Code, input, deadline)
	if err != nil {
		return graph.NodeResult{}, &rferrors.VMError{Opcode: "functionNode", Message: err.Error()}
	}
	return graph.NodeResult{Output: out}, nil
}
