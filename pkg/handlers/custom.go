package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/ruleforge/engine/pkg/graph"
	"github.com/ruleforge/engine/pkg/rferrors"
	"github.com/ruleforge/engine/pkg/variable"
)

// CustomFunc is one caller-registered Custom node implementation, given the
// node's config Variable (graph.CustomContent.Config) and merged input.
type CustomFunc func(ctx context.Context, config variable.Variable, input variable.Variable, ev *graph.Eval) (variable.Variable, error)

// CustomHandler dispatches a customNode to a caller-registered handler by
// CustomContent.CustomKind (spec.md §4.7: "dispatches to a user-registered
// node kind with access to the extensions context").
type CustomHandler struct {
	mu       sync.RWMutex
	handlers map[string]CustomFunc
}

func NewCustomHandler() *CustomHandler {
	return &CustomHandler{handlers: map[string]CustomFunc{}}
}

// Register installs fn under customKind, overwriting any prior registration.
func (h *CustomHandler) Register(customKind string, fn CustomFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[customKind] = fn
}

func (h *CustomHandler) Handle(ctx context.Context, n graph.Node, input variable.Variable, ev *graph.Eval) (graph.NodeResult, error) {
	content, ok := n.Content.(graph.CustomContent)
	if !ok {
		return graph.NodeResult{}, &rferrors.VMError{Opcode: "customNode", Message: "missing CustomContent"}
	}

	h.mu.RLock()
	fn, ok := h.handlers[content.CustomKind]
	h.mu.RUnlock()
	if !ok {
		return graph.NodeResult{}, fmt.Errorf("custom node kind %q is not registered", content.CustomKind)
	}

	out, err := fn(ctx, content.Config, input, ev)
	if err != nil {
		return graph.NodeResult{}, err
	}
	return graph.NodeResult{Output: out}, nil
}
