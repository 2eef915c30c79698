package graph

import (
	"context"

	"github.com/ruleforge/engine/pkg/variable"
)

// NodeResult is what a Handler returns for one node evaluation: the node's
// output Variable plus, for Switch nodes only, which outgoing source
// handles were selected. Handles is nil for every non-Switch kind, meaning
// "no pruning — every outgoing edge stays live".
type NodeResult struct {
	Output  variable.Variable
	Handles []string

	// TraceData is kind-specific detail attached to this node's trace
	// entry when tracing is enabled (e.g. a DecisionTable's matched row
	// indices). Nil when the node has nothing extra to report.
	TraceData any
}

// Handler evaluates one node kind. Handlers are registered on a
// DecisionGraph by Kind; pkg/handlers supplies the concrete
// implementations, keeping this package free of any dependency on
// pkg/isolate or pkg/funcruntime.
type Handler interface {
	Handle(ctx context.Context, n Node, input variable.Variable, eval *Eval) (NodeResult, error)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, n Node, input variable.Variable, eval *Eval) (NodeResult, error)

func (f HandlerFunc) Handle(ctx context.Context, n Node, input variable.Variable, eval *Eval) (NodeResult, error) {
	return f(ctx, n, input, eval)
}
