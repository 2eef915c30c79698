package handlers

import (
	"github.com/ruleforge/engine/pkg/funcruntime"
	"github.com/ruleforge/engine/pkg/graph"
)

// RegisterDefault wires every built-in node handler onto g, using rt as the
// Function node's funcruntime.Runtime. The returned *CustomHandler is
// exposed separately so callers can Register their own Custom node kinds
// before evaluating.
func RegisterDefault(g *graph.DecisionGraph, rt funcruntime.Runtime) *CustomHandler {
	g.RegisterHandler(graph.KindInput, Input())
	g.RegisterHandler(graph.KindOutput, Output())
	g.RegisterHandler(graph.KindExpression, NewExpressionHandler())
	g.RegisterHandler(graph.KindDecisionTable, NewDecisionTableHandler())
	g.RegisterHandler(graph.KindFunction, NewFunctionHandler(rt))
	g.RegisterHandler(graph.KindDecision, NewDecisionHandler())
	g.RegisterHandler(graph.KindSwitch, NewSwitchHandler())

	custom := NewCustomHandler()
	g.RegisterHandler(graph.KindCustom, custom)
	return custom
}
