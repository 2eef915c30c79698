package handlers_test

import (
	"context"
	"testing"

	"github.com/ruleforge/engine/pkg/graph"
	"github.com/ruleforge/engine/pkg/handlers"
	"github.com/ruleforge/engine/pkg/variable"
)

func buildDoublerGraph(t *testing.T) *graph.DecisionGraph {
	t.Helper()
	nodes := []graph.Node{
		{ID: "in", Name: "in", Kind: graph.KindInput},
		{ID: "expr", Name: "expr", Kind: graph.KindExpression, Content: graph.ExpressionContent{
			Expressions: map[string]string{"doubled": "n * 2"},
		}},
		{ID: "out", Name: "out", Kind: graph.KindOutput},
	}
	edges := []graph.Edge{
		{ID: "e1", SourceID: "in", TargetID: "expr"},
		{ID: "e2", SourceID: "expr", TargetID: "out"},
	}
	g, err := graph.New(nodes, edges)
	if err != nil {
		t.Fatal(err)
	}
	g.RegisterHandler(graph.KindInput, handlers.Input())
	g.RegisterHandler(graph.KindExpression, handlers.NewExpressionHandler())
	g.RegisterHandler(graph.KindOutput, handlers.Output())
	return g
}

func TestDecisionHandlerInvokesNestedGraph(t *testing.T) {
	nested := buildDoublerGraph(t)

	h := handlers.NewDecisionHandler()
	node := graph.Node{Content: graph.DecisionContent{GraphID: "doubler"}}
	input := variable.NewObject()
	input.ObjectSet("n", variable.NumberFromInt(10))

	ev := &graph.Eval{
		MaxDepth: graph.DefaultMaxDepth,
		Loader: func(id string) (*graph.DecisionGraph, error) {
			if id != "doubler" {
				t.Fatalf("unexpected graph id %q", id)
			}
			return nested, nil
		},
	}

	res, err := h.Handle(context.Background(), node, input, ev)
	if err != nil {
		t.Fatal(err)
	}
	doubled, ok := res.Output.ObjectGet("doubled")
	if !ok || doubled.AsNumber().IntPart() != 20 {
		t.Fatalf("got %#v", res.Output)
	}
}

func TestDecisionHandlerRequiresLoader(t *testing.T) {
	h := handlers.NewDecisionHandler()
	node := graph.Node{Content: graph.DecisionContent{GraphID: "doubler"}}
	if _, err := h.Handle(context.Background(), node, variable.Null, &graph.Eval{}); err == nil {
		t.Fatal("expected an error when no Loader is configured")
	}
}
