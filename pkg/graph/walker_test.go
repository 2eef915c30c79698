package graph_test

import (
	"context"
	"testing"

	"github.com/ruleforge/engine/pkg/graph"
	"github.com/ruleforge/engine/pkg/isolate"
	"github.com/ruleforge/engine/pkg/variable"
)

func passthroughHandler() graph.Handler {
	return graph.HandlerFunc(func(_ context.Context, _ graph.Node, input variable.Variable, _ *graph.Eval) (graph.NodeResult, error) {
		return graph.NodeResult{Output: input}, nil
	})
}

func expressionHandler() graph.Handler {
	return graph.HandlerFunc(func(_ context.Context, n graph.Node, input variable.Variable, _ *graph.Eval) (graph.NodeResult, error) {
		content := n.Content.(graph.ExpressionContent)
		iso := isolate.New()
		iso.SetEnvironment(input)
		out := variable.NewObject()
		for key, expr := range content.Expressions {
			v, err := iso.RunStandard(expr)
			if err != nil {
				return graph.NodeResult{}, err
			}
			out.ObjectSet(key, v)
		}
		return graph.NodeResult{Output: out}, nil
	})
}

func switchHandler() graph.Handler {
	return graph.HandlerFunc(func(_ context.Context, n graph.Node, input variable.Variable, _ *graph.Eval) (graph.NodeResult, error) {
		content := n.Content.(graph.SwitchContent)
		iso := isolate.New()
		iso.SetEnvironment(input)
		var chosen []string
		for _, stmt := range content.Statements {
			result, err := iso.RunUnary(stmt.Condition)
			if err != nil {
				return graph.NodeResult{}, err
			}
			if result.AsBool() {
				chosen = append(chosen, stmt.ID)
				if content.HitPolicy == graph.HitFirst {
					break
				}
			}
		}
		return graph.NodeResult{Output: input, Handles: chosen}, nil
	})
}

func TestGraphHappyPath(t *testing.T) {
	nodes := []graph.Node{
		{ID: "in", Name: "in", Kind: graph.KindInput},
		{ID: "expr", Name: "expr", Kind: graph.KindExpression, Content: graph.ExpressionContent{
			Expressions: map[string]string{"doubled": "input * 2"},
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
	g.RegisterHandler(graph.KindInput, passthroughHandler())
	g.RegisterHandler(graph.KindExpression, expressionHandler())
	g.RegisterHandler(graph.KindOutput, passthroughHandler())

	input := variable.NewObject()
	input.ObjectSet("input", variable.NumberFromInt(21))

	result, err := g.Evaluate(context.Background(), input, false)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := result.Value.ObjectGet("doubled")
	if !ok || got.AsNumber().IntPart() != 42 {
		t.Fatalf("got %#v", result.Value)
	}
}

func TestGraphCycleRejected(t *testing.T) {
	nodes := []graph.Node{
		{ID: "in", Name: "in", Kind: graph.KindInput},
		{ID: "a", Name: "a", Kind: graph.KindExpression, Content: graph.ExpressionContent{}},
		{ID: "b", Name: "b", Kind: graph.KindExpression, Content: graph.ExpressionContent{}},
	}
	edges := []graph.Edge{
		{ID: "e1", SourceID: "a", TargetID: "b"},
		{ID: "e2", SourceID: "b", TargetID: "a"},
	}
	_, err := graph.New(nodes, edges)
	if err == nil {
		t.Fatal("expected a cyclicGraph validation error")
	}
}

func TestGraphSwitchPruning(t *testing.T) {
	nodes := []graph.Node{
		{ID: "in", Name: "in", Kind: graph.KindInput},
		{ID: "sw", Name: "sw", Kind: graph.KindSwitch, Content: graph.SwitchContent{
			HitPolicy: graph.HitFirst,
			Statements: []graph.SwitchStatement{
				{ID: "pos", Condition: "x > 0"},
				{ID: "neg", Condition: "x <= 0"},
			},
		}},
		{ID: "branchA", Name: "branchA", Kind: graph.KindExpression, Content: graph.ExpressionContent{
			Expressions: map[string]string{"branch": `"A"`},
		}},
		{ID: "branchB", Name: "branchB", Kind: graph.KindExpression, Content: graph.ExpressionContent{
			Expressions: map[string]string{"branch": `"B"`},
		}},
		{ID: "out", Name: "out", Kind: graph.KindOutput},
	}
	edges := []graph.Edge{
		{ID: "e1", SourceID: "in", TargetID: "sw"},
		{ID: "e2", SourceID: "sw", TargetID: "branchB", SourceHandle: "pos"},
		{ID: "e3", SourceID: "sw", TargetID: "branchA", SourceHandle: "neg"},
		{ID: "e4", SourceID: "branchA", TargetID: "out"},
		{ID: "e5", SourceID: "branchB", TargetID: "out"},
	}
	g, err := graph.New(nodes, edges)
	if err != nil {
		t.Fatal(err)
	}
	g.RegisterHandler(graph.KindInput, passthroughHandler())
	g.RegisterHandler(graph.KindSwitch, switchHandler())
	g.RegisterHandler(graph.KindExpression, expressionHandler())
	g.RegisterHandler(graph.KindOutput, passthroughHandler())

	input := variable.NewObject()
	input.ObjectSet("x", variable.NumberFromInt(-1))

	result, err := g.Evaluate(context.Background(), input, true)
	if err != nil {
		t.Fatal(err)
	}
	got, ok := result.Value.ObjectGet("branch")
	if !ok || got.AsString() != "A" {
		t.Fatalf("got %#v", result.Value)
	}
	if _, sawB := result.Trace["branchB"]; sawB {
		t.Fatal("expected branchB to be pruned, not executed")
	}
	if order := len(result.Trace); order == 0 {
		t.Fatal("expected a non-empty trace")
	}
}
