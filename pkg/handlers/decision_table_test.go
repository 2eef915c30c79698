package handlers_test

import (
	"context"
	"testing"

	"github.com/ruleforge/engine/pkg/graph"
	"github.com/ruleforge/engine/pkg/handlers"
	"github.com/ruleforge/engine/pkg/variable"
)

func TestDecisionTableFirstHitPolicy(t *testing.T) {
	h := handlers.NewDecisionTableHandler()
	node := graph.Node{Content: graph.DecisionTableContent{
		HitPolicy: graph.HitFirst,
		Rows: []graph.DecisionTableRow{
			{Inputs: map[string]string{"age": "< 18"}, Outputs: map[string]string{"tier": `"minor"`}},
			{Inputs: map[string]string{"age": ">= 18"}, Outputs: map[string]string{"tier": `"adult"`}},
		},
	}}

	input := variable.NewObject()
	input.ObjectSet("age", variable.NumberFromInt(25))

	res, err := h.Handle(context.Background(), node, input, nil)
	if err != nil {
		t.Fatal(err)
	}
	tier, ok := res.Output.ObjectGet("tier")
	if !ok || tier.AsString() != "adult" {
		t.Fatalf("got %#v", res.Output)
	}
}

func TestDecisionTableCollectHitPolicyMerges(t *testing.T) {
	h := handlers.NewDecisionTableHandler()
	node := graph.Node{Content: graph.DecisionTableContent{
		HitPolicy: graph.HitCollect,
		Rows: []graph.DecisionTableRow{
			{Inputs: map[string]string{}, Outputs: map[string]string{"a": "1"}},
			{Inputs: map[string]string{}, Outputs: map[string]string{"b": "2"}},
		},
	}}

	res, err := h.Handle(context.Background(), node, variable.NewObject(), nil)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := res.Output.ObjectGet("a")
	b, _ := res.Output.ObjectGet("b")
	if a.AsNumber().IntPart() != 1 || b.AsNumber().IntPart() != 2 {
		t.Fatalf("got %#v", res.Output)
	}
}

func TestSwitchHandlerFirstPolicy(t *testing.T) {
	h := handlers.NewSwitchHandler()
	node := graph.Node{Content: graph.SwitchContent{
		HitPolicy: graph.HitFirst,
		Statements: []graph.SwitchStatement{
			{ID: "pos", Condition: "x > 0"},
			{ID: "neg", Condition: "x <= 0"},
		},
	}}
	input := variable.NewObject()
	input.ObjectSet("x", variable.NumberFromInt(5))

	res, err := h.Handle(context.Background(), node, input, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Handles) != 1 || res.Handles[0] != "pos" {
		t.Fatalf("got %#v", res.Handles)
	}
}
