package handlers_test

import (
	"context"
	"testing"

	"github.com/ruleforge/engine/pkg/graph"
	"github.com/ruleforge/engine/pkg/handlers"
	"github.com/ruleforge/engine/pkg/variable"
)

func TestCustomHandlerDispatchesByKind(t *testing.T) {
	h := handlers.NewCustomHandler()
	h.Register("double", func(_ context.Context, _ variable.Variable, input variable.Variable, _ *graph.Eval) (variable.Variable, error) {
		n, _ := input.ObjectGet("n")
		return variable.Number(n.AsNumber().Mul(n.AsNumber())), nil
	})

	node := graph.Node{Content: graph.CustomContent{CustomKind: "double"}}
	input := variable.NewObject()
	input.ObjectSet("n", variable.NumberFromInt(4))

	res, err := h.Handle(context.Background(), node, input, &graph.Eval{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Output.AsNumber().IntPart() != 16 {
		t.Fatalf("got %v", res.Output.AsNumber())
	}
}

func TestCustomHandlerUnknownKindErrors(t *testing.T) {
	h := handlers.NewCustomHandler()
	node := graph.Node{Content: graph.CustomContent{CustomKind: "missing"}}
	if _, err := h.Handle(context.Background(), node, variable.Null, &graph.Eval{}); err == nil {
		t.Fatal("expected an error for an unregistered custom kind")
	}
}
