package handlers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ruleforge/engine/pkg/graph"
	"github.com/ruleforge/engine/pkg/handlers"
	"github.com/ruleforge/engine/pkg/variable"
)

type stubRuntime struct {
	out variable.Variable
	err error
}

func (s stubRuntime) Invoke(_ context.Context, _ string, _ variable.Variable, _ time.Time) (variable.Variable, error) {
	return s.out, s.err
}

func TestFunctionHandlerReturnsRuntimeOutput(t *testing.T) {
	want := variable.NumberFromInt(7)
	h := handlers.NewFunctionHandler(stubRuntime{out: want})
	node := graph.Node{Content: graph.FunctionContent{Code: "whatever"}}

	res, err := h.Handle(context.Background(), node, variable.Null, &graph.Eval{})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Output.Equal(want) {
		t.Fatalf("got %v", res.Output)
	}
}

func TestFunctionHandlerWrapsRuntimeError(t *testing.T) {
	h := handlers.NewFunctionHandler(stubRuntime{err: errors.New("boom")})
	node := graph.Node{Content: graph.FunctionContent{Code: "whatever"}}

	if _, err := h.Handle(context.Background(), node, variable.Null, &graph.Eval{}); err == nil {
		t.Fatal("expected an error")
	}
}
