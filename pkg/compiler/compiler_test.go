package compiler_test

import (
	"testing"

	"github.com/ruleforge/engine/pkg/ast"
	"github.com/ruleforge/engine/pkg/compiler"
	"github.com/ruleforge/engine/pkg/opcode"
	"github.com/ruleforge/engine/pkg/variable"
	"github.com/ruleforge/engine/pkg/vm"
)

func run(t *testing.T, n ast.Node, env variable.Variable) variable.Variable {
	t.Helper()
	prog := opcode.NewProgram()
	if err := compiler.Compile(n, prog); err != nil {
		t.Fatal(err)
	}
	m := vm.New(nil)
	result, err := m.Run(prog, env)
	if err != nil {
		t.Fatal(err)
	}
	return result
}

func TestCompileBinaryArithmetic(t *testing.T) {
	n := &ast.Binary{Op: ast.BinAdd, Left: &ast.NumberLit{Value: "2"}, Right: &ast.NumberLit{Value: "3"}}
	if got := run(t, n, variable.Null); got.AsNumber().String() != "5" {
		t.Fatalf("got %s", got.AsNumber().String())
	}
}

func TestCompileElvisEvaluatesConditionOnce(t *testing.T) {
	n := &ast.Conditional{
		Cond: &ast.Identifier{Name: "x"},
		Then: nil,
		Else: &ast.NumberLit{Value: "99"},
	}
	n.Then = n.Cond

	env := variable.NewObject()
	env.ObjectSet("x", variable.NumberFromInt(7))
	if got := run(t, n, env); got.AsNumber().IntPart() != 7 {
		t.Fatalf("got %v", got)
	}

	env2 := variable.NewObject()
	env2.ObjectSet("x", variable.Null)
	if got := run(t, n, env2); got.AsNumber().IntPart() != 99 {
		t.Fatalf("got %v", got)
	}
}

func TestCompileRejectsErrorNode(t *testing.T) {
	n := &ast.Binary{Op: ast.BinAdd, Left: &ast.Error{Message: "bad"}, Right: &ast.NumberLit{Value: "1"}}
	prog := opcode.NewProgram()
	if err := compiler.Compile(n, prog); err == nil {
		t.Fatal("expected an error for a tree containing *ast.Error")
	}
}

func TestCompileAndOrShortCircuit(t *testing.T) {
	and := &ast.Binary{Op: ast.BinAnd, Left: &ast.BoolLit{Value: false}, Right: &ast.NumberLit{Value: "1"}}
	if got := run(t, and, variable.Null); got.AsBool() != false {
		t.Fatalf("got %v", got)
	}

	or := &ast.Binary{Op: ast.BinOr, Left: &ast.BoolLit{Value: true}, Right: &ast.NumberLit{Value: "1"}}
	if got := run(t, or, variable.Null); got.AsBool() != true {
		t.Fatalf("got %v", got)
	}
}

func TestCompileMemberAccess(t *testing.T) {
	n := &ast.Member{
		Node:     &ast.Root{},
		Property: &ast.Identifier{Name: "name"},
		Computed: false,
	}
	env := variable.NewObject()
	root := variable.NewObject()
	root.ObjectSet("name", variable.String("ruleforge"))
	env.ObjectSet("$", root)
	if got := run(t, n, env); got.AsString() != "ruleforge" {
		t.Fatalf("got %v", got)
	}
}

func TestCompileArrayAndObjectLiterals(t *testing.T) {
	arr := &ast.ArrayLit{Items: []ast.Node{&ast.NumberLit{Value: "1"}, &ast.NumberLit{Value: "2"}}}
	got := run(t, arr, variable.Null)
	if !got.IsArray() || got.Len() != 2 {
		t.Fatalf("got %v", got)
	}

	obj := &ast.ObjectLit{Entries: []ast.ObjectEntry{
		{Key: &ast.Identifier{Name: "k"}, Value: &ast.StringLit{Value: "v"}},
	}}
	gotObj := run(t, obj, variable.Null)
	v, ok := gotObj.ObjectGet("k")
	if !ok || v.AsString() != "v" {
		t.Fatalf("got %v", gotObj)
	}
}
