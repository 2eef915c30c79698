package vm_test

import (
	"testing"

	"github.com/ruleforge/engine/pkg/opcode"
	"github.com/ruleforge/engine/pkg/variable"
	"github.com/ruleforge/engine/pkg/vm"
)

func numConst(p *opcode.Program, s string) int {
	return p.AddConst(opcode.NumberLiteral(s))
}

func TestRunArithmetic(t *testing.T) {
	p := opcode.NewProgram()
	left := numConst(p, "2")
	right := numConst(p, "3")
	p.Emit(opcode.Push, left)
	p.Emit(opcode.Push, right)
	p.Emit(opcode.Add, 0)

	m := vm.New(nil)
	result, err := m.Run(p, variable.Null)
	if err != nil {
		t.Fatal(err)
	}
	if result.AsNumber().String() != "5" {
		t.Fatalf("got %s", result.AsNumber().String())
	}
}

func TestRunDivideByZero(t *testing.T) {
	p := opcode.NewProgram()
	left := numConst(p, "1")
	right := numConst(p, "0")
	p.Emit(opcode.Push, left)
	p.Emit(opcode.Push, right)
	p.Emit(opcode.Divide, 0)

	m := vm.New(nil)
	if _, err := m.Run(p, variable.Null); err == nil {
		t.Fatal("expected a division-by-zero error")
	}
}

func TestRunFetchEnv(t *testing.T) {
	p := opcode.NewProgram()
	name := p.AddConst("x")
	p.Emit(opcode.FetchEnv, name)

	env := variable.NewObject()
	env.ObjectSet("x", variable.NumberFromInt(42))

	m := vm.New(nil)
	result, err := m.Run(p, env)
	if err != nil {
		t.Fatal(err)
	}
	if result.AsNumber().IntPart() != 42 {
		t.Fatalf("got %v", result)
	}
}

func TestRunOperandStackUnderflow(t *testing.T) {
	p := opcode.NewProgram()
	p.Emit(opcode.Pop, 0)

	m := vm.New(nil)
	if _, err := m.Run(p, variable.Null); err == nil {
		t.Fatal("expected an operand stack underflow error")
	}
}

func TestRunLeavesMoreThanOneValueIsAnError(t *testing.T) {
	p := opcode.NewProgram()
	p.Emit(opcode.Push, numConst(p, "1"))
	p.Emit(opcode.Push, numConst(p, "2"))

	m := vm.New(nil)
	if _, err := m.Run(p, variable.Null); err == nil {
		t.Fatal("expected an error for a program that leaves 2 values on the stack")
	}
}

type callResolverFunc func(name string, args []variable.Variable) (variable.Variable, error)

func (f callResolverFunc) Call(name string, args []variable.Variable) (variable.Variable, error) {
	return f(name, args)
}

func TestRunCallDispatchesToResolver(t *testing.T) {
	p := opcode.NewProgram()
	arg := numConst(p, "10")
	p.Emit(opcode.Push, arg)
	spec := p.AddConst(opcode.CallSpec{Name: "double", Argc: 1})
	p.Emit(opcode.Call, spec)

	resolver := callResolverFunc(func(name string, args []variable.Variable) (variable.Variable, error) {
		if name != "double" {
			t.Fatalf("unexpected call to %q", name)
		}
		return variable.Number(args[0].AsNumber().Add(args[0].AsNumber())), nil
	})

	m := vm.New(resolver)
	result, err := m.Run(p, variable.Null)
	if err != nil {
		t.Fatal(err)
	}
	if result.AsNumber().IntPart() != 20 {
		t.Fatalf("got %v", result)
	}
}

func TestRunComprehensionFrame(t *testing.T) {
	p := opcode.NewProgram()
	arr := p.AddConst(opcode.NumberLiteral("0")) // placeholder, unused directly
	_ = arr

	items := variable.NewArray(variable.NumberFromInt(1), variable.NumberFromInt(2), variable.NumberFromInt(3))
	env := variable.NewObject()
	env.ObjectSet("items", items)

	name := p.AddConst("items")
	p.Emit(opcode.FetchEnv, name)
	p.Emit(opcode.Begin, 0)
	p.Emit(opcode.GetLen, 0)

	m := vm.New(nil)
	result, err := m.Run(p, env)
	if err != nil {
		t.Fatal(err)
	}
	if result.AsNumber().IntPart() != 3 {
		t.Fatalf("got %v", result)
	}
}
