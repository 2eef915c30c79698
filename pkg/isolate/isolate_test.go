package isolate

import (
	"testing"

	"github.com/ruleforge/engine/pkg/variable"
)

func TestArithmeticExactness(t *testing.T) {
	iso := New()
	result, err := iso.RunStandard("223_000.48 - 120_000_00 / 100")
	if err != nil {
		t.Fatal(err)
	}
	want, _ := variable.NumberFromString("103000.48")
	if !result.Equal(want) {
		t.Fatalf("got %v want %v", result.AsNumber(), want.AsNumber())
	}
}

func TestDecimalExactness(t *testing.T) {
	iso := New()
	result, err := iso.RunStandard("0.1 + 0.2 == 0.3")
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsBool() || !result.AsBool() {
		t.Fatalf("expected 0.1+0.2==0.3 to hold exactly, got %#v", result)
	}
}

func TestShortCircuitAvoidsDivideByZero(t *testing.T) {
	iso := New()
	env := variable.NewObject()
	env.ObjectSet("a", variable.Bool(false))
	iso.SetEnvironment(env)
	result, err := iso.RunStandard("a and (1/0 == 0)")
	if err != nil {
		t.Fatalf("short-circuit should avoid the division: %v", err)
	}
	if !result.IsBool() || result.AsBool() {
		t.Fatalf("got %#v, want false", result)
	}
}

func TestUnaryTableCell(t *testing.T) {
	iso := New()
	if err := iso.SetReference("300"); err != nil {
		t.Fatal(err)
	}
	result, err := iso.RunUnary("> 250, < 350, == 300")
	if err != nil {
		t.Fatal(err)
	}
	if !result.AsBool() {
		t.Fatalf("expected true, got %#v", result)
	}
}

func TestIntervalSemantics(t *testing.T) {
	iso := New()
	cases := []struct {
		expr string
		want bool
	}{
		{"1 in [1..5]", true},
		{"1 in (1..5]", false},
		{"5 in [1..5)", false},
	}
	for _, c := range cases {
		result, err := iso.RunStandard(c.expr)
		if err != nil {
			t.Fatalf("%s: %v", c.expr, err)
		}
		if result.AsBool() != c.want {
			t.Fatalf("%s: got %v want %v", c.expr, result.AsBool(), c.want)
		}
	}
}

func TestTemplateStringCoercion(t *testing.T) {
	iso := New()
	env := variable.NewObject()
	env.ObjectSet("name", variable.String("Ada"))
	env.ObjectSet("n", variable.NumberFromInt(3))
	iso.SetEnvironment(env)
	result, err := iso.RunStandard("`${name} #${n}`")
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsString() || result.AsString() != "Ada #3" {
		t.Fatalf("got %#v", result)
	}
}

func TestSetReferenceCachesByExpression(t *testing.T) {
	iso := New()
	if err := iso.SetReference("1 + 1"); err != nil {
		t.Fatal(err)
	}
	result, err := iso.RunStandard("$")
	if err != nil {
		t.Fatal(err)
	}
	want, _ := variable.NumberFromString("2")
	if !result.Equal(want) {
		t.Fatalf("got %v want %v", result, want)
	}
}

func TestRunUnaryRequiresBoolResult(t *testing.T) {
	iso := New()
	if err := iso.SetReference("1"); err != nil {
		t.Fatal(err)
	}
	if _, err := iso.RunUnary("$ + 1"); err == nil {
		t.Fatal("expected a ValueCastError: `$ + 1` evaluates to a number, not a bool")
	}
}

func TestComprehensionAllSomeFilterMap(t *testing.T) {
	iso := New()
	env := variable.NewObject()
	items := variable.NewArray(variable.NumberFromInt(1), variable.NumberFromInt(2), variable.NumberFromInt(3))
	env.ObjectSet("items", items)
	iso.SetEnvironment(env)

	all, err := iso.RunStandard("all(items, # > 0)")
	if err != nil {
		t.Fatal(err)
	}
	if !all.AsBool() {
		t.Fatalf("expected all > 0, got %#v", all)
	}

	some, err := iso.RunStandard("some(items, # > 2)")
	if err != nil {
		t.Fatal(err)
	}
	if !some.AsBool() {
		t.Fatalf("expected some > 2, got %#v", some)
	}

	filtered, err := iso.RunStandard("filter(items, # > 1)")
	if err != nil {
		t.Fatal(err)
	}
	if filtered.Len() != 2 {
		t.Fatalf("expected 2 items after filter, got %d", filtered.Len())
	}

	mapped, err := iso.RunStandard("map(items, # * 2)")
	if err != nil {
		t.Fatal(err)
	}
	if mapped.Len() != 3 || mapped.ArrayGet(0).AsNumber().IntPart() != 2 {
		t.Fatalf("got %#v", mapped)
	}
}

func TestFunctionCall(t *testing.T) {
	iso := New()
	result, err := iso.RunStandard(`upper("ada")`)
	if err != nil {
		t.Fatal(err)
	}
	if result.AsString() != "ADA" {
		t.Fatalf("got %q", result.AsString())
	}
}
