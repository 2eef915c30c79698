package variable

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func TestArithmeticExactness(t *testing.T) {
	// 223_000.48 - 120_000_00 / 100 -> 103_000.48 (spec.md §8 scenario 1)
	a := decimal.RequireFromString("223000.48")
	b := decimal.RequireFromString("12000000").Div(decimal.RequireFromString("100"))
	got := Number(a.Sub(b))
	want := Number(decimal.RequireFromString("103000.48"))
	if !got.Equal(want) {
		t.Fatalf("got %s, want %s", got.AsNumber(), want.AsNumber())
	}
}

func TestDecimalExactnessOfPointOnesq(t *testing.T) {
	sum := decimal.RequireFromString("0.1").Add(decimal.RequireFromString("0.2"))
	if !sum.Equal(decimal.RequireFromString("0.3")) {
		t.Fatalf("0.1 + 0.2 should equal 0.3 exactly under fixed point, got %s", sum)
	}
}

func TestCloneIsShallowAndO1(t *testing.T) {
	arr := NewArray(NumberFromInt(1), NumberFromInt(2))
	clone := arr.Clone()
	clone.ArrayPush(NumberFromInt(3))
	if arr.Len() != 3 {
		t.Fatalf("shallow clone should share the backing array, got len %d", arr.Len())
	}
}

func TestDeepCloneSharesNothing(t *testing.T) {
	obj := NewObject()
	obj.ObjectSet("nested", NewArray(NumberFromInt(1)))
	deep := obj.DeepClone()
	nested, _ := deep.ObjectGet("nested")
	nested.ArrayPush(NumberFromInt(2))
	origNested, _ := obj.ObjectGet("nested")
	if origNested.Len() != 1 {
		t.Fatalf("deep clone must not share nested arrays, original len = %d", origNested.Len())
	}
}

func TestDepthCloneSharesBelowDepth(t *testing.T) {
	obj := NewObject()
	obj.ObjectSet("a", NewObject())
	inner, _ := obj.ObjectGet("a")
	inner.ObjectSet("b", NewArray(NumberFromInt(1)))

	shallow := obj.DepthClone(1)
	shallowInner, _ := shallow.ObjectGet("a")
	shallowB, _ := shallowInner.ObjectGet("b")
	shallowB.ArrayPush(NumberFromInt(2))

	origInner, _ := obj.ObjectGet("a")
	origB, _ := origInner.ObjectGet("b")
	if origB.Len() != 2 {
		t.Fatalf("DepthClone(1) should share state below depth 1, got len %d", origB.Len())
	}
}

func TestDotInsertThenDotRoundTrips(t *testing.T) {
	root := NewObject()
	root, err := DotInsert(root, "a.b.c", NumberFromInt(42))
	if err != nil {
		t.Fatal(err)
	}
	got := root.Dot("a.b.c")
	if got.AsNumber().IntPart() != 42 {
		t.Fatalf("dot_insert then dot should round-trip, got %v", got)
	}
}

func TestDotRemove(t *testing.T) {
	root := NewObject()
	root, _ = DotInsert(root, "a.b", String("x"))
	root = DotRemove(root, "a.b")
	if got := root.Dot("a.b"); !got.IsNull() {
		t.Fatalf("expected null after dot_remove, got %v", got)
	}
}

func TestMergeObjectDeepWithNullDeletes(t *testing.T) {
	base := NewObject()
	base.ObjectSet("keep", NumberFromInt(1))
	base.ObjectSet("drop", NumberFromInt(2))
	base.ObjectSet("nested", func() Variable {
		o := NewObject()
		o.ObjectSet("x", NumberFromInt(1))
		o.ObjectSet("y", NumberFromInt(2))
		return o
	}())

	patch := NewObject()
	patch.ObjectSet("drop", Null)
	nestedPatch := NewObject()
	nestedPatch.ObjectSet("y", NumberFromInt(99))
	patch.ObjectSet("nested", nestedPatch)

	merged := Merge(base, patch)
	if _, ok := merged.ObjectGet("drop"); ok {
		t.Fatalf("null patch value should delete key")
	}
	nested, _ := merged.ObjectGet("nested")
	x, _ := nested.ObjectGet("x")
	y, _ := nested.ObjectGet("y")
	if x.AsNumber().IntPart() != 1 || y.AsNumber().IntPart() != 99 {
		t.Fatalf("nested merge should keep x and overwrite y, got x=%v y=%v", x, y)
	}
}

func TestMergeArrayConcatenates(t *testing.T) {
	a := NewArray(NumberFromInt(1), NumberFromInt(2))
	b := NewArray(NumberFromInt(3))
	merged := Merge(a, b)
	if merged.Len() != 3 {
		t.Fatalf("array merge should concatenate, got len %d", merged.Len())
	}
}

func TestMergeIdempotentOnIdenticalObjects(t *testing.T) {
	o := NewObject()
	o.ObjectSet("a", NumberFromInt(1))
	merged := Merge(o, o)
	if diff := cmp.Diff(o.ToJSON(), merged.ToJSON()); diff != "" {
		t.Fatalf("merge(o,o) should equal o (-want +got):\n%s", diff)
	}
}

func TestMergeScalarReplaces(t *testing.T) {
	merged := Merge(NumberFromInt(1), String("x"))
	if !merged.IsString() || merged.AsString() != "x" {
		t.Fatalf("non object/array merge should replace, got %v", merged)
	}
}

func TestEqualCrossTypeIsFalseNotError(t *testing.T) {
	if NumberFromInt(1).Equal(String("1")) {
		t.Fatalf("cross-type equality must be false")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	v, err := ParseJSON([]byte(`{"a":1,"b":[1,2,3],"c":null,"d":"x"}`))
	if err != nil {
		t.Fatal(err)
	}
	data, err := v.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	var roundtrip Variable
	if err := roundtrip.UnmarshalJSON(data); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(v.ToJSON(), roundtrip.ToJSON()); diff != "" {
		t.Fatalf("JSON round trip mismatch (-want +got):\n%s", diff)
	}
}
