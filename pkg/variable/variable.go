// Package variable implements the engine's universal tagged value, Variable.
//
// Variable is an interior-mutable tagged union. Arrays and Objects carry
// shared bodies so cloning a Variable is O(1) — it copies the tag and the
// pointer to the shared body (there is no refcount; Go's GC keeps the body
// alive) rather than copying the underlying sequence or mapping. Numbers are arbitrary-precision fixed-point
// decimals (never IEEE floats) so monetary and business-rule arithmetic stays
// exact.
package variable

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Kind tags the active alternative of a Variable.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// arrayBody is the shared, interior-mutable backing store for Array
// Variables. Multiple Variable values may point at the same body; callers
// within a single evaluation share ownership the way the spec requires.
type arrayBody struct {
	items []Variable
}

// objectBody is the shared, interior-mutable backing store for Object
// Variables. Insertion order is tracked because it is cheap and some callers
// (traces, template rendering) find it convenient, but no operation in this
// package depends on it.
type objectBody struct {
	keys   []string
	values map[string]Variable
}

// Variable is the universal value used across the expression engine and the
// decision graph. The zero Variable is Null.
type Variable struct {
	kind Kind
	b    bool
	n    decimal.Decimal
	s    string
	arr  *arrayBody
	obj  *objectBody
}

// Null is the canonical null Variable.
var Null = Variable{kind: KindNull}

// Bool constructs a Bool Variable.
func Bool(v bool) Variable { return Variable{kind: KindBool, b: v} }

// Number constructs a Number Variable from a decimal.Decimal.
func Number(v decimal.Decimal) Variable { return Variable{kind: KindNumber, n: v} }

// NumberFromInt constructs a Number Variable from an int64.
func NumberFromInt(v int64) Variable { return Variable{kind: KindNumber, n: decimal.NewFromInt(v)} }

// NumberFromString parses a Number Variable, trimming whitespace the way
// spec.md §4.4's String→Number conversion does.
func NumberFromString(s string) (Variable, error) {
	d, err := decimal.NewFromString(trimSpace(s))
	if err != nil {
		return Null, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Variable{kind: KindNumber, n: d}, nil
}

// String constructs a String Variable.
func String(v string) Variable { return Variable{kind: KindString, s: v} }

// NewArray constructs an Array Variable owning a fresh body seeded with items.
func NewArray(items ...Variable) Variable {
	cp := make([]Variable, len(items))
	copy(cp, items)
	return Variable{kind: KindArray, arr: &arrayBody{items: cp}}
}

// NewObject constructs an empty Object Variable.
func NewObject() Variable {
	return Variable{kind: KindObject, obj: &objectBody{values: map[string]Variable{}}}
}

func trimSpace(s string) string {
	i, j := 0, len(s)
	for i < j && isSpace(s[i]) {
		i++
	}
	for j > i && isSpace(s[j-1]) {
		j--
	}
	return s[i:j]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

// Kind returns the active alternative.
func (v Variable) Kind() Kind { return v.kind }

func (v Variable) IsNull() bool   { return v.kind == KindNull }
func (v Variable) IsBool() bool   { return v.kind == KindBool }
func (v Variable) IsNumber() bool { return v.kind == KindNumber }
func (v Variable) IsString() bool { return v.kind == KindString }
func (v Variable) IsArray() bool  { return v.kind == KindArray }
func (v Variable) IsObject() bool { return v.kind == KindObject }

// AsBool returns the boolean payload; callers must check IsBool first.
func (v Variable) AsBool() bool { return v.b }

// AsNumber returns the decimal payload; callers must check IsNumber first.
func (v Variable) AsNumber() decimal.Decimal { return v.n }

// AsString returns the string payload; callers must check IsString first.
func (v Variable) AsString() string { return v.s }

// Len returns the element/key count for Array, String, and Object; 0
// otherwise (the VM's Slice opcode uses it for both Arrays and Strings).
func (v Variable) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr.items)
	case KindObject:
		return len(v.obj.keys)
	case KindString:
		return len([]rune(v.s))
	default:
		return 0
	}
}

// ArrayItems returns the backing slice of an Array Variable. The slice is
// shared with the Variable's body; callers must not retain it across a
// mutation of the same Array.
func (v Variable) ArrayItems() []Variable {
	if v.kind != KindArray {
		return nil
	}
	return v.arr.items
}

// ArrayGet returns element i of an Array, or Null if out of range.
func (v Variable) ArrayGet(i int) Variable {
	if v.kind != KindArray || i < 0 || i >= len(v.arr.items) {
		return Null
	}
	return v.arr.items[i]
}

// ArrayPush appends to the shared Array body in place.
func (v Variable) ArrayPush(item Variable) {
	if v.kind != KindArray {
		return
	}
	v.arr.items = append(v.arr.items, item)
}

// ArraySlice returns a new Array Variable (fresh body) over [from, to).
func (v Variable) ArraySlice(from, to int) Variable {
	if v.kind != KindArray {
		return NewArray()
	}
	n := len(v.arr.items)
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	if from >= to {
		return NewArray()
	}
	return NewArray(v.arr.items[from:to]...)
}

// ObjectKeys returns the insertion-ordered key list of an Object Variable.
func (v Variable) ObjectKeys() []string {
	if v.kind != KindObject {
		return nil
	}
	return v.obj.keys
}

// ObjectGet looks up a key; returns (Null, false) when absent, and (value,
// true) when present even if value is itself Null — object nulls are
// semantically present per spec.md §3.
func (v Variable) ObjectGet(key string) (Variable, bool) {
	if v.kind != KindObject {
		return Null, false
	}
	val, ok := v.obj.values[key]
	return val, ok
}

// ObjectSet inserts or overwrites a key on the shared Object body in place.
func (v Variable) ObjectSet(key string, val Variable) {
	if v.kind != KindObject {
		return
	}
	if _, exists := v.obj.values[key]; !exists {
		v.obj.keys = append(v.obj.keys, key)
	}
	v.obj.values[key] = val
}

// ObjectDelete removes a key from the shared Object body in place.
func (v Variable) ObjectDelete(key string) {
	if v.kind != KindObject {
		return
	}
	if _, exists := v.obj.values[key]; !exists {
		return
	}
	delete(v.obj.values, key)
	for i, k := range v.obj.keys {
		if k == key {
			v.obj.keys = append(v.obj.keys[:i], v.obj.keys[i+1:]...)
			break
		}
	}
}

// Clone is the O(1) shallow clone spec.md §3 requires: it shares the Array
// or Object body (bumping no separate refcount field since Go's GC already
// keeps the body alive for as long as any Variable points at it) and copies
// scalars by value.
func (v Variable) Clone() Variable { return v }

// DeepClone recursively copies Array/Object bodies so the result shares no
// mutable state with v.
func (v Variable) DeepClone() Variable {
	return v.depthClone(-1)
}

// DepthClone deep-copies only the top k levels; beyond depth k, nested
// Array/Object bodies are shared (shallow) with the original.
func (v Variable) DepthClone(k int) Variable {
	return v.depthClone(k)
}

func (v Variable) depthClone(k int) Variable {
	switch v.kind {
	case KindArray:
		if k == 0 {
			return v
		}
		next := k - 1
		items := make([]Variable, len(v.arr.items))
		for i, it := range v.arr.items {
			items[i] = it.depthClone(next)
		}
		return Variable{kind: KindArray, arr: &arrayBody{items: items}}
	case KindObject:
		if k == 0 {
			return v
		}
		next := k - 1
		keys := make([]string, len(v.obj.keys))
		copy(keys, v.obj.keys)
		values := make(map[string]Variable, len(v.obj.values))
		for key, val := range v.obj.values {
			values[key] = val.depthClone(next)
		}
		return Variable{kind: KindObject, obj: &objectBody{keys: keys, values: values}}
	default:
		return v
	}
}

// Equal implements structural equality on scalars, per spec.md §4.4: cross
// type comparisons are false rather than an error. Arrays/Objects compare
// structurally too; the VM's Equal/NotEqual and In opcodes and builtins
// like contains all use this same comparison.
func (v Variable) Equal(other Variable) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return v.n.Equal(other.n)
	case KindString:
		return v.s == other.s
	case KindArray:
		if len(v.arr.items) != len(other.arr.items) {
			return false
		}
		for i := range v.arr.items {
			if !v.arr.items[i].Equal(other.arr.items[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj.keys) != len(other.obj.keys) {
			return false
		}
		for key, val := range v.obj.values {
			ov, ok := other.obj.values[key]
			if !ok || !val.Equal(ov) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Compare orders two Numbers or two Strings; ok is false for any other pair.
func Compare(a, b Variable) (cmp int, ok bool) {
	if a.kind == KindNumber && b.kind == KindNumber {
		return a.n.Cmp(b.n), true
	}
	if a.kind == KindString && b.kind == KindString {
		switch {
		case a.s < b.s:
			return -1, true
		case a.s > b.s:
			return 1, true
		default:
			return 0, true
		}
	}
	return 0, false
}

// sortedKeysCopy returns a sorted copy of keys; JSON decoding uses it (via
// mapKeysInOrder) to give decoded Objects a deterministic key order.
func sortedKeysCopy(keys []string) []string {
	cp := make([]string, len(keys))
	copy(cp, keys)
	sort.Strings(cp)
	return cp
}
