// Package functions implements the builtin function registry spec.md §4.5
// describes: typed, arity-checked pure functions callable from the VM's
// Call opcode, plus a slot for caller-registered user-defined functions.
package functions

import (
	"fmt"

	"github.com/ruleforge/engine/pkg/variable"
)

// ParamType is the declared type of a parameter or return value, used by
// check_types/tooling rather than enforced at the VM dispatch boundary
// (the VM already narrows by variable.Kind before calling).
type ParamType int

const (
	TAny ParamType = iota
	TNull
	TBool
	TNumber
	TString
	TArray
	TObject
)

func (t ParamType) String() string {
	switch t {
	case TNull:
		return "null"
	case TBool:
		return "bool"
	case TNumber:
		return "number"
	case TString:
		return "string"
	case TArray:
		return "array"
	case TObject:
		return "object"
	default:
		return "any"
	}
}

// Signature describes one callable overload.
type Signature struct {
	Required []ParamType
	Optional []ParamType
	Return   ParamType
}

// Diagnostic is one argument-position type-check result.
type Diagnostic struct {
	Index    int
	Expected []ParamType
	Got      ParamType
	OK       bool
}

// Func is a static (single-signature) or composite (overloaded) builtin.
// Static functions have exactly one Signatures entry.
type Func struct {
	Name      string
	Signatures []Signature
	Call      func(args []variable.Variable) (variable.Variable, error)
}

func (f *Func) RequiredParams() []ParamType {
	if len(f.Signatures) == 0 {
		return nil
	}
	return f.Signatures[0].Required
}

func (f *Func) OptionalParams() []ParamType {
	if len(f.Signatures) == 0 {
		return nil
	}
	return f.Signatures[0].Optional
}

// CheckTypes validates argc against every overload's required/optional
// bounds and reports per-argument diagnostics against whichever overload
// the argument count selects. When no overload's arity matches, it reports
// the union of every overload's parameter types for that position.
func (f *Func) CheckTypes(args []variable.Variable) []Diagnostic {
	sig, ok := f.matchArity(len(args))
	if !ok {
		return f.unionDiagnostics(args)
	}
	all := append(append([]ParamType{}, sig.Required...), sig.Optional...)
	out := make([]Diagnostic, len(args))
	for i, a := range args {
		expected := TAny
		if i < len(all) {
			expected = all[i]
		}
		out[i] = Diagnostic{Index: i, Expected: []ParamType{expected}, Got: kindToParamType(a.Kind()), OK: expected == TAny || expected == kindToParamType(a.Kind())}
	}
	return out
}

func (f *Func) matchArity(argc int) (Signature, bool) {
	for _, sig := range f.Signatures {
		min := len(sig.Required)
		max := min + len(sig.Optional)
		if argc >= min && argc <= max {
			return sig, true
		}
	}
	return Signature{}, false
}

func (f *Func) unionDiagnostics(args []variable.Variable) []Diagnostic {
	out := make([]Diagnostic, len(args))
	for i, a := range args {
		var union []ParamType
		seen := map[ParamType]bool{}
		for _, sig := range f.Signatures {
			all := append(append([]ParamType{}, sig.Required...), sig.Optional...)
			if i < len(all) && !seen[all[i]] {
				seen[all[i]] = true
				union = append(union, all[i])
			}
		}
		out[i] = Diagnostic{Index: i, Expected: union, Got: kindToParamType(a.Kind()), OK: false}
	}
	return out
}

// ParamType infers the declared return type for the overload argc selects,
// or TAny if none match (tooling convenience; spec.md §4.5's param_type).
func (f *Func) ParamType(argc int) ParamType {
	if sig, ok := f.matchArity(argc); ok {
		return sig.Return
	}
	return TAny
}

func (f *Func) ReturnType(argc int) ParamType { return f.ParamType(argc) }

func kindToParamType(k variable.Kind) ParamType {
	switch k {
	case variable.KindNull:
		return TNull
	case variable.KindBool:
		return TBool
	case variable.KindNumber:
		return TNumber
	case variable.KindString:
		return TString
	case variable.KindArray:
		return TArray
	case variable.KindObject:
		return TObject
	default:
		return TAny
	}
}

// UserFunc is a caller-registered function: a name, a declared signature
// for tooling, a closure, and an optional caller-provided context object
// the closure may read (spec.md §4.5).
type UserFunc struct {
	Name      string
	Signature Signature
	Call      func(args []variable.Variable, ctx variable.Variable) (variable.Variable, error)
}

// Registry resolves a call by name to either a builtin Func or a
// caller-registered UserFunc, preferring user-defined functions so a
// caller can shadow a builtin.
type Registry struct {
	builtins map[string]*Func
	user     map[string]*UserFunc
	ctx      variable.Variable
}

// NewRegistry constructs a Registry seeded with every builtin this package
// defines (builtins.go).
func NewRegistry() *Registry {
	r := &Registry{builtins: map[string]*Func{}, user: map[string]*UserFunc{}}
	for _, fn := range standardBuiltins() {
		r.builtins[fn.Name] = fn
	}
	return r
}

// RegisterUserFunc installs or replaces a caller-defined function.
func (r *Registry) RegisterUserFunc(fn *UserFunc) { r.user[fn.Name] = fn }

// SetContext installs the caller-provided context object UserFunc closures
// may read.
func (r *Registry) SetContext(ctx variable.Variable) { r.ctx = ctx }

// Lookup returns the Func or UserFunc registered under name.
func (r *Registry) Lookup(name string) (fn *Func, user *UserFunc, ok bool) {
	if u, ok := r.user[name]; ok {
		return nil, u, true
	}
	if f, ok := r.builtins[name]; ok {
		return f, nil, true
	}
	return nil, nil, false
}

// Call implements vm.CallResolver.
func (r *Registry) Call(name string, args []variable.Variable) (variable.Variable, error) {
	fn, user, ok := r.Lookup(name)
	if !ok {
		return variable.Null, fmt.Errorf("unknown function %q", name)
	}
	if user != nil {
		return user.Call(args, r.ctx)
	}
	if _, matched := fn.matchArity(len(args)); !matched {
		return variable.Null, fmt.Errorf("%s: wrong number of arguments (got %d)", name, len(args))
	}
	return fn.Call(args)
}
