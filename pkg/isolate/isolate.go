// Package isolate implements the reusable evaluation sandbox spec.md §4.6
// describes: a lexer/parser/compiler/VM pipeline plus an environment
// Variable and a cache of computed reference values, all scoped to one
// Isolate instance so a caller can run many expressions without
// reallocating the pipeline each time.
package isolate

import (
	"github.com/ruleforge/engine/pkg/ast"
	"github.com/ruleforge/engine/pkg/compiler"
	"github.com/ruleforge/engine/pkg/functions"
	"github.com/ruleforge/engine/pkg/lexer"
	"github.com/ruleforge/engine/pkg/opcode"
	"github.com/ruleforge/engine/pkg/parser"
	"github.com/ruleforge/engine/pkg/rferrors"
	"github.com/ruleforge/engine/pkg/token"
	"github.com/ruleforge/engine/pkg/variable"
	"github.com/ruleforge/engine/pkg/vm"
)

// Isolate holds everything one evaluation needs, reused across runs: a
// compiled-bytecode buffer, the AST arena it was built in (reset between
// runs), a long-lived cache of SetReference results keyed by expression
// text, the current environment, and the VM itself.
type Isolate struct {
	prog      *opcode.Program
	astArena  *ast.Arena
	env       variable.Variable
	refCache  map[string]variable.Variable
	functions *functions.Registry
	machine   *vm.VM
}

// New constructs an Isolate with a fresh builtin function registry. Callers
// that need user-defined functions register them via Functions().
func New() *Isolate {
	reg := functions.NewRegistry()
	return &Isolate{
		prog:      opcode.NewProgram(),
		astArena:  ast.NewArena(),
		env:       variable.Null,
		refCache:  map[string]variable.Variable{},
		functions: reg,
		machine:   vm.New(reg),
	}
}

// Functions exposes the registry so callers can register user-defined
// functions or set the caller context object (spec.md §4.5).
func (iso *Isolate) Functions() *functions.Registry { return iso.functions }

// SetEnvironment replaces the current environment Variable.
func (iso *Isolate) SetEnvironment(v variable.Variable) { iso.env = v }

// Environment returns the current environment Variable.
func (iso *Isolate) Environment() variable.Variable { return iso.env }

// SetReference evaluates expr once (Standard grammar, against the current
// environment), caches the result keyed by expr's source text, and
// installs it at key "$" inside the environment object — creating an
// Object environment if absent, or promoting a scalar environment to an
// Object with the prior scalar value discarded (spec.md §4.6).
func (iso *Isolate) SetReference(expr string) error {
	if cached, ok := iso.refCache[expr]; ok {
		iso.installReference(cached)
		return nil
	}
	result, err := iso.RunStandard(expr)
	if err != nil {
		return err
	}
	iso.refCache[expr] = result
	iso.installReference(result)
	return nil
}

func (iso *Isolate) installReference(v variable.Variable) {
	if !iso.env.IsObject() {
		obj := variable.NewObject()
		iso.env = obj
	}
	iso.env.ObjectSet("$", v)
}

// RunStandard tokenizes, parses (Standard grammar), compiles, and
// evaluates source against the current environment, returning the
// resulting Variable.
func (iso *Isolate) RunStandard(source string) (variable.Variable, error) {
	return iso.run(source, func(toks []token.Token, arena *ast.Arena) ast.Node {
		return parser.ParseStandard(toks, arena)
	})
}

// RunUnary is RunStandard's Unary-grammar counterpart; the spec requires
// its result to be Bool, which this enforces via a ValueCastError.
func (iso *Isolate) RunUnary(source string) (variable.Variable, error) {
	result, err := iso.run(source, func(toks []token.Token, arena *ast.Arena) ast.Node {
		return parser.ParseUnary(toks, arena)
	})
	if err != nil {
		return variable.Null, err
	}
	if !result.IsBool() {
		return variable.Null, &rferrors.ValueCastError{From: result.Kind().String(), To: "bool"}
	}
	return result, nil
}

func (iso *Isolate) run(source string, parse func([]token.Token, *ast.Arena) ast.Node) (variable.Variable, error) {
	toks, lerr := lexer.Tokenize(source)
	if lerr != nil {
		return variable.Null, &rferrors.LexerError{Message: lerr.Error()}
	}

	iso.astArena.Reset()
	tree := parse(toks, iso.astArena)
	if ast.ContainsError(tree) {
		return variable.Null, &rferrors.ParserError{Message: "expression contains a syntax error"}
	}

	iso.prog.Reset()
	if cerr := compiler.Compile(tree, iso.prog); cerr != nil {
		return variable.Null, cerr
	}

	iso.machine.SetCallResolver(iso.functions)
	return iso.machine.Run(iso.prog, iso.env)
}
