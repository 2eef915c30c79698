// Package vm implements the stack interpreter that executes pkg/opcode
// bytecode over pkg/variable values (spec.md §4.4). A VM is reusable
// across runs on the same Isolate: operand and scope stacks are cleared at
// the start of Run rather than reallocated.
package vm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ruleforge/engine/pkg/opcode"
	"github.com/ruleforge/engine/pkg/rferrors"
	"github.com/ruleforge/engine/pkg/variable"
)

// CallResolver dispatches the Call opcode to the builtin/user-function
// registry (pkg/functions implements this). Kept as an interface here so
// vm does not need to import functions, avoiding a dependency the VM
// itself has no other reason to take on.
type CallResolver interface {
	Call(name string, args []variable.Variable) (variable.Variable, error)
}

// scopeFrame is the VM's per-comprehension iteration state (spec.md §3:
// "Scope frame (VM) — { array, len, iter, count }").
type scopeFrame struct {
	array variable.Variable
	len   int
	iter  int
	count int
}

// VM is a single reusable evaluator. Jump targets in compiled bytecode are
// absolute instruction indices (not IP-relative offsets) — a deliberate
// simplification over spec.md §3's "relative to current IP" phrasing that
// keeps back-patching and this dispatch loop straightforward; see
// DESIGN.md's Open Questions section.
type VM struct {
	operand []variable.Variable
	scopes  []*scopeFrame
	calls   CallResolver
}

// New constructs a VM. calls may be nil if the program never invokes a
// named function.
func New(calls CallResolver) *VM {
	return &VM{calls: calls}
}

// SetCallResolver rebinds the function-call dispatcher, used by Isolate
// when a caller registers additional user-defined functions.
func (m *VM) SetCallResolver(c CallResolver) { m.calls = c }

// Run executes prog against env (the top-level environment Variable, an
// Object or Null) and returns the final operand stack's single value.
func (m *VM) Run(prog *opcode.Program, env variable.Variable) (variable.Variable, error) {
	m.operand = m.operand[:0]
	m.scopes = m.scopes[:0]

	ip := 0
	for ip < len(prog.Code) {
		instr := prog.Code[ip]
		next, err := m.step(prog, instr, env)
		if err != nil {
			return variable.Null, err
		}
		if next >= 0 {
			ip = next
		} else {
			ip++
		}
	}

	if len(m.operand) != 1 {
		return variable.Null, &rferrors.VMError{Opcode: "Run", Message: fmt.Sprintf("program left %d values on the operand stack, expected 1", len(m.operand))}
	}
	return m.operand[0], nil
}

func (m *VM) push(v variable.Variable) { m.operand = append(m.operand, v) }

func (m *VM) peek() (variable.Variable, error) {
	if len(m.operand) == 0 {
		return variable.Null, &rferrors.VMError{Opcode: "peek", Message: "operand stack underflow"}
	}
	return m.operand[len(m.operand)-1], nil
}

func (m *VM) pop() (variable.Variable, error) {
	if len(m.operand) == 0 {
		return variable.Null, &rferrors.VMError{Opcode: "pop", Message: "operand stack underflow"}
	}
	v := m.operand[len(m.operand)-1]
	m.operand = m.operand[:len(m.operand)-1]
	return v, nil
}

func (m *VM) popN(n int) ([]variable.Variable, error) {
	if n < 0 || len(m.operand) < n {
		return nil, &rferrors.VMError{Opcode: "popN", Message: "operand stack underflow"}
	}
	start := len(m.operand) - n
	out := make([]variable.Variable, n)
	copy(out, m.operand[start:])
	m.operand = m.operand[:start]
	return out, nil
}

func (m *VM) topFrame() (*scopeFrame, error) {
	if len(m.scopes) == 0 {
		return nil, &rferrors.VMError{Opcode: "scope", Message: "no active scope frame"}
	}
	return m.scopes[len(m.scopes)-1], nil
}

// step executes one instruction and returns the next ip, or -1 to mean
// "fall through to ip+1".
func (m *VM) step(prog *opcode.Program, instr opcode.Instr, env variable.Variable) (int, error) {
	switch instr.Op {
	case opcode.Push:
		m.push(constToVariable(prog.Consts[instr.Arg]))
	case opcode.Pop:
		if _, err := m.pop(); err != nil {
			return 0, err
		}
	case opcode.Rot:
		if len(m.operand) < 2 {
			return 0, &rferrors.VMError{Opcode: "Rot", Message: "operand stack underflow"}
		}
		n := len(m.operand)
		m.operand[n-1], m.operand[n-2] = m.operand[n-2], m.operand[n-1]
	case opcode.Fetch:
		return m.stepFetch()
	case opcode.FetchEnv:
		name, _ := prog.Consts[instr.Arg].(string)
		if env.IsObject() {
			if val, ok := env.ObjectGet(name); ok {
				m.push(val)
				return 0, nil
			}
		}
		m.push(variable.Null)
	case opcode.FetchRootEnv:
		m.push(env)
	case opcode.Negate:
		return m.stepNegate()
	case opcode.Not:
		v, err := m.pop()
		if err != nil {
			return 0, err
		}
		m.push(variable.Bool(!truthy(v)))
	case opcode.Equal:
		return m.stepCompareEq(false)
	case opcode.NotEqual:
		return m.stepCompareEq(true)
	case opcode.Jump:
		return instr.Arg, nil
	case opcode.JumpIfTrue:
		v, err := m.peek()
		if err != nil {
			return 0, err
		}
		if truthy(v) {
			return instr.Arg, nil
		}
	case opcode.JumpIfFalse:
		v, err := m.peek()
		if err != nil {
			return 0, err
		}
		if !truthy(v) {
			return instr.Arg, nil
		}
	case opcode.JumpIfNotNull:
		v, err := m.peek()
		if err != nil {
			return 0, err
		}
		if !v.IsNull() {
			return instr.Arg, nil
		}
	case opcode.JumpIfEnd:
		f, err := m.topFrame()
		if err != nil {
			return 0, err
		}
		if f.iter >= f.len {
			return instr.Arg, nil
		}
	case opcode.JumpBackward:
		return instr.Arg, nil
	case opcode.In:
		return m.stepIn(instr.Arg, prog)
	case opcode.Less, opcode.More, opcode.LessOrEqual, opcode.MoreOrEqual:
		return m.stepOrder(instr.Op)
	case opcode.Add, opcode.Subtract, opcode.Multiply, opcode.Divide, opcode.Modulo, opcode.Exponent:
		return m.stepArith(instr.Op)
	case opcode.ToNumber:
		return m.stepToNumber()
	case opcode.ToString:
		return m.stepToString()
	case opcode.ToBool:
		v, err := m.pop()
		if err != nil {
			return 0, err
		}
		m.push(variable.Bool(truthy(v)))
	case opcode.TypeOf:
		v, err := m.pop()
		if err != nil {
			return 0, err
		}
		m.push(variable.String(v.Kind().String()))
	case opcode.DateOp:
		return m.stepDateOp(instr.Arg, prog)
	case opcode.Array:
		return m.stepArray(instr.Arg)
	case opcode.Object:
		return m.stepObject(instr.Arg)
	case opcode.Slice:
		return m.stepSlice()
	case opcode.Join:
		return m.stepJoin()
	case opcode.Call:
		return m.stepCall(instr.Arg, prog)
	case opcode.Begin:
		return m.stepBegin()
	case opcode.End:
		if len(m.scopes) == 0 {
			return 0, &rferrors.VMError{Opcode: "End", Message: "no active scope frame"}
		}
		m.scopes = m.scopes[:len(m.scopes)-1]
	case opcode.IncrementIt:
		f, err := m.topFrame()
		if err != nil {
			return 0, err
		}
		f.iter++
	case opcode.IncrementCount:
		f, err := m.topFrame()
		if err != nil {
			return 0, err
		}
		f.count++
	case opcode.GetCount:
		f, err := m.topFrame()
		if err != nil {
			return 0, err
		}
		m.push(variable.NumberFromInt(int64(f.count)))
	case opcode.GetLen:
		f, err := m.topFrame()
		if err != nil {
			return 0, err
		}
		m.push(variable.NumberFromInt(int64(f.len)))
	case opcode.Pointer:
		f, err := m.topFrame()
		if err != nil {
			return 0, err
		}
		m.push(f.array.ArrayGet(f.iter))
	default:
		return 0, &rferrors.VMError{Opcode: instr.Op.String(), Message: "unimplemented opcode"}
	}
	return -1, nil
}

func constToVariable(c any) variable.Variable {
	switch v := c.(type) {
	case nil:
		return variable.Null
	case bool:
		return variable.Bool(v)
	case string:
		return variable.String(v)
	case opcode.NumberLiteral:
		n, err := variable.NumberFromString(string(v))
		if err != nil {
			return variable.Null
		}
		return n
	default:
		return variable.Null
	}
}

// truthy is the VM's notion of "is this value true for short-circuit and
// conditional dispatch purposes": Null is false; Bool uses its own value;
// a Number is true when non-zero; a String is false when empty or exactly
// "false", true otherwise; Arrays and Objects are true (spec.md §4.4's
// Number→Bool/String→Bool conversions extended to control-flow positions).
func truthy(v variable.Variable) bool {
	switch v.Kind() {
	case variable.KindNull:
		return false
	case variable.KindBool:
		return v.AsBool()
	case variable.KindNumber:
		return !v.AsNumber().IsZero()
	case variable.KindString:
		s := v.AsString()
		return s != "" && s != "false"
	default:
		return true
	}
}

func (m *VM) stepFetch() (int, error) {
	vals, err := m.popN(2)
	if err != nil {
		return 0, err
	}
	container, key := vals[0], vals[1]
	switch {
	case container.IsObject() && key.IsString():
		val, ok := container.ObjectGet(key.AsString())
		if !ok {
			m.push(variable.Null)
		} else {
			m.push(val)
		}
	case container.IsArray() && key.IsNumber():
		idx := int(key.AsNumber().IntPart())
		m.push(container.ArrayGet(idx))
	case container.IsString() && key.IsNumber():
		idx := int(key.AsNumber().IntPart())
		runes := []rune(container.AsString())
		if idx < 0 || idx >= len(runes) {
			m.push(variable.Null)
		} else {
			m.push(variable.String(string(runes[idx])))
		}
	default:
		m.push(variable.Null)
	}
	return -1, nil
}

func (m *VM) stepNegate() (int, error) {
	v, err := m.pop()
	if err != nil {
		return 0, err
	}
	if !v.IsNumber() {
		return 0, &rferrors.VMError{Opcode: "Negate", Message: fmt.Sprintf("cannot negate %s", v.Kind())}
	}
	m.push(variable.Number(v.AsNumber().Neg()))
	return -1, nil
}

func (m *VM) stepCompareEq(negate bool) (int, error) {
	vals, err := m.popN(2)
	if err != nil {
		return 0, err
	}
	eq := vals[0].Equal(vals[1])
	if negate {
		eq = !eq
	}
	m.push(variable.Bool(eq))
	return -1, nil
}

func (m *VM) stepOrder(op opcode.Op) (int, error) {
	vals, err := m.popN(2)
	if err != nil {
		return 0, err
	}
	cmp, ok := variable.Compare(vals[0], vals[1])
	if !ok {
		return 0, &rferrors.VMError{Opcode: op.String(), Message: fmt.Sprintf("cannot order %s and %s", vals[0].Kind(), vals[1].Kind())}
	}
	var result bool
	switch op {
	case opcode.Less:
		result = cmp < 0
	case opcode.More:
		result = cmp > 0
	case opcode.LessOrEqual:
		result = cmp <= 0
	case opcode.MoreOrEqual:
		result = cmp >= 0
	}
	m.push(variable.Bool(result))
	return -1, nil
}

func (m *VM) stepArith(op opcode.Op) (int, error) {
	vals, err := m.popN(2)
	if err != nil {
		return 0, err
	}
	a, b := vals[0], vals[1]
	if !a.IsNumber() || !b.IsNumber() {
		return 0, &rferrors.VMError{Opcode: op.String(), Message: fmt.Sprintf("arithmetic requires numbers, got %s and %s", a.Kind(), b.Kind())}
	}
	ad, bd := a.AsNumber(), b.AsNumber()
	var result decimal.Decimal
	switch op {
	case opcode.Add:
		result = ad.Add(bd)
	case opcode.Subtract:
		result = ad.Sub(bd)
	case opcode.Multiply:
		result = ad.Mul(bd)
	case opcode.Divide:
		if bd.IsZero() {
			return 0, &rferrors.VMError{Opcode: "Divide", Message: "division by zero"}
		}
		result = ad.DivRound(bd, 16)
	case opcode.Modulo:
		if bd.IsZero() {
			return 0, &rferrors.VMError{Opcode: "Modulo", Message: "modulo by zero"}
		}
		result = ad.Mod(bd)
	case opcode.Exponent:
		result = ad.Pow(bd)
	}
	m.push(variable.Number(result))
	return -1, nil
}

func (m *VM) stepToNumber() (int, error) {
	v, err := m.pop()
	if err != nil {
		return 0, err
	}
	switch v.Kind() {
	case variable.KindNumber:
		m.push(v)
	case variable.KindString:
		n, cerr := variable.NumberFromString(v.AsString())
		if cerr != nil {
			return 0, &rferrors.ValueCastError{From: "string", To: "number"}
		}
		m.push(n)
	case variable.KindBool:
		if v.AsBool() {
			m.push(variable.NumberFromInt(1))
		} else {
			m.push(variable.NumberFromInt(0))
		}
	default:
		return 0, &rferrors.ValueCastError{From: v.Kind().String(), To: "number"}
	}
	return -1, nil
}

func (m *VM) stepToString() (int, error) {
	v, err := m.pop()
	if err != nil {
		return 0, err
	}
	m.push(variable.String(stringify(v)))
	return -1, nil
}

func stringify(v variable.Variable) string {
	switch v.Kind() {
	case variable.KindNull:
		return "null"
	case variable.KindBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case variable.KindString:
		return v.AsString()
	case variable.KindNumber:
		return v.AsNumber().String()
	default:
		return ""
	}
}

func (m *VM) stepArray(argc int) (int, error) {
	var n int
	if argc < 0 {
		countVar, err := m.pop()
		if err != nil {
			return 0, err
		}
		if !countVar.IsNumber() {
			return 0, &rferrors.VMError{Opcode: "Array", Message: "dynamic array count must be a number"}
		}
		n = int(countVar.AsNumber().IntPart())
	} else {
		n = argc
	}
	items, err := m.popN(n)
	if err != nil {
		return 0, err
	}
	m.push(variable.NewArray(items...))
	return -1, nil
}

func (m *VM) stepObject(pairs int) (int, error) {
	vals, err := m.popN(pairs * 2)
	if err != nil {
		return 0, err
	}
	obj := variable.NewObject()
	for i := 0; i < pairs; i++ {
		key := vals[i*2]
		val := vals[i*2+1]
		obj.ObjectSet(key.AsString(), val)
	}
	m.push(obj)
	return -1, nil
}

func (m *VM) stepSlice() (int, error) {
	vals, err := m.popN(3)
	if err != nil {
		return 0, err
	}
	container, to, from := vals[0], vals[1], vals[2]
	if !container.IsArray() && !container.IsString() {
		return 0, &rferrors.VMError{Opcode: "Slice", Message: fmt.Sprintf("cannot slice %s", container.Kind())}
	}
	n := container.Len()
	fromI := 0
	if !from.IsNull() && from.IsNumber() {
		fromI = int(from.AsNumber().IntPart())
	}
	toI := n - 1
	if !to.IsNull() && to.IsNumber() {
		toI = int(to.AsNumber().IntPart())
	}
	if container.IsArray() {
		m.push(container.ArraySlice(fromI, toI+1))
		return -1, nil
	}
	runes := []rune(container.AsString())
	if fromI < 0 {
		fromI = 0
	}
	end := toI + 1
	if end > len(runes) {
		end = len(runes)
	}
	if fromI >= end {
		m.push(variable.String(""))
		return -1, nil
	}
	m.push(variable.String(string(runes[fromI:end])))
	return -1, nil
}

func (m *VM) stepJoin() (int, error) {
	vals, err := m.popN(2)
	if err != nil {
		return 0, err
	}
	sep, arr := vals[0], vals[1]
	if !arr.IsArray() {
		return 0, &rferrors.VMError{Opcode: "Join", Message: "Join requires an array"}
	}
	parts := make([]string, 0, arr.Len())
	for _, item := range arr.ArrayItems() {
		parts = append(parts, stringify(item))
	}
	m.push(variable.String(strings.Join(parts, stringify(sep))))
	return -1, nil
}

func (m *VM) stepCall(constIdx int, prog *opcode.Program) (int, error) {
	spec, ok := prog.Consts[constIdx].(opcode.CallSpec)
	if !ok {
		return 0, &rferrors.VMError{Opcode: "Call", Message: "malformed call spec"}
	}
	args, err := m.popN(spec.Argc)
	if err != nil {
		return 0, err
	}
	if m.calls == nil {
		return 0, &rferrors.VMError{Opcode: "Call", Message: fmt.Sprintf("no function registry bound for %q", spec.Name)}
	}
	result, cerr := m.calls.Call(spec.Name, args)
	if cerr != nil {
		return 0, &rferrors.VMError{Opcode: "Call", Message: cerr.Error()}
	}
	m.push(result)
	return -1, nil
}

func (m *VM) stepBegin() (int, error) {
	v, err := m.pop()
	if err != nil {
		return 0, err
	}
	if !v.IsArray() {
		return 0, &rferrors.VMError{Opcode: "Begin", Message: fmt.Sprintf("cannot iterate %s", v.Kind())}
	}
	m.scopes = append(m.scopes, &scopeFrame{array: v, len: v.Len()})
	return -1, nil
}

func (m *VM) stepIn(constIdx int, prog *opcode.Program) (int, error) {
	if constIdx >= 0 {
		vals, err := m.popN(3)
		if err != nil {
			return 0, err
		}
		left, low, high := vals[0], vals[1], vals[2]
		brackets, _ := prog.Consts[constIdx].(opcode.IntervalBrackets)
		if !left.IsNumber() || !low.IsNumber() || !high.IsNumber() {
			return 0, &rferrors.VMError{Opcode: "In", Message: "interval membership requires numbers"}
		}
		l, lo, hi := left.AsNumber(), low.AsNumber(), high.AsNumber()
		var result bool
		switch brackets {
		case opcode.ClosedClosed:
			result = l.GreaterThanOrEqual(lo) && l.LessThanOrEqual(hi)
		case opcode.OpenClosed:
			result = l.GreaterThan(lo) && l.LessThanOrEqual(hi)
		case opcode.ClosedOpen:
			result = l.GreaterThanOrEqual(lo) && l.LessThan(hi)
		case opcode.OpenOpen:
			result = l.GreaterThan(lo) && l.LessThan(hi)
		}
		m.push(variable.Bool(result))
		return -1, nil
	}

	vals, err := m.popN(2)
	if err != nil {
		return 0, err
	}
	needle, haystack := vals[0], vals[1]
	switch {
	case haystack.IsArray():
		found := false
		for _, item := range haystack.ArrayItems() {
			if needle.Equal(item) {
				found = true
				break
			}
		}
		m.push(variable.Bool(found))
	case haystack.IsObject() && needle.IsString():
		_, ok := haystack.ObjectGet(needle.AsString())
		m.push(variable.Bool(ok))
	default:
		m.push(variable.Bool(false))
	}
	return -1, nil
}

func (m *VM) stepDateOp(constIdx int, prog *opcode.Program) (int, error) {
	name, _ := prog.Consts[constIdx].(string)
	if m.calls == nil {
		return 0, &rferrors.VMError{Opcode: "DateOp", Message: "no function registry bound"}
	}
	v, err := m.pop()
	if err != nil {
		return 0, err
	}
	result, cerr := m.calls.Call(name, []variable.Variable{v})
	if cerr != nil {
		return 0, &rferrors.VMError{Opcode: "DateOp", Message: cerr.Error()}
	}
	m.push(result)
	return -1, nil
}

// compilePattern compiles a regex and reports an invalid pattern as a
// VM-tagged error. Nothing in the module calls it: the Matches/Extract
// builtins in pkg/functions compile their patterns with regexp.Compile
// themselves.
func compilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &rferrors.VMError{Opcode: "Matches", Message: err.Error()}
	}
	return re, nil
}
