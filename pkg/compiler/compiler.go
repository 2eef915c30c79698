// Package compiler lowers an expression AST (pkg/ast) into the linear
// bytecode pkg/opcode defines, resolving jumps via back-patching in a
// single pass (spec.md §4.3). It refuses to compile a tree containing any
// *ast.Error node: parsing is fault-tolerant, compilation is fail-fast.
package compiler

import (
	"github.com/ruleforge/engine/pkg/ast"
	"github.com/ruleforge/engine/pkg/opcode"
	"github.com/ruleforge/engine/pkg/rferrors"
)

// Compile lowers n into prog, appending to whatever prog already holds.
// Callers (the Isolate) call prog.Reset() between runs so the same Program
// value is reused without reallocating its backing slices.
func Compile(n ast.Node, prog *opcode.Program) error {
	c := &compiler{prog: prog}
	return c.compile(n)
}

type compiler struct {
	prog *opcode.Program
}

func (c *compiler) compile(n ast.Node) error {
	if ast.ContainsError(n) {
		return rferrors.UnexpectedErrorNode("expression contains a parse error")
	}
	return c.emit(n)
}

func (c *compiler) emit(n ast.Node) error {
	switch t := n.(type) {
	case *ast.NullLit:
		c.prog.Emit(opcode.Push, c.prog.AddConst(nil))
	case *ast.BoolLit:
		c.prog.Emit(opcode.Push, c.prog.AddConst(t.Value))
	case *ast.NumberLit:
		c.prog.Emit(opcode.Push, c.prog.AddConst(numberConst(t.Value)))
	case *ast.StringLit:
		c.prog.Emit(opcode.Push, c.prog.AddConst(t.Value))
	case *ast.TemplateStringLit:
		return c.emitTemplate(t)
	case *ast.Pointer:
		c.prog.Emit(opcode.Pointer, 0)
	case *ast.Root:
		c.prog.Emit(opcode.FetchEnv, c.prog.AddConst("$"))
	case *ast.Identifier:
		c.prog.Emit(opcode.FetchEnv, c.prog.AddConst(t.Name))
	case *ast.ArrayLit:
		return c.emitArray(t)
	case *ast.ObjectLit:
		return c.emitObject(t)
	case *ast.Member:
		return c.emitMember(t)
	case *ast.Slice:
		return c.emitSlice(t)
	case *ast.Interval:
		// A bare interval (not the RHS of `in`) evaluates to a two-element
		// array [left, right]; emitIn handles the `in` fast path directly.
		if err := c.emit(t.Left); err != nil {
			return err
		}
		if err := c.emit(t.Right); err != nil {
			return err
		}
		c.prog.Emit(opcode.Array, 2)
	case *ast.Conditional:
		return c.emitConditional(t)
	case *ast.Unary:
		return c.emitUnary(t)
	case *ast.Binary:
		return c.emitBinary(t)
	case *ast.BuiltIn:
		return c.emitBuiltIn(t)
	case *ast.Parenthesized:
		return c.emit(t.Inner)
	case *ast.Closure:
		return c.emit(t.Inner)
	default:
		return rferrors.UnexpectedErrorNode("unsupported AST node in compiler")
	}
	return nil
}

// numberConst stores number literals as their raw decimal text tagged with
// opcode.NumberLiteral so the VM's Push handler can tell them apart from
// string constants; the VM parses the text lazily the first time a
// Program runs, the same deferred-parse discipline ast.NumberLit
// documents.
func numberConst(raw string) opcode.NumberLiteral { return opcode.NumberLiteral(raw) }

func (c *compiler) emitTemplate(t *ast.TemplateStringLit) error {
	for _, part := range t.Parts {
		if part.Expr == nil {
			c.prog.Emit(opcode.Push, c.prog.AddConst(part.Literal))
			continue
		}
		if err := c.emit(part.Expr); err != nil {
			return err
		}
		c.prog.Emit(opcode.ToString, 0)
	}
	c.prog.Emit(opcode.Array, len(t.Parts))
	c.prog.Emit(opcode.Push, c.prog.AddConst(""))
	c.prog.Emit(opcode.Join, 0)
	return nil
}

func (c *compiler) emitArray(t *ast.ArrayLit) error {
	for _, item := range t.Items {
		if err := c.emit(item); err != nil {
			return err
		}
	}
	c.prog.Emit(opcode.Array, len(t.Items))
	return nil
}

func (c *compiler) emitObject(t *ast.ObjectLit) error {
	for _, entry := range t.Entries {
		switch k := entry.Key.(type) {
		case *ast.Identifier:
			c.prog.Emit(opcode.Push, c.prog.AddConst(k.Name))
		case *ast.StringLit:
			c.prog.Emit(opcode.Push, c.prog.AddConst(k.Value))
		default:
			if err := c.emit(entry.Key); err != nil {
				return err
			}
			c.prog.Emit(opcode.ToString, 0)
		}
		if err := c.emit(entry.Value); err != nil {
			return err
		}
	}
	c.prog.Emit(opcode.Object, len(t.Entries))
	return nil
}

func (c *compiler) emitMember(t *ast.Member) error {
	if err := c.emit(t.Node); err != nil {
		return err
	}
	if !t.Computed {
		if ident, ok := t.Property.(*ast.Identifier); ok {
			c.prog.Emit(opcode.Push, c.prog.AddConst(ident.Name))
			c.prog.Emit(opcode.Fetch, 0)
			return nil
		}
	}
	if err := c.emit(t.Property); err != nil {
		return err
	}
	c.prog.Emit(opcode.Fetch, 0)
	return nil
}

// emitSlice pushes container, to, from (in that order) then Slice, which
// pops from, to, container. A nil bound pushes Null, which the VM resolves
// to the spec's documented defaults (0 for from, len-1 for to).
func (c *compiler) emitSlice(t *ast.Slice) error {
	if err := c.emit(t.Node); err != nil {
		return err
	}
	if t.To != nil {
		if err := c.emit(t.To); err != nil {
			return err
		}
	} else {
		c.prog.Emit(opcode.Push, c.prog.AddConst(nil))
	}
	if t.From != nil {
		if err := c.emit(t.From); err != nil {
			return err
		}
	} else {
		c.prog.Emit(opcode.Push, c.prog.AddConst(nil))
	}
	c.prog.Emit(opcode.Slice, 0)
	return nil
}

// emitConditional handles both the full ternary (cond ? then : else) and
// the Elvis shorthand (cond ?: else), which the parser represents as a
// Conditional whose Then is the exact same node as Cond. Elvis is compiled
// to evaluate that shared node once, the way a real Dup-free bytecode VM
// must, using JumpIfTrue as a peek-and-keep on truthiness.
func (c *compiler) emitConditional(t *ast.Conditional) error {
	if t.Then == t.Cond {
		if err := c.emit(t.Cond); err != nil {
			return err
		}
		endJump := c.prog.Emit(opcode.JumpIfTrue, 0)
		c.prog.Emit(opcode.Pop, 0)
		if err := c.emit(t.Else); err != nil {
			return err
		}
		c.prog.Patch(endJump, c.prog.Here())
		return nil
	}

	if err := c.emit(t.Cond); err != nil {
		return err
	}
	elseJump := c.prog.Emit(opcode.JumpIfFalse, 0)
	c.prog.Emit(opcode.Pop, 0)
	if err := c.emit(t.Then); err != nil {
		return err
	}
	endJump := c.prog.Emit(opcode.Jump, 0)
	c.prog.Patch(elseJump, c.prog.Here())
	c.prog.Emit(opcode.Pop, 0)
	if err := c.emit(t.Else); err != nil {
		return err
	}
	c.prog.Patch(endJump, c.prog.Here())
	return nil
}

func (c *compiler) emitUnary(t *ast.Unary) error {
	if err := c.emit(t.Node); err != nil {
		return err
	}
	switch t.Op {
	case ast.UnaryNegate:
		c.prog.Emit(opcode.Negate, 0)
	case ast.UnaryNot:
		c.prog.Emit(opcode.Not, 0)
	}
	return nil
}

func (c *compiler) emitBinary(t *ast.Binary) error {
	switch t.Op {
	case ast.BinAnd:
		if err := c.emit(t.Left); err != nil {
			return err
		}
		end := c.prog.Emit(opcode.JumpIfFalse, 0)
		c.prog.Emit(opcode.Pop, 0)
		if err := c.emit(t.Right); err != nil {
			return err
		}
		c.prog.Patch(end, c.prog.Here())
		return nil
	case ast.BinOr:
		if err := c.emit(t.Left); err != nil {
			return err
		}
		end := c.prog.Emit(opcode.JumpIfTrue, 0)
		c.prog.Emit(opcode.Pop, 0)
		if err := c.emit(t.Right); err != nil {
			return err
		}
		c.prog.Patch(end, c.prog.Here())
		return nil
	case ast.BinNullCoalesce:
		if err := c.emit(t.Left); err != nil {
			return err
		}
		end := c.prog.Emit(opcode.JumpIfNotNull, 0)
		c.prog.Emit(opcode.Pop, 0)
		if err := c.emit(t.Right); err != nil {
			return err
		}
		c.prog.Patch(end, c.prog.Here())
		return nil
	case ast.BinIn, ast.BinNotIn:
		return c.emitIn(t)
	}

	if err := c.emit(t.Left); err != nil {
		return err
	}
	if err := c.emit(t.Right); err != nil {
		return err
	}
	op, ok := binaryOps[t.Op]
	if !ok {
		return rferrors.UnexpectedErrorNode("unknown binary operator")
	}
	c.prog.Emit(op, 0)
	return nil
}

var binaryOps = map[ast.BinaryOp]opcode.Op{
	ast.BinAdd: opcode.Add, ast.BinSub: opcode.Subtract,
	ast.BinMul: opcode.Multiply, ast.BinDiv: opcode.Divide,
	ast.BinMod: opcode.Modulo, ast.BinPow: opcode.Exponent,
	ast.BinEq: opcode.Equal, ast.BinNotEq: opcode.NotEqual,
	ast.BinLt: opcode.Less, ast.BinLtEq: opcode.LessOrEqual,
	ast.BinGt: opcode.More, ast.BinGtEq: opcode.MoreOrEqual,
}

var intervalBracketOps = map[ast.BracketKind]opcode.IntervalBrackets{
	ast.ClosedClosed: opcode.ClosedClosed, ast.OpenClosed: opcode.OpenClosed,
	ast.ClosedOpen: opcode.ClosedOpen, ast.OpenOpen: opcode.OpenOpen,
}

func (c *compiler) emitIn(t *ast.Binary) error {
	if err := c.emit(t.Left); err != nil {
		return err
	}
	if iv, ok := t.Right.(*ast.Interval); ok {
		if err := c.emit(iv.Left); err != nil {
			return err
		}
		if err := c.emit(iv.Right); err != nil {
			return err
		}
		c.prog.Emit(opcode.In, c.prog.AddConst(intervalBracketOps[iv.Brackets]))
	} else {
		if err := c.emit(t.Right); err != nil {
			return err
		}
		c.prog.Emit(opcode.In, -1)
	}
	if t.Op == ast.BinNotIn {
		c.prog.Emit(opcode.Not, 0)
	}
	return nil
}
