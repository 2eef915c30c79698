package compiler

import (
	"github.com/ruleforge/engine/pkg/ast"
	"github.com/ruleforge/engine/pkg/opcode"
	"github.com/ruleforge/engine/pkg/rferrors"
)

// emitBuiltIn compiles both comprehension builtins (all/some/none/filter/
// map/count, first arg a source array, remaining arg a Closure body bound
// to `#`) and generic function calls. Comprehensions lower to the
// Begin/JumpIfEnd/IncrementIt/JumpBackward/End loop shape spec.md §4.3
// describes, with each kind choosing what it accumulates and how it stops.
func (c *compiler) emitBuiltIn(t *ast.BuiltIn) error {
	if t.Kind == ast.BuiltInFunctionCall {
		for _, a := range t.Args {
			if err := c.emit(a); err != nil {
				return err
			}
		}
		spec := opcode.CallSpec{Name: t.Name, Argc: len(t.Args)}
		c.prog.Emit(opcode.Call, c.prog.AddConst(spec))
		return nil
	}

	if len(t.Args) == 0 {
		return rferrors.UnexpectedErrorNode("comprehension builtin requires a source array")
	}
	if err := c.emit(t.Args[0]); err != nil {
		return err
	}

	var body ast.Node
	if len(t.Args) > 1 {
		if cl, ok := t.Args[1].(*ast.Closure); ok {
			body = cl.Inner
		} else {
			body = t.Args[1]
		}
	}

	switch t.Kind {
	case ast.BuiltInAll:
		return c.emitAllOrSome(body, true)
	case ast.BuiltInSome:
		return c.emitAllOrSome(body, false)
	case ast.BuiltInNone:
		if err := c.emitAllOrSome(body, false); err != nil {
			return err
		}
		c.prog.Emit(opcode.Not, 0)
		return nil
	case ast.BuiltInFilter:
		return c.emitFilterOrMap(body, true)
	case ast.BuiltInMap:
		return c.emitFilterOrMap(body, false)
	case ast.BuiltInCount:
		return c.emitCount(body)
	default:
		return rferrors.UnexpectedErrorNode("unknown comprehension builtin")
	}
}

// emitAllOrSome shares the all/some loop shape: both walk the source array
// evaluating body once per element and stop as soon as the answer is
// decided. all stops (false) on the first falsy element, defaulting to
// true if the array is exhausted; some stops (true) on the first truthy
// element, defaulting to false. wantAll picks which.
func (c *compiler) emitAllOrSome(body ast.Node, wantAll bool) error {
	c.prog.Emit(opcode.Begin, 0)
	loopTop := c.prog.Here()
	endExhausted := c.prog.Emit(opcode.JumpIfEnd, 0)
	if body != nil {
		if err := c.emit(body); err != nil {
			return err
		}
	} else {
		c.prog.Emit(opcode.Push, c.prog.AddConst(true))
	}

	var decideOp opcode.Op
	if wantAll {
		decideOp = opcode.JumpIfFalse
	} else {
		decideOp = opcode.JumpIfTrue
	}
	decided := c.prog.Emit(decideOp, 0)
	c.prog.Emit(opcode.Pop, 0)
	c.prog.Emit(opcode.IncrementIt, 0)
	c.prog.Emit(opcode.JumpBackward, loopTop)

	c.prog.Patch(decided, c.prog.Here())
	c.prog.Emit(opcode.End, 0)
	done := c.prog.Emit(opcode.Jump, 0)

	c.prog.Patch(endExhausted, c.prog.Here())
	c.prog.Emit(opcode.Push, c.prog.AddConst(wantAll))
	c.prog.Emit(opcode.End, 0)

	c.prog.Patch(done, c.prog.Here())
	return nil
}

// emitFilterOrMap accumulates results directly on the operand stack: every
// element that qualifies (filter's predicate is true, or unconditionally
// for map) is pushed and IncrementCount tallies how many, so Array(-1) at
// the end can pop a dynamic-length run of accumulated values (see
// opcode.Program's doc on the Array opcode's Arg<0 convention).
func (c *compiler) emitFilterOrMap(body ast.Node, isFilter bool) error {
	c.prog.Emit(opcode.Begin, 0)
	loopTop := c.prog.Here()
	end := c.prog.Emit(opcode.JumpIfEnd, 0)

	if isFilter {
		if body == nil {
			return rferrors.UnexpectedErrorNode("filter requires a predicate")
		}
		if err := c.emit(body); err != nil {
			return err
		}
		skip := c.prog.Emit(opcode.JumpIfFalse, 0)
		c.prog.Emit(opcode.Pop, 0)
		c.prog.Emit(opcode.Pointer, 0)
		c.prog.Emit(opcode.IncrementCount, 0)
		after := c.prog.Emit(opcode.Jump, 0)
		c.prog.Patch(skip, c.prog.Here())
		c.prog.Emit(opcode.Pop, 0)
		c.prog.Patch(after, c.prog.Here())
	} else {
		if body != nil {
			if err := c.emit(body); err != nil {
				return err
			}
		} else {
			c.prog.Emit(opcode.Pointer, 0)
		}
		c.prog.Emit(opcode.IncrementCount, 0)
	}

	c.prog.Emit(opcode.IncrementIt, 0)
	c.prog.Emit(opcode.JumpBackward, loopTop)

	c.prog.Patch(end, c.prog.Here())
	c.prog.Emit(opcode.GetCount, 0)
	c.prog.Emit(opcode.End, 0)
	c.prog.Emit(opcode.Array, -1)
	return nil
}

func (c *compiler) emitCount(body ast.Node) error {
	c.prog.Emit(opcode.Begin, 0)
	if body == nil {
		c.prog.Emit(opcode.GetLen, 0)
		c.prog.Emit(opcode.End, 0)
		return nil
	}
	loopTop := c.prog.Here()
	end := c.prog.Emit(opcode.JumpIfEnd, 0)
	if err := c.emit(body); err != nil {
		return err
	}
	skip := c.prog.Emit(opcode.JumpIfFalse, 0)
	c.prog.Emit(opcode.Pop, 0)
	c.prog.Emit(opcode.IncrementCount, 0)
	after := c.prog.Emit(opcode.Jump, 0)
	c.prog.Patch(skip, c.prog.Here())
	c.prog.Emit(opcode.Pop, 0)
	c.prog.Patch(after, c.prog.Here())
	c.prog.Emit(opcode.IncrementIt, 0)
	c.prog.Emit(opcode.JumpBackward, loopTop)

	c.prog.Patch(end, c.prog.Here())
	c.prog.Emit(opcode.GetCount, 0)
	c.prog.Emit(opcode.End, 0)
	return nil
}
