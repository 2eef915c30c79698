package ast

// Arena is a bump allocator for one parse's worth of AST nodes. The parser
// allocates every node through an Arena so a whole tree can be discarded
// (and the backing storage reused) in one call to Reset, mirroring the
// Isolate's per-evaluation AST arena described in spec.md §3/§5.
//
// Node construction itself (NewX in ast.go) just returns an ordinary Go
// pointer; Arena's job is solely lifetime bookkeeping — it retains a slice
// of every node handed out so Reset can drop them all at once and let Go's
// GC reclaim them, without the parser needing to track individual node
// lifetimes.
type Arena struct {
	nodes []Node
}

// NewArena constructs an empty Arena.
func NewArena() *Arena {
	return &Arena{}
}

// Track registers n as owned by the Arena and returns it, for chaining:
//
//	n := ast.Track(arena, ast.NewNumber(span, "1"))
func Track[T Node](a *Arena, n T) T {
	a.nodes = append(a.nodes, n)
	return n
}

// Reset drops all tracked nodes, reusing the Arena's backing slice.
func (a *Arena) Reset() {
	a.nodes = a.nodes[:0]
}

// Len reports how many nodes are currently tracked (diagnostic use only).
func (a *Arena) Len() int { return len(a.nodes) }
