package graph

import (
	"context"
	"log/slog"
	"time"

	"github.com/ruleforge/engine/pkg/config"
	"github.com/ruleforge/engine/pkg/rferrors"
	"github.com/ruleforge/engine/pkg/variable"
)

// IterMax bounds the walker's worklist loop (spec.md §4.7's ITER_MAX), a
// circuit breaker against cyclic or pathological Switch-induced resets. It
// applies when config.Current().MaxIterations is not positive.
const IterMax = 1000

// DefaultMaxDepth bounds nested Decision-node recursion (spec.md §4.7)
// when neither Options.MaxDepth nor config.Current().MaxDepth is set.
const DefaultMaxDepth = 5

// Loader resolves a nested graph by id for Decision nodes (spec.md §4.7).
// pkg/handlers' Decision handler calls back into this through Eval.
type Loader func(graphID string) (*DecisionGraph, error)

// DecisionGraph is a validated, immutable set of nodes and edges plus the
// handlers dispatched per node kind. One instance is built once from a
// content document and evaluated many times; per-evaluation state (visited
// set, pruned edges, per-node output) lives entirely in the walk call.
type DecisionGraph struct {
	Nodes           []Node
	Edges           []Edge
	Handlers        map[Kind]Handler
	Logger          *slog.Logger
	nodesInContext  *bool
}

// New validates nodes/edges and constructs a DecisionGraph. Handlers may be
// registered after construction via RegisterHandler; Evaluate fails a node
// whose kind has none.
func New(nodes []Node, edges []Edge) (*DecisionGraph, error) {
	if err := Validate(nodes, edges); err != nil {
		return nil, err
	}
	return &DecisionGraph{
		Nodes:    nodes,
		Edges:    edges,
		Handlers: map[Kind]Handler{},
		Logger:   slog.Default(),
	}, nil
}

// RegisterHandler installs the Handler for one node Kind.
func (g *DecisionGraph) RegisterHandler(k Kind, h Handler) { g.Handlers[k] = h }

// SetLogger overrides the graph's slog.Logger.
func (g *DecisionGraph) SetLogger(l *slog.Logger) { g.Logger = l }

// Eval is per-evaluation state threaded through every Handler call: nesting
// depth/limit, the trace toggle, accumulated node outputs for the
// `$nodes` synthetic key, and the Loader for nested Decision nodes.
type Eval struct {
	Depth          int
	MaxDepth       int
	Trace          bool
	NodesInContext bool
	Outputs        map[string]variable.Variable // by node name, for $nodes
	Loader         Loader
}

// Result is the top-level evaluation outcome (spec.md §6): elapsed time,
// the terminal Output node's input as the JSON result, and an optional
// trace keyed by node id.
type Result struct {
	Performance time.Duration
	Value       variable.Variable
	Trace       map[string]*TraceEntry
}

// TraceEntry is one node's trace record (spec.md §4.7/§6).
type TraceEntry struct {
	ID          string
	Name        string
	Order       int
	Input       variable.Variable
	Output      variable.Variable
	Performance time.Duration
	TraceData   any
}

// liveGraph is the mutable working copy the walker prunes as Switch nodes
// resolve; Nodes/Edges in DecisionGraph itself are never mutated.
type liveGraph struct {
	nodes map[string]Node
	// outgoing/incoming are adjacency views rebuilt from the live edge set.
	edges     []Edge
	outgoing  map[string][]Edge
	incoming  map[string][]Edge
}

func newLiveGraph(nodes []Node, edges []Edge) *liveGraph {
	lg := &liveGraph{nodes: map[string]Node{}, edges: append([]Edge{}, edges...)}
	for _, n := range nodes {
		lg.nodes[n.ID] = n
	}
	lg.reindex()
	return lg
}

func (lg *liveGraph) reindex() {
	lg.outgoing = map[string][]Edge{}
	lg.incoming = map[string][]Edge{}
	for _, e := range lg.edges {
		lg.outgoing[e.SourceID] = append(lg.outgoing[e.SourceID], e)
		lg.incoming[e.TargetID] = append(lg.incoming[e.TargetID], e)
	}
}

// prune removes edges leaving `nodeID` whose SourceHandle is not in kept,
// transitively removing now-unreachable nodes and their own edges (spec.md
// §4.7's transitive edge-removal rule).
func (lg *liveGraph) prune(nodeID string, kept map[string]bool) {
	var surviving []Edge
	var removedTargets []string
	for _, e := range lg.edges {
		if e.SourceID == nodeID && e.SourceHandle != "" && !kept[e.SourceHandle] {
			removedTargets = append(removedTargets, e.TargetID)
			continue
		}
		surviving = append(surviving, e)
	}
	lg.edges = surviving
	lg.reindex()

	for _, target := range removedTargets {
		lg.pruneIfUnreachable(target)
	}
}

// pruneIfUnreachable drops nodeID (and recursively its now-dangling
// downstream neighbors) once it has no remaining incoming edges and is not
// the designated Input node. Losing incoming edges is the only trigger: a
// node that has lost all of its outgoing edges but still has incoming ones
// is kept, and so are those incoming edges.
func (lg *liveGraph) pruneIfUnreachable(nodeID string) {
	n, ok := lg.nodes[nodeID]
	if !ok || n.Kind == KindInput {
		return
	}
	if len(lg.incoming[nodeID]) > 0 {
		return
	}
	delete(lg.nodes, nodeID)

	var surviving []Edge
	var downstream []string
	for _, e := range lg.edges {
		if e.SourceID == nodeID {
			downstream = append(downstream, e.TargetID)
			continue
		}
		if e.TargetID == nodeID {
			continue
		}
		surviving = append(surviving, e)
	}
	lg.edges = surviving
	lg.reindex()

	for _, d := range downstream {
		lg.pruneIfUnreachable(d)
	}
}

// Options configures one Evaluate call: whether to collect a trace, the
// nesting depth and limit for Decision nodes invoking sub-graphs, and the
// Loader those Decision nodes use to resolve a nested graph by id.
type Options struct {
	Trace    bool
	Depth    int
	MaxDepth int
	Loader   Loader
}

// Evaluate drives the worklist walk (spec.md §4.7) and returns the
// terminal Output node's input, or the first NodeError encountered.
func (g *DecisionGraph) Evaluate(ctx context.Context, input variable.Variable, trace bool) (Result, error) {
	return g.EvaluateWith(ctx, input, Options{Trace: trace, MaxDepth: config.Current().MaxDepth})
}

// EvaluateWith is Evaluate with full Options control, used by the Decision
// node handler to propagate depth/trace/Loader into a nested evaluation.
func (g *DecisionGraph) EvaluateWith(ctx context.Context, input variable.Variable, opts Options) (Result, error) {
	trace := opts.Trace
	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Depth > opts.MaxDepth {
		return Result{}, rferrors.WrapNode("", &rferrors.VMError{Opcode: "decisionNode", Message: "max depth exceeded"}, nil)
	}
	start := time.Now()
	lg := newLiveGraph(g.Nodes, g.Edges)

	outputs := map[string]variable.Variable{}   // by node id
	byName := map[string]variable.Variable{}    // by node name, for $nodes
	visited := map[string]bool{}
	visitedSwitch := map[string]bool{}
	order := 0
	var traceMap map[string]*TraceEntry
	if trace {
		traceMap = map[string]*TraceEntry{}
	}

	var worklist []string
	for _, n := range g.Nodes {
		if n.Kind == KindInput {
			worklist = append(worklist, n.ID)
		}
	}

	var terminal variable.Variable
	haveTerminal := false

	maxIter := config.Current().MaxIterations
	if maxIter <= 0 {
		maxIter = IterMax
	}
	iterations := 0
	for len(worklist) > 0 {
		iterations++
		if iterations > maxIter {
			return Result{}, rferrors.WrapNode("", rferrors.CyclicGraph(), nil)
		}

		id := worklist[0]
		worklist = worklist[1:]

		node, alive := lg.nodes[id]
		if !alive {
			continue // pruned since being enqueued
		}
		if visited[id] {
			continue
		}

		preds := lg.incoming[id]
		ready := true
		var missing []string
		for _, e := range preds {
			if !visited[e.SourceID] {
				ready = false
				missing = append(missing, e.SourceID)
			}
		}
		if !ready {
			worklist = append(worklist, id)
			worklist = append(worklist, missing...)
			continue
		}

		nodeInput := mergeInputs(node, preds, outputs, input)
		traceInput := nodeInput
		if g.NodesInContext() && nodeInput.IsObject() {
			withNodes := variable.NewObject()
			for _, k := range nodeInput.ObjectKeys() {
				v, _ := nodeInput.ObjectGet(k)
				withNodes.ObjectSet(k, v)
			}
			nodesObj := variable.NewObject()
			for name, v := range byName {
				nodesObj.ObjectSet(name, v)
			}
			withNodes.ObjectSet("$nodes", nodesObj)
			nodeInput = withNodes
		}

		handler, ok := g.Handlers[node.Kind]
		if !ok {
			return Result{}, rferrors.WrapNode(id, &rferrors.VMError{Opcode: string(node.Kind), Message: "no handler registered"}, traceMap)
		}

		nodeStart := time.Now()
		res, err := handler.Handle(ctx, node, nodeInput, &Eval{
			Depth:          opts.Depth,
			MaxDepth:       opts.MaxDepth,
			Trace:          trace,
			NodesInContext: g.NodesInContext(),
			Outputs:        byName,
			Loader:         opts.Loader,
		})
		elapsed := time.Since(nodeStart)
		if err != nil {
			return Result{}, rferrors.WrapNode(id, err, traceMap)
		}

		visited[id] = true
		outputs[id] = res.Output
		byName[node.Name] = res.Output

		if trace {
			order++
			traceMap[id] = &TraceEntry{
				ID: id, Name: node.Name, Order: order,
				Input: traceInput, Output: res.Output,
				Performance: elapsed, TraceData: res.TraceData,
			}
		}

		if node.Kind == KindOutput {
			terminal = nodeInput
			haveTerminal = true
		}

		if node.Kind == KindSwitch {
			visitedSwitch[id] = true
			kept := map[string]bool{}
			for _, h := range res.Handles {
				kept[h] = true
			}
			before := len(lg.edges)
			lg.prune(id, kept)
			if len(lg.edges) != before {
				// Edge removal invalidates downstream assumptions; reset
				// the worklist to every still-live node not yet visited
				// (spec.md §4.7's reset semantics — visited Switch ids are
				// not re-evaluated). Readiness is checked again as each
				// node is popped.
				worklist = worklist[:0]
				for nid, n := range lg.nodes {
					if visited[nid] {
						continue
					}
					if n.Kind == KindSwitch && visitedSwitch[nid] {
						continue
					}
					worklist = append(worklist, nid)
				}
				continue
			}
		}

		for _, e := range lg.outgoing[id] {
			if !visited[e.TargetID] {
				worklist = append(worklist, e.TargetID)
			}
		}
	}

	if !haveTerminal {
		terminal = variable.Null
	}

	return Result{Performance: time.Since(start), Value: terminal, Trace: traceMap}, nil
}

// NodesInContext reports whether evaluations of this graph expose the
// $nodes synthetic key: the value last passed to SetNodesInContext, or,
// when it was never called, the process-wide config.Current().NodesInContext
// read at the time of the call.
func (g *DecisionGraph) NodesInContext() bool {
	if g.nodesInContext != nil {
		return *g.nodesInContext
	}
	return config.Current().NodesInContext
}

// SetNodesInContext toggles the $nodes synthetic key for every subsequent
// Evaluate call, mirroring spec.md §4.7's process-wide flag at the graph
// level so tests and callers can override the process default per graph.
func (g *DecisionGraph) SetNodesInContext(v bool) { g.nodesInContext = &v }

func mergeInputs(node Node, preds []Edge, outputs map[string]variable.Variable, topInput variable.Variable) variable.Variable {
	if node.Kind == KindInput {
		return topInput
	}
	if len(preds) == 0 {
		return variable.Null
	}
	values := make([]variable.Variable, 0, len(preds))
	for _, e := range preds {
		values = append(values, outputs[e.SourceID])
	}
	return variable.MergeAll(values...)
}
