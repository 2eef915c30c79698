package graph

import "github.com/ruleforge/engine/pkg/rferrors"

// Validate checks the structural invariants spec.md §4.7 requires: exactly
// one Input node, every edge endpoint references an existing node, and the
// graph is acyclic. It returns the first violation found, in that order.
func Validate(nodes []Node, edges []Edge) error {
	byID := make(map[string]Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	inputCount := 0
	for _, n := range nodes {
		if n.Kind == KindInput {
			inputCount++
		}
	}
	if inputCount != 1 {
		return rferrors.InvalidInputCount(inputCount)
	}

	for _, e := range edges {
		if _, ok := byID[e.SourceID]; !ok {
			return rferrors.MissingNode(e.SourceID)
		}
		if _, ok := byID[e.TargetID]; !ok {
			return rferrors.MissingNode(e.TargetID)
		}
	}

	adjacency := make(map[string][]string, len(nodes))
	for _, e := range edges {
		adjacency[e.SourceID] = append(adjacency[e.SourceID], e.TargetID)
	}

	const (
		unvisited = 0
		visiting  = 1
		done      = 2
	)
	state := make(map[string]int, len(nodes))
	var visit func(id string) bool
	visit = func(id string) bool {
		switch state[id] {
		case visiting:
			return true
		case done:
			return false
		}
		state[id] = visiting
		for _, next := range adjacency[id] {
			if visit(next) {
				return true
			}
		}
		state[id] = done
		return false
	}
	for _, n := range nodes {
		if visit(n.ID) {
			return rferrors.CyclicGraph()
		}
	}

	return nil
}
