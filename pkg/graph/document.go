package graph

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// wireNode/wireEdge mirror the content document wire format spec.md §6
// defines: `{ nodes: [{id, name, kind, content}], edges: [{id, sourceId,
// targetId, sourceHandle?}] }`. Content is decoded to json.RawMessage
// here and unmarshaled into its kind-specific Go type by contentFor below,
// deferring that decision until the node's Kind is known.
type wireDocument struct {
	Nodes []wireNode `json:"nodes"`
	Edges []wireEdge `json:"edges"`
}

type wireNode struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Kind    Kind            `json:"kind"`
	Content json.RawMessage `json:"content"`
}

type wireEdge struct {
	ID           string `json:"id"`
	SourceID     string `json:"sourceId"`
	TargetID     string `json:"targetId"`
	SourceHandle string `json:"sourceHandle,omitempty"`
}

// DecodeDocument parses a content document (spec.md §6) into Nodes/Edges
// ready for Validate/New. Unknown kinds are rejected; kind-specific content
// is decoded into the matching *Content struct from node.go. A node or edge
// with an empty id is assigned a fresh one, so hand-authored documents don't
// need to invent ids for wiring-only nodes.

func DecodeDocument(raw []byte) ([]Node, []Edge, error) {
	var doc wireDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("graph: decode document: %w", err)
	}

	nodes := make([]Node, 0, len(doc.Nodes))
	for _, wn := range doc.Nodes {
		content, err := contentFor(wn.Kind, wn.Content)
		if err != nil {
			return nil, nil, fmt.Errorf("graph: node %q: %w", wn.ID, err)
		}
		id := wn.ID
		if id == "" {
			id = uuid.NewString()
		}
		nodes = append(nodes, Node{ID: id, Name: wn.Name, Kind: wn.Kind, Content: content})
	}

	edges := make([]Edge, 0, len(doc.Edges))
	for _, we := range doc.Edges {
		id := we.ID
		if id == "" {
			id = uuid.NewString()
		}
		edges = append(edges, Edge{ID: id, SourceID: we.SourceID, TargetID: we.TargetID, SourceHandle: we.SourceHandle})
	}

	return nodes, edges, nil
}

func contentFor(kind Kind, raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch kind {
	case KindInput, KindOutput:
		return nil, nil
	case KindExpression:
		var c ExpressionContent
		return c, unmarshalInto(raw, &c)
	case KindDecisionTable:
		var c DecisionTableContent
		return c, unmarshalInto(raw, &c)
	case KindFunction:
		var c FunctionContent
		return c, unmarshalInto(raw, &c)
	case KindDecision:
		var c DecisionContent
		return c, unmarshalInto(raw, &c)
	case KindSwitch:
		var c SwitchContent
		return c, unmarshalInto(raw, &c)
	case KindCustom:
		var c CustomContent
		return c, unmarshalInto(raw, &c)
	default:
		return nil, fmt.Errorf("unknown node kind %q", kind)
	}
}

func unmarshalInto(raw json.RawMessage, target any) error {
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode content: %w", err)
	}
	return nil
}
