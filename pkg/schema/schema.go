// Package schema implements the optional content-document validation
// spec.md §1 names as "JSON-schema validator caching details" (out of
// scope beyond its shape) and SPEC_FULL.md §4.7 adds back as ambient
// infrastructure: a JSON Schema describing the decision content document
// wire format (spec.md §6), compiled once and cached by a fingerprint of
// the schema text, adapted from the teacher's
// core/types/jsonschema.go + core/types/validation_cache.go.
package schema

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// ContentDocumentSchema is the JSON Schema for spec.md §6's content
// document: `{ nodes: [{id, name, kind, content}], edges: [{id, sourceId,
// targetId, sourceHandle?}] }`. Content is deliberately left
// kind-specific and unconstrained here — per-kind payload shape is
// validated by the handler that type-asserts it, not by this schema.
const ContentDocumentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["nodes", "edges"],
  "properties": {
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "name", "kind"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "kind": {
            "enum": [
              "inputNode", "outputNode", "expressionNode",
              "decisionTableNode", "functionNode", "decisionNode",
              "switchNode", "customNode"
            ]
          }
        }
      }
    },
    "edges": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "sourceId", "targetId"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "sourceId": {"type": "string", "minLength": 1},
          "targetId": {"type": "string", "minLength": 1},
          "sourceHandle": {"type": "string"}
        }
      }
    }
  }
}`

// cache caches compiled *jsonschema.Schema values by a fingerprint of their
// source text, the same shape as the teacher's validatorCache but keyed by
// schema text rather than a ParamSchema hash (SPEC_FULL.md §4.7).
type cache struct {
	mu      sync.RWMutex
	entries map[string]*jsonschema.Schema
	maxSize int
}

func newCache(maxSize int) *cache {
	return &cache{entries: map[string]*jsonschema.Schema{}, maxSize: maxSize}
}

func (c *cache) get(fingerprint string) (*jsonschema.Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[fingerprint]
	return s, ok
}

func (c *cache) put(fingerprint string, s *jsonschema.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		c.entries = map[string]*jsonschema.Schema{}
	}
	c.entries[fingerprint] = s
}

var defaultCache = newCache(1000)

func fingerprint(schemaText string) string {
	sum := sha256.Sum256([]byte(schemaText))
	return hex.EncodeToString(sum[:])
}

// Compile compiles schemaText, reusing a cached compilation keyed by its
// fingerprint when available.
func Compile(schemaText string) (*jsonschema.Schema, error) {
	fp := fingerprint(schemaText)
	if s, ok := defaultCache.get(fp); ok {
		return s, nil
	}

	var doc any
	if err := json.Unmarshal([]byte(schemaText), &doc); err != nil {
		return nil, fmt.Errorf("schema: invalid JSON: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("content.json", doc); err != nil {
		return nil, fmt.Errorf("schema: add resource: %w", err)
	}
	compiled, err := compiler.Compile("content.json")
	if err != nil {
		return nil, fmt.Errorf("schema: compile: %w", err)
	}

	defaultCache.put(fp, compiled)
	return compiled, nil
}

// ValidateContent validates raw JSON content-document bytes against
// ContentDocumentSchema.
func ValidateContent(raw []byte) error {
	s, err := Compile(ContentDocumentSchema)
	if err != nil {
		return err
	}
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("schema: invalid JSON: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("schema: content document does not match schema: %w", err)
	}
	return nil
}
