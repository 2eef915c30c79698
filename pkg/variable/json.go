package variable

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// FromJSON converts an arbitrary decoded JSON value (as produced by
// json.Unmarshal into `any`, using json.Number for numbers) into a Variable.
// Callers should decode with a json.Decoder configured via UseNumber so
// Number Variables stay exact instead of round-tripping through float64.
func FromJSON(v any) (Variable, error) {
	switch t := v.(type) {
	case nil:
		return Null, nil
	case bool:
		return Bool(t), nil
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return Null, fmt.Errorf("variable: decode number %q: %w", t.String(), err)
		}
		return Number(d), nil
	case float64:
		return Number(decimal.NewFromFloat(t)), nil
	case string:
		return String(t), nil
	case []any:
		items := make([]Variable, len(t))
		for i, el := range t {
			cv, err := FromJSON(el)
			if err != nil {
				return Null, err
			}
			items[i] = cv
		}
		return NewArray(items...), nil
	case map[string]any:
		obj := NewObject()
		for _, k := range mapKeysInOrder(t) {
			cv, err := FromJSON(t[k])
			if err != nil {
				return Null, err
			}
			obj.ObjectSet(k, cv)
		}
		return obj, nil
	default:
		return Null, fmt.Errorf("variable: unsupported JSON value type %T", v)
	}
}

// mapKeysInOrder has no real ordering to recover from a decoded map (Go's
// encoding/json discards key order), so it sorts for determinism. Every
// Object decoded by FromJSON, ParseJSON or UnmarshalJSON, at any nesting
// level, gets its keys in sorted order; that includes Objects round-tripped
// through this package's own marshaling, since ToJSON emits Go maps.
func mapKeysInOrder(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return sortedKeysCopy(keys)
}

// ParseJSON decodes a JSON document into a Variable, preserving exact
// decimal numbers.
func ParseJSON(data []byte) (Variable, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return Null, fmt.Errorf("variable: parse JSON: %w", err)
	}
	return FromJSON(raw)
}

// ToJSON converts a Variable back into a plain `any` tree suitable for
// json.Marshal (Numbers become json.Number so exactness survives encoding).
func (v Variable) ToJSON() any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindNumber:
		return json.Number(v.n.String())
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr.items))
		for i, it := range v.arr.items {
			out[i] = it.ToJSON()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj.keys))
		for _, k := range v.obj.keys {
			out[k] = v.obj.values[k].ToJSON()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON lets a Variable be embedded directly in API responses.
func (v Variable) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.ToJSON())
}

// UnmarshalJSON decodes a Variable in place from JSON.
func (v *Variable) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := FromJSON(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
