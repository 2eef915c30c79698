package variable

// Merge implements the decision-graph data-merge rule from spec.md §4.7:
// Object⨁Object deep-merges (a Null value in patch deletes the matching key
// in base), Array⨁Array concatenates, and any other pairing replaces base
// with patch entirely. Object⨁Object and Array⨁Array build a fresh
// top-level value; any other pairing returns patch itself. Neither base nor
// patch is mutated.
func Merge(base, patch Variable) Variable {
	if base.kind == KindObject && patch.kind == KindObject {
		out := NewObject()
		for _, k := range base.obj.keys {
			out.ObjectSet(k, base.obj.values[k])
		}
		for _, k := range patch.obj.keys {
			pv := patch.obj.values[k]
			if pv.kind == KindNull {
				out.ObjectDelete(k)
				continue
			}
			if existing, ok := out.ObjectGet(k); ok {
				out.ObjectSet(k, Merge(existing, pv))
				continue
			}
			out.ObjectSet(k, pv)
		}
		return out
	}
	if base.kind == KindArray && patch.kind == KindArray {
		items := make([]Variable, 0, len(base.arr.items)+len(patch.arr.items))
		items = append(items, base.arr.items...)
		items = append(items, patch.arr.items...)
		return NewArray(items...)
	}
	return patch
}

// MergeAll folds Merge left to right across values, returning Null for an
// empty slice (the walker uses this to merge zero-or-more predecessor
// outputs into a node's input).
func MergeAll(values ...Variable) Variable {
	if len(values) == 0 {
		return Null
	}
	acc := values[0]
	for _, v := range values[1:] {
		acc = Merge(acc, v)
	}
	return acc
}
