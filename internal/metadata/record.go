package metadata

import "strings"

// Record is an untyped run metadata document as returned by the platform.
// The platform owns the schema; values are passed through unmodified.
type Record map[string]any

// Select returns the subset of rec named by keys. A key containing dots is
// resolved as a nested lookup (e.g. "params.input") and stored in the result
// under the full dotted key. Keys whose path is absent, traverses a
// non-object value, or resolves to null are omitted.
func Select(rec Record, keys []string) Record {
	out := Record{}
	for _, key := range keys {
		value, ok := lookup(rec, key)
		if !ok {
			continue
		}
		out[key] = value
	}
	return out
}

func lookup(rec Record, key string) (any, bool) {
	var current any = map[string]any(rec)
	for _, part := range strings.Split(key, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = obj[part]
		if !ok || current == nil {
			return nil, false
		}
	}
	return current, true
}

// Merge combines records left to right; later records win on key collision.
func Merge(records ...Record) Record {
	out := Record{}
	for _, rec := range records {
		for k, v := range rec {
			out[k] = v
		}
	}
	return out
}
