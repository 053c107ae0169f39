package store

import (
	"strings"

	crerr "github.com/cockroachdb/errors"
)

// Op is one dotted-path mutation inside a document. With Overwrite the
// value replaces whatever sits at the path; otherwise the write merges:
// append for arrays, shallow merge for objects, plain set for scalars.
// Default seeds the path when it is currently absent.
type Op struct {
	Key       string
	Value     any
	Default   any
	Overwrite bool
}

// getPath walks a dotted path through nested objects. A missing segment
// reports ok=false.
func getPath(doc map[string]any, key string) (any, bool) {
	if key == "" {
		return doc, true
	}

	var current any = doc
	for _, segment := range strings.Split(key, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// applyOp mutates the in-memory document tree. Intermediate objects are
// created as needed; a non-object in the middle of the path is an error
// rather than a silent replace.
func applyOp(doc map[string]any, op Op) error {
	if op.Key == "" {
		return crerr.Wrap(ErrInvalidDocName, "empty key")
	}

	segments := strings.Split(op.Key, ".")
	node := doc
	for _, segment := range segments[:len(segments)-1] {
		child, ok := node[segment]
		if !ok || child == nil {
			next := make(map[string]any)
			node[segment] = next
			node = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return crerr.Wrapf(ErrInvalidDocName, "segment %q of %q is not an object", segment, op.Key)
		}
		node = next
	}

	leaf := segments[len(segments)-1]
	current, exists := node[leaf]

	if op.Overwrite {
		node[leaf] = op.Value
		return nil
	}

	if !exists || current == nil {
		if op.Default == nil {
			node[leaf] = op.Value
			return nil
		}
		// Seed the default, then let the merge below fold the value in.
		node[leaf] = op.Default
		current = op.Default
	}

	if op.Value == nil {
		return nil
	}

	switch existing := current.(type) {
	case []any:
		node[leaf] = appendValue(existing, op.Value)
	case map[string]any:
		if patch, ok := op.Value.(map[string]any); ok {
			for k, v := range patch {
				existing[k] = v
			}
			return nil
		}
		node[leaf] = op.Value
	default:
		node[leaf] = op.Value
	}

	return nil
}

func appendValue(existing []any, value any) []any {
	if items, ok := value.([]any); ok {
		return append(existing, items...)
	}
	return append(existing, value)
}
