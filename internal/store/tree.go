package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Flatten decomposes a JSON value rooted at path into leaf entries, one per
// scalar or array node. Object values become nested paths; an empty object
// produces no leaves, which callers treat as a delete of the subtree.
func Flatten(path string, raw json.RawMessage) (map[string]json.RawMessage, error) {
	leaves := make(map[string]json.RawMessage)
	if err := flattenInto(leaves, path, raw); err != nil {
		return nil, err
	}
	return leaves, nil
}

func flattenInto(leaves map[string]json.RawMessage, path string, raw json.RawMessage) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return fmt.Errorf("invalid JSON value at %q", path)
	}

	if trimmed[0] != '{' {
		leaf := make(json.RawMessage, len(trimmed))
		copy(leaf, trimmed)
		leaves[path] = leaf
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return fmt.Errorf("decode object at %q: %w", path, err)
	}
	for key, value := range fields {
		if strings.TrimSpace(key) == "" || strings.Contains(key, "/") {
			return fmt.Errorf("invalid key %q under %q", key, path)
		}
		if err := flattenInto(leaves, path+"/"+key, value); err != nil {
			return err
		}
	}
	return nil
}

// Rebuild reassembles the subtree rooted at path from leaf entries. Leaves
// must already be filtered to path's subtree. A leaf stored exactly at path
// is returned as-is.
func Rebuild(path string, leaves map[string]json.RawMessage) (json.RawMessage, error) {
	if leaf, ok := leaves[path]; ok {
		return leaf, nil
	}

	root := make(map[string]any)
	prefix := path + "/"
	for key, value := range leaves {
		if !strings.HasPrefix(key, prefix) {
			return nil, fmt.Errorf("leaf %q outside subtree %q", key, path)
		}
		segments := strings.Split(key[len(prefix):], "/")
		node := root
		for _, segment := range segments[:len(segments)-1] {
			child, ok := node[segment].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[segment] = child
			}
			node = child
		}
		node[segments[len(segments)-1]] = value
	}

	raw, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("assemble subtree %q: %w", path, err)
	}
	return raw, nil
}
