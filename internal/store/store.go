// Package store defines the contract for the realtime hierarchical store
// backing game sessions.
//
// The namespace is a tree of slash-separated paths with last-writer-wins
// leaves. Writing an object value replaces the entire subtree under the
// target path; reading a path materializes its subtree back into a single
// JSON value. Writes are atomic at a single path but never across paths:
// multi-path updates are ordered sequences of independent writes.
//
// WriteIfAbsent is the conditional-write primitive used by identifier
// allocation: it claims a path only when nothing exists at or under it, in
// one atomic step, so two racing allocators can never both claim the same
// identifier.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// Event notifies a subscriber that the tree changed at or around Path.
type Event struct {
	Path string
}

// Subscription is a live feed of change events for one path.
//
// Events are delivered in the order the store applied the writes. Close
// detaches the listener; an event already in flight when Close is called may
// still be observed by a consumer that keeps reading, never more than one.
type Subscription interface {
	Events() <-chan Event
	Close()
}

// Store is the realtime hierarchical key-value store contract.
type Store interface {
	// Exists reports whether any value is stored at or under path.
	Exists(ctx context.Context, path string) (bool, error)
	// Read materializes the subtree at path. Missing paths yield ErrNotFound.
	Read(ctx context.Context, path string) (json.RawMessage, error)
	// Write replaces the subtree at path with the JSON encoding of value.
	Write(ctx context.Context, path string, value any) error
	// WriteIfAbsent writes value only when nothing exists at or under path.
	// It reports whether the write was applied.
	WriteIfAbsent(ctx context.Context, path string, value any) (bool, error)
	// Delete removes the subtree at path. Deleting a missing path is a no-op.
	Delete(ctx context.Context, path string) error
	// Subscribe opens a change feed for the subtree at path.
	Subscribe(ctx context.Context, path string) (Subscription, error)
}

// Join composes path segments into a normalized slash-separated path.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// NormalizePath validates and canonicalizes a store path.
func NormalizePath(path string) (string, error) {
	path = strings.Trim(strings.TrimSpace(path), "/")
	if path == "" {
		return "", fmt.Errorf("store path is required")
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == "" {
			return "", fmt.Errorf("store path %q has an empty segment", path)
		}
	}
	return path, nil
}

// Within reports whether path equals prefix or lies under it.
func Within(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// Related reports whether a write at one path affects the subtree at the
// other: either may be the ancestor.
func Related(a, b string) bool {
	return Within(a, b) || Within(b, a)
}
