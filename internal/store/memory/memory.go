// Package memory provides an in-process implementation of the realtime
// store, used by tests and single-node deployments.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/hanz94/monopoly-tool/internal/store"
)

// Store is an in-memory hierarchical store with watch fan-out.
type Store struct {
	mu     sync.Mutex
	leaves map[string]json.RawMessage
	hub    *store.Hub
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		leaves: make(map[string]json.RawMessage),
		hub:    store.NewHub(),
	}
}

// Exists reports whether any leaf is stored at or under path.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	path, err := store.NormalizePath(path)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.anyUnderLocked(path), nil
}

// Read materializes the subtree at path.
func (s *Store) Read(ctx context.Context, path string) (json.RawMessage, error) {
	path, err := store.NormalizePath(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	subtree := s.collectLocked(path)
	s.mu.Unlock()

	if len(subtree) == 0 {
		return nil, store.ErrNotFound
	}
	return store.Rebuild(path, subtree)
}

// Write replaces the subtree at path with value.
func (s *Store) Write(ctx context.Context, path string, value any) error {
	path, leaves, err := encode(path, value)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceLocked(path, leaves)
	s.hub.Publish(path)
	return nil
}

// WriteIfAbsent writes value only when nothing exists at or under path.
func (s *Store) WriteIfAbsent(ctx context.Context, path string, value any) (bool, error) {
	path, leaves, err := encode(path, value)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.anyUnderLocked(path) {
		return false, nil
	}
	s.replaceLocked(path, leaves)
	s.hub.Publish(path)
	return true, nil
}

// Delete removes the subtree at path.
func (s *Store) Delete(ctx context.Context, path string) error {
	path, err := store.NormalizePath(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.anyUnderLocked(path) {
		return nil
	}
	s.replaceLocked(path, nil)
	s.hub.Publish(path)
	return nil
}

// Subscribe opens a change feed for the subtree at path.
func (s *Store) Subscribe(ctx context.Context, path string) (store.Subscription, error) {
	path, err := store.NormalizePath(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.hub.Subscribe(path), nil
}

func encode(path string, value any) (string, map[string]json.RawMessage, error) {
	path, err := store.NormalizePath(path)
	if err != nil {
		return "", nil, err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return "", nil, fmt.Errorf("encode value for %q: %w", path, err)
	}
	leaves, err := store.Flatten(path, raw)
	if err != nil {
		return "", nil, err
	}
	return path, leaves, nil
}

func (s *Store) anyUnderLocked(path string) bool {
	if _, ok := s.leaves[path]; ok {
		return true
	}
	prefix := path + "/"
	for key := range s.leaves {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func (s *Store) collectLocked(path string) map[string]json.RawMessage {
	subtree := make(map[string]json.RawMessage)
	for key, value := range s.leaves {
		if store.Within(key, path) {
			subtree[key] = value
		}
	}
	return subtree
}

// replaceLocked removes every leaf under path, then installs the new leaves.
// An ancestor leaf shadowed by the written path is also removed so the tree
// never holds a scalar and an object at the same node.
func (s *Store) replaceLocked(path string, leaves map[string]json.RawMessage) {
	prefix := path + "/"
	for key := range s.leaves {
		if key == path || strings.HasPrefix(key, prefix) {
			delete(s.leaves, key)
		}
	}
	for ancestor := path; ; {
		idx := strings.LastIndex(ancestor, "/")
		if idx < 0 {
			break
		}
		ancestor = ancestor[:idx]
		delete(s.leaves, ancestor)
	}
	for key, value := range leaves {
		s.leaves[key] = value
	}
}
