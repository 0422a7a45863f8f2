// Package bbolt provides a BoltDB-backed implementation of the realtime
// store. Leaves are stored under their full path so subtree reads are
// ordered prefix scans. Change notifications cover writes made through this
// process only; a multi-node deployment needs a store with native fan-out.
package bbolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/hanz94/monopoly-tool/internal/store"
)

const leafBucket = "leaves"

// Store is a bbolt-backed hierarchical store.
type Store struct {
	db  *bbolt.DB
	hub *store.Hub

	// writeMu orders hub publication with commit order.
	writeMu sync.Mutex
}

// Open opens a bbolt-backed store at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open storage db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(leafBucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure leaf bucket: %w", err)
	}

	return &Store{db: db, hub: store.NewHub()}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
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

	var found bool
	err = s.db.View(func(tx *bbolt.Tx) error {
		found = anyUnder(tx.Bucket([]byte(leafBucket)), path)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("check %q: %w", path, err)
	}
	return found, nil
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

	subtree := make(map[string]json.RawMessage)
	err = s.db.View(func(tx *bbolt.Tx) error {
		cursor := tx.Bucket([]byte(leafBucket)).Cursor()
		prefix := []byte(path)
		for k, v := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cursor.Next() {
			key := string(k)
			if !store.Within(key, path) {
				continue
			}
			leaf := make(json.RawMessage, len(v))
			copy(leaf, v)
			subtree[key] = leaf
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", path, err)
	}
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

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return replace(tx.Bucket([]byte(leafBucket)), path, leaves)
	})
	if err != nil {
		return fmt.Errorf("write %q: %w", path, err)
	}
	s.hub.Publish(path)
	return nil
}

// WriteIfAbsent claims path atomically: the existence check and the write
// happen in a single transaction.
func (s *Store) WriteIfAbsent(ctx context.Context, path string, value any) (bool, error) {
	path, leaves, err := encode(path, value)
	if err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var applied bool
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(leafBucket))
		if anyUnder(bucket, path) {
			return nil
		}
		if err := replace(bucket, path, leaves); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("claim %q: %w", path, err)
	}
	if applied {
		s.hub.Publish(path)
	}
	return applied, nil
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

	var removed bool
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	err = s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(leafBucket))
		if !anyUnder(bucket, path) {
			return nil
		}
		removed = true
		return replace(bucket, path, nil)
	})
	if err != nil {
		return fmt.Errorf("delete %q: %w", path, err)
	}
	if removed {
		s.hub.Publish(path)
	}
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

func anyUnder(bucket *bbolt.Bucket, path string) bool {
	cursor := bucket.Cursor()
	prefix := []byte(path)
	for k, _ := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = cursor.Next() {
		if store.Within(string(k), path) {
			return true
		}
	}
	return false
}

// replace removes every leaf at or under path plus any scalar ancestor, then
// installs the new leaves.
func replace(bucket *bbolt.Bucket, path string, leaves map[string]json.RawMessage) error {
	cursor := bucket.Cursor()
	prefix := []byte(path)
	var doomed [][]byte
	for k, _ := cursor.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = cursor.Next() {
		if store.Within(string(k), path) {
			key := make([]byte, len(k))
			copy(key, k)
			doomed = append(doomed, key)
		}
	}
	for _, key := range doomed {
		if err := bucket.Delete(key); err != nil {
			return err
		}
	}

	for ancestor := path; ; {
		idx := strings.LastIndex(ancestor, "/")
		if idx < 0 {
			break
		}
		ancestor = ancestor[:idx]
		if err := bucket.Delete([]byte(ancestor)); err != nil {
			return err
		}
	}

	for key, value := range leaves {
		if err := bucket.Put([]byte(key), value); err != nil {
			return err
		}
	}
	return nil
}
