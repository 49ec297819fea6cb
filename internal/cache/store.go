// Package cache persists analyzed scope trees keyed by file content so that
// unchanged files are not measured twice.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/zeebo/xxh3"

	"github.com/imyousuf/archaeo/internal/model"
)

// Key prefixes for the BadgerDB key scheme.
const (
	prefixScope = "s:"
)

// Stats describes the cache contents.
type Stats struct {
	Entries   int64
	Bytes     int64
	ByVersion map[string]int64
}

// Store is a BadgerDB-backed cache of scope trees.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a cache at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // suppress badger logs
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	return &Store{db: db}, nil
}

// Key derives the cache key for content measured by an analyzer version.
func Key(version string, lang model.Language, content []byte) string {
	h := xxh3.Hash128(content)
	return fmt.Sprintf("%s:%s:%016x%016x", version, lang, h.Hi, h.Lo)
}

func scopeKey(key string) []byte { return []byte(prefixScope + key) }

// Get returns the cached tree for key. A miss is not an error.
func (s *Store) Get(_ context.Context, key string) (*model.Scope, bool, error) {
	var scope model.Scope
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(scopeKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &scope)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get scope %s: %w", key, err)
	}
	return &scope, true, nil
}

// Put stores the tree under key.
func (s *Store) Put(_ context.Context, key string, scope *model.Scope) error {
	data, err := json.Marshal(scope)
	if err != nil {
		return fmt.Errorf("marshal scope: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(scopeKey(key), data)
	})
}

// Stats counts entries and their stored size, grouped by analyzer version.
func (s *Store) Stats(_ context.Context) (*Stats, error) {
	stats := &Stats{ByVersion: make(map[string]int64)}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(prefixScope)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.Valid(); it.Next() {
			item := it.Item()
			stats.Entries++
			stats.Bytes += item.ValueSize()
			key := strings.TrimPrefix(string(item.Key()), prefixScope)
			version, _, _ := strings.Cut(key, ":")
			stats.ByVersion[version]++
		}
		return nil
	})
	return stats, err
}

// Clear removes every cached entry.
func (s *Store) Clear(_ context.Context) error {
	return s.deleteKeysByPrefix([]byte(prefixScope))
}

func (s *Store) Close() error {
	return s.db.Close()
}

// deleteKeysByPrefix removes all keys with the given prefix.
func (s *Store) deleteKeysByPrefix(prefix []byte) error {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Delete in batches to avoid transaction size limits.
	const batchSize = 1000
	for i := 0; i < len(keys); i += batchSize {
		batch := keys[i:min(i+batchSize, len(keys))]
		err := s.db.Update(func(txn *badger.Txn) error {
			for _, key := range batch {
				if err := txn.Delete(key); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
