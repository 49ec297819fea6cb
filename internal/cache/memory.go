package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/imyousuf/archaeo/internal/model"
)

// DefaultMemoryEntries bounds a Memory cache when no size is given.
const DefaultMemoryEntries = 4096

// Memory is a bounded in-process cache of scope trees. Trees are copied on
// the way in and out so callers may rename or extend what they receive.
type Memory struct {
	entries *lru.Cache[string, *model.Scope]
}

// NewMemory creates a Memory cache holding at most size trees.
func NewMemory(size int) (*Memory, error) {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	entries, err := lru.New[string, *model.Scope](size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Memory{entries: entries}, nil
}

// Get returns a copy of the tree cached under key.
func (m *Memory) Get(_ context.Context, key string) (*model.Scope, bool, error) {
	scope, ok := m.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	return scope.Clone(), true, nil
}

// Put stores a copy of scope under key, evicting the least recently used
// tree when full.
func (m *Memory) Put(_ context.Context, key string, scope *model.Scope) error {
	m.entries.Add(key, scope.Clone())
	return nil
}

// Len reports how many trees are held.
func (m *Memory) Len() int { return m.entries.Len() }
