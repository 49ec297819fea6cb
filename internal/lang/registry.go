package lang

import (
	"sort"
	"strings"
	"sync"

	"github.com/imyousuf/archaeo/internal/model"
)

// Registry manages a collection of language analyzers.
type Registry struct {
	mu        sync.RWMutex
	analyzers map[model.Language]Analyzer
	extIndex  map[string]Analyzer
	order     []model.Language
}

// NewRegistry creates a new analyzer registry.
func NewRegistry() *Registry {
	return &Registry{
		analyzers: make(map[model.Language]Analyzer),
		extIndex:  make(map[string]Analyzer),
		order:     make([]model.Language, 0),
	}
}

// Register adds an analyzer to the registry, indexing it by language and file extensions.
func (r *Registry) Register(a Analyzer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := a.Language()
	if _, exists := r.analyzers[l]; !exists {
		r.order = append(r.order, l)
	}
	r.analyzers[l] = a
	for _, ext := range a.Extensions() {
		r.extIndex[strings.ToLower(ext)] = a
	}
}

// Get retrieves an analyzer by language.
func (r *Registry) Get(l model.Language) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.analyzers[l]
	return a, ok
}

// GetByExtension retrieves an analyzer by file extension (e.g. ".cpp", ".C").
func (r *Registry) GetByExtension(ext string) (Analyzer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.extIndex[strings.ToLower(ext)]
	return a, ok
}

// All returns all registered analyzers in registration order.
func (r *Registry) All() []Analyzer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Analyzer, len(r.order))
	for i, l := range r.order {
		result[i] = r.analyzers[l]
	}
	return result
}

// SupportedExtensions returns all file extensions that have a registered analyzer, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	exts := make([]string, 0, len(r.extIndex))
	for ext := range r.extIndex {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
