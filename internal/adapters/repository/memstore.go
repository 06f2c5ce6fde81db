package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/animpath/internal/domain/path"
)

// MemoryStore keeps encoded assets in memory. Assets go through the YAML
// codec so it behaves like the persistent stores.
type MemoryStore struct {
	mu     sync.RWMutex
	assets map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assets: make(map[string][]byte)}
}

// Save stores st under name.
func (s *MemoryStore) Save(ctx context.Context, name string, st path.State) (err error) {
	start := time.Now()
	defer func() { observe("memory", "save", start, err) }()
	if err = ValidateName(name); err != nil {
		return err
	}
	b, err := Encode(st)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.assets[name] = b
	s.mu.Unlock()
	return nil
}

// Load returns the asset stored under name.
func (s *MemoryStore) Load(ctx context.Context, name string) (st path.State, err error) {
	start := time.Now()
	defer func() { observe("memory", "load", start, err) }()
	s.mu.RLock()
	b, ok := s.assets[name]
	s.mu.RUnlock()
	if !ok {
		return path.State{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return Decode(b)
}

// Exists reports whether an asset is stored under name.
func (s *MemoryStore) Exists(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.assets[name]
	return ok, nil
}

// List returns the stored names in lexical order.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.assets))
	for n := range s.assets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}
