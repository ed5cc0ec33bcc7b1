// internal/store/kv.go
//
// Key-value storage contract.
//
// Context
// -------
// Everything the app persists is a string value under a string key; the
// Repository (repository.go) owns the key names and JSON shapes.  This file
// defines the KV contract plus two small implementations: an in-memory map
// for tests and single-process runs, and Prefixed, which scopes another KV
// under a namespace (one per visitor for the "submitted" and draft keys).
// The SQL-backed implementation lives in sqlkv.go.
//
// Notes
// -----
// • Get reports absence with ok == false, never an error.
// • KeysWithPrefix returns keys in ascending order.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// KV is the storage contract every backend implements.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	KeysWithPrefix(ctx context.Context, prefix string) ([]string, error)
}

// MemoryKV is a map guarded by an RWMutex.  The zero value is not usable;
// call NewMemoryKV.
type MemoryKV struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemoryKV returns an empty store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: make(map[string]string)}
}

// Get implements KV.
func (s *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok, nil
}

// Set implements KV.
func (s *MemoryKV) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
	return nil
}

// Remove implements KV.
func (s *MemoryKV) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

// KeysWithPrefix implements KV.
func (s *MemoryKV) KeysWithPrefix(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for k := range s.m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Prefixed scopes every key of an underlying KV under ns.  Keys returned by
// KeysWithPrefix have ns stripped.
type Prefixed struct {
	ns   string
	base KV
}

// NewPrefixed wraps base so that key k is stored as ns+k.
func NewPrefixed(base KV, ns string) *Prefixed {
	return &Prefixed{ns: ns, base: base}
}

// Get implements KV.
func (p *Prefixed) Get(ctx context.Context, key string) (string, bool, error) {
	return p.base.Get(ctx, p.ns+key)
}

// Set implements KV.
func (p *Prefixed) Set(ctx context.Context, key, value string) error {
	return p.base.Set(ctx, p.ns+key, value)
}

// Remove implements KV.
func (p *Prefixed) Remove(ctx context.Context, key string) error {
	return p.base.Remove(ctx, p.ns+key)
}

// KeysWithPrefix implements KV.
func (p *Prefixed) KeysWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	keys, err := p.base.KeysWithPrefix(ctx, p.ns+prefix)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, p.ns)
	}
	return keys, nil
}
