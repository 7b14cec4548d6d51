// Package memory implements an in-process kv.Store (spec §4.2's
// "pluggable backing" in-process option). Adapted from the teacher's
// memory/cache.go TTL-keyed map: the expiry bookkeeping is dropped
// (spec's KV tier is durable working storage, not a cache) and the flat
// string key is replaced with a (collection, key) tag so agent
// profiles, task outcomes, project snapshots, decisions, artifacts, and
// idempotency records each get their own namespace in one store.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/marcusai/marcus/internal/port/kv"
)

type Store struct {
	mu   sync.RWMutex
	data map[kv.Collection]map[string][]byte
}

func NewStore() *Store {
	return &Store{data: make(map[kv.Collection]map[string][]byte)}
}

func (s *Store) Get(_ context.Context, collection kv.Collection, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket, ok := s.data[collection]
	if !ok {
		return nil, false, nil
	}
	v, ok := bucket[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (s *Store) Put(_ context.Context, collection kv.Collection, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data[collection] == nil {
		s.data[collection] = make(map[string][]byte)
	}
	stored := make([]byte, len(value))
	copy(stored, value)
	s.data[collection][key] = stored
	return nil
}

func (s *Store) Delete(_ context.Context, collection kv.Collection, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data[collection], key)
	return nil
}

func (s *Store) Scan(_ context.Context, collection kv.Collection, filter kv.ScanFilter) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]byte)
	for k, v := range s.data[collection] {
		if filter.KeyPrefix != "" && !strings.HasPrefix(k, filter.KeyPrefix) {
			continue
		}
		cp := make([]byte, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out, nil
}

var _ kv.Store = (*Store)(nil)
