// Package mem implements storage.Store in memory. Used by tests and by the
// daemon's ephemeral mode. A per-operation failure hook lets update-path
// tests simulate persistence faults.
package mem

import (
	"sync"

	"github.com/haukened/domrep/internal/rep/repos/storage"
)

type Store struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte

	// FailPut, when set, is consulted before every Put; returning a non-nil
	// error aborts the write. Test hook.
	FailPut func(namespace, key string) error
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{data: make(map[string]map[string][]byte)}
}

func (s *Store) Get(namespace, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns, ok := s.data[namespace]
	if !ok {
		return nil, storage.ErrNotFound
	}
	v, ok := ns[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *Store) Put(namespace, key string, value []byte) error {
	if s.FailPut != nil {
		if err := s.FailPut(namespace, key); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		s.data[namespace] = ns
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	ns[key] = cp
	return nil
}

func (s *Store) Delete(namespace, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ns, ok := s.data[namespace]; ok {
		delete(ns, key)
	}
	return nil
}

func (s *Store) Close() error { return nil }

// Keys returns the keys present in a namespace. Test helper.
func (s *Store) Keys(namespace string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for k := range s.data[namespace] {
		keys = append(keys, k)
	}
	return keys
}

var _ storage.Store = (*Store)(nil)
