// Package memory provides an in-process kv.Store with an optional byte quota.
// It is the default for tests and single-process hosts; the quota makes it
// behave like the bounded storage area the cache was designed against.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/LoosePrince/pagecache/kv"
)

type Store struct {
	mu    sync.RWMutex
	m     map[string]string
	used  int64
	quota int64 // 0 => unlimited
}

var _ kv.Store = (*Store)(nil)

// New returns an empty store. maxBytes bounds the total size of keys plus
// values; a Set that would exceed it is rejected with ok=false. Pass 0 for no
// quota.
func New(maxBytes int64) *Store {
	return &Store{m: make(map[string]string), quota: maxBytes}
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	v, ok := s.m[key]
	s.mu.RUnlock()
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) (bool, error) {
	size := int64(len(key) + len(value))
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := int64(0)
	if old, ok := s.m[key]; ok {
		prev = int64(len(key) + len(old))
	}
	if s.quota > 0 && s.used-prev+size > s.quota {
		return false, nil
	}
	s.m[key] = value
	s.used += size - prev
	return true, nil
}

func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	if old, ok := s.m[key]; ok {
		s.used -= int64(len(key) + len(old))
		delete(s.m, key)
	}
	s.mu.Unlock()
	return nil
}

func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *Store) Close(_ context.Context) error { return nil }

// Len reports the number of stored keys. Exposed for hosts that surface
// cache occupancy.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
