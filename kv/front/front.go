// Package front wraps any kv.Store with a ristretto read-through front.
// Hot page HTML is served from memory without touching the durable backend;
// writes and deletes pass through and keep the front coherent.
package front

import (
	"context"
	"errors"

	rc "github.com/dgraph-io/ristretto"

	"github.com/LoosePrince/pagecache/kv"
)

type Store struct {
	inner kv.Store
	c     *rc.Cache
}

var _ kv.Store = (*Store)(nil)

type Config struct {
	Inner       kv.Store
	NumCounters int64
	MaxCost     int64 // bytes held in the front
	BufferItems int64
}

func New(cfg Config) (*Store, error) {
	if cfg.Inner == nil {
		return nil, errors.New("front: inner store is required")
	}
	if cfg.NumCounters <= 0 || cfg.MaxCost <= 0 || cfg.BufferItems <= 0 {
		return nil, errors.New("front: invalid ristretto config")
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &Store{inner: cfg.Inner, c: c}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if v, ok := s.c.Get(key); ok {
		if str, ok := v.(string); ok {
			return str, true, nil
		}
		s.c.Del(key) // drop unexpected entry shape
	}
	v, ok, err := s.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", false, err
	}
	s.c.Set(key, v, int64(len(v)))
	return v, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) (bool, error) {
	ok, err := s.inner.Set(ctx, key, value)
	if err != nil || !ok {
		// keep the front coherent with the rejected write
		s.c.Del(key)
		return ok, err
	}
	s.c.Set(key, value, int64(len(value)))
	return true, nil
}

func (s *Store) Del(ctx context.Context, key string) error {
	s.c.Del(key)
	return s.inner.Del(ctx, key)
}

// Keys enumerates the inner store; the front never holds keys the backend
// does not.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	return s.inner.Keys(ctx, prefix)
}

func (s *Store) Close(ctx context.Context) error {
	s.c.Wait()
	s.c.Close()
	return s.inner.Close(ctx)
}
