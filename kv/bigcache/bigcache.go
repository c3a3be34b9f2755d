package bigcache

import (
	"context"
	"strings"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/LoosePrince/pagecache/kv"
)

// Store adapts BigCache to kv.Store. Purely in-memory; suitable when the host
// only wants fast soft navigation for the current process and no durability.
type Store struct {
	c *bc.BigCache
}

var _ kv.Store = (*Store)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Store, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	b, err := s.c.Get(key)
	if err == bc.ErrEntryNotFound {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

func (s *Store) Set(_ context.Context, key, value string) (bool, error) {
	// BigCache never reports quota; oversized entries age out via LifeWindow.
	return true, s.c.Set(key, []byte(value))
}

func (s *Store) Del(_ context.Context, key string) error {
	err := s.c.Delete(key)
	if err == bc.ErrEntryNotFound {
		return nil
	}
	return err
}

func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	var out []string
	it := s.c.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue // entry evicted mid-iteration
		}
		if strings.HasPrefix(info.Key(), prefix) {
			out = append(out, info.Key())
		}
	}
	return out, nil
}

func (s *Store) Close(_ context.Context) error {
	return s.c.Close()
}
