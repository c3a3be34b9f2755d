package pagecache

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/LoosePrince/pagecache/internal/util"
	"github.com/LoosePrince/pagecache/kv"
)

// CacheEntry is one cached page: verbatim HTML plus its write time.
// WrittenAt is zero when the stored timestamp is missing or unparsable; such
// entries are still served but never count as fresh.
type CacheEntry struct {
	Page      string
	Content   string
	WrittenAt time.Time
}

// EntryStore persists (content, writtenAt) pairs for page keys under a
// namespaced prefix in a kv.Store. All methods are safe for concurrent use to
// the extent the underlying store is; concurrent writes to the same page are
// last-write-wins.
type EntryStore struct {
	kv    kv.Store
	ns    string
	log   Logger
	hooks Hooks
	now   func() time.Time
}

// NewEntryStore wires an EntryStore over store. Used directly by warm-up
// tooling; hosts normally go through pagecache.New.
func NewEntryStore(store kv.Store, ns string, log Logger, hooks Hooks, now func() time.Time) *EntryStore {
	if log == nil {
		log = NopLogger{}
	}
	if hooks == nil {
		hooks = NopHooks{}
	}
	if now == nil {
		now = time.Now
	}
	return &EntryStore{kv: store, ns: ns, log: log, hooks: hooks, now: now}
}

// Read returns the entry for page. Absence is a normal outcome, not an error;
// backend read errors are logged and reported as a miss so callers degrade to
// "no cache".
func (s *EntryStore) Read(ctx context.Context, page string) (CacheEntry, bool) {
	content, ok, err := s.kv.Get(ctx, util.ContentKey(s.ns, page))
	if err != nil {
		s.log.Warn("entry read failed", Fields{"page": page, "err": err})
		return CacheEntry{}, false
	}
	if !ok {
		return CacheEntry{}, false
	}
	e := CacheEntry{Page: page, Content: content}
	if raw, ok, _ := s.kv.Get(ctx, util.StampKey(s.ns, page)); ok {
		if ms, ok := util.ParseMillis(raw); ok {
			e.WrittenAt = time.UnixMilli(ms)
		}
	}
	return e, true
}

// Write persists content and writtenAt together. A quota rejection triggers an
// eviction pass and reports false; the write is not retried here - the next
// fetch cycle for the page retries naturally. The pair is never split: if the
// stamp write is rejected the content key is removed again. A zero writtenAt
// stores the content without a stamp, keeping the entry out of freshness and
// eviction scoring.
func (s *EntryStore) Write(ctx context.Context, page, content string, writtenAt time.Time) bool {
	ck := util.ContentKey(s.ns, page)
	ok, err := s.kv.Set(ctx, ck, content)
	if err != nil {
		s.log.Warn("entry write failed", Fields{"page": page, "err": err})
		return false
	}
	if !ok {
		s.writeRejected(ctx, page)
		return false
	}
	if writtenAt.IsZero() {
		_ = s.kv.Del(ctx, util.StampKey(s.ns, page))
		return true
	}
	ok, err = s.kv.Set(ctx, util.StampKey(s.ns, page), util.FormatMillis(writtenAt.UnixMilli()))
	if err != nil || !ok {
		_ = s.kv.Del(ctx, ck)
		if err != nil {
			s.log.Warn("stamp write failed", Fields{"page": page, "err": err})
			return false
		}
		s.writeRejected(ctx, page)
		return false
	}
	return true
}

func (s *EntryStore) writeRejected(ctx context.Context, page string) {
	s.hooks.WriteRejected(page)
	s.log.Info("write rejected by store; evicting oldest half", Fields{"page": page})
	s.EvictOldestHalf(ctx)
}

// Fresh reports whether page has an entry younger than window.
func (s *EntryStore) Fresh(ctx context.Context, page string, window time.Duration) bool {
	e, ok := s.Read(ctx, page)
	if !ok || e.WrittenAt.IsZero() {
		return false
	}
	return s.now().Sub(e.WrittenAt) < window
}

// PurgeAll removes every key under the cache namespace, version marker
// included. Deletion failures do not stop the pass; they are collected into a
// PurgeError. Returns how many keys were deleted.
func (s *EntryStore) PurgeAll(ctx context.Context) (int, error) {
	keys, err := s.kv.Keys(ctx, util.Prefix(s.ns))
	if err != nil {
		return 0, err
	}
	var (
		failed []string
		errs   []error
	)
	removed := 0
	for _, k := range keys {
		if err := s.kv.Del(ctx, k); err != nil {
			failed = append(failed, k)
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if len(errs) > 0 {
		return removed, &PurgeError{Namespace: s.ns, Failed: failed, Errs: errs}
	}
	return removed, nil
}

// EvictOldestHalf removes the ceil(N/2) oldest entries among the N whose
// stored timestamp parses. Entries without a parsable timestamp are not
// scored and therefore never chosen. When nothing is scorable the pass
// removes zero entries, full store or not - matching the original policy.
// Returns how many entries were removed.
func (s *EntryStore) EvictOldestHalf(ctx context.Context) int {
	stampKeys, err := s.kv.Keys(ctx, util.StampPrefix(s.ns))
	if err != nil {
		s.log.Warn("eviction scan failed", Fields{"err": err})
		return 0
	}

	type aged struct {
		page string
		ms   int64
	}
	var scored []aged
	for _, k := range stampKeys {
		page, ok := util.PageFromStampKey(s.ns, k)
		if !ok {
			continue
		}
		raw, ok, _ := s.kv.Get(ctx, k)
		if !ok {
			continue
		}
		ms, ok := util.ParseMillis(raw)
		if !ok {
			continue
		}
		scored = append(scored, aged{page: page, ms: ms})
	}
	if len(scored) == 0 {
		s.hooks.EvictionRan(0, 0)
		return 0
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].ms < scored[j].ms })
	n := int(math.Ceil(float64(len(scored)) / 2))

	removed := 0
	for _, a := range scored[:n] {
		_ = s.kv.Del(ctx, util.ContentKey(s.ns, a.page))
		_ = s.kv.Del(ctx, util.StampKey(s.ns, a.page))
		removed++
	}
	s.hooks.EvictionRan(len(scored), removed)
	s.log.Info("evicted oldest entries", Fields{"scored": len(scored), "removed": removed})
	return removed
}

// Pages lists every page key that currently has a content entry.
func (s *EntryStore) Pages(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx, util.ContentPrefix(s.ns))
	if err != nil {
		return nil, err
	}
	prefix := util.ContentPrefix(s.ns)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k[len(prefix):])
	}
	sort.Strings(out)
	return out, nil
}
