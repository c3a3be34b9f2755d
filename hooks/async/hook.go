// Package asynchook buffers hook dispatch off the cache's hot paths.
// Events beyond the queue capacity are dropped, never blocked on.
package asynchook

import (
	"sync"

	"github.com/LoosePrince/pagecache"
)

type Hooks struct {
	inner pagecache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ pagecache.Hooks = (*Hooks)(nil)

func New(inner pagecache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) FetchFailed(page string, err error) {
	h.try(func() { h.inner.FetchFailed(page, err) })
}
func (h *Hooks) WriteRejected(page string) { h.try(func() { h.inner.WriteRejected(page) }) }
func (h *Hooks) EvictionRan(scored, removed int) {
	h.try(func() { h.inner.EvictionRan(scored, removed) })
}
func (h *Hooks) VersionPurged(o, n string, removed int) {
	h.try(func() { h.inner.VersionPurged(o, n, removed) })
}
func (h *Hooks) SwapServed(page string) { h.try(func() { h.inner.SwapServed(page) }) }
