// Package sloghooks adapts pagecache.Hooks onto a slog.Logger.
package sloghooks

import (
	"log/slog"
	"sync/atomic"

	"github.com/LoosePrince/pagecache"
)

type Options struct {
	// Sampling to avoid floods on flaky networks; 0/1 = log all.
	FetchFailEvery uint64
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	fetchFailCtr atomic.Uint64
}

var _ pagecache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) FetchFailed(page string, err error) {
	if h.l == nil || !sample(h.opts.FetchFailEvery, &h.fetchFailCtr) {
		return
	}
	h.l.Warn("pagecache.fetch_failed",
		"page", page,
		"err", err)
}

func (h *Hooks) WriteRejected(page string) {
	if h.l == nil {
		return
	}
	h.l.Warn("pagecache.write_rejected",
		"page", page)
}

func (h *Hooks) EvictionRan(scored, removed int) {
	if h.l == nil {
		return
	}
	h.l.Info("pagecache.eviction_ran",
		"scored", scored,
		"removed", removed)
}

func (h *Hooks) VersionPurged(oldMarker, newMarker string, removed int) {
	if h.l == nil {
		return
	}
	h.l.Info("pagecache.version_purged",
		"old", oldMarker,
		"new", newMarker,
		"removed", removed)
}

func (h *Hooks) SwapServed(page string) {
	if h.l == nil {
		return
	}
	h.l.Debug("pagecache.swap_served",
		"page", page)
}
