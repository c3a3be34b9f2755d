package pagecache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// preloader warms the cache for every known page except the one currently
// displayed. Fetches are scheduled on independent timers after a fixed coarse
// delay and fire concurrently; the only gate is a freshness check at fire
// time, so overlapping cycles may double-fetch a page. That is accepted - the
// contract is eventual freshness, not exactly-once fetching.
type preloader struct {
	entries *EntryStore
	fetch   Fetcher
	log     Logger
	hooks   Hooks
	delay   time.Duration
	fresh   time.Duration
	now     func() time.Time

	mu     sync.Mutex
	timers []*time.Timer
	closed bool
}

func (p *preloader) run(pages []string, current string) {
	for _, page := range pages {
		if page == current {
			continue
		}
		page := page
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return
		}
		t := time.AfterFunc(p.delay, func() {
			if p.entries.Fresh(context.Background(), page, p.fresh) {
				p.log.Debug("preload skipped; entry fresh", Fields{"page": page})
				return
			}
			p.fetchAndStore(context.Background(), page)
		})
		p.timers = append(p.timers, t)
		p.mu.Unlock()
	}
}

// refresh re-fetches page in the background with no freshness check. Used
// after a cache-backed swap: the user just consumed the page, so a refresh is
// always worthwhile.
func (p *preloader) refresh(page string) {
	go p.fetchAndStore(context.Background(), page)
}

// fetchAndStore GETs page and writes the body verbatim with writtenAt = now.
// Failures leave the page uncached and are logged, never surfaced.
func (p *preloader) fetchAndStore(ctx context.Context, page string) {
	body, err := p.fetch.Fetch(ctx, page)
	if err != nil {
		p.hooks.FetchFailed(page, err)
		p.log.Warn("background fetch failed", Fields{"page": page, "err": err})
		return
	}
	p.entries.Write(ctx, page, body, p.now())
}

// warm fetches every non-fresh page immediately with bounded concurrency.
// Synchronous counterpart to run, for CLI warm-up and host-controlled seeding.
func (p *preloader) warm(ctx context.Context, pages []string, parallel int) error {
	if parallel <= 0 {
		parallel = 4
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for _, page := range pages {
		page := page
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if p.entries.Fresh(ctx, page, p.fresh) {
				return nil
			}
			p.fetchAndStore(ctx, page)
			return nil
		})
	}
	return g.Wait()
}

func (p *preloader) close() {
	p.mu.Lock()
	p.closed = true
	for _, t := range p.timers {
		t.Stop()
	}
	p.timers = nil
	p.mu.Unlock()
}
