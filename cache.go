package pagecache

import (
	"context"
	"fmt"
	"time"

	"github.com/LoosePrince/pagecache/kv"
)

const (
	defaultNamespace    = "pagecache"
	defaultPreloadDelay = 2 * time.Second
	defaultFreshFor     = 24 * time.Hour
	defaultScrollDelay  = 100 * time.Millisecond
)

type cache struct {
	kv      kv.Store
	ns      string
	version string
	pages   []string
	enabled bool

	log   Logger
	hooks Hooks
	now   func() time.Time

	entries *EntryStore
	pre     *preloader
	nav     *navigator

	warmParallel int
}

func newCache(opts Options) (*cache, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("pagecache: store is required")
	}
	if opts.Version == "" {
		return nil, fmt.Errorf("pagecache: version is required")
	}
	if len(opts.Pages) == 0 {
		return nil, fmt.Errorf("pagecache: page list is required")
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		if opts.BaseURL == "" {
			return nil, fmt.Errorf("pagecache: fetcher or base URL is required")
		}
		fetcher = &HTTPFetcher{Base: opts.BaseURL, Client: opts.Client}
	}

	c := &cache{
		kv:      opts.Store,
		version: opts.Version,
		pages:   append([]string(nil), opts.Pages...),
		enabled: !opts.Disabled,
	}

	// defaults
	c.ns = coalesce(opts.Namespace, defaultNamespace)
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	c.now = opts.Now
	if c.now == nil {
		c.now = time.Now
	}
	c.warmParallel = opts.WarmParallel

	c.entries = NewEntryStore(c.kv, c.ns, c.log, c.hooks, c.now)
	c.pre = &preloader{
		entries: c.entries,
		fetch:   fetcher,
		log:     c.log,
		hooks:   c.hooks,
		delay:   coalesce(opts.PreloadDelay, defaultPreloadDelay),
		fresh:   coalesce(opts.FreshFor, defaultFreshFor),
		now:     c.now,
	}

	known := make(map[string]struct{}, len(c.pages))
	for _, p := range c.pages {
		known[p] = struct{}{}
	}
	c.nav = &navigator{
		entries:     c.entries,
		pre:         c.pre,
		doc:         opts.Document,
		hist:        opts.History,
		view:        opts.Viewport,
		pages:       known,
		log:         c.log,
		hooks:       c.hooks,
		scrollDelay: coalesce(opts.ScrollDelay, defaultScrollDelay),
	}
	return c, nil
}

func (c *cache) Enabled() bool { return c.enabled }

func (c *cache) Start(ctx context.Context, current string) error {
	if !c.enabled {
		return nil
	}
	// the purge-or-keep decision must complete before any preload is
	// scheduled and before handlers run
	if err := c.ensureVersion(ctx); err != nil {
		return err
	}
	c.pre.run(c.pages, current)
	return nil
}

func (c *cache) Click(ctx context.Context, href string) bool {
	if !c.enabled {
		return false
	}
	return c.nav.click(ctx, href)
}

func (c *cache) PopState(s State) {
	if !c.enabled {
		return
	}
	c.nav.popState(s)
}

func (c *cache) Warm(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	if err := c.ensureVersion(ctx); err != nil {
		return err
	}
	return c.pre.warm(ctx, c.pages, c.warmParallel)
}

func (c *cache) Entries() *EntryStore { return c.entries }

func (c *cache) Close(ctx context.Context) error {
	c.pre.close()
	return c.kv.Close(ctx)
}
