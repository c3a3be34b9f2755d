package pagecache

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/LoosePrince/pagecache/kv"
)

// Cache is the page cache and soft-navigation engine. One Cache serves one
// site; the page list and version are compiled into the host.
type Cache interface {
	Enabled() bool

	// Start runs the version guard, then schedules delayed background
	// preloads for every known page except current. Call once per page
	// load, before wiring Click/PopState handlers: by the time it returns,
	// the store reflects the post-purge state the handlers will read.
	Start(ctx context.Context, current string) error

	// Click is the host's link click handler. True means the click was
	// served from cache and default navigation must be suppressed.
	Click(ctx context.Context, href string) bool

	// PopState is the host's history traversal handler.
	PopState(s State)

	// Warm synchronously fetches every known page whose entry is not
	// fresh, with bounded concurrency. It does not require Start.
	Warm(ctx context.Context) error

	// Export writes a snapshot of every cached entry; Import loads one,
	// skipping entries older than what the store already holds.
	Export(ctx context.Context, w io.Writer) error
	Import(ctx context.Context, r io.Reader) (int, error)

	// Entries exposes the underlying store for tooling.
	Entries() *EntryStore

	Close(ctx context.Context) error
}

// Options tune the cache. Store, Version and Pages are required; Fetcher may
// be replaced by BaseURL for the stock HTTP fetcher. Document, History and
// Viewport are optional - without them Click always reports unhandled and the
// cache only warms.
type Options struct {
	// Required
	Store   kv.Store
	Version string   // compiled-in site version; mismatch purges the cache
	Pages   []string // fixed allow-list of page keys

	// One of Fetcher or BaseURL is required.
	Fetcher Fetcher
	BaseURL string
	Client  *http.Client // used by the stock fetcher; nil => default client

	// Browser surface (optional, see package doc)
	Document Document
	History  History
	Viewport Viewport

	Namespace    string        // key prefix; "" => "pagecache"
	Logger       Logger        // nil => NopLogger
	Hooks        Hooks         // nil => NopHooks
	PreloadDelay time.Duration // 0 => 2s
	FreshFor     time.Duration // freshness window; 0 => 24h
	ScrollDelay  time.Duration // settle time before scroll restore; 0 => 100ms
	WarmParallel int           // Warm concurrency; 0 => 4
	Now          func() time.Time
	Disabled     bool // default false (enabled)
}

func New(opts Options) (Cache, error) {
	return newCache(opts)
}
