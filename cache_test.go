package pagecache

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LoosePrince/pagecache/kv/memory"
)

var sitePages = []string{"index.html", "install.html", "docs.html"}

// ==============================
// Fakes
// ==============================

type fakeFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	body  map[string]string
	fail  map[string]error
}

var _ Fetcher = (*fakeFetcher)(nil)

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls: make(map[string]int),
		body:  make(map[string]string),
		fail:  make(map[string]error),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, page string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[page]++
	if err := f.fail[page]; err != nil {
		return "", err
	}
	if b, ok := f.body[page]; ok {
		return b, nil
	}
	return "<html>" + page + "</html>", nil
}

func (f *fakeFetcher) count(page string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[page]
}

type fakeDoc struct {
	mu    sync.Mutex
	html  string
	swaps int
}

func (d *fakeDoc) Replace(html string) {
	d.mu.Lock()
	d.html = html
	d.swaps++
	d.mu.Unlock()
}

func (d *fakeDoc) current() (string, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.html, d.swaps
}

type histEvent struct {
	kind  string // "replace" | "push"
	url   string
	state State
}

type fakeHist struct {
	mu     sync.Mutex
	events []histEvent
}

func (h *fakeHist) ReplaceState(s State) {
	h.mu.Lock()
	h.events = append(h.events, histEvent{kind: "replace", state: s})
	h.mu.Unlock()
}

func (h *fakeHist) PushState(url string, s State) {
	h.mu.Lock()
	h.events = append(h.events, histEvent{kind: "push", url: url, state: s})
	h.mu.Unlock()
}

func (h *fakeHist) all() []histEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]histEvent(nil), h.events...)
}

type fakeView struct {
	mu       sync.Mutex
	y        int
	restored []int
}

func (v *fakeView) ScrollY() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.y
}

func (v *fakeView) ScrollTo(y int) {
	v.mu.Lock()
	v.restored = append(v.restored, y)
	v.mu.Unlock()
}

func (v *fakeView) restores() []int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]int(nil), v.restored...)
}

func waitFor(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

type testEnv struct {
	store *memory.Store
	fetch *fakeFetcher
	doc   *fakeDoc
	hist  *fakeHist
	view  *fakeView
}

func newTestCache(t *testing.T, env *testEnv, mod func(*Options)) Cache {
	t.Helper()
	opts := Options{
		Store:        env.store,
		Version:      "1.0.0",
		Pages:        sitePages,
		Fetcher:      env.fetch,
		Document:     env.doc,
		History:      env.hist,
		Viewport:     env.view,
		PreloadDelay: 5 * time.Millisecond,
		ScrollDelay:  time.Millisecond,
	}
	if mod != nil {
		mod(&opts)
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func newEnv() *testEnv {
	return &testEnv{
		store: memory.New(0),
		fetch: newFakeFetcher(),
		doc:   &fakeDoc{},
		hist:  &fakeHist{},
		view:  &fakeView{},
	}
}

// ==============================
// Construction
// ==============================

func TestNewValidatesOptions(t *testing.T) {
	env := newEnv()
	cases := []struct {
		name string
		mod  func(*Options)
	}{
		{"missing store", func(o *Options) { o.Store = nil }},
		{"missing version", func(o *Options) { o.Version = "" }},
		{"missing pages", func(o *Options) { o.Pages = nil }},
		{"missing fetcher and base", func(o *Options) { o.Fetcher = nil; o.BaseURL = "" }},
	}
	for _, tc := range cases {
		opts := Options{
			Store:   env.store,
			Version: "1.0.0",
			Pages:   sitePages,
			Fetcher: env.fetch,
		}
		tc.mod(&opts)
		if _, err := New(opts); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

// ==============================
// Version guard
// ==============================

func TestVersionMismatchPurgesAndUpdatesMarker(t *testing.T) {
	ctx := context.Background()
	env := newEnv()

	c1 := newTestCache(t, env, func(o *Options) { o.Version = "1.0.0" })
	if err := c1.Start(ctx, "index.html"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !c1.Entries().Write(ctx, "install.html", "<html>install</html>", time.UnixMilli(0)) {
		t.Fatalf("seed write failed")
	}
	_ = c1.Close(ctx)

	// site ships 1.0.1; next load purges everything cached under 1.0.0
	c2 := newTestCache(t, env, func(o *Options) { o.Version = "1.0.1" })
	if err := c2.Start(ctx, "index.html"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c2.Close(ctx)

	if _, ok, _ := env.store.Get(ctx, "pagecache:page:install.html"); ok {
		t.Fatalf("install.html must be purged on version change")
	}
	marker, ok, _ := env.store.Get(ctx, "pagecache:version")
	if !ok || marker != "1.0.1" {
		t.Fatalf("version marker = %q ok=%v, want 1.0.1", marker, ok)
	}
}

func TestSameVersionKeepsEntries(t *testing.T) {
	ctx := context.Background()
	env := newEnv()

	c1 := newTestCache(t, env, nil)
	_ = c1.Start(ctx, "index.html")
	c1.Entries().Write(ctx, "docs.html", "<html>docs</html>", time.UnixMilli(1))
	_ = c1.Close(ctx)

	c2 := newTestCache(t, env, nil)
	_ = c2.Start(ctx, "index.html")
	defer c2.Close(ctx)

	if _, ok := c2.Entries().Read(ctx, "docs.html"); !ok {
		t.Fatalf("entries must survive a same-version load")
	}
}

// ==============================
// Preload
// ==============================

func TestStartPreloadsOtherPages(t *testing.T) {
	ctx := context.Background()
	env := newEnv()
	c := newTestCache(t, env, nil)
	defer c.Close(ctx)

	if err := c.Start(ctx, "index.html"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	// nothing fires before the delay elapses
	if env.fetch.count("install.html") != 0 {
		t.Fatalf("preload fired before delay")
	}
	waitFor(t, time.Second, "install.html fetched", func() bool { return env.fetch.count("install.html") >= 1 })
	waitFor(t, time.Second, "docs.html fetched", func() bool { return env.fetch.count("docs.html") >= 1 })
	if env.fetch.count("index.html") != 0 {
		t.Fatalf("current page must not be preloaded")
	}

	// fetched bodies are stored verbatim
	waitFor(t, time.Second, "install.html stored", func() bool {
		e, ok := c.Entries().Read(ctx, "install.html")
		return ok && e.Content == "<html>install.html</html>"
	})
}

func TestFreshEntrySkipsPreloadFetch(t *testing.T) {
	ctx := context.Background()
	env := newEnv()
	c := newTestCache(t, env, nil)
	defer c.Close(ctx)

	_ = c.Start(ctx, "index.html")
	// cancel the first cycle's effect by seeding fresh entries before timers fire
	c.Entries().Write(ctx, "install.html", "cached", time.Now())
	c.Entries().Write(ctx, "docs.html", "cached", time.Now())

	time.Sleep(40 * time.Millisecond)
	if n := env.fetch.count("install.html"); n != 0 {
		t.Fatalf("fresh install.html fetched %d times, want 0", n)
	}
	if n := env.fetch.count("docs.html"); n != 0 {
		t.Fatalf("fresh docs.html fetched %d times, want 0", n)
	}
}

func TestStaleEntryIsRefetched(t *testing.T) {
	ctx := context.Background()
	env := newEnv()
	c := newTestCache(t, env, nil)
	defer c.Close(ctx)

	c.Entries().Write(ctx, "install.html", "old", time.Now().Add(-25*time.Hour))
	_ = c.Start(ctx, "index.html")

	waitFor(t, time.Second, "stale install.html refetched", func() bool { return env.fetch.count("install.html") >= 1 })
}

func TestFetchFailureLeavesPageUncached(t *testing.T) {
	ctx := context.Background()
	env := newEnv()
	env.fetch.fail["install.html"] = errors.New("boom")
	c := newTestCache(t, env, nil)
	defer c.Close(ctx)

	_ = c.Start(ctx, "index.html")
	waitFor(t, time.Second, "install.html attempted", func() bool { return env.fetch.count("install.html") >= 1 })

	if _, ok := c.Entries().Read(ctx, "install.html"); ok {
		t.Fatalf("failed fetch must not create an entry")
	}
	// other pages are unaffected
	waitFor(t, time.Second, "docs.html stored", func() bool {
		_, ok := c.Entries().Read(ctx, "docs.html")
		return ok
	})
}

// ==============================
// Navigation
// ==============================

func TestClickServesCachedSwap(t *testing.T) {
	ctx := context.Background()
	env := newEnv()
	env.view.y = 640
	c := newTestCache(t, env, nil)
	defer c.Close(ctx)

	_ = c.Start(ctx, "index.html")
	c.Entries().Write(ctx, "docs.html", "<html>cached docs</html>", time.Now())
	before := env.fetch.count("docs.html")

	if !c.Click(ctx, "docs.html") {
		t.Fatalf("cached click must be handled")
	}

	html, swaps := env.doc.current()
	if swaps != 1 || html != "<html>cached docs</html>" {
		t.Fatalf("document not swapped: swaps=%d html=%q", swaps, html)
	}

	events := env.hist.all()
	if len(events) != 2 {
		t.Fatalf("expected replace+push, got %+v", events)
	}
	if events[0].kind != "replace" || !events[0].state.HasScroll || events[0].state.ScrollY != 640 {
		t.Fatalf("first event must record scroll into current entry: %+v", events[0])
	}
	if events[1].kind != "push" || events[1].url != "docs.html" || !events[1].state.FromCache {
		t.Fatalf("second event must push cache-marked entry: %+v", events[1])
	}

	// unconditional background refresh, freshness notwithstanding
	waitFor(t, time.Second, "refresh fetch", func() bool { return env.fetch.count("docs.html") > before })
}

func TestClickMissFallsThroughToDefaultNavigation(t *testing.T) {
	ctx := context.Background()
	env := newEnv()
	c := newTestCache(t, env, nil)
	defer c.Close(ctx)

	_ = c.Start(ctx, "index.html")
	if c.Click(ctx, "docs.html") {
		t.Fatalf("uncached click must not be handled")
	}
	if _, swaps := env.doc.current(); swaps != 0 {
		t.Fatalf("miss must not touch the document")
	}
	if len(env.hist.all()) != 0 {
		t.Fatalf("miss must not touch history")
	}
}

func TestClickIgnoresUnknownHrefs(t *testing.T) {
	ctx := context.Background()
	env := newEnv()
	c := newTestCache(t, env, nil)
	defer c.Close(ctx)

	_ = c.Start(ctx, "index.html")
	// even a cached entry outside the allow-list is not intercepted
	c.Entries().Write(ctx, "docs.html", "cached", time.Now())

	for _, href := range []string{"docs.html?x=1", "docs.html#top", "./docs.html", "other.html"} {
		if c.Click(ctx, href) {
			t.Fatalf("href %q must fall through", href)
		}
	}
}

func TestClickWithoutBrowserSurfaceIsUnhandled(t *testing.T) {
	ctx := context.Background()
	env := newEnv()
	c := newTestCache(t, env, func(o *Options) {
		o.Document = nil
		o.History = nil
		o.Viewport = nil
	})
	defer c.Close(ctx)

	_ = c.Start(ctx, "index.html")
	c.Entries().Write(ctx, "docs.html", "cached", time.Now())
	if c.Click(ctx, "docs.html") {
		t.Fatalf("warm-only host must never intercept clicks")
	}
}

func TestPopStateRestoresScrollAfterDelay(t *testing.T) {
	ctx := context.Background()
	env := newEnv()
	c := newTestCache(t, env, nil)
	defer c.Close(ctx)

	c.PopState(State{ScrollY: 480, HasScroll: true})
	waitFor(t, time.Second, "scroll restore", func() bool {
		r := env.view.restores()
		return len(r) == 1 && r[0] == 480
	})
}

func TestPopStateWithoutScrollDoesNothing(t *testing.T) {
	ctx := context.Background()
	env := newEnv()
	c := newTestCache(t, env, nil)
	defer c.Close(ctx)

	c.PopState(State{FromCache: true})
	time.Sleep(20 * time.Millisecond)
	if r := env.view.restores(); len(r) != 0 {
		t.Fatalf("no scroll state, no restore; got %v", r)
	}
}

// ==============================
// Warm / snapshot / disabled
// ==============================

func TestWarmFetchesStalePagesOnly(t *testing.T) {
	ctx := context.Background()
	env := newEnv()
	c := newTestCache(t, env, nil)
	defer c.Close(ctx)

	// the marker must exist first: an absent marker means a version change
	// and would purge the seed below
	env.store.Set(ctx, "pagecache:version", "1.0.0")
	c.Entries().Write(ctx, "index.html", "fresh", time.Now())

	if err := c.Warm(ctx); err != nil {
		t.Fatalf("Warm: %v", err)
	}
	if env.fetch.count("index.html") != 0 {
		t.Fatalf("fresh page fetched during warm")
	}
	for _, p := range []string{"install.html", "docs.html"} {
		if _, ok := c.Entries().Read(ctx, p); !ok {
			t.Fatalf("%s not warmed", p)
		}
	}

	// a second warm finds everything fresh and fetches nothing more
	if err := c.Warm(ctx); err != nil {
		t.Fatalf("second Warm: %v", err)
	}
	for _, p := range sitePages {
		if n := env.fetch.count(p); n > 1 {
			t.Fatalf("%s refetched while fresh: %d fetches", p, n)
		}
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	env := newEnv()
	c := newTestCache(t, env, nil)

	writtenAt := time.UnixMilli(1_700_000_000_000)
	c.Entries().Write(ctx, "index.html", "<html>home</html>", writtenAt)
	c.Entries().Write(ctx, "docs.html", "<html>docs</html>", writtenAt.Add(time.Minute))

	var buf bytes.Buffer
	if err := c.Export(ctx, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	_ = c.Close(ctx)

	env2 := newEnv()
	c2 := newTestCache(t, env2, nil)
	defer c2.Close(ctx)

	n, err := c2.Import(ctx, &buf)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if n != 2 {
		t.Fatalf("imported %d entries, want 2", n)
	}
	e, ok := c2.Entries().Read(ctx, "index.html")
	if !ok || e.Content != "<html>home</html>" {
		t.Fatalf("index.html not restored: ok=%v e=%+v", ok, e)
	}
	if e.WrittenAt.UnixMilli() != writtenAt.UnixMilli() {
		t.Fatalf("write time not preserved: %d", e.WrittenAt.UnixMilli())
	}
}

func TestImportKeepsStamplessEntriesStampless(t *testing.T) {
	ctx := context.Background()
	env := newEnv()
	c := newTestCache(t, env, nil)

	// content with no usable write time; served but never fresh
	env.store.Set(ctx, "pagecache:page:docs.html", "<html>docs</html>")

	var buf bytes.Buffer
	if err := c.Export(ctx, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	_ = c.Close(ctx)

	env2 := newEnv()
	c2 := newTestCache(t, env2, nil)
	defer c2.Close(ctx)

	if _, err := c2.Import(ctx, &buf); err != nil {
		t.Fatalf("Import: %v", err)
	}
	e, ok := c2.Entries().Read(ctx, "docs.html")
	if !ok || e.Content != "<html>docs</html>" {
		t.Fatalf("stampless entry not restored: ok=%v e=%+v", ok, e)
	}
	if !e.WrittenAt.IsZero() {
		t.Fatalf("import invented a write time: %v", e.WrittenAt)
	}
	// still invisible to eviction scoring after the round trip
	if n := c2.Entries().EvictOldestHalf(ctx); n != 0 {
		t.Fatalf("stampless entry became scorable: removed %d", n)
	}
}

func TestImportNeverRollsBackNewerEntries(t *testing.T) {
	ctx := context.Background()
	env := newEnv()
	c := newTestCache(t, env, nil)

	c.Entries().Write(ctx, "docs.html", "old", time.UnixMilli(1000))
	var buf bytes.Buffer
	if err := c.Export(ctx, &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	c.Entries().Write(ctx, "docs.html", "newer", time.UnixMilli(2000))
	if _, err := c.Import(ctx, &buf); err != nil {
		t.Fatalf("Import: %v", err)
	}
	e, _ := c.Entries().Read(ctx, "docs.html")
	if e.Content != "newer" || e.WrittenAt.UnixMilli() != 2000 {
		t.Fatalf("import rolled back a newer entry: %+v", e)
	}
	_ = c.Close(ctx)
}

func TestDisabledCacheDoesNothing(t *testing.T) {
	ctx := context.Background()
	env := newEnv()
	c := newTestCache(t, env, func(o *Options) { o.Disabled = true })
	defer c.Close(ctx)

	if c.Enabled() {
		t.Fatalf("expected disabled")
	}
	if err := c.Start(ctx, "index.html"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if env.fetch.count("install.html") != 0 {
		t.Fatalf("disabled cache must not fetch")
	}
	c.Entries().Write(ctx, "docs.html", "cached", time.Now())
	if c.Click(ctx, "docs.html") {
		t.Fatalf("disabled cache must not intercept")
	}
}
