// Package pagecache implements a versioned page cache with soft navigation for
// a small, fixed set of site pages. It warms the cache in the background,
// serves whole-page HTML swaps on link clicks, and restores scroll position on
// history traversal.
//
// Components:
//   - kv.Store: flat string key/value store (memory, SQLite, Redis, BigCache,
//     plus a ristretto-backed read-through front).
//   - EntryStore: per-page (content, writtenAt) pairs under a namespaced key
//     prefix, with reactive oldest-half eviction on quota rejection.
//   - Version guard: compares the persisted marker against the compiled-in
//     site version and purges everything on mismatch, before any other cache
//     logic runs.
//   - Preloader: delayed background GETs for every known page except the one
//     currently displayed; fresh entries (younger than 24h) are skipped.
//   - Navigator: turns clicks on known hrefs into instant cache-backed
//     document swaps with history push and an unconditional background
//     refresh.
//
// Keys:
//
//	<ns>:page:<pageKey> - raw HTML text
//	<ns>:ts:<pageKey>   - write time, decimal epoch millis
//	<ns>:version        - cache epoch marker
//
// Usage pattern:
//
//	c, _ := pagecache.New(pagecache.Options{
//	    Store:   store,
//	    Version: site.Version,
//	    Pages:   site.Pages,
//	    BaseURL: "https://docs.example.org",
//	    Document: doc, History: hist, Viewport: view,
//	})
//	_ = c.Start(ctx, "index.html") // version check, then delayed preloads
//	handled := c.Click(ctx, href)  // host's link click handler
//	c.PopState(state)              // host's popstate handler
package pagecache
