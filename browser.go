package pagecache

// The navigator drives the host's document, history, and viewport through
// these minimal surfaces. Hosts embedding the cache in a wasm or webview shell
// adapt their environment's primitives; tests substitute fakes. A host that
// only wants cache warming can leave all three unset.

// Document is the writable document surface. Replace swaps the entire
// document (head and body) with the given HTML text.
type Document interface {
	Replace(html string)
}

// State is the payload attached to a history entry. ScrollY is meaningful
// only when HasScroll is set; FromCache marks entries created by a
// cache-backed swap.
type State struct {
	ScrollY   int  `msgpack:"scroll_y" json:"scrollY"`
	HasScroll bool `msgpack:"has_scroll" json:"hasScroll"`
	FromCache bool `msgpack:"from_cache" json:"fromCache"`
}

// History is the session history surface.
type History interface {
	// ReplaceState mutates the current entry's state in place without
	// adding an entry.
	ReplaceState(s State)
	// PushState appends a new entry for url carrying s and makes it current.
	PushState(url string, s State)
}

// Viewport exposes the scroll position of the displayed document.
type Viewport interface {
	ScrollY() int
	ScrollTo(y int)
}
