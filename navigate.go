package pagecache

import (
	"context"
	"time"
)

// navigator converts clicks on known hrefs into cache-backed document swaps
// and restores scroll position on history traversal.
type navigator struct {
	entries *EntryStore
	pre     *preloader
	doc     Document
	hist    History
	view    Viewport
	pages   map[string]struct{}
	log     Logger
	hooks   Hooks

	// layout settle time before restoring scroll after a pop
	scrollDelay time.Duration
}

// click handles one link activation. Returns true when the navigation was
// served from cache and default navigation must be suppressed; false lets the
// browser navigate normally. Only hrefs that exactly match a known page key
// are considered - query strings, hashes, and relative variants fall through.
//
// Side effects on a hit, in order: the current history entry's state is
// replaced with the live scroll offset, a new entry marked FromCache is
// pushed for href, the whole document is swapped to the cached HTML, and a
// background refresh for href is scheduled unconditionally.
func (n *navigator) click(ctx context.Context, href string) bool {
	if n.doc == nil || n.hist == nil || n.view == nil {
		return false
	}
	if _, known := n.pages[href]; !known {
		return false
	}
	entry, ok := n.entries.Read(ctx, href)
	if !ok {
		return false // miss: default navigation
	}

	n.hist.ReplaceState(State{ScrollY: n.view.ScrollY(), HasScroll: true})
	n.hist.PushState(href, State{FromCache: true})
	n.doc.Replace(entry.Content)
	n.hooks.SwapServed(href)
	n.log.Debug("served swap from cache", Fields{"page": href})

	n.pre.refresh(href)
	return true
}

// popState handles a history traversal event. When the restored entry carries
// a scroll offset it is re-applied after a short fixed delay so the swapped
// or reloaded content can finish laying out first.
func (n *navigator) popState(s State) {
	if n.view == nil || !s.HasScroll {
		return
	}
	y := s.ScrollY
	time.AfterFunc(n.scrollDelay, func() { n.view.ScrollTo(y) })
}
