package pagecache

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/LoosePrince/pagecache/internal/snap"
)

// Export writes a snapshot of every cached entry to w. Entries keep their
// original write times so a restored cache preserves freshness.
func (c *cache) Export(ctx context.Context, w io.Writer) error {
	pages, err := c.entries.Pages(ctx)
	if err != nil {
		return fmt.Errorf("pagecache: export: %w", err)
	}
	out := make([]snap.Entry, 0, len(pages))
	for _, p := range pages {
		e, ok := c.entries.Read(ctx, p)
		if !ok {
			continue // raced with eviction
		}
		se := snap.Entry{Page: p, Content: e.Content}
		if !e.WrittenAt.IsZero() {
			se.WrittenAt = e.WrittenAt.UnixMilli()
		}
		out = append(out, se)
	}
	b, err := snap.Encode(out)
	if err != nil {
		return fmt.Errorf("pagecache: export: %w", err)
	}
	_, err = w.Write(b)
	return err
}

// Import loads a snapshot produced by Export and returns how many entries
// were written. Pages outside the configured list are ignored, and an entry
// never replaces a newer one already in the store - write times stay
// non-decreasing.
func (c *cache) Import(ctx context.Context, r io.Reader) (int, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("pagecache: import: %w", err)
	}
	entries, err := snap.Decode(b)
	if err != nil {
		return 0, fmt.Errorf("pagecache: import: %w", err)
	}

	known := make(map[string]struct{}, len(c.pages))
	for _, p := range c.pages {
		known[p] = struct{}{}
	}

	written := 0
	for _, se := range entries {
		if _, ok := known[se.Page]; !ok {
			c.log.Debug("import skipped unknown page", Fields{"page": se.Page})
			continue
		}
		var writtenAt time.Time
		if se.WrittenAt != 0 {
			writtenAt = time.UnixMilli(se.WrittenAt)
		}
		if cur, ok := c.entries.Read(ctx, se.Page); ok && cur.WrittenAt.After(writtenAt) {
			continue
		}
		if c.entries.Write(ctx, se.Page, se.Content, writtenAt) {
			written++
		}
	}
	return written, nil
}
