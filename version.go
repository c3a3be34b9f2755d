package pagecache

import (
	"context"

	"github.com/LoosePrince/pagecache/internal/util"
)

// ensureVersion is the cache epoch guard: a one-shot check per Start, never
// re-run mid-session. When the persisted marker is absent or disagrees with
// the compiled-in version, every namespaced key is purged before any other
// cache logic touches the store, and the new marker is written.
func (c *cache) ensureVersion(ctx context.Context) error {
	vk := util.VersionKey(c.ns)
	stored, ok, err := c.kv.Get(ctx, vk)
	if err != nil {
		return err
	}
	if ok && stored == c.version {
		return nil
	}

	removed, err := c.entries.PurgeAll(ctx)
	if err != nil {
		// partial purge: still stamp the new marker so surviving keys are
		// retried on the next load rather than served under the old epoch
		c.log.Error("version purge incomplete", Fields{"old": stored, "new": c.version, "err": err})
	}
	c.hooks.VersionPurged(stored, c.version, removed)
	c.log.Info("cache version changed; purged entries",
		Fields{"old": stored, "new": c.version, "removed": removed})

	if ok, err := c.kv.Set(ctx, vk, c.version); err != nil {
		return err
	} else if !ok {
		c.log.Warn("version marker write rejected", Fields{"version": c.version})
	}
	return nil
}
