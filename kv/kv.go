// Package kv defines the storage abstraction used by pagecache.
//
// Implementations MUST be value-transparent: Get must return exactly the same
// string that was previously passed to Set for a key (no trimming, no
// re-encoding, no mutation). If a store performs internal transforms (e.g.,
// compression), they MUST be fully reversed so that the value returned by Get
// is identical to the value provided to Set.
//
// Important: the keyspace under "<namespace>:" is owned by pagecache. External
// code MUST NOT write values under this prefix. Foreign writes under the
// timestamp prefix are tolerated (they are excluded from eviction scoring) but
// may be removed wholesale by a version purge.
package kv

import "context"

// Store is a minimal flat string key/value store. Must be safe for concurrent
// use. Reads are expected to be cheap; pagecache consults the store on the
// click path.
type Store interface {
	// Get returns (value, true, nil) on hit; ("", false, nil) on miss.
	// If an IO/remote error happens, return ("", false, err).
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key. Returns ok=false when the store rejected
	// the write under capacity pressure (the quota case); err reports
	// IO/remote failures.
	Set(ctx context.Context, key, value string) (ok bool, err error)

	// Del removes a key (best-effort; deleting a missing key is not an error).
	Del(ctx context.Context, key string) error

	// Keys returns every stored key that starts with prefix, in no
	// particular order.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
