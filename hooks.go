package pagecache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// A background or refresh fetch failed (transport error or non-2xx).
	FetchFailed(page string, err error)

	// The backing store rejected a write (quota/pressure). An eviction pass
	// follows; the write itself is not retried inline.
	WriteRejected(page string)

	// An eviction pass finished. scored is the number of entries with a
	// parsable timestamp; removed is how many were deleted (ceil(scored/2)).
	EvictionRan(scored, removed int)

	// The persisted version marker disagreed with the compiled-in constant
	// and every namespaced key was purged.
	VersionPurged(oldMarker, newMarker string, removed int)

	// A click was answered from cache with a document swap.
	SwapServed(page string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) FetchFailed(string, error)         {}
func (NopHooks) WriteRejected(string)              {}
func (NopHooks) EvictionRan(int, int)              {}
func (NopHooks) VersionPurged(string, string, int) {}
func (NopHooks) SwapServed(string)                 {}
