package pagecache

import (
	"fmt"
)

// PurgeError reports keys that could not be deleted during a full purge.
// The purge continues past individual failures; everything that did fail is
// collected here.
type PurgeError struct {
	Namespace string
	Failed    []string
	Errs      []error
}

func (e *PurgeError) Error() string {
	return fmt.Sprintf("purge %q: %d key(s) failed to delete (first: %v)",
		e.Namespace, len(e.Failed), e.Errs[0])
}

func (e *PurgeError) Unwrap() []error { return e.Errs }
