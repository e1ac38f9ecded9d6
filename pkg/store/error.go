package store

import (
	"errors"
	"fmt"
)

// ErrNotInitialized is returned when an operation is invoked before
// Initialize completes. It signals a usage-contract violation and is
// surfaced, never silently swallowed.
var ErrNotInitialized = errors.New("store not initialized")

// QuotaError reports a store exceeding its configured record bound. It is a
// distinct condition so callers can trigger a pruning pass instead of the
// write being silently dropped.
type QuotaError struct {
	Layer string
	Scope string
	Limit int
}

func (e QuotaError) Error() string {
	if e.Scope != "" {
		return fmt.Sprintf("%s store quota exceeded for scope %q (limit %d)", e.Layer, e.Scope, e.Limit)
	}

	return fmt.Sprintf("%s store quota exceeded (limit %d)", e.Layer, e.Limit)
}
