package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRundown is returned when an operation needs a loaded rundown.
	ErrNoRundown = errors.New("cache: no rundown loaded")

	// ErrCommitted is returned when a transaction is committed twice.
	ErrCommitted = errors.New("cache: transaction already committed")

	// ErrFieldExists is returned when a custom field key is already taken.
	ErrFieldExists = errors.New("cache: custom field already exists")

	// ErrFieldNotFound is returned for an unknown custom field key.
	ErrFieldNotFound = errors.New("cache: custom field not found")
)

// ConsistencyError reports a committed rundown whose structure or derived
// orders disagree. Strict caches return it from Commit; production caches
// log it and rebuild.
type ConsistencyError struct {
	RundownID string
	Revision  int64
	Reason    string
}

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("cache: rundown %s at revision %d is inconsistent: %s", e.RundownID, e.Revision, e.Reason)
}

// IsConsistencyError reports whether err wraps a *ConsistencyError.
func IsConsistencyError(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}
