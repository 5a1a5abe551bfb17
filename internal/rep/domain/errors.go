package domain

import "errors"

// Error taxonomy for the engine. Lookup-path code never surfaces these to
// callers; they exist for the update and persistence paths, where the
// category decides retry versus drop versus rollback.
var (
	// ErrValidation marks a malformed or out-of-range record or input.
	// The offending record is dropped; the condition is not fatal.
	ErrValidation = errors.New("validation failed")

	// ErrTransientFetch marks a network or timeout failure that is safe to
	// retry with backoff.
	ErrTransientFetch = errors.New("transient fetch failure")

	// ErrPersistence marks a read or write failure against the key-value
	// store.
	ErrPersistence = errors.New("persistence failure")

	// ErrConsistency marks a post-merge state that violates an expected
	// invariant; it triggers a rollback to the last backup.
	ErrConsistency = errors.New("consistency violation")
)
