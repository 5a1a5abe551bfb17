// Package storage defines the namespaced key-value collaborator the engine
// persists through. The engine never assumes multi-key atomicity; the
// update manager layers its backup/restore protocol on top of these
// primitives instead.
package storage

import "errors"

// ErrNotFound is returned by Get when the namespace or key is absent.
var ErrNotFound = errors.New("storage: key not found")

// Store is a namespaced key-value store.
type Store interface {
	// Get returns the value for key in the namespace, or ErrNotFound.
	Get(namespace, key string) ([]byte, error)

	// Put stores the value for key, creating the namespace if needed.
	Put(namespace, key string, value []byte) error

	// Delete removes key from the namespace. Deleting an absent key is a no-op.
	Delete(namespace, key string) error

	// Close releases underlying resources.
	Close() error
}
