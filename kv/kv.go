// Package kv provides durable local key-value persistence for state that
// must survive application restarts: the guest cart, the payment attempt
// guard record, and session credentials. Implementations can use the
// local filesystem or an in-memory map (for tests).
package kv

import "errors"

// ErrKeyNotFound is returned by Get when no value exists for a key.
// Callers that treat missing state as empty state should check for it
// with errors.Is.
var ErrKeyNotFound = errors.New("kv: key not found")

// Store defines the interface for local key-value persistence.
type Store interface {
	// Get retrieves the value stored under key.
	// Returns ErrKeyNotFound if the key has never been written.
	Get(key string) ([]byte, error)

	// Put stores a value under key, replacing any previous value.
	// Writes are immediately durable; there is no batching.
	Put(key string, value []byte) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(key string) error
}
