// Package storage provides durable local key-value storage with the same
// shape as a browser's localStorage: string keys mapping to string values,
// written synchronously and read back across process restarts.
package storage

import "errors"

// ErrCorrupt is returned when a backing file exists but cannot be decoded.
var ErrCorrupt = errors.New("storage file is corrupt")

// Store is a string key-value store.
type Store interface {
	// GetItem returns the value for key and whether it was present.
	GetItem(key string) (string, bool, error)

	// SetItem stores value under key and persists it before returning.
	SetItem(key, value string) error

	// RemoveItem deletes key. Removing a missing key is not an error.
	RemoveItem(key string) error
}
