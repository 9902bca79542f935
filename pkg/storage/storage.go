// Package storage persists the engine's logical records as whole opaque
// JSON documents keyed by name. There is no partial-update contract: each
// record is loaded and saved as a unit, and either backing store (flat
// JSON files or SQLite) satisfies the same interface.
package storage

import "errors"

// ErrNotFound is returned by Load when no document exists under the key.
var ErrNotFound = errors.New("storage: document not found")

// Store is the document persistence contract shared by all backends.
type Store interface {
	// Load unmarshals the document stored under key into v.
	// Returns ErrNotFound if the key has never been saved.
	Load(key string, v any) error
	// Save marshals v and stores it under key, replacing any previous
	// document.
	Save(key string, v any) error
	Close() error
}
