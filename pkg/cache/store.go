package cache

import (
	"context"
	"errors"
)

var (
	// ErrCacheMiss indicates the requested key was not found in cache.
	// A miss is an expected condition, not a failure.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the cache entry is corrupted
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// Store is the offline data cache contract. It is shared process-wide and
// read and written by many independent loaders; entries are independent per
// composite key and overwrites are last-writer-wins, so no transaction
// discipline is needed.
//
// Implementations must keep failures side-effect-free: a broken cache must
// never block rendering.
type Store interface {
	// Get retrieves an entry. Returns ErrCacheMiss when the key is absent.
	Get(ctx context.Context, key Key) (*Entry, error)

	// Set stores an entry, overwriting any previous value for the key.
	Set(ctx context.Context, key Key, entry *Entry) error

	// Delete removes an entry. Deleting an absent key is not an error.
	Delete(ctx context.Context, key Key) error

	// Close releases backend resources.
	Close() error
}
