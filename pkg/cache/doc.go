// Package cache implements the offline data cache shared by all loaders.
//
// The cache keeps last-known-good response bodies keyed by endpoint path
// and normalized query parameters so a view can paint immediately while a
// fresh fetch runs in the background:
//
//   - Deterministic composite keys (path + sorted query params)
//   - Last-writer-wins overwrite semantics, one entry per key
//   - No proactive expiry by default: staleness is tolerated, not enforced
//   - Prometheus metrics for observability
//
// Two backends implement the Store interface:
//
//   - Manager: Redis-backed, for deployments sharing one cache across
//     processes (e.g., the shelf-proxy daemon)
//   - BoltStore: single local file, for offline-capable devices
//
// # Basic Usage
//
//	store, err := cache.NewBoltStore("/var/lib/shelfsync/cache.db")
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	key := cache.NewKey("/books", map[string]string{"page": "1", "limit": "20"})
//
//	entry, err := store.Get(ctx, key)
//	if err == cache.ErrCacheMiss {
//		// Miss - fetch from the API
//	}
//
//	// After a successful fetch
//	if err := store.Set(ctx, key, cache.NewEntry(body)); err != nil {
//		// Log and continue; a cache failure never blocks rendering
//	}
//
// # Failure Semantics
//
// A miss returns ErrCacheMiss, which callers treat as "proceed to the
// network", never as a user-facing error. Read/write failures are logged
// by callers and swallowed: the cache is a convenience layer, not a source
// of truth.
//
// # Metrics
//
//   - shelf_cache_hits_total{backend} - Cache hits
//   - shelf_cache_misses_total - Cache misses
//   - shelf_cache_written_bytes_total{backend} - Bytes written
//   - shelf_cache_errors_total{operation} - Cache operation errors
package cache
