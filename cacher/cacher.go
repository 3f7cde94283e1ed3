// Package cacher provides a TTL cache that loads missing entries on demand
// and collapses concurrent loads of the same key into one.
package cacher

import (
	"context"
	"time"
)

// FetchFunc loads the value for a key on a cache miss.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Cacher caches values of type T with a per-entry time-to-live.
type Cacher[T any] interface {
	// GetOrFetch returns the cached value for key, or calls fetchFn, stores
	// its result for ttl and returns it. Failed fetches are not cached.
	//
	// Parameters:
	//   - ctx: Context passed to fetchFn
	//   - key: The cache key
	//   - ttl: Time-to-live for a freshly fetched value
	//   - fetchFn: Loader called on a miss
	//
	// Returns:
	//   - The cached or fetched value
	//   - The error returned by fetchFn, if any
	GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetchFn FetchFunc[T]) (T, error)

	// Delete removes key so the next GetOrFetch loads it again.
	Delete(key string)
}
