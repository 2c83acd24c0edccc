// Package cache keeps recently read blobs in memory so remote backends are
// not asked for the same key on every access.
package cache

// Cache defines a generic cache interface
type Cache[T any] interface {
	// Get retrieves a value from the cache
	Get(key string) (T, bool)

	// Set stores a value in the cache
	Set(key string, data T)

	// Delete removes a key from the cache
	Delete(key string)

	// Size returns the current number of items in the cache
	Size() int
}

var _ Cache[string] = (*LRUCache[string])(nil)
