// Package cache holds computed read models between ledger mutations.
package cache

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	// Purge drops every entry, used when the underlying ledger changes.
	Purge()
	Size() int
}

var _ Cache[int] = (*LRUCache[int])(nil)
