// Package strategy defines the recency structures the page cache uses to
// order entries and pick eviction victims.
package strategy

// Strategy tracks recency for a set of keys. Implementations are not
// safe for concurrent use; the cache serializes access under its lock.
type Strategy interface {
	// Push inserts key as most recently used. The key must not be present.
	Push(key int64)

	// Touch moves a present key to the most recently used position.
	Touch(key int64)

	// Remove drops key. Removing an absent key is a no-op.
	Remove(key int64)

	// Victim returns the least recently used key for which skip returns
	// false, or false if every key is skipped. A nil skip accepts any key.
	Victim(skip func(key int64) bool) (int64, bool)

	// Len returns the number of tracked keys.
	Len() int

	// Keys returns all keys from most to least recently used.
	Keys() []int64

	// Name identifies the variant.
	Name() string
}
