// Package cache provides the key/value stores the cached loader writes
// compiled templates to. Stores are safe for concurrent use but make no
// promise about read-modify-write sequences: two callers missing the same key
// may both compute and Set, and the last write wins.
package cache

// Store is a string-keyed cache of V.
type Store[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V)
	Delete(key string)
	Clear()
	Len() int
}
