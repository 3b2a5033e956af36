// Package storage holds the persistence slot backends: a single named key whose
// value is the whole serialized workout list, read once at startup and
// overwritten on every mutation.
package storage

import "context"

// Slot is a synchronous key-value store. Put overwrites any previous value.
type Slot interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}
