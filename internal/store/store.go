// Package store persists serialized account state. A Slot holds one blob
// per fixed key; implementations include PostgreSQL, Redis (standalone or
// as a read-through cache in front of another slot), a local directory,
// and in-memory (for testing).
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("store: not found")

// Slot is a durable key-value slot for serialized blobs.
type Slot interface {
	// Get returns the blob stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put replaces the blob stored under key.
	Put(ctx context.Context, key string, data []byte) error
}
