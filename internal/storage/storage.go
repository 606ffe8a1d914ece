package storage

import (
	"context"
	"time"
)

// Store defines the key-value persistence contract for sync state.
//
// Why this exists:
// - The sync service should express conflict behavior, not SQL details.
// - Retention semantics must be uniform: an expired entry is
//   indistinguishable from one that was never written.
// - Tests can drive service behavior and fault paths via this abstraction.
type Store interface {
	// Init prepares schema/connection state needed before serving requests.
	Init(ctx context.Context) error

	// Close releases resources held by the storage backend.
	Close() error

	// Get returns the value stored at key. ok is false when the key was
	// never written or its retention window has elapsed.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put stores value at key with the given retention TTL, fully
	// replacing any prior value and restarting the retention window.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
