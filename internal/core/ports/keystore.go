package ports

import "context"

// Keystore is the abstraction for the secure storage where secrets are
// persisted. Implementations must encrypt values at rest.
type Keystore interface {
	// Put stores value under key, overwriting any previous one.
	Put(ctx context.Context, key string, value []byte) error
	// Get returns a copy of the value stored under key, or
	// domain.ErrEntryNotFound if absent. The caller owns and must clear it.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes all the given keys in a single atomic step. Missing keys
	// are ignored.
	Delete(ctx context.Context, keys ...string) error
	// Close releases the underlying resources.
	Close()
}
