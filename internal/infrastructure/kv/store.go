// Package kv is the durable local key-value persistence behind the offline
// queues and the pending-notification set.
package kv

import "context"

// Store is a string key-value store. Implementations must survive process restarts.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
