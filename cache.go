package gatekeeper

import (
	"context"
	"time"
)

// Cache stores encoded full-collection snapshots for client pagination mode.
// Implementations live in the cache package.
type Cache interface {
	// Get returns the snapshot stored under key, if present and fresh.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a snapshot under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)

	// Delete removes the snapshot stored under key.
	Delete(ctx context.Context, key string)
}

func snapshotKey(kind string) string { return "gatekeeper:snapshot:" + kind }
