package cache

import (
	"context"
	"time"
)

// BytesCache is a minimal shared cache for serialized API responses.
// Unlike the staleness Store it obeys plain TTL eviction; it only
// shortcuts response rendering, never upstream fetches.
type BytesCache interface {
	GetBytes(ctx context.Context, key string) (b []byte, ok bool, err error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
