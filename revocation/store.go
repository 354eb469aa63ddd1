package revocation

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable wraps every backend failure, including per-call timeouts.
var ErrUnavailable = errors.New("revocation store unavailable")

// DefaultKeyPrefix namespaces revocation entries in Redis.
const DefaultKeyPrefix = "jwt:blacklist:"

// DefaultTimeout bounds each store round trip.
const DefaultTimeout = 500 * time.Millisecond

const sentinel = "1"

// Store is the revocation list contract.
//
// Revoke is insert-or-overwrite and idempotent; a non-positive ttl is a no-op
// because the token has already expired. IsRevoked is a pure existence check.
type Store interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
}

// Pinger is implemented by backends that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) (time.Duration, error)
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
