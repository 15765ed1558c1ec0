// Package secretstore keeps short-lived one-time codes keyed by subject.
//
// A code lives until its TTL elapses, it is overwritten by a newer Store call
// for the same subject, or it is consumed by a successful VerifyAndConsume.
package secretstore

import (
	"context"
	"time"
)

// Store is the one-time code backend used by the download gate.
type Store interface {
	// Store upserts value under key with the given TTL, replacing any live
	// value and resetting its expiry.
	Store(ctx context.Context, key, value string, ttl time.Duration) error

	// VerifyAndConsume atomically checks that a live value under key equals
	// candidate and deletes it if so. A false result has no side effect.
	// Concurrent callers presenting the right value see exactly one true.
	VerifyAndConsume(ctx context.Context, key, candidate string) (bool, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}
