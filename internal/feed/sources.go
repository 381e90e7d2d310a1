// Package feed consumes on-chain token-creation streams and inserts the
// observed addresses into the live shard index.
package feed

import (
	"context"
	"time"

	"mintsniper/internal/domain"
)

// TokenSource streams normalized token-creation events from one venue.
// Run blocks until ctx is cancelled, reconnecting internally with backoff;
// malformed venue payloads are dropped, never fatal.
type TokenSource interface {
	// Venue returns the stable venue identifier.
	Venue() string

	// Run streams events into out until ctx is done.
	Run(ctx context.Context, out chan<- domain.TokenSeen) error
}

// BackoffConfig bounds reconnect delays for a stream.
type BackoffConfig struct {
	Initial time.Duration
	Max     time.Duration
}

// DefaultBackoff returns the default reconnect backoff bounds.
func DefaultBackoff() BackoffConfig {
	return BackoffConfig{
		Initial: 1 * time.Second,
		Max:     15 * time.Second,
	}
}

// next doubles the delay up to the configured maximum.
func (b BackoffConfig) next(current time.Duration) time.Duration {
	if current <= 0 {
		return b.Initial
	}
	current *= 2
	if current > b.Max {
		return b.Max
	}
	return current
}

// sleep waits for the given delay or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
