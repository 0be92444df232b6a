package ports

import "context"

// LoginLimiter throttles repeated failed logins per username. Implementations
// must fail open: an unreachable backend should not lock out logins.
type LoginLimiter interface {
	// Allow reports whether another attempt is permitted for username.
	Allow(ctx context.Context, username string) (bool, error)
	// RecordFailure counts one failed attempt against username.
	RecordFailure(ctx context.Context, username string) error
	// Reset clears the failure count after a successful login.
	Reset(ctx context.Context, username string) error
}
