// Package revocation holds the minimal server-side state the gateway keeps:
// a TTL'd list of session IDs that must no longer validate. Entries expire on
// their own once the underlying token would have expired anyway.
package revocation

import (
	"context"
	"time"
)

// List records revoked session IDs until their natural expiry.
type List interface {
	// Revoke marks a session ID as invalid for the given remaining lifetime.
	Revoke(ctx context.Context, sessionID string, ttl time.Duration) error

	// IsRevoked reports whether a session ID has been revoked. Expired
	// entries count as not revoked.
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
}
