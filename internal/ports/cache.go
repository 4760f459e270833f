package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/domain"
)

// LockoutState is the current lockout envelope for a login key.
type LockoutState struct {
	FailedCount int
	LockedUntil *time.Time
}

// LockoutStore handles short-lived brute-force protection state.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}

// SessionRevocationStore keeps revocation markers with token-aligned TTL.
type SessionRevocationStore interface {
	MarkRevoked(ctx context.Context, sessionID uuid.UUID, expiresAt time.Time) error
	IsRevoked(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// CartLineUpdate computes a line's next state from its current one, which is nil when the
// product is not in the cart yet. Returning an error leaves the cart untouched.
type CartLineUpdate func(current *domain.CartLine) (domain.CartLine, error)

// CartStore holds each user's shopping cart, one line per product id.
type CartStore interface {
	Get(ctx context.Context, userID uuid.UUID) (domain.Cart, error)
	// UpdateLine runs update against the stored line and writes its result. Concurrent
	// updates of the same cart are serialised, so none of them is lost.
	UpdateLine(ctx context.Context, userID, productID uuid.UUID, update CartLineUpdate) (domain.CartLine, error)
	RemoveLine(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}
