package internal

import (
	"context"
	"time"

	"github.com/frahmantamala/performance-management/internal/identity"
)

type ctxKey string

const ContextIdentityKey ctxKey = "identity"

// IdentityFromContext returns the identity the auth middleware resolved for
// this request. A missing identity means "unauthenticated", never an error.
func IdentityFromContext(ctx context.Context) (*identity.Identity, bool) {
	if ctx == nil {
		return nil, false
	}
	if id, ok := ctx.Value(ContextIdentityKey).(*identity.Identity); ok && id != nil {
		return id, true
	}
	return nil, false
}

func ContextWithIdentity(ctx context.Context, id *identity.Identity) context.Context {
	return context.WithValue(ctx, ContextIdentityKey, id)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
