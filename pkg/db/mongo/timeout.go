package mongo

import (
	"context"
	"time"
)

// WithTimeout bounds a single repository call. Session contexts are returned as-is: wrapping them
// would detach the call from its transaction.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if IsSession(ctx) {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
