package ports

import (
	"context"
	"time"

	"github.com/gary-backend/auth-service/internal/core/domain"
)

// ResetNotifier delivers an issued reset token to its owner.
type ResetNotifier interface {
	Deliver(ctx context.Context, n domain.ResetNotification) error
}

// ResetDispatcher queues notifications for asynchronous delivery. Enqueue
// never blocks; it reports false when the notification was dropped.
type ResetDispatcher interface {
	Enqueue(n domain.ResetNotification) bool
}

// ResetThrottle limits how often a reset can be requested per user.
type ResetThrottle interface {
	// Allow reports whether a new reset may be issued for key and, if so,
	// records it for window.
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}
