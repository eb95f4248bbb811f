package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/gary-backend/auth-service/internal/core/domain"
)

// storeError wraps err for op, marking failures a retry may fix as
// domain.ErrStoreUnavailable.
func storeError(op string, err error) error {
	if isTransient(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return true
	case errors.Is(err, mongo.ErrClientDisconnected):
		return true
	default:
		return mongo.IsTimeout(err) || mongo.IsNetworkError(err)
	}
}
