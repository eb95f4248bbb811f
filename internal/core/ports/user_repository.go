package ports

import (
	"context"

	"github.com/gary-backend/auth-service/internal/core/domain"
)

// UserRepository is the credential store. Every method returns only after the
// write has been acknowledged by the backing store. Transient backend failures
// are reported wrapped in domain.ErrStoreUnavailable.
type UserRepository interface {
	// Create persists a new user. Returns domain.ErrUserExists when the
	// username is taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// UpdatePassword replaces the hash only if the stored version still equals
	// expectedVersion; otherwise domain.ErrVersionConflict.
	UpdatePassword(ctx context.Context, userID string, expectedVersion int64, passwordHash string) error
	SetStatus(ctx context.Context, username string, status domain.UserStatus) error
}
