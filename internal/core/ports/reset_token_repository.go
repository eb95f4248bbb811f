package ports

import (
	"context"
	"time"

	"github.com/gary-backend/auth-service/internal/core/domain"
)

// ResetTokenRepository persists password-reset tokens.
type ResetTokenRepository interface {
	// Save binds token to its user, replacing any outstanding token.
	Save(ctx context.Context, token *domain.PasswordResetToken) error

	// Consume marks the token identified by tokenHash as consumed and stores
	// passwordHash as the user's new password in one atomic conditional
	// update. It fails with domain.ErrInvalidToken, domain.ErrTokenExpired or
	// domain.ErrTokenConsumed and never applies half of the change. Tokens of
	// locked accounts are reported as domain.ErrInvalidToken. Calling it again
	// with the same passwordHash after it committed returns the user, so a
	// retry after a lost reply still succeeds.
	Consume(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*domain.User, error)
}
