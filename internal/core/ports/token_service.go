package ports

import (
	"time"

	"github.com/gary-backend/auth-service/internal/core/domain"
)

// TokenService issues and validates stateless session tokens.
type TokenService interface {
	Issue(user *domain.User, ttl time.Duration) (token string, expiresAt time.Time, err error)
	// Validate checks the signature before any claim and returns
	// domain.ErrInvalidSignature, domain.ErrTokenExpired or
	// domain.ErrMalformedToken on failure.
	Validate(token string) (*domain.AuthContext, error)
}
