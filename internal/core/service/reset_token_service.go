package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/gary-backend/auth-service/internal/core/domain"
	"github.com/gary-backend/auth-service/internal/core/ports"
)

const (
	defaultResetTTL = 15 * time.Minute
	resetTokenBytes = 32
)

// ResetTokenService issues and consumes single-use password reset tokens.
type ResetTokenService struct {
	users  ports.UserRepository
	tokens ports.ResetTokenRepository
	ttl    time.Duration
	retry  RetryPolicy
	now    func() time.Time
}

func NewResetTokenService(users ports.UserRepository, tokens ports.ResetTokenRepository, ttl time.Duration, retry RetryPolicy) *ResetTokenService {
	if ttl <= 0 {
		ttl = defaultResetTTL
	}
	return &ResetTokenService{
		users:  users,
		tokens: tokens,
		ttl:    ttl,
		retry:  retry,
		now:    time.Now,
	}
}

// IssuedReset describes a token that was bound to a user.
type IssuedReset struct {
	Token     string
	User      *domain.User
	ExpiresAt time.Time
}

// Request issues a token for username. Unknown and locked accounts yield
// (nil, nil): the caller cannot tell them apart from a successful issue.
func (s *ResetTokenService) Request(ctx context.Context, username string) (*IssuedReset, error) {
	user, err := retryValue(ctx, s.retry, "reset_request", func(ctx context.Context) (*domain.User, error) {
		return s.users.FindByUsername(ctx, username)
	})
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.Active() {
		return nil, nil
	}

	token, err := newResetSecret()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	record := &domain.PasswordResetToken{
		UserID:    user.ID,
		Username:  user.Username,
		TokenHash: HashResetToken(token),
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.retry.do(ctx, "reset_request", func(ctx context.Context) error {
		return s.tokens.Save(ctx, record)
	}); err != nil {
		return nil, err
	}

	return &IssuedReset{Token: token, User: user, ExpiresAt: record.ExpiresAt}, nil
}

// Consume spends token and sets passwordHash as the new password. The store
// performs both changes in one conditional update, so of N concurrent
// callers with the same token exactly one succeeds.
func (s *ResetTokenService) Consume(ctx context.Context, token, passwordHash string) (*domain.User, error) {
	if token == "" {
		return nil, domain.ErrInvalidToken
	}
	hash := HashResetToken(token)
	return retryValue(ctx, s.retry, "reset_confirm", func(ctx context.Context) (*domain.User, error) {
		return s.tokens.Consume(ctx, hash, passwordHash, s.now().UTC())
	})
}

// HashResetToken is the at-rest form of a reset token.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newResetSecret() (string, error) {
	b := make([]byte, resetTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
