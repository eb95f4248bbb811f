package ports

import (
	"context"
	"time"

	"github.com/gary-backend/auth-service/internal/core/domain"
)

// SignupInput carries the data needed to register an account.
type SignupInput struct {
	Username string
	Email    string
	Password string
	Roles    []string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
	User      *domain.User
}

// AuthService is the orchestrator behind the /auth endpoints.
type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	Signup(ctx context.Context, in SignupInput) (*domain.User, error)
	ChangePassword(ctx context.Context, auth *domain.AuthContext, oldPassword, newPassword string) error
	RequestPasswordReset(ctx context.Context, username string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
	Describe(auth *domain.AuthContext) domain.AuthDescription
	SetUserStatus(ctx context.Context, username string, status domain.UserStatus) error
}
