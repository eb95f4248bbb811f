package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gary-backend/auth-service/internal/core/domain"
	"github.com/gary-backend/auth-service/internal/core/ports"
	"github.com/gary-backend/auth-service/internal/pkg/metrics"
)

const (
	maxUsernameLength = 64
	// conflictAttempts bounds the reload-and-retry loop of ChangePassword.
	conflictAttempts = 3
)

// AuthDependencies are the collaborators of AuthService.
type AuthDependencies struct {
	Users      ports.UserRepository
	Hasher     ports.PasswordHasher
	Tokens     ports.TokenService
	Resets     *ResetTokenService
	Hierarchy  domain.RoleHierarchy
	Dispatcher ports.ResetDispatcher // optional
	Throttle   ports.ResetThrottle   // optional
}

// AuthPolicy holds the tunables of AuthService.
type AuthPolicy struct {
	TokenTTL      time.Duration
	DefaultRole   string
	SignupRoles   []string // self-assignable at signup; empty means DefaultRole only
	ResetThrottle time.Duration
	Retry         RetryPolicy
}

// AuthService implements login, signup, password change, password reset and
// authentication introspection.
type AuthService struct {
	users      ports.UserRepository
	hasher     ports.PasswordHasher
	tokens     ports.TokenService
	resets     *ResetTokenService
	hierarchy  domain.RoleHierarchy
	dispatcher ports.ResetDispatcher
	throttle   ports.ResetThrottle
	policy     AuthPolicy
	dummyHash  string
	log        zerolog.Logger
}

func NewAuthService(deps AuthDependencies, policy AuthPolicy, log zerolog.Logger) *AuthService {
	if policy.TokenTTL <= 0 {
		policy.TokenTTL = defaultTokenTTL
	}
	policy.Retry = policy.Retry.normalized()

	s := &AuthService{
		users:      deps.Users,
		hasher:     deps.Hasher,
		tokens:     deps.Tokens,
		resets:     deps.Resets,
		hierarchy:  deps.Hierarchy,
		dispatcher: deps.Dispatcher,
		throttle:   deps.Throttle,
		policy:     policy,
		log:        log.With().Str("component", "auth_service").Logger(),
	}
	// Compared against when the username is unknown so that both failure
	// paths pay for one hash verification.
	if h, err := deps.Hasher.Hash("not-a-real-password"); err == nil {
		s.dummyHash = h
	}
	return s
}

// Login verifies credentials and issues a session token. Unknown users,
// locked users and wrong passwords all fail with domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}

	user, err := retryValue(ctx, s.policy.Retry, "login", func(ctx context.Context) (*domain.User, error) {
		return s.users.FindByUsername(ctx, username)
	})
	if errors.Is(err, domain.ErrUserNotFound) {
		s.hasher.Verify(password, s.dummyHash)
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) || !user.Active() {
		metrics.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		s.log.Debug().Str("username", username).Msg("login rejected")
		return nil, domain.ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(user, s.policy.TokenTTL)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	s.upgradeHash(ctx, user, password)

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user logged in")

	return &ports.LoginResult{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// upgradeHash re-hashes the password with current parameters. Failure is
// logged and ignored; the old hash stays valid.
func (s *AuthService) upgradeHash(ctx context.Context, user *domain.User, password string) {
	if !s.hasher.NeedsRehash(user.PasswordHash) {
		return
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("password rehash failed")
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, user.Version, hash); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("password rehash not stored")
		return
	}
	s.log.Info().Str("user_id", user.ID).Msg("password hash upgraded")
}

// Signup registers a new account. It does not log the user in.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || len(username) > maxUsernameLength {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: username must be 1-%d characters", domain.ErrInvalidInput, maxUsernameLength)
	}
	if err := validatePassword(in.Password); err != nil {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}
	roles, err := s.signupRoles(in.Roles)
	if err != nil {
		metrics.SignupsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		metrics.SignupsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		Username:     username,
		Email:        strings.TrimSpace(strings.ToLower(in.Email)),
		PasswordHash: hash,
		Roles:        roles,
		Status:       domain.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	retried := false
	created, err := retryValue(ctx, s.policy.Retry, "signup", func(ctx context.Context) (*domain.User, error) {
		u, err := s.users.Create(ctx, user)
		if retried && errors.Is(err, domain.ErrUserExists) {
			return s.recoverCreated(ctx, user)
		}
		retried = true
		return u, err
	})
	switch {
	case errors.Is(err, domain.ErrUserExists):
		metrics.SignupsTotal.WithLabelValues("exists").Inc()
		return nil, domain.ErrUserExists
	case err != nil:
		metrics.SignupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("signup: %w", err)
	}

	metrics.SignupsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", created.ID).Str("username", created.Username).Strs("roles", created.Roles).Msg("user registered")
	return created, nil
}

// recoverCreated resolves a duplicate reported on a retried insert. When the
// stored account carries the hash this signup produced, the earlier insert
// committed and only its reply was lost.
func (s *AuthService) recoverCreated(ctx context.Context, user *domain.User) (*domain.User, error) {
	existing, err := s.users.FindByUsername(ctx, user.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUserExists
		}
		return nil, err
	}
	if existing.PasswordHash != user.PasswordHash {
		return nil, domain.ErrUserExists
	}
	return existing, nil
}

// signupRoles trims and deduplicates requested roles, defaulting to the
// configured role. Every role must be self-assignable and part of the
// hierarchy.
func (s *AuthService) signupRoles(requested []string) ([]string, error) {
	roles := make([]string, 0, len(requested))
	seen := make(map[string]struct{}, len(requested))
	for _, r := range requested {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}
	if len(roles) == 0 {
		if s.policy.DefaultRole == "" {
			return nil, fmt.Errorf("%w: at least one role is required", domain.ErrInvalidInput)
		}
		return []string{s.policy.DefaultRole}, nil
	}
	for _, r := range roles {
		if !s.selfAssignable(r) {
			return nil, fmt.Errorf("%w: role %s cannot be requested at signup", domain.ErrInvalidInput, r)
		}
		if r != s.policy.DefaultRole && !s.hierarchy.Known(r) {
			return nil, fmt.Errorf("%w: unknown role %s", domain.ErrInvalidInput, r)
		}
	}
	return roles, nil
}

func (s *AuthService) selfAssignable(role string) bool {
	if len(s.policy.SignupRoles) == 0 {
		return role == s.policy.DefaultRole
	}
	for _, r := range s.policy.SignupRoles {
		if r == role {
			return true
		}
	}
	return false
}

// ChangePassword replaces the caller's password after re-checking the old
// one. A concurrent write (for example a reset confirmation) forces a reload,
// so the old password is always verified against the latest hash.
func (s *AuthService) ChangePassword(ctx context.Context, auth *domain.AuthContext, oldPassword, newPassword string) error {
	if auth == nil || auth.UserID == "" {
		metrics.PasswordChangesTotal.WithLabelValues("unauthenticated").Inc()
		return domain.ErrUnauthenticated
	}
	if err := validatePassword(newPassword); err != nil {
		metrics.PasswordChangesTotal.WithLabelValues("invalid").Inc()
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	for attempt := 0; attempt < conflictAttempts; attempt++ {
		user, err := retryValue(ctx, s.policy.Retry, "change_password", func(ctx context.Context) (*domain.User, error) {
			return s.users.FindByID(ctx, auth.UserID)
		})
		if errors.Is(err, domain.ErrUserNotFound) {
			metrics.PasswordChangesTotal.WithLabelValues("unauthenticated").Inc()
			return domain.ErrUnauthenticated
		}
		if err != nil {
			metrics.PasswordChangesTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("change password: %w", err)
		}
		if !user.Active() {
			metrics.PasswordChangesTotal.WithLabelValues("unauthenticated").Inc()
			return domain.ErrUnauthenticated
		}
		if !s.hasher.Verify(oldPassword, user.PasswordHash) {
			metrics.PasswordChangesTotal.WithLabelValues("invalid_credentials").Inc()
			return domain.ErrInvalidCredentials
		}

		err = s.policy.Retry.do(ctx, "change_password", func(ctx context.Context) error {
			return s.users.UpdatePassword(ctx, user.ID, user.Version, hash)
		})
		if errors.Is(err, domain.ErrVersionConflict) {
			s.log.Debug().Str("user_id", user.ID).Int("attempt", attempt+1).Msg("password change raced, reloading")
			continue
		}
		if err != nil {
			metrics.PasswordChangesTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("change password: %w", err)
		}

		metrics.PasswordChangesTotal.WithLabelValues("success").Inc()
		s.log.Info().Str("user_id", user.ID).Msg("password changed")
		return nil
	}

	metrics.PasswordChangesTotal.WithLabelValues("error").Inc()
	return fmt.Errorf("change password: %w: %w", domain.ErrVersionConflict, domain.ErrStoreUnavailable)
}

// RequestPasswordReset issues a reset token for existing, active users and
// queues it for delivery. The caller always sees success, whether or not the
// username exists, so the endpoint cannot be used to enumerate accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}

	if s.throttle != nil && s.policy.ResetThrottle > 0 {
		allowed, err := s.throttle.Allow(ctx, username, s.policy.ResetThrottle)
		if err != nil {
			s.log.Warn().Err(err).Msg("reset throttle check failed, issuing anyway")
		} else if !allowed {
			metrics.PasswordResetsTotal.WithLabelValues("request", "throttled").Inc()
			return nil
		}
	}

	issued, err := s.resets.Request(ctx, username)
	if err != nil {
		metrics.PasswordResetsTotal.WithLabelValues("request", "error").Inc()
		s.log.Error().Err(err).Msg("reset token not issued")
		return nil
	}
	if issued == nil {
		metrics.PasswordResetsTotal.WithLabelValues("request", "unknown_user").Inc()
		return nil
	}

	metrics.PasswordResetsTotal.WithLabelValues("request", "issued").Inc()
	s.log.Info().Str("user_id", issued.User.ID).Time("expires_at", issued.ExpiresAt).Msg("reset token issued")

	if s.dispatcher == nil {
		s.log.Warn().Str("user_id", issued.User.ID).Msg("no reset dispatcher configured, token not delivered")
		return nil
	}
	notification := domain.ResetNotification{
		ID:        uuid.NewString(),
		UserID:    issued.User.ID,
		Username:  issued.User.Username,
		Email:     issued.User.Email,
		Token:     issued.Token,
		ExpiresAt: issued.ExpiresAt,
	}
	if !s.dispatcher.Enqueue(notification) {
		metrics.ResetNotificationsTotal.WithLabelValues("dropped").Inc()
		s.log.Warn().Str("user_id", issued.User.ID).Msg("reset notification dropped, queue full")
	}
	return nil
}

// ConfirmPasswordReset consumes token and sets newPassword.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		metrics.PasswordResetsTotal.WithLabelValues("confirm", "invalid").Inc()
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	user, err := s.resets.Consume(ctx, token, hash)
	if err != nil {
		metrics.PasswordResetsTotal.WithLabelValues("confirm", resetResult(err)).Inc()
		return err
	}

	metrics.PasswordResetsTotal.WithLabelValues("confirm", "success").Inc()
	s.log.Info().Str("user_id", user.ID).Msg("password reset")
	return nil
}

// Describe reports who the caller is. An unauthenticated caller gets a
// description with Authenticated=false rather than an error.
func (s *AuthService) Describe(auth *domain.AuthContext) domain.AuthDescription {
	if auth == nil {
		return domain.AuthDescription{Authenticated: false}
	}
	return domain.AuthDescription{
		Authenticated: true,
		Name:          auth.Username,
		Details: domain.AuthDetails{
			RemoteAddress: auth.RemoteAddr,
			TokenID:       auth.TokenID,
		},
		TopLevelRole:   domain.TopLevelRole(auth.Roles),
		InheritedRoles: s.hierarchy.Inherited(auth.Roles),
	}
}

// SetUserStatus locks or unlocks an account.
func (s *AuthService) SetUserStatus(ctx context.Context, username string, status domain.UserStatus) error {
	username = strings.TrimSpace(username)
	if username == "" || !status.Valid() {
		return fmt.Errorf("%w: username and a valid status are required", domain.ErrInvalidInput)
	}
	if err := s.policy.Retry.do(ctx, "set_status", func(ctx context.Context) error {
		return s.users.SetStatus(ctx, username, status)
	}); err != nil {
		return err
	}
	s.log.Info().Str("username", username).Str("status", string(status)).Msg("user status changed")
	return nil
}

func validatePassword(p string) error {
	if p == "" {
		return fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}
	if len(p) > MaxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes", domain.ErrInvalidInput, MaxPasswordBytes)
	}
	return nil
}

func resetResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrTokenConsumed):
		return "consumed"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid"
	default:
		return "error"
	}
}

var _ ports.AuthService = (*AuthService)(nil)
