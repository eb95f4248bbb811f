package service

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gary-backend/auth-service/internal/core/domain"
)

var tokenEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestTokenService(t *testing.T, secret string, now time.Time, opts ...TokenOption) *TokenService {
	t.Helper()
	opts = append(opts, WithTokenClock(fixedClock(now)))
	s, err := NewTokenService(secret, opts...)
	require.NoError(t, err)
	return s
}

func testUser() *domain.User {
	return &domain.User{ID: "u-1", Username: "alice", Roles: []string{"ROLE_ADMIN", "ROLE_USER"}}
}

func TestNewTokenService_RequiresSecret(t *testing.T) {
	_, err := NewTokenService("")
	require.Error(t, err)
}

func TestTokenService_IssueThenValidate(t *testing.T) {
	s := newTestTokenService(t, "secret", tokenEpoch)

	token, exp, err := s.Issue(testUser(), time.Hour)
	require.NoError(t, err)
	assert.Equal(t, tokenEpoch.Add(time.Hour), exp)

	auth, err := s.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", auth.UserID)
	assert.Equal(t, "alice", auth.Username)
	assert.Equal(t, []string{"ROLE_ADMIN", "ROLE_USER"}, auth.Roles)
	assert.NotEmpty(t, auth.TokenID)
	assert.True(t, auth.ExpiresAt.Equal(exp))
}

func TestTokenService_DefaultTTL(t *testing.T) {
	s := newTestTokenService(t, "secret", tokenEpoch, WithDefaultTTL(10*time.Minute))

	_, exp, err := s.Issue(testUser(), 0)
	require.NoError(t, err)
	assert.Equal(t, tokenEpoch.Add(10*time.Minute), exp)
}

func TestTokenService_TokenIDsAreUnique(t *testing.T) {
	s := newTestTokenService(t, "secret", tokenEpoch)

	a, _, err := s.Issue(testUser(), time.Hour)
	require.NoError(t, err)
	b, _, err := s.Issue(testUser(), time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestTokenService_ExpiryBoundary(t *testing.T) {
	issuer := newTestTokenService(t, "secret", tokenEpoch)
	token, exp, err := issuer.Issue(testUser(), time.Hour)
	require.NoError(t, err)

	before := newTestTokenService(t, "secret", exp.Add(-time.Second))
	_, err = before.Validate(token)
	assert.NoError(t, err)

	after := newTestTokenService(t, "secret", exp.Add(time.Second))
	_, err = after.Validate(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestTokenService_ClockSkew(t *testing.T) {
	issuer := newTestTokenService(t, "secret", tokenEpoch)
	token, exp, err := issuer.Issue(testUser(), time.Hour)
	require.NoError(t, err)

	within := newTestTokenService(t, "secret", exp.Add(10*time.Second), WithClockSkew(30*time.Second))
	_, err = within.Validate(token)
	assert.NoError(t, err)

	beyond := newTestTokenService(t, "secret", exp.Add(31*time.Second), WithClockSkew(30*time.Second))
	_, err = beyond.Validate(token)
	assert.ErrorIs(t, err, domain.ErrTokenExpired)
}

func TestTokenService_WrongSecret(t *testing.T) {
	other := newTestTokenService(t, "other-secret", tokenEpoch)
	token, _, err := other.Issue(testUser(), time.Hour)
	require.NoError(t, err)

	s := newTestTokenService(t, "secret", tokenEpoch)
	_, err = s.Validate(token)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestTokenService_TamperedPayload(t *testing.T) {
	s := newTestTokenService(t, "secret", tokenEpoch)
	alice, _, err := s.Issue(testUser(), time.Hour)
	require.NoError(t, err)
	admin := testUser()
	admin.Username = "mallory"
	mallory, _, err := s.Issue(admin, time.Hour)
	require.NoError(t, err)

	a := strings.Split(alice, ".")
	m := strings.Split(mallory, ".")
	require.Len(t, a, 3)
	require.Len(t, m, 3)

	forged := a[0] + "." + m[1] + "." + a[2]
	_, err = s.Validate(forged)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestTokenService_SignatureCheckedBeforeExpiry(t *testing.T) {
	other := newTestTokenService(t, "other-secret", tokenEpoch)
	token, exp, err := other.Issue(testUser(), time.Minute)
	require.NoError(t, err)

	s := newTestTokenService(t, "secret", exp.Add(time.Hour))
	_, err = s.Validate(token)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestTokenService_RejectsNoneAlgorithm(t *testing.T) {
	claims := SessionClaims{
		Username: "alice",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			ExpiresAt: jwt.NewNumericDate(tokenEpoch.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	s := newTestTokenService(t, "secret", tokenEpoch)
	_, err = s.Validate(token)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestTokenService_Malformed(t *testing.T) {
	s := newTestTokenService(t, "secret", tokenEpoch)

	for _, token := range []string{"", "not-a-token", "a.b", "a.b.c"} {
		_, err := s.Validate(token)
		assert.ErrorIs(t, err, domain.ErrMalformedToken, "token %q", token)
	}
}

func TestTokenService_MissingClaims(t *testing.T) {
	s := newTestTokenService(t, "secret", tokenEpoch)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Username:         "alice",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = s.Validate(noExp)
	assert.ErrorIs(t, err, domain.ErrMalformedToken)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Username:         "alice",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(tokenEpoch.Add(time.Hour))},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = s.Validate(noSubject)
	assert.ErrorIs(t, err, domain.ErrMalformedToken)
}

func TestTokenService_IssuerMismatch(t *testing.T) {
	a := newTestTokenService(t, "secret", tokenEpoch, WithIssuer("auth-a"))
	token, _, err := a.Issue(testUser(), time.Hour)
	require.NoError(t, err)

	b := newTestTokenService(t, "secret", tokenEpoch, WithIssuer("auth-b"))
	_, err = b.Validate(token)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, err = a.Validate(token)
	assert.NoError(t, err)
}
