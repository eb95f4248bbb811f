package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gary-backend/auth-service/internal/core/domain"
)

func TestHashResetToken(t *testing.T) {
	a := HashResetToken("token")
	assert.Equal(t, a, HashResetToken("token"))
	assert.NotEqual(t, a, HashResetToken("token2"))
	assert.Len(t, a, 64)
}

func TestResetTokenService_Request(t *testing.T) {
	store := newMemStore()
	user, err := store.Create(context.Background(), &domain.User{Username: "alice", Status: domain.UserStatusActive})
	require.NoError(t, err)

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	s := NewResetTokenService(store, store, 0, RetryPolicy{Attempts: 1})
	s.now = fixedClock(base)

	issued, err := s.Request(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, issued)
	assert.Equal(t, user.ID, issued.User.ID)
	assert.Equal(t, base.Add(15*time.Minute), issued.ExpiresAt)
	assert.Len(t, issued.Token, 43)

	store.mu.Lock()
	stored, ok := store.resets[HashResetToken(issued.Token)]
	store.mu.Unlock()
	require.True(t, ok, "token must be stored by hash")
	assert.NotEqual(t, issued.Token, stored.TokenHash)
	assert.Equal(t, domain.ResetTokenIssued, stored.State(base))
}

func TestResetTokenService_RequestUnknownUser(t *testing.T) {
	store := newMemStore()
	s := NewResetTokenService(store, store, time.Minute, RetryPolicy{Attempts: 1})

	issued, err := s.Request(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, issued)
	assert.Equal(t, 0, store.resetCount())
}

func TestResetTokenService_TokensAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, err := newResetSecret()
		require.NoError(t, err)
		_, dup := seen[tok]
		require.False(t, dup)
		seen[tok] = struct{}{}
	}
}

func TestResetTokenService_ConsumeEmpty(t *testing.T) {
	store := newMemStore()
	s := NewResetTokenService(store, store, time.Minute, RetryPolicy{Attempts: 1})

	_, err := s.Consume(context.Background(), "", "hash")
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}
