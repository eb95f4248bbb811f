package domain

import "time"

// ResetTokenState is derived from a PasswordResetToken and the current time.
type ResetTokenState string

const (
	ResetTokenIssued   ResetTokenState = "issued"
	ResetTokenConsumed ResetTokenState = "consumed"
	ResetTokenExpired  ResetTokenState = "expired"
)

// PasswordResetToken binds a single-use secret to one user. Only the SHA-256
// of the secret is persisted.
type PasswordResetToken struct {
	UserID     string
	Username   string
	TokenHash  string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// State reports the token state at now. CONSUMED takes precedence over
// EXPIRED: both are terminal, but a consumed token stays consumed.
func (t *PasswordResetToken) State(now time.Time) ResetTokenState {
	switch {
	case t.ConsumedAt != nil:
		return ResetTokenConsumed
	case !now.Before(t.ExpiresAt):
		return ResetTokenExpired
	default:
		return ResetTokenIssued
	}
}

// Err maps a non-issued state to its caller-visible error.
func (s ResetTokenState) Err() error {
	switch s {
	case ResetTokenConsumed:
		return ErrTokenConsumed
	case ResetTokenExpired:
		return ErrTokenExpired
	case ResetTokenIssued:
		return nil
	default:
		return ErrInvalidToken
	}
}

// ResetNotification is handed to the delivery pipeline after a reset token
// has been issued.
type ResetNotification struct {
	ID        string
	UserID    string
	Username  string
	Email     string
	Token     string
	ExpiresAt time.Time
}
