package domain

import "errors"

// Caller-visible failures. Messages are fixed strings and never carry
// credential material.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserExists         = errors.New("user already exists")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenConsumed      = errors.New("token already consumed")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrInvalidSignature   = errors.New("invalid token signature")
	ErrMalformedToken     = errors.New("malformed token")
	ErrInvalidInput       = errors.New("invalid input")
	ErrForbidden          = errors.New("access forbidden")
)

// Internal failures, translated before they reach a caller.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrVersionConflict = errors.New("concurrent modification")
)
