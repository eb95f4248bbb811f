package domain

import (
	"context"
	"time"
)

// AuthContext is the identity resolved from a validated session token.
type AuthContext struct {
	UserID     string
	Username   string
	Roles      []string // granted roles, in the order they were issued
	TokenID    string
	ExpiresAt  time.Time
	RemoteAddr string
}

// AuthDetails carries request-level information reported by Describe.
type AuthDetails struct {
	RemoteAddress string `json:"remote_address,omitempty"`
	TokenID       string `json:"token_id,omitempty"`
}

// AuthDescription is the introspection view of an AuthContext.
type AuthDescription struct {
	Authenticated  bool
	Name           string
	Details        AuthDetails
	TopLevelRole   string
	InheritedRoles []string
}

type authContextKey struct{}

// ContextWithAuth attaches an authenticated identity to ctx.
func ContextWithAuth(ctx context.Context, auth *AuthContext) context.Context {
	if auth == nil {
		return ctx
	}
	return context.WithValue(ctx, authContextKey{}, auth)
}

// AuthFromContext returns the identity attached by ContextWithAuth, or nil.
func AuthFromContext(ctx context.Context) *AuthContext {
	if ctx == nil {
		return nil
	}
	auth, _ := ctx.Value(authContextKey{}).(*AuthContext)
	return auth
}
