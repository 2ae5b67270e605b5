// Package identity talks to the identity provider: password sign-in,
// self-service sign-up, sign-out and session lookup.
package identity

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoSession          = errors.New("no active session")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnavailable        = errors.New("identity provider unavailable")
)

// Session is what the provider hands back after authenticating.
// Token is empty when the provider did not establish a session.
type Session struct {
	Token     string    `json:"token,omitempty"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
}

type SignUpParams struct {
	Email    string
	Password string
	Name     string
}

type Provider interface {
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignUp(ctx context.Context, p SignUpParams) (Session, error)
	SignOut(ctx context.Context, token string) error
	Session(ctx context.Context, token string) (Session, error)

	// Ghost returns a throwaway client that never persists the sessions it
	// obtains. Sign-up is the provider's only account creation path, so
	// admin-driven user creation goes through a ghost to keep the admin's
	// own session untouched. Scope a ghost to a single call.
	Ghost() Provider
}
