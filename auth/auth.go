package auth

import (
	"context"

	"github.com/pkg/errors"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleTeacher = "professor"
)

// Session event kinds.
const (
	SignedIn  = "SIGNED_IN"
	SignedOut = "SIGNED_OUT"
)

var (
	ErrNoSession      = errors.New("no active session")
	ErrNotFound       = errors.New("identity not found")
	ErrEmailExists    = errors.New("an identity with this email already exists")
	ErrBadCredentials = errors.New("invalid credentials")
)

type (
	// Actor is the authenticated user driving a session.
	Actor struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}

	// SessionEvent notifies subscribers of session changes.
	SessionEvent struct {
		Kind  string
		Actor Actor // zero value on SignedOut
	}

	// IdentityProvider manages remote identities and the current session.
	IdentityProvider interface {
		// SignIn authenticates an identity and starts a session.
		SignIn(ctx context.Context, email, secret string) (Actor, error)
		// SignOut ends the current session.
		SignOut(ctx context.Context) error
		// CurrentActor resolves the session's actor; ErrNoSession when signed out.
		CurrentActor(ctx context.Context) (Actor, error)
		// CreateIdentity provisions a new identity and returns its generated id.
		// It does not affect the current session.
		CreateIdentity(ctx context.Context, email, secret string) (string, error)
		// ResetSecret replaces an identity's secret.
		ResetSecret(ctx context.Context, email, secret string) error
		// Events streams session-change notifications.
		Events() <-chan SessionEvent
	}
)

func (a Actor) IsAdmin() bool   { return a.Role == RoleAdmin }
func (a Actor) IsTeacher() bool { return a.Role == RoleTeacher }
func (a Actor) IsZero() bool    { return a == Actor{} }
