package session

import (
	"context"
	"errors"
	"time"

	"launchpad/internal/domain"
)

var ErrNoSession = errors.New("no active session")

// Session is the authenticated context passed explicitly to every call that
// needs the current user.
type Session struct {
	Token     string      `json:"accessToken"`
	User      domain.User `json:"user"`
	CreatedAt time.Time   `json:"createdAt"`
}

func (s Session) Authenticated() bool { return s.Token != "" }

func (s Session) UserID() string { return s.User.ID }

// Require returns a SessionError when the session cannot be used for
// authenticated calls.
func (s Session) Require() error {
	if !s.Authenticated() {
		return &domain.SessionError{Reason: domain.SessionUnauthenticated, Message: "not logged in; run `lp login`"}
	}
	if !s.User.IsVerified {
		return &domain.SessionError{Reason: domain.SessionUnverified, Email: s.User.Email, Message: "account not verified; run `lp verify`"}
	}
	return nil
}

// Store persists the session between CLI invocations.
type Store interface {
	SaveSession(ctx context.Context, s Session) error
	LoadSession(ctx context.Context) (Session, error)
	ClearSession(ctx context.Context) error
}
