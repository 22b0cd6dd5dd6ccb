package domain

import (
	"fmt"
	"sort"
	"strings"
)

// FieldErrors maps a field path to its validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	paths := fe.Paths()
	parts := make([]string, 0, len(paths))
	for _, p := range paths {
		parts = append(parts, fmt.Sprintf("%s: %s", p, fe[p]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Paths returns the failing paths in sorted order.
func (fe FieldErrors) Paths() []string {
	out := make([]string, 0, len(fe))
	for p := range fe {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// RemoteError is a network or server failure reported by the gateway.
type RemoteError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway error: status=%d message=%s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gateway error: status=%d body=%s", e.StatusCode, e.Body)
}

// Conflict reports whether the gateway refused the request because the resource exists.
func (e *RemoteError) Conflict() bool { return e.StatusCode == 409 }

type SessionReason string

const (
	SessionUnauthenticated SessionReason = "unauthenticated"
	SessionUnverified      SessionReason = "unverified"
)

// SessionError signals access that needs a redirect to login or verification.
type SessionError struct {
	Reason  SessionReason
	Email   string
	Message string
}

func (e *SessionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("session %s", e.Reason)
}

// Redirect names the screen that recovers from the error.
func (e *SessionError) Redirect() string {
	if e.Reason == SessionUnverified {
		return "/verify"
	}
	return "/login"
}
