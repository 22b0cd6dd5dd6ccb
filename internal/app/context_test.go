package app

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/config"
	"launchpad/internal/domain"
	"launchpad/internal/session"
)

func TestOpenWithDefaults(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(context.Background(), Options{Workspace: dir, GatewayURL: "http://gw.test/api/v1"})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, "http://gw.test/api/v1", a.Gateway.BaseURL)
	assert.Equal(t, 10*time.Second, a.Gateway.Timeout)
	assert.Equal(t, config.Default().OTP, a.Config.OTP)
}

func TestOpenReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(config.Path(dir), []byte("gateway:\n  base_url: http://other/api\n  timeout_seconds: 3\n"), 0o600))
	a, err := Open(context.Background(), Options{Workspace: dir})
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, "http://other/api", a.Gateway.BaseURL)
	assert.Equal(t, 3*time.Second, a.Gateway.Timeout)
}

func TestSessionLifecycle(t *testing.T) {
	a, err := Open(context.Background(), Options{Workspace: t.TempDir()})
	require.NoError(t, err)
	defer a.Close()
	ctx := context.Background()

	s, err := a.Session(ctx)
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
	_, err = a.RequireSession(ctx)
	var se *domain.SessionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domain.SessionUnauthenticated, se.Reason)

	require.NoError(t, a.Sessions().SaveSession(ctx, session.Session{Token: "tok", User: domain.User{ID: "u1", Email: "a@b.co", IsVerified: true}}))
	s, err = a.RequireSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID())

	require.NoError(t, a.Sessions().ClearSession(ctx))
	s, err = a.Session(ctx)
	require.NoError(t, err)
	assert.False(t, s.Authenticated())
}
