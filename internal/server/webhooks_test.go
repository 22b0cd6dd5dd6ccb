package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"launchpad/internal/config"
	"launchpad/internal/domain"
)

type delivery struct {
	header http.Header
	body   []byte
	event  WebhookEvent
}

type hookSink struct {
	mu     sync.Mutex
	got    []delivery
	status int
}

func (s *hookSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != 0 {
		w.WriteHeader(s.status)
		return
	}
	var evt WebhookEvent
	_ = json.Unmarshal(body, &evt)
	s.got = append(s.got, delivery{header: r.Header.Clone(), body: body, event: evt})
}

func (s *hookSink) deliveries() []delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery(nil), s.got...)
}

func (s *hookSink) fail(status int) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func TestDispatcherDeliversNewEvents(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	_, err := srv.Engine.Register(ctx, domain.Registration{FirstName: "Old", LastName: "User", Email: "old@example.com", Phone: "+1 555 0100", Password: "secret1", Role: domain.RoleInvestor})
	require.NoError(t, err)

	sink := &hookSink{}
	hook := httptest.NewServer(sink)
	defer hook.Close()

	d := NewDispatcher(srv.Engine, []config.WebhookConfig{{URL: hook.URL, Events: []string{"user.*"}, Secret: "s3cret"}}, zap.NewNop())
	require.NoError(t, d.Prime(ctx))

	login(t, srv, "ada@example.com", domain.RoleInvestor)
	d.Flush(ctx)

	got := sink.deliveries()
	require.Len(t, got, 2)
	assert.Equal(t, "user.registered", got[0].event.Type)
	assert.Equal(t, "user.verified", got[1].event.Type)
	for _, dl := range got {
		assert.Equal(t, dl.event.Type, dl.header.Get("X-Launchpad-Event"))
		assert.Equal(t, Sign("s3cret", dl.body), dl.header.Get("X-Launchpad-Signature"))
	}

	d.Flush(ctx)
	assert.Len(t, sink.deliveries(), 2)
}

func TestDispatcherRetriesFailedDelivery(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	sink := &hookSink{}
	hook := httptest.NewServer(sink)
	defer hook.Close()

	d := NewDispatcher(srv.Engine, []config.WebhookConfig{{URL: hook.URL}}, nil)
	require.NoError(t, d.Prime(ctx))

	_, err := srv.Engine.Register(ctx, domain.Registration{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "+1 555 0100", Password: "secret1", Role: domain.RoleMentor})
	require.NoError(t, err)

	sink.fail(http.StatusBadGateway)
	d.Flush(ctx)
	assert.Empty(t, sink.deliveries())

	sink.fail(0)
	d.Flush(ctx)
	got := sink.deliveries()
	require.Len(t, got, 1)
	assert.Equal(t, "user.registered", got[0].event.Type)
	assert.Empty(t, got[0].header.Get("X-Launchpad-Signature"))
}

func TestDisabledHookSkipped(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	sink := &hookSink{}
	hook := httptest.NewServer(sink)
	defer hook.Close()

	off := false
	d := NewDispatcher(srv.Engine, []config.WebhookConfig{{URL: hook.URL, Enabled: &off}}, nil)
	require.NoError(t, d.Prime(ctx))
	login(t, srv, "ada@example.com", domain.RoleInvestor)
	d.Flush(ctx)
	assert.Empty(t, sink.deliveries())
}

func TestEventFilter(t *testing.T) {
	assert.True(t, newEventFilter(nil).match("anything"))
	assert.True(t, newEventFilter([]string{" "}).match("anything"))

	f := newEventFilter([]string{"user.*", "profile.created"})
	assert.True(t, f.match("user.verified"))
	assert.True(t, f.match("profile.created"))
	assert.False(t, f.match("otp.sent"))
}
