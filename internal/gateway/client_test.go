package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/domain"
	"launchpad/internal/otp"
)

func writeEnvelope(w http.ResponseWriter, status int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"statusCode": status,
		"success":    status < 300,
		"message":    msg,
		"data":       data,
	})
}

func TestLoginSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		var creds domain.Credentials
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "a@b.co", creds.Email)
		writeEnvelope(w, 200, "Login Successfully", map[string]any{
			"accessToken": "tok",
			"user":        map[string]any{"_id": "u1", "email": "a@b.co", "role": "mentor", "isVerified": true},
		})
	}))
	defer srv.Close()

	c := New(srv.URL + "/api/v1")
	sess, msg, err := c.Login(context.Background(), domain.Credentials{Email: "a@b.co", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Login Successfully", msg)
	assert.Equal(t, "tok", sess.Token)
	assert.Equal(t, "u1", sess.UserID())
	assert.Equal(t, domain.RoleMentor, sess.User.Role)
}

func TestLoginUnverified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusForbidden, UnverifiedMessage, nil)
	}))
	defer srv.Close()

	_, _, err := New(srv.URL).Login(context.Background(), domain.Credentials{Email: "a@b.co", Password: "secret1"})
	var se *domain.SessionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domain.SessionUnverified, se.Reason)
	assert.Equal(t, "a@b.co", se.Email)
	assert.Equal(t, "/verify", se.Redirect())
}

func TestUnauthorizedIsSessionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer stale", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusUnauthorized, "You are not authorized", nil)
	}))
	defer srv.Close()

	_, err := New(srv.URL).UserInfo(context.Background(), "stale")
	var se *domain.SessionError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domain.SessionUnauthenticated, se.Reason)
	assert.Equal(t, "You are not authorized", Message(err))
}

func TestCreateProfileRoutesByRole(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/mentor-profile/create" {
			writeEnvelope(w, http.StatusConflict, "Mentor profile already exists", nil)
			return
		}
		writeEnvelope(w, http.StatusCreated, "created", map[string]any{})
	}))
	defer srv.Close()

	c := New(srv.URL)
	msg, err := c.CreateProfile(context.Background(), "tok", domain.InvestorProfile{IndustryFocus: []string{"Energy"}})
	require.NoError(t, err)
	assert.Equal(t, "created", msg)

	_, err = c.CreateProfile(context.Background(), "tok", domain.EntrepreneurProfile{})
	require.NoError(t, err)

	_, err = c.CreateProfile(context.Background(), "tok", domain.MentorProfile{})
	var re *domain.RemoteError
	require.True(t, errors.As(err, &re))
	assert.True(t, re.Conflict())
	assert.Equal(t, "Mentor profile already exists", re.Message)

	assert.Equal(t, []string{"/investor-profile/create", "/entrepreneur-profile/create", "/mentor-profile/create"}, paths)
}

func TestQueryEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/entrepreneur-profile/get-all":
			assert.Equal(t, "fintech", r.URL.Query().Get("industry"))
			writeEnvelope(w, 200, "ok", []map[string]any{{"industry": "fintech", "stage": "idea"}})
		case "/mentor-profile/single-profile":
			assert.Equal(t, "u9", r.URL.Query().Get("userId"))
			writeEnvelope(w, 200, "ok", map[string]any{"name": "Grace"})
		default:
			writeEnvelope(w, 404, "Not found", nil)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	list, err := c.ListEntrepreneurProfiles(context.Background(), "tok", url.Values{"industry": {"fintech"}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "idea", list[0].Stage)

	m, err := c.MentorProfile(context.Background(), "tok", "u9")
	require.NoError(t, err)
	assert.Equal(t, "Grace", m.Name)

	_, err = c.ListInvestorProfiles(context.Background(), "tok", nil)
	var re *domain.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 404, re.StatusCode)
}

func TestRawProfileEndpoints(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/investor-profile/get-all":
			assert.Equal(t, "portfolioSize > 10", r.URL.Query().Get("filter"))
			writeEnvelope(w, 200, "ok", []map[string]any{{"investmentStage": "Seed"}, {"investmentStage": "Series A"}})
		case "/investor-profile/single-profile":
			writeEnvelope(w, 200, "ok", map[string]any{"investmentStage": "Seed"})
		default:
			writeEnvelope(w, 404, "Not found", nil)
		}
	}))
	defer srv.Close()

	c := New(srv.URL)
	list, err := c.ListProfiles(context.Background(), "tok", domain.RoleInvestor, url.Values{"filter": {"portfolioSize > 10"}})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.JSONEq(t, `{"investmentStage":"Series A"}`, string(list[1]))

	one, err := c.Profile(context.Background(), "tok", domain.RoleInvestor, "u1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"investmentStage":"Seed"}`, string(one))
}

func TestNetworkErrorIsWrapped(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	_, err := New(srv.URL).SendOTP(context.Background(), "a@b.co")
	require.Error(t, err)
	assert.Empty(t, Message(err))
}

func TestSuccessFalseIsRemoteError(t *testing.T) {
	var verifies atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/otp/send":
			writeEnvelope(w, http.StatusOK, "OTP sent successfully", nil)
		case "/otp/verify":
			verifies.Add(1)
			_, _ = w.Write([]byte(`{"statusCode":200,"success":false,"message":"Invalid OTP"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()
	c := New(srv.URL)
	ctx := context.Background()

	msg, err := c.VerifyOTP(ctx, "a@b.co", "000000")
	var re *domain.RemoteError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "Invalid OTP", re.Message)
	assert.Equal(t, "Invalid OTP", Message(err))
	assert.Empty(t, msg)

	flow := otp.NewFlow(c, "a@b.co", otp.Options{})
	_, err = flow.Send(ctx)
	require.NoError(t, err)
	_, err = flow.Verify(ctx, "000000")
	require.Error(t, err)
	assert.Equal(t, otp.StateCodeSent, flow.State())
	assert.EqualValues(t, 2, verifies.Load())
}

func TestEmptySuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	msg, err := New(srv.URL).Logout(context.Background(), "tok")
	require.NoError(t, err)
	assert.Empty(t, msg)
}
