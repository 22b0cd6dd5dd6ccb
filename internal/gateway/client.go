package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"launchpad/internal/domain"
	"launchpad/internal/session"
)

const DefaultBaseURL = "http://localhost:5000/api/v1"

// UnverifiedMessage is the login failure text the gateway uses for accounts
// that have not completed OTP verification.
const UnverifiedMessage = "Error: User isn't verified"

// Client is a typed HTTP client for the portal API.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Envelope is the response wrapper used by every endpoint.
type Envelope[T any] struct {
	StatusCode int    `json:"statusCode"`
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Data       T      `json:"data,omitempty"`
}

type loginData struct {
	AccessToken string      `json:"accessToken"`
	User        domain.User `json:"user"`
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, reg domain.Registration) (domain.User, string, error) {
	var resp Envelope[domain.User]
	err := c.do(ctx, http.MethodPost, "user/register", "", reg, &resp)
	return resp.Data, resp.Message, err
}

// Login exchanges credentials for a session. An unverified account yields a
// SessionError carrying the email so the caller can route to verification.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (session.Session, string, error) {
	var resp Envelope[loginData]
	err := c.do(ctx, http.MethodPost, "auth/login", "", creds, &resp)
	if err != nil {
		if Message(err) == UnverifiedMessage {
			return session.Session{}, "", &domain.SessionError{Reason: domain.SessionUnverified, Email: creds.Email, Message: UnverifiedMessage}
		}
		return session.Session{}, "", err
	}
	return session.Session{Token: resp.Data.AccessToken, User: resp.Data.User, CreatedAt: time.Now().UTC()}, resp.Message, nil
}

func (c *Client) Logout(ctx context.Context, token string) (string, error) {
	var resp Envelope[json.RawMessage]
	err := c.do(ctx, http.MethodPost, "auth/logout", token, nil, &resp)
	return resp.Message, err
}

// SendOTP asks the gateway to deliver a one-time password to email.
func (c *Client) SendOTP(ctx context.Context, email string) (string, error) {
	var resp Envelope[json.RawMessage]
	err := c.do(ctx, http.MethodPost, "otp/send", "", map[string]string{"email": email}, &resp)
	return resp.Message, err
}

func (c *Client) VerifyOTP(ctx context.Context, email, code string) (string, error) {
	var resp Envelope[json.RawMessage]
	err := c.do(ctx, http.MethodPost, "otp/verify", "", map[string]string{"email": email, "otp": code}, &resp)
	return resp.Message, err
}

// UserInfo returns the session user with any attached profiles.
func (c *Client) UserInfo(ctx context.Context, token string) (domain.User, error) {
	var resp Envelope[domain.User]
	err := c.do(ctx, http.MethodGet, "user/me", token, nil, &resp)
	return resp.Data, err
}

func (c *Client) CompanyInfo(ctx context.Context, token string) (domain.CompanyInfo, error) {
	var resp Envelope[domain.CompanyInfo]
	err := c.do(ctx, http.MethodGet, "user/company-profile", token, nil, &resp)
	return resp.Data, err
}

// CreateProfile posts p to the create endpoint of its role and returns the
// server message.
func (c *Client) CreateProfile(ctx context.Context, token string, p domain.RoleProfile) (string, error) {
	var resp Envelope[json.RawMessage]
	err := c.do(ctx, http.MethodPost, createPath(p.Role()), token, p, &resp)
	return resp.Message, err
}

func createPath(role domain.Role) string {
	return fmt.Sprintf("%s-profile/create", role)
}

// ListEntrepreneurProfiles returns entrepreneur profiles matching query.
func (c *Client) ListEntrepreneurProfiles(ctx context.Context, token string, query url.Values) ([]domain.EntrepreneurProfile, error) {
	var resp Envelope[[]domain.EntrepreneurProfile]
	err := c.do(ctx, http.MethodGet, withQuery("entrepreneur-profile/get-all", query), token, nil, &resp)
	return resp.Data, err
}

func (c *Client) EntrepreneurProfile(ctx context.Context, token, userID string) (domain.EntrepreneurProfile, error) {
	var resp Envelope[domain.EntrepreneurProfile]
	q := url.Values{"userId": {userID}}
	err := c.do(ctx, http.MethodGet, withQuery("entrepreneur-profile/single-profile", q), token, nil, &resp)
	return resp.Data, err
}

func (c *Client) ListInvestorProfiles(ctx context.Context, token string, query url.Values) ([]domain.InvestorProfile, error) {
	var resp Envelope[[]domain.InvestorProfile]
	err := c.do(ctx, http.MethodGet, withQuery("investor-profile/get-all", query), token, nil, &resp)
	return resp.Data, err
}

func (c *Client) MentorProfile(ctx context.Context, token, userID string) (domain.MentorProfile, error) {
	var resp Envelope[domain.MentorProfile]
	q := url.Values{"userId": {userID}}
	err := c.do(ctx, http.MethodGet, withQuery("mentor-profile/single-profile", q), token, nil, &resp)
	return resp.Data, err
}

// ListProfiles returns the raw profile documents of any role.
func (c *Client) ListProfiles(ctx context.Context, token string, role domain.Role, query url.Values) ([]json.RawMessage, error) {
	var resp Envelope[[]json.RawMessage]
	err := c.do(ctx, http.MethodGet, withQuery(fmt.Sprintf("%s-profile/get-all", role), query), token, nil, &resp)
	return resp.Data, err
}

// Profile returns the raw role profile document of a user.
func (c *Client) Profile(ctx context.Context, token string, role domain.Role, userID string) (json.RawMessage, error) {
	var resp Envelope[json.RawMessage]
	q := url.Values{"userId": {userID}}
	err := c.do(ctx, http.MethodGet, withQuery(fmt.Sprintf("%s-profile/single-profile", role), q), token, nil, &resp)
	return resp.Data, err
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

func (c *Client) do(ctx context.Context, method, endpoint, token string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token == "" {
		token = c.BearerToken
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", endpoint, err)
	}
	if resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, b)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	// Some endpoints answer 200 with success:false (a rejected OTP, for one).
	var flag struct {
		Success *bool `json:"success"`
	}
	if err := json.Unmarshal(b, &flag); err == nil && flag.Success != nil && !*flag.Success {
		return statusError(resp.StatusCode, b)
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			return fmt.Errorf("decode %s response: %w", endpoint, err)
		}
	}
	return nil
}

func statusError(status int, body []byte) error {
	var env Envelope[json.RawMessage]
	_ = json.Unmarshal(body, &env)
	if status == http.StatusUnauthorized {
		return &domain.SessionError{Reason: domain.SessionUnauthenticated, Message: env.Message}
	}
	return &domain.RemoteError{StatusCode: status, Message: env.Message, Body: string(body)}
}

// Message extracts the server-provided message from a client error.
func Message(err error) string {
	var re *domain.RemoteError
	var se *domain.SessionError
	switch {
	case errors.As(err, &re):
		return re.Message
	case errors.As(err, &se):
		return se.Message
	}
	return ""
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
