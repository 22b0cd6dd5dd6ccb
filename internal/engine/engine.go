package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"launchpad/internal/config"
	"launchpad/internal/contract"
	"launchpad/internal/domain"
	"launchpad/internal/engine/auth"
	"launchpad/internal/events"
	"launchpad/internal/forms"
	"launchpad/internal/repo"
	"launchpad/internal/schema"
)

var (
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrUnverified         = errors.New("Error: User isn't verified")
	ErrInactive           = errors.New("User account is inactive")
	ErrAlreadyVerified    = errors.New("User already verified")
	ErrOTPNotRequested    = errors.New("No OTP requested for this email")
	ErrOTPExpired         = errors.New("OTP expired; request a new one")
	ErrOTPInvalid         = errors.New("Invalid OTP")
	ErrOTPAttempts        = errors.New("Too many attempts; request a new OTP")
)

// CooldownError refuses an OTP resend before the cooldown has elapsed.
type CooldownError struct {
	Remaining time.Duration
}

func (e CooldownError) Error() string {
	return fmt.Sprintf("Please wait %ds before requesting another OTP", int((e.Remaining+time.Second-1)/time.Second))
}

// Mailer delivers one-time passwords.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string) error
}

// LogMailer writes codes to the log instead of sending mail.
type LogMailer struct {
	Log *zap.Logger
}

func (m LogMailer) SendOTP(_ context.Context, email, code string) error {
	m.Log.Info("otp issued", zap.String("email", email), zap.String("code", code))
	return nil
}

// Engine implements the portal operations over the store.
type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	Tokens auth.Tokens
	Mailer Mailer
	Log    *zap.Logger
	Now    func() time.Time
}

func New(db *sql.DB, cfg *config.Config, log *zap.Logger) Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{Now: time.Now},
		Config: cfg,
		Tokens: auth.Tokens{Secret: cfg.Auth.JWTSecret, TTL: cfg.TokenTTL(), Now: time.Now},
		Mailer: LogMailer{Log: log},
		Log:    log,
		Now:    time.Now,
	}
}

// WithClock returns a copy of e whose timestamps, tokens and events read now.
func (e Engine) WithClock(now func() time.Time) Engine {
	e.Now = now
	e.Events.Now = now
	e.Tokens.Now = now
	return e
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

// Register validates reg with the registration rules and stores an
// unverified account.
func (e Engine) Register(ctx context.Context, reg domain.Registration) (domain.User, error) {
	vals := schema.Values{
		"firstName":       reg.FirstName,
		"lastName":        reg.LastName,
		"email":           reg.Email,
		"phone":           reg.Phone,
		"password":        reg.Password,
		"confirmPassword": reg.Password,
		"role":            string(reg.Role),
	}
	if errs := forms.RegisterSchema.Validate(vals); len(errs) > 0 {
		return domain.User{}, errs
	}
	hash, err := auth.HashPassword(reg.Password)
	if err != nil {
		return domain.User{}, err
	}
	now := e.stamp()
	u := repo.UserRecord{
		User: domain.User{
			ID:        uuid.NewString(),
			FirstName: reg.FirstName,
			LastName:  reg.LastName,
			Email:     reg.Email,
			Phone:     reg.Phone,
			Role:      reg.Role,
			IsActive:  "ACTIVE",
			CreatedAt: now,
			UpdatedAt: now,
		},
		PasswordHash: hash,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertUserTx(ctx, tx, u); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return domain.User{}, fmt.Errorf("user with email %s %w", reg.Email, repo.ErrConflict)
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.ForUser(events.UserRegistered, u.ID, events.Payload{"role": u.Role})); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	e.Log.Info("user registered", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u.User, nil
}

// LoginResult is an issued session.
type LoginResult struct {
	AccessToken string      `json:"accessToken"`
	User        domain.User `json:"user"`
}

// Login checks credentials and issues an access token. Unverified accounts
// are refused with ErrUnverified.
func (e Engine) Login(ctx context.Context, creds domain.Credentials) (LoginResult, error) {
	u, err := e.Repo.GetUserByEmail(ctx, creds.Email)
	if errors.Is(err, repo.ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, creds.Password) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if u.IsActive != "ACTIVE" {
		return LoginResult{}, ErrInactive
	}
	if !u.IsVerified {
		return LoginResult{}, ErrUnverified
	}
	user, err := e.UserInfo(ctx, u.ID)
	if err != nil {
		return LoginResult{}, err
	}
	token, _, err := e.Tokens.Issue(user)
	if err != nil {
		return LoginResult{}, err
	}
	e.Log.Info("user logged in", zap.String("user_id", u.ID))
	return LoginResult{AccessToken: token, User: user}, nil
}

// Logout revokes the token identified by claims.
func (e Engine) Logout(ctx context.Context, claims auth.Claims) error {
	expires := e.stamp()
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.UTC().Format(time.RFC3339)
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.RevokeTokenTx(ctx, tx, claims.ID, expires); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.ForUser(events.TokenRevoked, claims.Subject, nil)); err != nil {
		return err
	}
	return tx.Commit()
}

// Authenticate parses token and rejects revoked ones.
func (e Engine) Authenticate(ctx context.Context, token string) (auth.Claims, error) {
	claims, err := e.Tokens.Parse(token)
	if err != nil {
		return auth.Claims{}, err
	}
	revoked, err := e.Repo.TokenRevoked(ctx, claims.ID)
	if err != nil {
		return auth.Claims{}, err
	}
	if revoked {
		return auth.Claims{}, errors.New("token revoked")
	}
	return claims, nil
}

// SendOTP issues a fresh code for an unverified account, at most once per
// cooldown.
func (e Engine) SendOTP(ctx context.Context, email string) error {
	u, err := e.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return ErrAlreadyVerified
	}
	now := e.now().UTC()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	prev, err := e.Repo.GetOTPTx(ctx, tx, u.Email)
	switch {
	case err == nil:
		sent, _ := time.Parse(time.RFC3339, prev.SentAt)
		if wait := sent.Add(e.Config.OTPCooldown()).Sub(now); wait > 0 {
			return CooldownError{Remaining: wait}
		}
	case !errors.Is(err, repo.ErrNotFound):
		return err
	}
	code, err := auth.NewCode()
	if err != nil {
		return err
	}
	rec := repo.OTPRecord{
		Email:     u.Email,
		CodeHash:  repo.HashCode(code),
		SentAt:    now.Format(time.RFC3339),
		ExpiresAt: now.Add(e.Config.OTPTTL()).Format(time.RFC3339),
	}
	if err := e.Repo.UpsertOTPTx(ctx, tx, rec); err != nil {
		return fmt.Errorf("store otp: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.ForUser(events.OTPSent, u.ID, nil)); err != nil {
		return err
	}
	if err := e.Mailer.SendOTP(ctx, u.Email, code); err != nil {
		return fmt.Errorf("deliver otp: %w", err)
	}
	return tx.Commit()
}

// VerifyOTP checks code against the pending OTP of email and marks the
// account verified. Wrong codes count towards the attempt limit.
func (e Engine) VerifyOTP(ctx context.Context, email, code string) error {
	u, err := e.Repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return ErrAlreadyVerified
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	rec, err := e.Repo.GetOTPTx(ctx, tx, u.Email)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrOTPNotRequested
	}
	if err != nil {
		return err
	}
	expires, _ := time.Parse(time.RFC3339, rec.ExpiresAt)
	if !e.now().Before(expires) {
		return ErrOTPExpired
	}
	if rec.Attempts >= e.Config.OTP.MaxAttempts {
		return ErrOTPAttempts
	}
	if repo.HashCode(code) != rec.CodeHash {
		if err := e.Repo.IncrementOTPAttemptsTx(ctx, tx, u.Email); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		return ErrOTPInvalid
	}
	if err := e.Repo.MarkVerifiedTx(ctx, tx, u.Email, e.stamp()); err != nil {
		return err
	}
	if err := e.Repo.DeleteOTPTx(ctx, tx, u.Email); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.ForUser(events.UserVerified, u.ID, nil)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.Log.Info("user verified", zap.String("user_id", u.ID))
	return nil
}

// UserInfo returns the user with every attached profile.
func (e Engine) UserInfo(ctx context.Context, userID string) (domain.User, error) {
	u, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	info, err := e.CompanyInfo(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	user := u.User
	user.InvestorProfile = info.InvestorProfile
	user.EntrepreneurProfile = info.EntrepreneurProfile
	user.MentorProfile = info.MentorProfile
	return user, nil
}

// CompanyInfo returns the profiles owned by the user.
func (e Engine) CompanyInfo(ctx context.Context, userID string) (domain.CompanyInfo, error) {
	recs, err := e.Repo.ListProfiles(ctx, repo.ProfileFilters{UserID: userID})
	if err != nil {
		return domain.CompanyInfo{}, err
	}
	var info domain.CompanyInfo
	for _, rec := range recs {
		p, err := decodeProfile(rec)
		if err != nil {
			return domain.CompanyInfo{}, err
		}
		switch v := p.(type) {
		case domain.InvestorProfile:
			info.InvestorProfile = &v
		case domain.EntrepreneurProfile:
			info.EntrepreneurProfile = &v
		case domain.MentorProfile:
			info.MentorProfile = &v
		}
	}
	return info, nil
}

// CreateProfile checks raw against the role contract and stores it for the
// user. The user's registered role must match; one profile per role.
func (e Engine) CreateProfile(ctx context.Context, userID string, role domain.Role, raw []byte) (domain.RoleProfile, error) {
	u, err := e.Repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u.Role != role {
		return nil, auth.ForbiddenError{Role: u.Role, Action: fmt.Sprintf("create a %s profile", role)}
	}
	if err := contract.Validate(role, raw); err != nil {
		return nil, err
	}
	p, err := decodeProfile(repo.ProfileRecord{Role: role, Payload: raw})
	if err != nil {
		return nil, err
	}
	if ep, ok := p.(domain.EntrepreneurProfile); ok {
		ep.UserID = userID
		p = ep
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	rec := repo.ProfileRecord{ID: uuid.NewString(), UserID: userID, Role: role, Payload: payload, CreatedAt: e.stamp()}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertProfileTx(ctx, tx, rec); err != nil {
		if errors.Is(err, repo.ErrConflict) {
			return nil, fmt.Errorf("%s profile %w", role, repo.ErrConflict)
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.Record{
		Type:     events.ProfileCreated,
		Kind:     events.KindProfile,
		EntityID: rec.ID,
		Actor:    userID,
		Payload:  events.Payload{"role": role, "user_id": userID},
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	e.Log.Info("profile created", zap.String("user_id", userID), zap.String("role", string(role)), zap.String("profile_id", rec.ID))
	return p, nil
}

// SingleProfile returns the role profile of a user.
func (e Engine) SingleProfile(ctx context.Context, userID string, role domain.Role) (domain.RoleProfile, error) {
	rec, err := e.Repo.GetProfile(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	return decodeProfile(rec)
}

func decodeProfile(rec repo.ProfileRecord) (domain.RoleProfile, error) {
	var (
		p   domain.RoleProfile
		err error
	)
	switch rec.Role {
	case domain.RoleEntrepreneur:
		var v domain.EntrepreneurProfile
		err = json.Unmarshal(rec.Payload, &v)
		if v.UserID == "" {
			v.UserID = rec.UserID
		}
		p = v
	case domain.RoleInvestor:
		var v domain.InvestorProfile
		err = json.Unmarshal(rec.Payload, &v)
		p = v
	case domain.RoleMentor:
		var v domain.MentorProfile
		err = json.Unmarshal(rec.Payload, &v)
		p = v
	default:
		return nil, fmt.Errorf("unknown role %q", rec.Role)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s profile %s: %w", rec.Role, rec.ID, err)
	}
	return p, nil
}
