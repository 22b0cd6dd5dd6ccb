package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpad/internal/config"
	"launchpad/internal/contract"
	"launchpad/internal/db"
	"launchpad/internal/domain"
	"launchpad/internal/engine"
	"launchpad/internal/engine/auth"
	"launchpad/internal/migrate"
	"launchpad/internal/repo"
)

type captureMailer struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *captureMailer) SendOTP(_ context.Context, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[email] = code
	return nil
}

func (m *captureMailer) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

type testEnv struct {
	Engine engine.Engine
	Mailer *captureMailer
	Ctx    context.Context
	now    *time.Time
}

func (env testEnv) advance(d time.Duration) { *env.now = env.now.Add(d) }

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	eng := engine.New(conn, config.Default(), nil).WithClock(func() time.Time { return now })
	mailer := &captureMailer{codes: map[string]string{}}
	eng.Mailer = mailer
	return testEnv{Engine: eng, Mailer: mailer, Ctx: context.Background(), now: &now}
}

func registration(email string, role domain.Role) domain.Registration {
	return domain.Registration{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     email,
		Phone:     "+44 20 7946 0000",
		Password:  "secret1",
		Role:      role,
	}
}

func verifiedUser(t *testing.T, env testEnv, email string, role domain.Role) engine.LoginResult {
	t.Helper()
	_, err := env.Engine.Register(env.Ctx, registration(email, role))
	require.NoError(t, err)
	require.NoError(t, env.Engine.SendOTP(env.Ctx, email))
	require.NoError(t, env.Engine.VerifyOTP(env.Ctx, email, env.Mailer.code(email)))
	res, err := env.Engine.Login(env.Ctx, domain.Credentials{Email: email, Password: "secret1"})
	require.NoError(t, err)
	return res
}

func TestRegisterVerifyLogin(t *testing.T) {
	env := newTestEnv(t)
	u, err := env.Engine.Register(env.Ctx, registration("ada@example.com", domain.RoleInvestor))
	require.NoError(t, err)
	assert.False(t, u.IsVerified)
	assert.Equal(t, "ACTIVE", u.IsActive)

	creds := domain.Credentials{Email: "ada@example.com", Password: "secret1"}
	_, err = env.Engine.Login(env.Ctx, creds)
	require.ErrorIs(t, err, engine.ErrUnverified)
	assert.Equal(t, "Error: User isn't verified", err.Error())

	_, err = env.Engine.Login(env.Ctx, domain.Credentials{Email: "ada@example.com", Password: "wrong-pass"})
	require.ErrorIs(t, err, engine.ErrInvalidCredentials)

	require.ErrorIs(t, env.Engine.VerifyOTP(env.Ctx, "ada@example.com", "123456"), engine.ErrOTPNotRequested)
	require.NoError(t, env.Engine.SendOTP(env.Ctx, "ada@example.com"))
	code := env.Mailer.code("ada@example.com")
	require.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	require.ErrorIs(t, env.Engine.VerifyOTP(env.Ctx, "ada@example.com", wrong), engine.ErrOTPInvalid)
	require.NoError(t, env.Engine.VerifyOTP(env.Ctx, "ada@example.com", code))
	require.ErrorIs(t, env.Engine.SendOTP(env.Ctx, "ada@example.com"), engine.ErrAlreadyVerified)

	res, err := env.Engine.Login(env.Ctx, creds)
	require.NoError(t, err)
	assert.True(t, res.User.IsVerified)
	claims, err := env.Engine.Authenticate(env.Ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, domain.RoleInvestor, claims.Role)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	reg := registration("not-an-email", domain.RoleMentor)
	reg.Phone = "123"
	_, err := env.Engine.Register(env.Ctx, reg)
	var fe domain.FieldErrors
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "Invalid email address", fe["email"])
	assert.Equal(t, "Phone number is too short", fe["phone"])

	_, err = env.Engine.Register(env.Ctx, registration("grace@example.com", domain.RoleMentor))
	require.NoError(t, err)
	_, err = env.Engine.Register(env.Ctx, registration("Grace@Example.com", domain.RoleMentor))
	require.ErrorIs(t, err, repo.ErrConflict)
}

func TestOTPCooldownExpiryAndAttempts(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.Register(env.Ctx, registration("a@example.com", domain.RoleInvestor))
	require.NoError(t, err)
	require.NoError(t, env.Engine.SendOTP(env.Ctx, "a@example.com"))

	env.advance(59 * time.Second)
	err = env.Engine.SendOTP(env.Ctx, "a@example.com")
	var cd engine.CooldownError
	require.True(t, errors.As(err, &cd))
	assert.Equal(t, time.Second, cd.Remaining)

	env.advance(time.Second)
	require.NoError(t, env.Engine.SendOTP(env.Ctx, "a@example.com"))

	env.advance(11 * time.Minute)
	require.ErrorIs(t, env.Engine.VerifyOTP(env.Ctx, "a@example.com", env.Mailer.code("a@example.com")), engine.ErrOTPExpired)

	require.NoError(t, env.Engine.SendOTP(env.Ctx, "a@example.com"))
	code := env.Mailer.code("a@example.com")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}
	for i := 0; i < 5; i++ {
		require.ErrorIs(t, env.Engine.VerifyOTP(env.Ctx, "a@example.com", wrong), engine.ErrOTPInvalid)
	}
	require.ErrorIs(t, env.Engine.VerifyOTP(env.Ctx, "a@example.com", code), engine.ErrOTPAttempts)

	require.ErrorIs(t, env.Engine.SendOTP(env.Ctx, "nobody@example.com"), repo.ErrNotFound)
}

func investorPayload(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(domain.InvestorProfile{
		InvestmentExperience: "Ten years of seed investing",
		LinkedIn:             "https://linkedin.com/in/ada",
		Twitter:              "@ada",
		PortfolioSize:        2500000,
		InvestmentStage:      "Seed",
		IndustryFocus:        []string{"Finance"},
	})
	require.NoError(t, err)
	return data
}

func TestCreateProfile(t *testing.T) {
	env := newTestEnv(t)
	sess := verifiedUser(t, env, "ada@example.com", domain.RoleInvestor)
	uid := sess.User.ID

	_, err := env.Engine.CreateProfile(env.Ctx, uid, domain.RoleMentor, []byte(`{}`))
	var forbidden auth.ForbiddenError
	require.True(t, errors.As(err, &forbidden))

	_, err = env.Engine.CreateProfile(env.Ctx, uid, domain.RoleInvestor, []byte(`{"twitter":"@a"}`))
	var ve *contract.ViolationError
	require.True(t, errors.As(err, &ve))

	p, err := env.Engine.CreateProfile(env.Ctx, uid, domain.RoleInvestor, investorPayload(t))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleInvestor, p.Role())

	_, err = env.Engine.CreateProfile(env.Ctx, uid, domain.RoleInvestor, investorPayload(t))
	require.ErrorIs(t, err, repo.ErrConflict)

	info, err := env.Engine.CompanyInfo(env.Ctx, uid)
	require.NoError(t, err)
	require.NotNil(t, info.InvestorProfile)
	assert.Equal(t, "investor_profile", info.Tab())

	user, err := env.Engine.UserInfo(env.Ctx, uid)
	require.NoError(t, err)
	assert.True(t, user.HasProfile())

	got, err := env.Engine.SingleProfile(env.Ctx, uid, domain.RoleInvestor)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, repo.EventFilter{Type: "profile.created", Limit: 10})
	require.NoError(t, err)
	require.Len(t, evts, 1)
	assert.Equal(t, uid, evts[0].ActorID)
}

func TestEntrepreneurProfileOwnedByCaller(t *testing.T) {
	env := newTestEnv(t)
	sess := verifiedUser(t, env, "e@example.com", domain.RoleEntrepreneur)
	raw := []byte(`{"userId":"someone-else","founders":{"names":["Ada Lovelace"],"technicalFounder":"Charles"},
"company":{"name":"Analytical","shortDescription":"Engines for all","product":"Engine","location":"London"},
"stage":"idea","industry":"Hardware","funding":{"amountSeeking":1000,"currency":"USD","equityOffered":10}}`)
	p, err := env.Engine.CreateProfile(env.Ctx, sess.User.ID, domain.RoleEntrepreneur, raw)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, p.(domain.EntrepreneurProfile).UserID)
}

func TestListProfilesFilters(t *testing.T) {
	env := newTestEnv(t)
	stages := map[string]string{"a@example.com": "Seed", "b@example.com": "Series A", "c@example.com": "Seed"}
	sizes := map[string]float64{"a@example.com": 100, "b@example.com": 5000, "c@example.com": 9000}
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		sess := verifiedUser(t, env, email, domain.RoleInvestor)
		data, err := json.Marshal(domain.InvestorProfile{
			InvestmentExperience: "Plenty of it",
			LinkedIn:             "https://linkedin.com/in/x",
			Twitter:              "@xyz",
			PortfolioSize:        sizes[email],
			InvestmentStage:      stages[email],
			IndustryFocus:        []string{"Finance", "Energy"},
		})
		require.NoError(t, err)
		_, err = env.Engine.CreateProfile(env.Ctx, sess.User.ID, domain.RoleInvestor, data)
		require.NoError(t, err)
		env.advance(time.Second)
	}

	all, err := env.Engine.ListProfiles(env.Ctx, engine.ProfileQuery{Role: domain.RoleInvestor})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, float64(9000), all[0].(domain.InvestorProfile).PortfolioSize)

	seed, err := env.Engine.ListProfiles(env.Ctx, engine.ProfileQuery{Role: domain.RoleInvestor, Match: map[string]string{"investmentStage": "seed"}})
	require.NoError(t, err)
	assert.Len(t, seed, 2)

	energy, err := env.Engine.ListProfiles(env.Ctx, engine.ProfileQuery{Role: domain.RoleInvestor, Match: map[string]string{"industryFocus": "Energy"}})
	require.NoError(t, err)
	assert.Len(t, energy, 3)

	big, err := env.Engine.ListProfiles(env.Ctx, engine.ProfileQuery{Role: domain.RoleInvestor, Filter: `portfolioSize > 1000 && investmentStage == "Seed"`})
	require.NoError(t, err)
	require.Len(t, big, 1)
	assert.Equal(t, float64(9000), big[0].(domain.InvestorProfile).PortfolioSize)

	page, err := env.Engine.ListProfiles(env.Ctx, engine.ProfileQuery{Role: domain.RoleInvestor, Filter: "portfolioSize > 0", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, float64(5000), page[0].(domain.InvestorProfile).PortfolioSize)

	_, err = env.Engine.ListProfiles(env.Ctx, engine.ProfileQuery{Role: domain.RoleInvestor, Filter: "portfolioSize >"})
	var fe engine.FilterError
	require.True(t, errors.As(err, &fe))

	none, err := env.Engine.ListProfiles(env.Ctx, engine.ProfileQuery{Role: domain.RoleMentor})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLogoutRevokesToken(t *testing.T) {
	env := newTestEnv(t)
	sess := verifiedUser(t, env, "a@example.com", domain.RoleMentor)
	claims, err := env.Engine.Authenticate(env.Ctx, sess.AccessToken)
	require.NoError(t, err)
	require.NoError(t, env.Engine.Logout(env.Ctx, claims))
	_, err = env.Engine.Authenticate(env.Ctx, sess.AccessToken)
	require.Error(t, err)
}
