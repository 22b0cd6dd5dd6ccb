package submit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"launchpad/internal/domain"
	"launchpad/internal/form"
	"launchpad/internal/forms"
	"launchpad/internal/session"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeGateway struct {
	calls   atomic.Int32
	msg     string
	err     error
	release chan struct{}
	entered chan struct{}
	got     domain.RoleProfile
}

func (g *fakeGateway) CreateProfile(ctx context.Context, token string, p domain.RoleProfile) (string, error) {
	g.calls.Add(1)
	g.got = p
	if g.entered != nil {
		close(g.entered)
	}
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return g.msg, g.err
}

type fakeDrafts struct{ discarded []domain.Role }

func (d *fakeDrafts) Discard(_ context.Context, role domain.Role) error {
	d.discarded = append(d.discarded, role)
	return nil
}

var verified = session.Session{Token: "tok", User: domain.User{ID: "u1", Email: "a@b.co", IsVerified: true}}

func investorForm(t *testing.T) *form.Form {
	t.Helper()
	f := form.New(forms.InvestorSchema)
	require.NoError(t, f.SetField("investmentExperience", "Ten years of seed investing"))
	require.NoError(t, f.SetField("linkedIn", "https://linkedin.com/in/x"))
	require.NoError(t, f.SetField("twitter", "@investor"))
	require.NoError(t, f.SetField("portfolioSize", "2500000"))
	require.NoError(t, f.SetField("investmentStage", "Seed"))
	require.NoError(t, f.SetField("industryFocus", []string{"Finance"}))
	return f
}

func investorVariant(t *testing.T) forms.Variant {
	t.Helper()
	v, err := forms.ForRole(domain.RoleInvestor)
	require.NoError(t, err)
	return v
}

func TestSubmitSuccess(t *testing.T) {
	gw := &fakeGateway{}
	drafts := &fakeDrafts{}
	o := New(gw, investorVariant(t), WithDrafts(drafts))

	var seen []Transition
	o.Observe(func(tr Transition) { seen = append(seen, tr) })

	res, err := o.Submit(context.Background(), verified, investorForm(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, "Profile created successfully!", res.Message)
	assert.Equal(t, "/", res.Destination)
	assert.Equal(t, StateSucceeded, o.State())
	assert.Equal(t, []domain.Role{domain.RoleInvestor}, drafts.discarded)
	assert.Equal(t, []Transition{
		{From: StateIdle, To: StateValidating},
		{From: StateValidating, To: StateSubmitting},
		{From: StateSubmitting, To: StateSucceeded},
	}, seen)

	ip, ok := gw.got.(domain.InvestorProfile)
	require.True(t, ok)
	assert.Equal(t, float64(2500000), ip.PortfolioSize)

	_, err = o.Submit(context.Background(), verified, investorForm(t))
	require.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.EqualValues(t, 1, gw.calls.Load())
}

func TestSubmitUsesServerMessage(t *testing.T) {
	gw := &fakeGateway{msg: "Investor profile saved"}
	o := New(gw, investorVariant(t))
	res, err := o.Submit(context.Background(), verified, investorForm(t))
	require.NoError(t, err)
	assert.Equal(t, "Investor profile saved", res.Message)
}

func TestValidationFailureSkipsGateway(t *testing.T) {
	gw := &fakeGateway{}
	o := New(gw, investorVariant(t))
	f := investorForm(t)
	require.NoError(t, f.SetField("linkedIn", "not-a-url"))

	res, err := o.Submit(context.Background(), verified, f)
	require.NoError(t, err)
	assert.Equal(t, OutcomeValidationFailure, res.Outcome)
	assert.Equal(t, domain.FieldErrors{"linkedIn": "Enter a valid LinkedIn URL."}, res.FieldErrors)
	assert.Equal(t, "Enter a valid LinkedIn URL.", f.Error("linkedIn"))
	assert.Zero(t, gw.calls.Load())
	assert.Equal(t, StateIdle, o.State())
}

func TestRemoteFailure(t *testing.T) {
	gw := &fakeGateway{err: &domain.RemoteError{StatusCode: 409, Message: "Investor profile already exists"}}
	o := New(gw, investorVariant(t), WithDrafts(&fakeDrafts{}))
	res, err := o.Submit(context.Background(), verified, investorForm(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoteFailure, res.Outcome)
	assert.Equal(t, "Investor profile already exists", res.Message)
	assert.Equal(t, StateIdle, o.State())

	gw.err = errors.New("connection refused")
	res, err = o.Submit(context.Background(), verified, investorForm(t))
	require.NoError(t, err)
	assert.Equal(t, "Something went wrong", res.Message)
	assert.EqualValues(t, 2, gw.calls.Load())
}

func TestSessionRequired(t *testing.T) {
	gw := &fakeGateway{}
	o := New(gw, investorVariant(t))
	res, err := o.Submit(context.Background(), session.Session{}, investorForm(t))
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoteFailure, res.Outcome)
	assert.Equal(t, "/login", res.Destination)
	assert.Zero(t, gw.calls.Load())
}

func TestConcurrentSubmitRejected(t *testing.T) {
	gw := &fakeGateway{release: make(chan struct{}), entered: make(chan struct{})}
	o := New(gw, investorVariant(t))
	f := investorForm(t)

	var wg sync.WaitGroup
	wg.Add(1)
	var first Result
	go func() {
		defer wg.Done()
		first, _ = o.Submit(context.Background(), verified, f)
	}()
	<-gw.entered

	_, err := o.Submit(context.Background(), verified, f)
	require.ErrorIs(t, err, ErrSubmitInProgress)

	close(gw.release)
	wg.Wait()
	assert.Equal(t, OutcomeSuccess, first.Outcome)
	assert.EqualValues(t, 1, gw.calls.Load())
}

func TestCancelReturnsToIdle(t *testing.T) {
	gw := &fakeGateway{release: make(chan struct{}), entered: make(chan struct{})}
	o := New(gw, investorVariant(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan Result)
	go func() {
		res, _ := o.Submit(ctx, verified, investorForm(t))
		done <- res
	}()
	<-gw.entered
	cancel()
	res := <-done
	assert.Equal(t, OutcomeRemoteFailure, res.Outcome)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, StateIdle, o.State())
}

func TestFormMustMatchRole(t *testing.T) {
	o := New(&fakeGateway{}, investorVariant(t))
	_, err := o.Submit(context.Background(), verified, form.New(forms.MentorSchema))
	require.Error(t, err)
}
