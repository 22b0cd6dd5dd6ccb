package submit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"launchpad/internal/domain"
	"launchpad/internal/form"
	"launchpad/internal/forms"
	"launchpad/internal/session"
)

var (
	ErrSubmitInProgress = errors.New("submission already in progress")
	ErrAlreadySubmitted = errors.New("profile already submitted")
)

type State int

const (
	StateIdle State = iota
	StateValidating
	StateInvalid
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateInvalid:
		return "invalid"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type Outcome int

const (
	OutcomeSuccess Outcome = iota + 1
	OutcomeValidationFailure
	OutcomeRemoteFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeValidationFailure:
		return "validation_failure"
	case OutcomeRemoteFailure:
		return "remote_failure"
	default:
		return "unknown"
	}
}

// Result is the outcome of one submission attempt. Message and Destination
// are set for Success; FieldErrors for ValidationFailure; Message and Err for
// RemoteFailure, with Destination set when a session redirect recovers it.
type Result struct {
	Outcome     Outcome
	Message     string
	Destination string
	FieldErrors domain.FieldErrors
	Err         error
}

// Gateway creates a role profile on behalf of the session and returns the
// server's message.
type Gateway interface {
	CreateProfile(ctx context.Context, token string, p domain.RoleProfile) (string, error)
}

// Drafts discards the saved draft of a role once it has been submitted.
type Drafts interface {
	Discard(ctx context.Context, role domain.Role) error
}

type Transition struct {
	From, To State
}

type Option func(*Orchestrator)

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = l }
}

func WithDrafts(d Drafts) Option {
	return func(o *Orchestrator) { o.drafts = d }
}

// Orchestrator runs validate, map, send for one role form. It allows a single
// attempt in flight and becomes terminal after success.
type Orchestrator struct {
	gw      Gateway
	variant forms.Variant
	log     *zap.Logger
	drafts  Drafts

	mu        sync.Mutex
	state     State
	observers []func(Transition)
}

func New(gw Gateway, v forms.Variant, opts ...Option) *Orchestrator {
	o := &Orchestrator{gw: gw, variant: v, log: zap.NewNop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Observe registers fn for every state transition. fn runs on the submitting
// goroutine and must not call Submit.
func (o *Orchestrator) Observe(fn func(Transition)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observers = append(o.observers, fn)
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Submit validates f, maps it to the role payload and sends it. Field errors
// are written back into f. The error return is reserved for rejected calls.
func (o *Orchestrator) Submit(ctx context.Context, sess session.Session, f *form.Form) (Result, error) {
	if f.Schema() != o.variant.Schema() {
		return Result{}, fmt.Errorf("form %s does not belong to role %s", f.Schema().Name, o.variant.Role())
	}
	if err := o.begin(); err != nil {
		return Result{}, err
	}
	role := o.variant.Role()

	if errs := f.Validate(); len(errs) > 0 {
		o.log.Debug("profile invalid", zap.String("role", string(role)), zap.Strings("paths", errs.Paths()))
		o.transition(StateInvalid)
		o.transition(StateIdle)
		return Result{Outcome: OutcomeValidationFailure, FieldErrors: errs}, nil
	}

	payload, err := o.variant.Payload(f.Snapshot(), sess.UserID())
	if err != nil {
		o.transition(StateFailed)
		o.transition(StateIdle)
		return o.remoteFailure(err), nil
	}
	if err := sess.Require(); err != nil {
		o.transition(StateFailed)
		o.transition(StateIdle)
		return o.remoteFailure(err), nil
	}

	o.transition(StateSubmitting)
	msg, err := o.gw.CreateProfile(ctx, sess.Token, payload)
	if err != nil {
		o.log.Warn("profile submission failed", zap.String("role", string(role)), zap.Error(err))
		o.transition(StateFailed)
		o.transition(StateIdle)
		return o.remoteFailure(err), nil
	}

	o.transition(StateSucceeded)
	if o.drafts != nil {
		if err := o.drafts.Discard(ctx, role); err != nil {
			o.log.Warn("discard draft", zap.String("role", string(role)), zap.Error(err))
		}
	}
	if msg == "" {
		msg = o.variant.SuccessMessage()
	}
	o.log.Info("profile submitted", zap.String("role", string(role)), zap.String("user_id", sess.UserID()))
	return Result{Outcome: OutcomeSuccess, Message: msg, Destination: o.variant.Destination()}, nil
}

func (o *Orchestrator) begin() error {
	o.mu.Lock()
	switch o.state {
	case StateValidating, StateSubmitting:
		o.mu.Unlock()
		return ErrSubmitInProgress
	case StateSucceeded:
		o.mu.Unlock()
		return ErrAlreadySubmitted
	}
	from := o.state
	o.state = StateValidating
	obs := append([]func(Transition){}, o.observers...)
	o.mu.Unlock()
	notify(obs, Transition{From: from, To: StateValidating})
	return nil
}

func (o *Orchestrator) transition(to State) {
	o.mu.Lock()
	from := o.state
	o.state = to
	obs := append([]func(Transition){}, o.observers...)
	o.mu.Unlock()
	notify(obs, Transition{From: from, To: to})
}

func notify(obs []func(Transition), t Transition) {
	for _, fn := range obs {
		fn(t)
	}
}

func (o *Orchestrator) remoteFailure(err error) Result {
	res := Result{Outcome: OutcomeRemoteFailure, Message: o.variant.FailureMessage(), Err: err}
	var re *domain.RemoteError
	var se *domain.SessionError
	switch {
	case errors.As(err, &se):
		res.Message = se.Error()
		res.Destination = se.Redirect()
	case errors.As(err, &re) && re.Message != "":
		res.Message = re.Message
	}
	return res
}
