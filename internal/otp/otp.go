package otp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"launchpad/internal/domain"
	"launchpad/internal/forms"
)

const (
	DefaultCooldown = 60 * time.Second
	DefaultMaxSends = 5
)

var (
	ErrCooldown        = errors.New("resend cooldown active")
	ErrResendLimit     = errors.New("too many codes requested")
	ErrNoCode          = errors.New("no code has been sent")
	ErrAlreadyVerified = errors.New("already verified")
	ErrBusy            = errors.New("request already in progress")
)

type State int

const (
	StateUnverified State = iota
	StateCodeSent
	StateVerified
)

func (s State) String() string {
	switch s {
	case StateUnverified:
		return "unverified"
	case StateCodeSent:
		return "code_sent"
	case StateVerified:
		return "verified"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Sender is the gateway side of the flow. Both calls return the server message.
type Sender interface {
	SendOTP(ctx context.Context, email string) (string, error)
	VerifyOTP(ctx context.Context, email, code string) (string, error)
}

type Options struct {
	Cooldown time.Duration
	MaxSends int
	Clock    Clock
	Logger   *zap.Logger
}

// Flow drives email verification for one address.
type Flow struct {
	sender   Sender
	email    string
	cooldown time.Duration
	maxSends int
	clock    Clock
	log      *zap.Logger

	mu       sync.Mutex
	state    State
	sends    int
	lastSent time.Time
	busy     bool
}

func NewFlow(sender Sender, email string, opts Options) *Flow {
	f := &Flow{
		sender:   sender,
		email:    email,
		cooldown: opts.Cooldown,
		maxSends: opts.MaxSends,
		clock:    opts.Clock,
		log:      opts.Logger,
	}
	if f.cooldown <= 0 {
		f.cooldown = DefaultCooldown
	}
	if f.maxSends <= 0 {
		f.maxSends = DefaultMaxSends
	}
	if f.clock == nil {
		f.clock = realClock{}
	}
	if f.log == nil {
		f.log = zap.NewNop()
	}
	return f
}

func (f *Flow) Email() string { return f.email }

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Remaining is the time left before another code may be requested.
func (f *Flow) Remaining() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remainingLocked()
}

func (f *Flow) remainingLocked() time.Duration {
	if f.sends == 0 {
		return 0
	}
	left := f.cooldown - f.clock.Now().Sub(f.lastSent)
	if left < 0 {
		return 0
	}
	return left
}

// Send requests a code. It is refused while the cooldown runs and after
// MaxSends codes.
func (f *Flow) Send(ctx context.Context) (string, error) {
	f.mu.Lock()
	switch {
	case f.state == StateVerified:
		f.mu.Unlock()
		return "", ErrAlreadyVerified
	case f.busy:
		f.mu.Unlock()
		return "", ErrBusy
	}
	if left := f.remainingLocked(); left > 0 {
		f.mu.Unlock()
		return "", fmt.Errorf("%w: %ds remaining", ErrCooldown, seconds(left))
	}
	if f.sends >= f.maxSends {
		f.mu.Unlock()
		return "", ErrResendLimit
	}
	f.busy = true
	f.mu.Unlock()

	msg, err := f.sender.SendOTP(ctx, f.email)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	if err != nil {
		f.log.Warn("send otp failed", zap.String("email", f.email), zap.Error(err))
		return "", err
	}
	f.sends++
	f.lastSent = f.clock.Now()
	if f.state == StateUnverified {
		f.state = StateCodeSent
	}
	f.log.Info("otp sent", zap.String("email", f.email), zap.Int("sends", f.sends))
	return msg, nil
}

// Verify checks pin locally, then with the gateway. A rejected pin keeps the
// flow in CodeSent so the user can retry.
func (f *Flow) Verify(ctx context.Context, pin string) (string, error) {
	if msg := forms.VerifySchema.ValidateField("pin", pin); msg != "" {
		return "", domain.FieldErrors{"pin": msg}
	}

	f.mu.Lock()
	switch {
	case f.state == StateVerified:
		f.mu.Unlock()
		return "", ErrAlreadyVerified
	case f.state != StateCodeSent:
		f.mu.Unlock()
		return "", ErrNoCode
	case f.busy:
		f.mu.Unlock()
		return "", ErrBusy
	}
	f.busy = true
	f.mu.Unlock()

	msg, err := f.sender.VerifyOTP(ctx, f.email, pin)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	if err != nil {
		return "", err
	}
	f.state = StateVerified
	return msg, nil
}

// Countdown emits the whole seconds left on the cooldown, once per second,
// ending with 0. The channel closes after 0 or when ctx is done.
func (f *Flow) Countdown(ctx context.Context) <-chan int {
	out := make(chan int)
	go func() {
		defer close(out)
		t := f.clock.NewTicker(time.Second)
		defer t.Stop()
		for {
			left := seconds(f.Remaining())
			select {
			case out <- left:
			case <-ctx.Done():
				return
			}
			if left == 0 {
				return
			}
			select {
			case <-t.C():
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
