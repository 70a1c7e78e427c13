package flows

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-dashboard-auth/auth"
	apperrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"github.com/jrsteele09/go-dashboard-auth/internal/observe"
	"github.com/jrsteele09/go-dashboard-auth/navigation"
	"github.com/jrsteele09/go-dashboard-auth/token"
	"github.com/rs/zerolog/log"
)

// Status is where a flow is in its lifecycle.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
	StatusSuccess    Status = "success"
	StatusError      Status = "error"
	StatusCheckEmail Status = "check-email" // account created, confirmation email sent
)

// State is what a form shows.
type State struct {
	Status      Status
	FieldErrors auth.FieldErrors
	Error       string // failure of the last submit
	PageError   string // problem with the page itself, kept across submits
	Message     string
}

// Submitting reports whether a request is in flight. Triggers are disabled while it is.
func (s State) Submitting() bool {
	return s.Status == StatusSubmitting
}

// AuthService is the set of auth operations the flows drive.
type AuthService interface {
	SignIn(ctx context.Context, form auth.LoginFormData) auth.SignInResult
	SignUp(ctx context.Context, form auth.RegisterFormData) auth.SignUpResult
	ResetPassword(ctx context.Context, email string) auth.Result
	UpdatePassword(ctx context.Context, tokens *token.AuthTokens, password string) auth.Result
	ConfirmEmail(ctx context.Context, tokens *token.AuthTokens) auth.Result
}

var _ AuthService = (*auth.Service)(nil)

// SessionInvalidator refreshes the cached session after a mutation.
type SessionInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Deps holds what every flow needs.
type Deps struct {
	Service   AuthService
	Sessions  SessionInvalidator
	Navigator navigation.Navigator
	Validator *auth.Validator // optional, a default is created when nil
}

func (d Deps) validator() *auth.Validator {
	if d.Validator != nil {
		return d.Validator
	}
	return auth.NewValidator()
}

// form holds the state shared by every flow: whether it is mounted, the submit guard and watchers.
// Each Mount and Unmount starts a new generation; a result from an older generation is discarded.
type form struct {
	mu         sync.Mutex
	state      State
	mounted    bool
	submitting bool
	generation int
	watchers   observe.Subject[State]
}

func (f *form) mount(initial State) {
	f.mu.Lock()
	f.mounted = true
	f.submitting = false
	f.generation++
	f.state = initial
	f.mu.Unlock()
	f.watchers.Notify(initial)
}

func (f *form) unmount() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mounted = false
	f.submitting = false
	f.generation++
}

// begin starts a submission and returns its generation. Only one submission runs at a time.
func (f *form) begin() (int, error) {
	f.mu.Lock()
	if !f.mounted {
		f.mu.Unlock()
		return 0, apperrors.ErrUnmounted
	}
	if f.submitting {
		f.mu.Unlock()
		return 0, apperrors.ErrSubmitting
	}
	f.submitting = true
	f.state.Status = StatusSubmitting
	f.state.Error = ""
	f.state.FieldErrors = nil
	f.state.Message = ""
	state := f.state
	gen := f.generation
	f.mu.Unlock()

	f.watchers.Notify(state)
	return gen, nil
}

// current reports whether gen is still the live submission.
func (f *form) current(gen int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mounted && f.generation == gen
}

// finish ends the submission of gen by applying update. It returns false, changing nothing,
// when the flow was unmounted since.
func (f *form) finish(gen int, update func(*State)) bool {
	f.mu.Lock()
	if !f.mounted || f.generation != gen {
		f.mu.Unlock()
		return false
	}
	f.submitting = false
	update(&f.state)
	state := f.state
	f.mu.Unlock()

	f.watchers.Notify(state)
	return true
}

// fail ends the submission of gen with a submit error.
func (f *form) fail(gen int, message string) error {
	if !f.finish(gen, func(s *State) {
		s.Status = StatusError
		s.Error = message
	}) {
		return apperrors.ErrUnmounted
	}
	return nil
}

// invalid ends the submission of gen with field errors. Nothing was sent.
func (f *form) invalid(gen int, errs auth.FieldErrors) error {
	if !f.finish(gen, func(s *State) {
		s.Status = StatusIdle
		s.FieldErrors = errs
	}) {
		return apperrors.ErrUnmounted
	}
	return nil
}

// Mount shows the form.
func (f *form) Mount() {
	f.mount(State{Status: StatusIdle})
}

// Unmount tears the form down. A request still in flight completes but its result is dropped.
func (f *form) Unmount() {
	f.unmount()
}

// Snapshot returns the current state.
func (f *form) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Watch registers fn for every state change and returns a func that unregisters it.
func (f *form) Watch(fn func(State)) func() {
	return f.watchers.Watch(fn)
}

func invalidate(ctx context.Context, sessions SessionInvalidator) {
	if sessions == nil {
		return
	}
	if err := sessions.Invalidate(ctx); err != nil {
		log.Debug().Err(err).Msg("Session invalidation failed")
	}
}
