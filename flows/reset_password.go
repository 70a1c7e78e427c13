package flows

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-dashboard-auth/auth"
	apperrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"github.com/jrsteele09/go-dashboard-auth/navigation"
	"github.com/jrsteele09/go-dashboard-auth/token"
)

const (
	defaultRedirectDelay = 2 * time.Second
	resetDoneMessage     = "Password reset successfully! Redirecting to sign in..."
)

// ResetPasswordFlow drives the form opened from a password-recovery link.
type ResetPasswordFlow struct {
	form
	service       AuthService
	sessions      SessionInvalidator
	navigator     navigation.Navigator
	validator     *auth.Validator
	redirectDelay time.Duration

	linkMu   sync.Mutex
	tokens   *token.AuthTokens
	redirect *time.Timer
}

// NewResetPasswordFlow creates the flow. After a successful reset the login page is opened once
// redirectDelay has passed.
func NewResetPasswordFlow(deps Deps, redirectDelay time.Duration) *ResetPasswordFlow {
	if redirectDelay < 0 {
		redirectDelay = defaultRedirectDelay
	}
	return &ResetPasswordFlow{
		form:          form{state: State{Status: StatusIdle}},
		service:       deps.Service,
		sessions:      deps.Sessions,
		navigator:     deps.Navigator,
		validator:     deps.validator(),
		redirectDelay: redirectDelay,
	}
}

// Mount reads the recovery tokens from the URL fragment. Without them the page shows an error
// that no submit clears.
func (f *ResetPasswordFlow) Mount() {
	tokens := token.ParseFragment(f.navigator.Fragment())

	f.linkMu.Lock()
	f.tokens = tokens
	f.linkMu.Unlock()

	initial := State{Status: StatusIdle}
	if tokens == nil {
		initial.Status = StatusError
		initial.PageError = auth.MsgInvalidResetLink
	}
	f.mount(initial)
}

// Unmount tears the form down and cancels a pending redirect.
func (f *ResetPasswordFlow) Unmount() {
	f.linkMu.Lock()
	if f.redirect != nil {
		f.redirect.Stop()
		f.redirect = nil
	}
	f.linkMu.Unlock()
	f.unmount()
}

// Submit exchanges the link tokens for a session and sets the new password.
func (f *ResetPasswordFlow) Submit(ctx context.Context, data auth.ResetPasswordFormData) error {
	gen, err := f.begin()
	if err != nil {
		return err
	}

	f.linkMu.Lock()
	tokens := f.tokens
	f.linkMu.Unlock()
	if tokens == nil {
		return f.fail(gen, auth.MsgInvalidResetLink)
	}
	if errs := f.validator.ValidateResetPassword(&data); !errs.Valid() {
		return f.invalid(gen, errs)
	}

	result := f.service.UpdatePassword(ctx, tokens, data.Password)
	if !f.current(gen) {
		return apperrors.ErrUnmounted
	}
	if !result.Success {
		return f.fail(gen, result.Error)
	}

	// The link is spent.
	f.navigator.ClearFragment()
	f.linkMu.Lock()
	f.tokens = nil
	f.linkMu.Unlock()

	invalidate(ctx, f.sessions)
	if !f.finish(gen, func(s *State) {
		s.Status = StatusSuccess
		s.Message = resetDoneMessage
	}) {
		return apperrors.ErrUnmounted
	}
	f.scheduleRedirect(gen)
	return nil
}

func (f *ResetPasswordFlow) scheduleRedirect(gen int) {
	f.linkMu.Lock()
	defer f.linkMu.Unlock()
	if f.redirect != nil {
		f.redirect.Stop()
	}
	f.redirect = time.AfterFunc(f.redirectDelay, func() {
		if f.current(gen) {
			f.navigator.Push(navigation.RouteLogin)
		}
	})
}
