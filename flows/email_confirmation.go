package flows

import (
	"context"

	apperrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"github.com/jrsteele09/go-dashboard-auth/navigation"
	"github.com/jrsteele09/go-dashboard-auth/token"
)

// EmailConfirmationFlow completes sign-up when the login page is opened from a confirmation link.
type EmailConfirmationFlow struct {
	form
	service    AuthService
	sessions   SessionInvalidator
	navigator  navigation.Navigator
	redirectTo string
}

// NewEmailConfirmationFlow creates the flow. After confirming, redirectTo is opened; when it is
// empty the flow only reports StatusSuccess.
func NewEmailConfirmationFlow(deps Deps, redirectTo string) *EmailConfirmationFlow {
	return &EmailConfirmationFlow{
		form:       form{state: State{Status: StatusIdle}},
		service:    deps.Service,
		sessions:   deps.Sessions,
		navigator:  deps.Navigator,
		redirectTo: redirectTo,
	}
}

// Verify confirms the email when the URL fragment carries a signup link. It reports whether the
// session was established; any other fragment is left alone and false returned.
func (f *EmailConfirmationFlow) Verify(ctx context.Context) (bool, error) {
	tokens := token.ParseFragment(f.navigator.Fragment())
	if !tokens.IsSignup() {
		return false, nil
	}

	gen, err := f.begin()
	if err != nil {
		return false, err
	}

	result := f.service.ConfirmEmail(ctx, tokens)
	if !f.current(gen) {
		return false, apperrors.ErrUnmounted
	}
	if !result.Success {
		return false, f.fail(gen, result.Error)
	}

	f.navigator.ClearFragment()
	invalidate(ctx, f.sessions)
	if !f.finish(gen, func(s *State) { s.Status = StatusSuccess }) {
		return false, apperrors.ErrUnmounted
	}
	if f.redirectTo != "" {
		f.navigator.Push(f.redirectTo)
	}
	return true, nil
}
