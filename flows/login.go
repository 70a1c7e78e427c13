package flows

import (
	"context"

	"github.com/jrsteele09/go-dashboard-auth/auth"
	apperrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"github.com/jrsteele09/go-dashboard-auth/navigation"
)

// LoginFlow drives the sign-in form.
type LoginFlow struct {
	form
	service   AuthService
	sessions  SessionInvalidator
	navigator navigation.Navigator
	validator *auth.Validator
}

func NewLoginFlow(deps Deps) *LoginFlow {
	return &LoginFlow{
		form:      form{state: State{Status: StatusIdle}},
		service:   deps.Service,
		sessions:  deps.Sessions,
		navigator: deps.Navigator,
		validator: deps.validator(),
	}
}

// Submit signs in with data. On success the session cache is refreshed and the dashboard opened.
// ErrSubmitting is returned, with nothing sent, while an earlier submit is in flight.
func (f *LoginFlow) Submit(ctx context.Context, data auth.LoginFormData) error {
	gen, err := f.begin()
	if err != nil {
		return err
	}
	if errs := f.validator.ValidateLogin(&data); !errs.Valid() {
		return f.invalid(gen, errs)
	}

	result := f.service.SignIn(ctx, data)
	if !f.current(gen) {
		return apperrors.ErrUnmounted
	}
	if !result.Success {
		return f.fail(gen, result.Error)
	}

	invalidate(ctx, f.sessions)
	if !f.finish(gen, func(s *State) { s.Status = StatusSuccess }) {
		return apperrors.ErrUnmounted
	}
	f.navigator.Push(navigation.RouteDashboard)
	return nil
}
