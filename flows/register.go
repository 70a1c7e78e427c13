package flows

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-dashboard-auth/auth"
	apperrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"github.com/jrsteele09/go-dashboard-auth/navigation"
)

const checkEmailMessage = "We've sent a confirmation email to %s. Please check your inbox and click the confirmation link to activate your account."

// RegisterFlow drives the sign-up form.
type RegisterFlow struct {
	form
	service   AuthService
	sessions  SessionInvalidator
	navigator navigation.Navigator
	validator *auth.Validator
}

func NewRegisterFlow(deps Deps) *RegisterFlow {
	return &RegisterFlow{
		form:      form{state: State{Status: StatusIdle}},
		service:   deps.Service,
		sessions:  deps.Sessions,
		navigator: deps.Navigator,
		validator: deps.validator(),
	}
}

// Submit registers an account. When the provider signs the user in straight away the dashboard is
// opened, otherwise the flow ends in StatusCheckEmail.
func (f *RegisterFlow) Submit(ctx context.Context, data auth.RegisterFormData) error {
	gen, err := f.begin()
	if err != nil {
		return err
	}
	if errs := f.validator.ValidateRegister(&data); !errs.Valid() {
		return f.invalid(gen, errs)
	}

	result := f.service.SignUp(ctx, data)
	if !f.current(gen) {
		return apperrors.ErrUnmounted
	}
	if !result.Success {
		return f.fail(gen, result.Error)
	}

	if result.RequiresConfirmation {
		if !f.finish(gen, func(s *State) {
			s.Status = StatusCheckEmail
			s.Message = fmt.Sprintf(checkEmailMessage, data.Email)
		}) {
			return apperrors.ErrUnmounted
		}
		return nil
	}

	invalidate(ctx, f.sessions)
	if !f.finish(gen, func(s *State) { s.Status = StatusSuccess }) {
		return apperrors.ErrUnmounted
	}
	f.navigator.Push(navigation.RouteDashboard)
	return nil
}
