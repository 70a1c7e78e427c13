package flows

import (
	"context"

	"github.com/jrsteele09/go-dashboard-auth/auth"
	apperrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
)

const resetSentMessage = "Check your email! We've sent you a password reset link."

// ForgotPasswordFlow drives the password-reset request form.
type ForgotPasswordFlow struct {
	form
	service   AuthService
	validator *auth.Validator
}

func NewForgotPasswordFlow(deps Deps) *ForgotPasswordFlow {
	return &ForgotPasswordFlow{
		form:      form{state: State{Status: StatusIdle}},
		service:   deps.Service,
		validator: deps.validator(),
	}
}

// Submit requests a recovery email. The same success is shown whether or not the account exists.
func (f *ForgotPasswordFlow) Submit(ctx context.Context, data auth.ForgotPasswordFormData) error {
	gen, err := f.begin()
	if err != nil {
		return err
	}
	if errs := f.validator.ValidateForgotPassword(&data); !errs.Valid() {
		return f.invalid(gen, errs)
	}

	result := f.service.ResetPassword(ctx, data.Email)
	if !f.current(gen) {
		return apperrors.ErrUnmounted
	}
	if !result.Success {
		return f.fail(gen, result.Error)
	}

	if !f.finish(gen, func(s *State) {
		s.Status = StatusSuccess
		s.Message = resetSentMessage
	}) {
		return apperrors.ErrUnmounted
	}
	return nil
}
