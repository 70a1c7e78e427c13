package auth

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-dashboard-auth/identity"
	apperrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"github.com/jrsteele09/go-dashboard-auth/internal/logging"
	"github.com/jrsteele09/go-dashboard-auth/navigation"
	"github.com/jrsteele09/go-dashboard-auth/token"
	"github.com/pkg/errors"
)

// Options configures the Service.
type Options struct {
	// AppURL is the public origin emailed links point back to, e.g. "http://localhost:3000".
	AppURL string
}

// Service performs the auth operations against the identity provider. No method returns an
// error or panics: every failure is reported in the result as a message fit for the user.
type Service struct {
	provider identity.Provider
	appURL   string
}

// NewService creates a Service for provider.
func NewService(provider identity.Provider, opts Options) (*Service, error) {
	if provider == nil {
		return nil, errors.New("[NewService] provider is required")
	}
	return &Service{
		provider: provider,
		appURL:   strings.TrimSuffix(opts.AppURL, "/"),
	}, nil
}

// SignIn exchanges credentials for a session. Success needs both a user and a session.
func (s *Service) SignIn(ctx context.Context, form LoginFormData) (result SignInResult) {
	defer s.recoverInto(opSignIn, &result.Result)

	resp, err := s.provider.SignInWithPassword(ctx, form.Email, form.Password)
	if err != nil {
		logging.Error(err, "Service.SignIn")
		result.Result = failed(ErrorMessage(err))
		recordOperation(opSignIn, false)
		return result
	}
	if resp == nil || resp.User == nil || resp.Session == nil {
		result.Result = failed(MsgSignInFailed)
		recordOperation(opSignIn, false)
		return result
	}

	recordOperation(opSignIn, true)
	return SignInResult{Result: Result{Success: true}, User: resp.User}
}

// SignUp registers an account. A user without a session means the email must be confirmed first.
func (s *Service) SignUp(ctx context.Context, form RegisterFormData) (result SignUpResult) {
	defer s.recoverInto(opSignUp, &result.Result)

	resp, err := s.provider.SignUp(ctx, form.Email, form.Password, s.appURL+navigation.RouteLogin)
	if err != nil {
		logging.Error(err, "Service.SignUp")
		result.Result = failed(ErrorMessage(err))
		recordOperation(opSignUp, false)
		return result
	}
	if resp == nil || resp.User == nil {
		result.Result = failed(MsgSignUpFailed)
		recordOperation(opSignUp, false)
		return result
	}

	recordOperation(opSignUp, true)
	return SignUpResult{
		Result:               Result{Success: true},
		User:                 resp.User,
		RequiresConfirmation: resp.Session == nil,
	}
}

// ResetPassword asks for a recovery email. The provider answers the same whether or not the
// account exists, so success does not mean an email was sent.
func (s *Service) ResetPassword(ctx context.Context, email string) (result Result) {
	defer s.recoverInto(opResetPassword, &result)

	if err := s.provider.ResetPasswordForEmail(ctx, email, s.appURL+navigation.RouteResetPassword); err != nil {
		logging.Error(err, "Service.ResetPassword")
		recordOperation(opResetPassword, false)
		return failed(ErrorMessage(err))
	}
	recordOperation(opResetPassword, true)
	return Result{Success: true}
}

// UpdatePassword establishes the session carried by a recovery link and then sets the new password.
// The password is never sent unless the session was established.
func (s *Service) UpdatePassword(ctx context.Context, tokens *token.AuthTokens, password string) (result Result) {
	defer s.recoverInto(opUpdatePassword, &result)

	if tokens == nil || tokens.AccessToken == "" || tokens.RefreshToken == "" {
		recordOperation(opUpdatePassword, false)
		return failed(MsgInvalidResetLink)
	}

	if _, err := s.provider.SetSession(ctx, tokens.AccessToken, tokens.RefreshToken); err != nil {
		logging.Error(err, "Service.UpdatePassword set session")
		recordOperation(opUpdatePassword, false)
		return failed(ErrorMessage(err))
	}
	if _, err := s.provider.UpdateUser(ctx, identity.UserAttributes{Password: password}); err != nil {
		logging.Error(err, "Service.UpdatePassword update user")
		recordOperation(opUpdatePassword, false)
		return failed(ErrorMessage(err))
	}

	recordOperation(opUpdatePassword, true)
	return Result{Success: true}
}

// ConfirmEmail establishes the session carried by an email-confirmation link.
func (s *Service) ConfirmEmail(ctx context.Context, tokens *token.AuthTokens) (result Result) {
	defer s.recoverInto(opConfirmEmail, &result)

	if !tokens.IsSignup() {
		recordOperation(opConfirmEmail, false)
		return failed(MsgInvalidConfirmLink)
	}
	if _, err := s.provider.SetSession(ctx, tokens.AccessToken, tokens.RefreshToken); err != nil {
		logging.Error(err, "Service.ConfirmEmail")
		recordOperation(opConfirmEmail, false)
		if apperrors.Is(err, apperrors.ErrInvalidToken) {
			return failed(MsgInvalidConfirmLink)
		}
		return failed(ErrorMessage(err))
	}

	recordOperation(opConfirmEmail, true)
	return Result{Success: true}
}

// GetSession resolves the current session, refreshing it when it has expired.
// Retryable is set for transient failures.
func (s *Service) GetSession(ctx context.Context) (result SessionResult) {
	defer func() {
		if r := recover(); r != nil {
			operationsTotal.WithLabelValues(opGetSession, outcomePanic).Inc()
			result = SessionResult{Error: RecoveredMessage(r)}
		}
	}()

	session, err := s.provider.GetSession(ctx)
	if err != nil {
		logging.Error(err, "Service.GetSession")
		recordOperation(opGetSession, false)
		return SessionResult{Error: ErrorMessage(err), Retryable: identity.Retryable(err)}
	}
	recordOperation(opGetSession, true)
	return SessionResult{Session: session}
}

// SignOut ends the session. Signing out while signed out succeeds.
func (s *Service) SignOut(ctx context.Context) (result Result) {
	defer s.recoverInto(opSignOut, &result)

	if err := s.provider.SignOut(ctx); err != nil {
		logging.Error(err, "Service.SignOut")
		recordOperation(opSignOut, false)
		return failed(ErrorMessage(err))
	}
	recordOperation(opSignOut, true)
	return Result{Success: true}
}

// recoverInto turns a panic during operation into a failed result.
func (s *Service) recoverInto(operation string, result *Result) {
	r := recover()
	if r == nil {
		return
	}
	if err, ok := r.(error); ok {
		logging.Error(err, "Service."+operation+" panic")
	}
	operationsTotal.WithLabelValues(operation, outcomePanic).Inc()
	*result = failed(RecoveredMessage(r))
}
