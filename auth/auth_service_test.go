package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-dashboard-auth/auth"
	"github.com/jrsteele09/go-dashboard-auth/identity"
	"github.com/jrsteele09/go-dashboard-auth/identity/identityfake"
	"github.com/jrsteele09/go-dashboard-auth/internal/config"
	"github.com/jrsteele09/go-dashboard-auth/token"
	"github.com/stretchr/testify/require"
)

const (
	testAppURL       = "http://localhost:3000"
	testUserEmail    = "john.doe@example.com"
	testUserPassword = "password123"
)

func setupService(t *testing.T, options ...identityfake.Option) (*auth.Service, *identityfake.Provider) {
	t.Helper()
	provider := identityfake.New(options...)
	_, err := provider.AddUser(testUserEmail, testUserPassword, true)
	require.NoError(t, err)

	service, err := auth.NewService(provider, auth.Options{AppURL: testAppURL + "/"})
	require.NoError(t, err)
	return service, provider
}

// emptyProvider answers sign-in and sign-up without error but without the expected payload.
type emptyProvider struct {
	identity.Provider
}

func (emptyProvider) SignInWithPassword(context.Context, string, string) (*identity.AuthResponse, error) {
	return &identity.AuthResponse{}, nil
}

func (emptyProvider) SignUp(context.Context, string, string, string) (*identity.AuthResponse, error) {
	return &identity.AuthResponse{}, nil
}

// panicProvider panics on every call.
type panicProvider struct {
	identity.Provider
	value any
}

func (p panicProvider) SignInWithPassword(context.Context, string, string) (*identity.AuthResponse, error) {
	panic(p.value)
}

func (p panicProvider) SignOut(context.Context) error {
	panic(p.value)
}

func (p panicProvider) GetSession(context.Context) (*identity.Session, error) {
	panic(p.value)
}

// redirectRecorder records the redirect targets handed to the provider.
type redirectRecorder struct {
	identity.Provider
	redirects []string
}

func (r *redirectRecorder) SignUp(_ context.Context, email, _ string, redirectTo string) (*identity.AuthResponse, error) {
	r.redirects = append(r.redirects, redirectTo)
	return &identity.AuthResponse{User: &identity.User{ID: "u1", Email: email}}, nil
}

func (r *redirectRecorder) ResetPasswordForEmail(_ context.Context, _ string, redirectTo string) error {
	r.redirects = append(r.redirects, redirectTo)
	return nil
}

func TestNewService_RequiresProvider(t *testing.T) {
	_, err := auth.NewService(nil, auth.Options{})
	require.Error(t, err)
}

func TestService_SignIn(t *testing.T) {
	ctx := context.Background()
	service, _ := setupService(t)

	result := service.SignIn(ctx, auth.LoginFormData{Email: testUserEmail, Password: testUserPassword})
	require.True(t, result.Success)
	require.Empty(t, result.Error)
	require.Equal(t, testUserEmail, result.User.Email)

	result = service.SignIn(ctx, auth.LoginFormData{Email: testUserEmail, Password: "wrong-password1"})
	require.False(t, result.Success)
	require.Equal(t, auth.MsgInvalidLogin, result.Error)
}

func TestService_SignInUnconfirmed(t *testing.T) {
	service, provider := setupService(t, identityfake.WithConfirmationRequired())
	_, err := provider.AddUser("pending@example.com", testUserPassword, false)
	require.NoError(t, err)

	result := service.SignIn(context.Background(), auth.LoginFormData{Email: "pending@example.com", Password: testUserPassword})
	require.False(t, result.Success)
	require.Equal(t, auth.MsgEmailNotConfirmed, result.Error)
}

func TestService_SignInWithoutSessionFails(t *testing.T) {
	service, err := auth.NewService(emptyProvider{}, auth.Options{AppURL: testAppURL})
	require.NoError(t, err)

	result := service.SignIn(context.Background(), auth.LoginFormData{Email: testUserEmail, Password: testUserPassword})
	require.False(t, result.Success)
	require.Equal(t, auth.MsgSignInFailed, result.Error)
}

func TestService_SignUp(t *testing.T) {
	ctx := context.Background()
	service, _ := setupService(t)

	result := service.SignUp(ctx, auth.RegisterFormData{Email: "new@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.True(t, result.Success)
	require.False(t, result.RequiresConfirmation)
	require.Equal(t, "new@example.com", result.User.Email)

	result = service.SignUp(ctx, auth.RegisterFormData{Email: testUserEmail, Password: "secret1", ConfirmPassword: "secret1"})
	require.False(t, result.Success)
	require.Equal(t, auth.MsgAlreadyRegistered, result.Error)
}

func TestService_SignUpRequiresConfirmation(t *testing.T) {
	service, provider := setupService(t, identityfake.WithConfirmationRequired())

	result := service.SignUp(context.Background(), auth.RegisterFormData{Email: "new@example.com", Password: "secret1", ConfirmPassword: "secret1"})
	require.True(t, result.Success)
	require.True(t, result.RequiresConfirmation)
	require.NotNil(t, result.User)

	session, err := provider.GetSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, session)
}

func TestService_SignUpWithoutUserFails(t *testing.T) {
	service, err := auth.NewService(emptyProvider{}, auth.Options{AppURL: testAppURL})
	require.NoError(t, err)

	result := service.SignUp(context.Background(), auth.RegisterFormData{Email: "new@example.com", Password: "secret1"})
	require.False(t, result.Success)
	require.Equal(t, auth.MsgSignUpFailed, result.Error)
}

func TestService_RedirectTargets(t *testing.T) {
	ctx := context.Background()
	recorder := &redirectRecorder{}
	service, err := auth.NewService(recorder, auth.Options{AppURL: testAppURL + "/"})
	require.NoError(t, err)

	require.True(t, service.SignUp(ctx, auth.RegisterFormData{Email: "new@example.com", Password: "secret1"}).Success)
	require.True(t, service.ResetPassword(ctx, "new@example.com").Success)
	require.Equal(t, []string{
		"http://localhost:3000/auth/login",
		"http://localhost:3000/auth/reset-password",
	}, recorder.redirects)
}

func TestService_ResetPasswordDoesNotRevealAccounts(t *testing.T) {
	ctx := context.Background()
	service, provider := setupService(t)

	require.True(t, service.ResetPassword(ctx, testUserEmail).Success)
	require.True(t, service.ResetPassword(ctx, "nobody@example.com").Success)
	require.Equal(t, []string{testUserEmail}, provider.RecoveryEmails())

	provider.Fail(identityfake.OpResetPassword, &identity.Error{Status: http.StatusTooManyRequests, Message: "email rate limit exceeded"})
	result := service.ResetPassword(ctx, testUserEmail)
	require.False(t, result.Success)
	require.Equal(t, auth.MsgRateLimited, result.Error)
}

func TestService_UpdatePassword(t *testing.T) {
	ctx := context.Background()
	service, provider := setupService(t)

	tokens := provider.IssueLinkTokens(testUserEmail, token.LinkTypeRecovery)
	require.NotNil(t, tokens)

	result := service.UpdatePassword(ctx, tokens, "newpass1")
	require.True(t, result.Success)
	require.True(t, provider.PasswordMatches(testUserEmail, "newpass1"))
	require.Equal(t, []identityfake.Op{identityfake.OpSetSession, identityfake.OpUpdateUser}, provider.Calls())
}

func TestService_UpdatePasswordStopsWhenSessionFails(t *testing.T) {
	ctx := context.Background()
	service, provider := setupService(t)

	result := service.UpdatePassword(ctx, &token.AuthTokens{AccessToken: "forged", RefreshToken: "forged", Type: token.LinkTypeRecovery}, "newpass1")
	require.False(t, result.Success)
	require.Equal(t, "invalid JWT: unable to parse or verify signature", result.Error)
	require.Equal(t, []identityfake.Op{identityfake.OpSetSession}, provider.Calls())
	require.True(t, provider.PasswordMatches(testUserEmail, testUserPassword))
}

func TestService_UpdatePasswordReportsUpdateFailure(t *testing.T) {
	ctx := context.Background()
	service, provider := setupService(t)
	tokens := provider.IssueLinkTokens(testUserEmail, token.LinkTypeRecovery)

	provider.Fail(identityfake.OpUpdateUser, &identity.Error{Status: 422, Message: "New password should be different from the old password."})
	result := service.UpdatePassword(ctx, tokens, "newpass1")
	require.False(t, result.Success)
	require.Equal(t, "New password should be different from the old password.", result.Error)
}

func TestService_UpdatePasswordMissingTokens(t *testing.T) {
	service, provider := setupService(t)

	result := service.UpdatePassword(context.Background(), nil, "newpass1")
	require.False(t, result.Success)
	require.Equal(t, auth.MsgInvalidResetLink, result.Error)
	require.Empty(t, provider.Calls())
}

func TestService_ConfirmEmail(t *testing.T) {
	ctx := context.Background()
	service, provider := setupService(t, identityfake.WithConfirmationRequired())
	_, err := provider.AddUser("pending@example.com", testUserPassword, false)
	require.NoError(t, err)

	recovery := provider.IssueLinkTokens("pending@example.com", token.LinkTypeRecovery)
	result := service.ConfirmEmail(ctx, recovery)
	require.False(t, result.Success)
	require.Equal(t, auth.MsgInvalidConfirmLink, result.Error)

	signup := provider.IssueLinkTokens("pending@example.com", token.LinkTypeSignup)
	require.True(t, service.ConfirmEmail(ctx, signup).Success)

	session := service.GetSession(ctx)
	require.Empty(t, session.Error)
	require.Equal(t, "pending@example.com", session.Session.User.Email)
}

func TestService_SignOut(t *testing.T) {
	ctx := context.Background()
	service, provider := setupService(t)

	require.True(t, service.SignIn(ctx, auth.LoginFormData{Email: testUserEmail, Password: testUserPassword}).Success)
	require.True(t, service.SignOut(ctx).Success)
	require.True(t, service.SignOut(ctx).Success)
	require.Nil(t, service.GetSession(ctx).Session)

	provider.Fail(identityfake.OpSignOut, &identity.Error{Status: http.StatusBadGateway, Message: "upstream unavailable"})
	result := service.SignOut(ctx)
	require.False(t, result.Success)
	require.Equal(t, "upstream unavailable", result.Error)
}

func TestService_GetSessionError(t *testing.T) {
	service, provider := setupService(t)
	provider.Fail(identityfake.OpGetSession, &identity.Error{Status: http.StatusServiceUnavailable, Message: "service unavailable"})

	result := service.GetSession(context.Background())
	require.Nil(t, result.Session)
	require.Equal(t, "service unavailable", result.Error)
	require.True(t, result.Retryable)

	provider.Fail(identityfake.OpGetSession, &identity.Error{Status: http.StatusBadRequest, Message: "bad request"})
	require.False(t, service.GetSession(context.Background()).Retryable)
}

func TestService_HidesInternalFailures(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client, err := identity.NewClient(config.Provider{URL: srv.URL, AnonKey: "anon-key", HTTPTimeout: time.Second})
	require.NoError(t, err)
	service, err := auth.NewService(client, auth.Options{AppURL: testAppURL})
	require.NoError(t, err)

	result := service.SignIn(ctx, auth.LoginFormData{Email: testUserEmail, Password: testUserPassword})
	require.False(t, result.Success)
	require.Equal(t, auth.MsgUnexpected, result.Error)

	garbage := &token.AuthTokens{AccessToken: "garbage", RefreshToken: "refresh", Type: token.LinkTypeRecovery}
	require.Equal(t, auth.MsgInvalidResetLink, service.UpdatePassword(ctx, garbage, "newpass1").Error)

	garbage.Type = token.LinkTypeSignup
	require.Equal(t, auth.MsgInvalidConfirmLink, service.ConfirmEmail(ctx, garbage).Error)
}

func TestService_RecoversPanics(t *testing.T) {
	ctx := context.Background()

	service, err := auth.NewService(panicProvider{value: "boom"}, auth.Options{})
	require.NoError(t, err)
	result := service.SignIn(ctx, auth.LoginFormData{Email: testUserEmail, Password: testUserPassword})
	require.False(t, result.Success)
	require.Equal(t, auth.MsgUnexpected, result.Error)
	require.Equal(t, auth.MsgUnexpected, service.GetSession(ctx).Error)

	service, err = auth.NewService(panicProvider{value: &identity.Error{Status: 429, Message: "slow down"}}, auth.Options{})
	require.NoError(t, err)
	require.Equal(t, auth.MsgRateLimited, service.SignOut(ctx).Error)
}
