package auth_test

import (
	"strings"
	"testing"

	"github.com/jrsteele09/go-dashboard-auth/auth"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	require.Equal(t, "user@example.com", auth.NormalizeEmail("  User@Example.COM "))
}

func TestValidateEmail(t *testing.T) {
	v := auth.NewValidator()

	require.Empty(t, v.ValidateEmail(" USER@example.com "))
	require.Equal(t, "Email is required", v.ValidateEmail(""))
	require.Equal(t, "Email is required", v.ValidateEmail("   "))
	require.Equal(t, "Invalid email address", v.ValidateEmail("not-an-email"))
}

func TestValidatePassword(t *testing.T) {
	v := auth.NewValidator()

	tests := []struct {
		password string
		want     string
	}{
		{password: "abc123", want: ""},
		{password: "ab12", want: "Password must be at least 6 characters"},
		{password: "", want: "Password must be at least 6 characters"},
		{password: "a1" + strings.Repeat("x", 99), want: "Password is too long"},
		{password: "123456", want: "Password must contain at least one letter"},
		{password: "abcdef", want: "Password must contain at least one number"},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			require.Equal(t, tt.want, v.ValidatePassword(tt.password))
		})
	}
}

func TestValidateLogin(t *testing.T) {
	v := auth.NewValidator()

	form := auth.LoginFormData{Email: " John.Doe@Example.com", Password: "x"}
	require.True(t, v.ValidateLogin(&form).Valid())
	require.Equal(t, "john.doe@example.com", form.Email)

	errs := v.ValidateLogin(&auth.LoginFormData{})
	require.Equal(t, auth.FieldErrors{
		auth.FieldEmail:    "Email is required",
		auth.FieldPassword: "Password is required",
	}, errs)
}

func TestValidateRegister(t *testing.T) {
	v := auth.NewValidator()

	form := auth.RegisterFormData{Email: "New@Example.com", Password: "secret1", ConfirmPassword: "secret1"}
	require.True(t, v.ValidateRegister(&form).Valid())
	require.Equal(t, "new@example.com", form.Email)

	mismatch := auth.RegisterFormData{Email: "new@example.com", Password: "secret1", ConfirmPassword: "secret2"}
	errs := v.ValidateRegister(&mismatch)
	require.Equal(t, auth.FieldErrors{auth.FieldConfirmPassword: "Passwords do not match"}, errs)

	errs = v.ValidateRegister(&auth.RegisterFormData{Email: "bad", Password: "short"})
	require.Equal(t, auth.FieldErrors{
		auth.FieldEmail:           "Invalid email address",
		auth.FieldPassword:        "Password must be at least 6 characters",
		auth.FieldConfirmPassword: "Please confirm your password",
	}, errs)
}

func TestValidateResetPassword(t *testing.T) {
	v := auth.NewValidator()

	require.True(t, v.ValidateResetPassword(&auth.ResetPasswordFormData{Password: "newpass1", ConfirmPassword: "newpass1"}).Valid())

	errs := v.ValidateResetPassword(&auth.ResetPasswordFormData{Password: "newpass1", ConfirmPassword: "newpass2"})
	require.Equal(t, "Passwords do not match", errs[auth.FieldConfirmPassword])
}

func TestValidateForgotPassword(t *testing.T) {
	v := auth.NewValidator()

	form := auth.ForgotPasswordFormData{Email: " Someone@Example.com "}
	require.True(t, v.ValidateForgotPassword(&form).Valid())
	require.Equal(t, "someone@example.com", form.Email)

	require.Equal(t, "Email is required", v.ValidateForgotPassword(&auth.ForgotPasswordFormData{})[auth.FieldEmail])
}
