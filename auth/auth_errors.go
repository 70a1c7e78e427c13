package auth

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-dashboard-auth/identity"
	apperrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"github.com/pkg/errors"
)

// User facing messages.
const (
	MsgAlreadyRegistered  = "This email is already registered. Please sign in instead."
	MsgInvalidEmail       = "Invalid email address. Please check and try again."
	MsgInvalidLogin       = "Invalid email or password. Please try again."
	MsgEmailNotConfirmed  = "Please verify your email address before signing in."
	MsgRateLimited        = "Too many attempts. Please wait a moment and try again."
	MsgUnexpected         = "An unexpected error occurred. Please try again."
	MsgSignInFailed       = "Sign in failed. Please try again."
	MsgSignUpFailed       = "Registration failed. Please try again."
	MsgInvalidResetLink   = "Invalid or expired reset link. Please request a new password reset."
	MsgInvalidConfirmLink = "Invalid or expired confirmation link."
)

// messageRule maps provider error text to a user facing message. Rules are checked in order.
type messageRule struct {
	substrings []string
	message    string
}

var messageRules = []messageRule{
	{substrings: []string{"already registered", "already exists", "email already"}, message: MsgAlreadyRegistered},
	{substrings: []string{"invalid email"}, message: MsgInvalidEmail},
	{substrings: []string{"invalid password", "invalid credentials", "invalid login credentials"}, message: MsgInvalidLogin},
	{substrings: []string{"email not confirmed"}, message: MsgEmailNotConfirmed},
	{substrings: []string{"too many requests"}, message: MsgRateLimited},
}

// ErrorMessage turns err into a message fit for the user. Known provider failures are rewritten
// and other provider messages are passed through. Transport and decoding failures never reach the user.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if apperrors.Is(err, apperrors.ErrMissingTokens) || apperrors.Is(err, apperrors.ErrInvalidToken) {
		return MsgInvalidResetLink
	}

	var message string
	var providerErr *identity.Error
	if apperrors.As(err, &providerErr) {
		if providerErr.Status == http.StatusTooManyRequests {
			return MsgRateLimited
		}
		message = providerErr.Message
	} else {
		if internalFailure(err) {
			return MsgUnexpected
		}
		message = rootCause(err).Error()
	}
	if message == "" {
		return MsgUnexpected
	}

	lower := strings.ToLower(message)
	for _, rule := range messageRules {
		for _, s := range rule.substrings {
			if strings.Contains(lower, s) {
				return rule.message
			}
		}
	}
	return message
}

// internalFailure reports whether err comes from the transport or from decoding a reply.
func internalFailure(err error) bool {
	var netErr net.Error
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return apperrors.As(err, &netErr) ||
		apperrors.As(err, &syntaxErr) ||
		apperrors.As(err, &typeErr) ||
		apperrors.Is(err, io.ErrUnexpectedEOF) ||
		apperrors.Is(err, apperrors.ErrUnexpectedReply)
}

// rootCause strips the call-site context added while the error travelled up.
func rootCause(err error) error {
	err = errors.Cause(err)
	for {
		next := stderrors.Unwrap(err)
		if next == nil {
			return err
		}
		err = errors.Cause(next)
	}
}

// RecoveredMessage is ErrorMessage for a value caught by recover.
func RecoveredMessage(v any) string {
	if err, ok := v.(error); ok {
		return ErrorMessage(err)
	}
	return MsgUnexpected
}
