package errors

import (
	"errors"
	"fmt"
)

// Common error types for the dashboard auth client
var (
	// Configuration errors
	ErrMissingConfig = errors.New("missing required environment variables")

	// Link errors
	ErrMissingTokens = errors.New("missing auth tokens")
	ErrInvalidToken  = errors.New("invalid auth token")

	// Session errors
	ErrNoSession   = errors.New("no active session")
	ErrCacheClosed = errors.New("session cache closed")

	// Provider errors
	ErrUnexpectedReply = errors.New("unexpected provider reply")

	// Form errors
	ErrSubmitting = errors.New("submission already in flight")
	ErrUnmounted  = errors.New("flow unmounted")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
