package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
)

// Error is an error reported by the provider.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// AuthSessionMissingMessage is reported when an operation needs a session and none exists.
const AuthSessionMissingMessage = "Auth session missing!"

var ErrSessionMissing = &Error{Status: http.StatusUnauthorized, Code: "session_missing", Message: AuthSessionMissingMessage}

func decodeError(resp *http.Response) *Error {
	e := &Error{Status: resp.StatusCode}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range []string{"msg", "message", "error_description", "error"} {
			if v, ok := fields[key].(string); ok && v != "" {
				e.Message = v
				break
			}
		}
		if v, ok := fields["error_code"].(string); ok {
			e.Code = v
		}
	}

	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return e
}

// Retryable reports whether err is a transient failure worth retrying: transport errors,
// provider 5xx and rate limiting. Context cancellation never is.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var providerErr *Error
	if errors.As(err, &providerErr) {
		return providerErr.Status >= http.StatusInternalServerError || providerErr.Status == http.StatusTooManyRequests
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isSessionGone reports whether the provider rejected a sign-out because the session no longer exists.
func isSessionGone(err error) bool {
	var providerErr *Error
	if !errors.As(err, &providerErr) {
		return false
	}
	switch providerErr.Status {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return true
	}
	return false
}
