package auth

import "github.com/jrsteele09/go-dashboard-auth/identity"

// Result is the outcome every auth operation reports. Error is set only when Success is false.
type Result struct {
	Success bool
	Error   string
}

func failed(message string) Result {
	return Result{Error: message}
}

type SignInResult struct {
	Result
	User *identity.User
}

type SignUpResult struct {
	Result
	User *identity.User

	// RequiresConfirmation is set when the account exists but no session was issued
	// until the emailed link is followed.
	RequiresConfirmation bool
}

type SessionResult struct {
	Session   *identity.Session
	Error     string
	Retryable bool
}
