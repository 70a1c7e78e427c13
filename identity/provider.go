package identity

import (
	"context"
	"time"

	"github.com/jrsteele09/go-dashboard-auth/internal/utils"
	"golang.org/x/oauth2"
)

// Provider is the remote identity provider boundary. It is the only component that persists
// accounts or sessions; callers never store credentials themselves.
type Provider interface {
	// SignInWithPassword exchanges credentials for a session.
	SignInWithPassword(ctx context.Context, email, password string) (*AuthResponse, error)

	// SignUp registers an account. The session is nil when the provider requires email confirmation.
	SignUp(ctx context.Context, email, password, redirectTo string) (*AuthResponse, error)

	// SignOut ends the current session. Signing out without a session is not an error.
	SignOut(ctx context.Context) error

	// GetSession returns the current session, refreshing it when expired. Nil means signed out.
	GetSession(ctx context.Context) (*Session, error)

	// SetSession establishes a session from a token pair delivered by an emailed link.
	SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error)

	// UpdateUser changes attributes of the signed-in user.
	UpdateUser(ctx context.Context, attrs UserAttributes) (*User, error)

	// ResetPasswordForEmail asks the provider to email a recovery link pointing at redirectTo.
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error

	// Subscribe opens the auth-state-change channel. The caller must Close it.
	Subscribe() *Subscription
}

type User struct {
	ID               string     `json:"id"`
	Email            string     `json:"email,omitempty"`
	Role             string     `json:"role,omitempty"`
	EmailConfirmedAt *time.Time `json:"email_confirmed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Session mirrors the provider's session. ExpiresAt is in seconds since the epoch.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Expiry returns when the access token expires, zero when unknown.
func (s *Session) Expiry() time.Time {
	if s == nil {
		return time.Time{}
	}
	return utils.UnixTime(s.ExpiresAt)
}

// Expired reports whether the access token is expired, or will be within margin, at now.
func (s *Session) Expired(now time.Time, margin time.Duration) bool {
	expiry := s.Expiry()
	if expiry.IsZero() {
		return false
	}
	return !now.Add(margin).Before(expiry)
}

// Token returns the oauth2 view of the session for authorizing outgoing requests.
func (s *Session) Token() *oauth2.Token {
	tokenType := s.TokenType
	if tokenType == "" {
		tokenType = "bearer"
	}
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		TokenType:    tokenType,
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry(),
	}
}

// AuthResponse is the reply to sign-in and sign-up.
type AuthResponse struct {
	User    *User
	Session *Session
}

type UserAttributes struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}
