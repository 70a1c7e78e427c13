package token

import (
	"net/url"
	"strings"
)

// LinkType distinguishes the flow an emailed link belongs to.
type LinkType string

const (
	// LinkTypeSignup marks an email-confirmation link. The session is established and the user redirected.
	LinkTypeSignup LinkType = "signup"

	// LinkTypeRecovery marks a password-reset link. The reset form is shown instead of redirecting.
	LinkTypeRecovery LinkType = "recovery"
)

const (
	accessTokenParam  = "access_token"
	refreshTokenParam = "refresh_token"
	typeParam         = "type"
)

// AuthTokens is a one-shot credential pair delivered in a URL fragment.
// Fragments are never sent to a server, so the tokens only exist client side until exchanged.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	Type         LinkType // empty when the link carried no type
}

// IsSignup reports whether the tokens came from an email-confirmation link.
func (t *AuthTokens) IsSignup() bool {
	return t != nil && t.Type == LinkTypeSignup
}

// IsRecovery reports whether the tokens came from a password-reset link.
func (t *AuthTokens) IsRecovery() bool {
	return t != nil && t.Type == LinkTypeRecovery
}

// ParseFragment extracts tokens from a fragment such as "#access_token=...&refresh_token=...&type=recovery".
// The leading '#' is optional. Nil is returned unless both tokens are present and non-empty.
func ParseFragment(fragment string) *AuthTokens {
	// Malformed pairs are skipped; the well-formed ones are still returned.
	values, _ := url.ParseQuery(strings.TrimPrefix(fragment, "#"))

	accessToken := values.Get(accessTokenParam)
	refreshToken := values.Get(refreshTokenParam)
	if accessToken == "" || refreshToken == "" {
		return nil
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Type:         LinkType(values.Get(typeParam)),
	}
}

// FromURL extracts tokens from the fragment of a full link.
func FromURL(u *url.URL) *AuthTokens {
	if u == nil {
		return nil
	}
	return ParseFragment(u.EscapedFragment())
}

// FromLink parses rawLink and extracts the tokens from its fragment.
func FromLink(rawLink string) *AuthTokens {
	u, err := url.Parse(strings.TrimSpace(rawLink))
	if err != nil {
		return nil
	}
	return FromURL(u)
}
