package token_test

import (
	"net/url"
	"testing"

	"github.com/jrsteele09/go-dashboard-auth/token"
	"github.com/stretchr/testify/require"
)

func TestParseFragment(t *testing.T) {
	t.Run("recovery link", func(t *testing.T) {
		tokens := token.ParseFragment("#access_token=A&refresh_token=B&type=recovery")
		require.NotNil(t, tokens)
		require.Equal(t, token.AuthTokens{AccessToken: "A", RefreshToken: "B", Type: token.LinkTypeRecovery}, *tokens)
		require.True(t, tokens.IsRecovery())
		require.False(t, tokens.IsSignup())
	})

	t.Run("signup discriminator round trips", func(t *testing.T) {
		tokens := token.ParseFragment("access_token=abc&refresh_token=def&type=signup&expires_in=3600")
		require.NotNil(t, tokens)
		require.Equal(t, token.LinkTypeSignup, tokens.Type)
		require.Equal(t, "signup", string(tokens.Type))
		require.True(t, tokens.IsSignup())
	})

	t.Run("type is optional", func(t *testing.T) {
		tokens := token.ParseFragment("#refresh_token=B&access_token=A")
		require.NotNil(t, tokens)
		require.Empty(t, tokens.Type)
		require.False(t, tokens.IsSignup())
		require.False(t, tokens.IsRecovery())
	})

	t.Run("escaped values are decoded", func(t *testing.T) {
		tokens := token.ParseFragment("#access_token=a%2Bb&refresh_token=c%3Dd")
		require.NotNil(t, tokens)
		require.Equal(t, "a+b", tokens.AccessToken)
		require.Equal(t, "c=d", tokens.RefreshToken)
	})

	t.Run("malformed pairs are skipped", func(t *testing.T) {
		for _, fragment := range []string{
			"#access_token=A&refresh_token=B&type=recovery&x=%zz",
			"#access_token=A&refresh_token=B&type=recovery&a=1;b=2",
		} {
			tokens := token.ParseFragment(fragment)
			require.NotNil(t, tokens, fragment)
			require.Equal(t, token.AuthTokens{AccessToken: "A", RefreshToken: "B", Type: token.LinkTypeRecovery}, *tokens)
		}
	})

	invalid := map[string]string{
		"empty":                 "",
		"hash only":             "#",
		"missing refresh token": "#access_token=A&type=recovery",
		"missing access token":  "#refresh_token=B&type=signup",
		"empty access token":    "#access_token=&refresh_token=B",
		"empty refresh token":   "#access_token=A&refresh_token=",
		"unrelated params":      "#section=billing",
		"error fragment":        "#error=access_denied&error_code=otp_expired",
	}
	for name, fragment := range invalid {
		t.Run(name, func(t *testing.T) {
			require.Nil(t, token.ParseFragment(fragment))
		})
	}
}

func TestFromURL(t *testing.T) {
	u, err := url.Parse("https://dash.example.com/auth/reset-password#access_token=a%2Bb&refresh_token=B&type=recovery")
	require.NoError(t, err)

	tokens := token.FromURL(u)
	require.NotNil(t, tokens)
	require.Equal(t, "a+b", tokens.AccessToken)
	require.Equal(t, token.LinkTypeRecovery, tokens.Type)

	require.Nil(t, token.FromURL(nil))

	t.Run("query parameters are ignored", func(t *testing.T) {
		require.Nil(t, token.FromLink("https://dash.example.com/auth/login?access_token=A&refresh_token=B"))
	})

	t.Run("from raw link", func(t *testing.T) {
		tokens := token.FromLink(" https://dash.example.com/auth/login#access_token=A&refresh_token=B&type=signup ")
		require.NotNil(t, tokens)
		require.True(t, tokens.IsSignup())
	})
}
