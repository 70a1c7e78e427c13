package identityfake_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-dashboard-auth/identity"
	"github.com/jrsteele09/go-dashboard-auth/identity/identityfake"
	"github.com/jrsteele09/go-dashboard-auth/token"
	"github.com/stretchr/testify/require"
)

func TestProvider_SignInPublishesEvent(t *testing.T) {
	ctx := context.Background()
	p := identityfake.New()
	_, err := p.AddUser("User@Example.com", "password123", true)
	require.NoError(t, err)

	sub := p.Subscribe()
	defer sub.Close()
	require.Equal(t, 1, p.Subscribers())

	resp, err := p.SignInWithPassword(ctx, "user@example.com", "password123")
	require.NoError(t, err)
	require.Equal(t, "user@example.com", resp.User.Email)
	require.NotEmpty(t, resp.Session.AccessToken)

	select {
	case change := <-sub.Events():
		require.Equal(t, identity.SignedIn, change.Event)
	case <-time.After(time.Second):
		t.Fatal("no auth state change published")
	}

	sub.Close()
	require.Equal(t, 0, p.Subscribers())
}

func TestProvider_FailNext(t *testing.T) {
	ctx := context.Background()
	p := identityfake.New()
	injected := &identity.Error{Status: 503, Message: "unavailable"}

	p.FailNext(identityfake.OpGetSession, injected)
	_, err := p.GetSession(ctx)
	require.ErrorIs(t, err, injected)

	_, err = p.GetSession(ctx)
	require.NoError(t, err)
	require.Equal(t, []identityfake.Op{identityfake.OpGetSession, identityfake.OpGetSession}, p.Calls())
}

func TestProvider_ConfirmationRequired(t *testing.T) {
	ctx := context.Background()
	p := identityfake.New(identityfake.WithConfirmationRequired())

	resp, err := p.SignUp(ctx, "new@example.com", "secret1", "")
	require.NoError(t, err)
	require.NotNil(t, resp.User)
	require.Nil(t, resp.Session)

	_, err = p.SignInWithPassword(ctx, "new@example.com", "secret1")
	require.Error(t, err)

	tokens := p.IssueLinkTokens("new@example.com", token.LinkTypeSignup)
	require.True(t, tokens.IsSignup())
	_, err = p.SignInWithPassword(ctx, "new@example.com", "secret1")
	require.NoError(t, err)
}

func TestProvider_SetSessionRejectsUnknownTokens(t *testing.T) {
	p := identityfake.New()
	_, err := p.SetSession(context.Background(), "a", "b")
	require.Error(t, err)
	require.Nil(t, p.IssueLinkTokens("nobody@example.com", token.LinkTypeRecovery))
}
