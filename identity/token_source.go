package identity

import (
	"context"
	"net/http"

	apperrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"golang.org/x/oauth2"
)

type sessionTokenSource struct {
	ctx      context.Context
	provider Provider
}

func (s sessionTokenSource) Token() (*oauth2.Token, error) {
	session, err := s.provider.GetSession(s.ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperrors.ErrNoSession
	}
	return session.Token(), nil
}

// TokenSource returns an oauth2.TokenSource backed by the provider's current session.
func TokenSource(ctx context.Context, p Provider) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, sessionTokenSource{ctx: ctx, provider: p})
}

// HTTPClient returns a client that authorizes every request with the current session's access token.
func HTTPClient(ctx context.Context, p Provider) *http.Client {
	return oauth2.NewClient(ctx, TokenSource(ctx, p))
}
