package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/jrsteele09/go-dashboard-auth/internal/config"
	apperrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"github.com/jrsteele09/go-dashboard-auth/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	tokenPath   = "/token"
	signupPath  = "/signup"
	logoutPath  = "/logout"
	userPath    = "/user"
	recoverPath = "/recover"

	// expiryMargin refreshes sessions slightly before the provider would reject them.
	expiryMargin = 10 * time.Second
)

// TokenVerifier checks an access token before it is trusted, returning its subject.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (string, error)
}

// Client talks to a GoTrue compatible auth API. The session lives in memory only.
type Client struct {
	authURL    string
	anonKey    string
	httpClient *http.Client
	verifier   TokenVerifier
	nowTime    func() time.Time
	events     *Broadcaster

	mu      sync.RWMutex
	session *Session
}

var _ Provider = (*Client)(nil)

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithVerifier makes SetSession verify link tokens before exchanging them.
func WithVerifier(v TokenVerifier) ClientOption {
	return func(c *Client) {
		c.verifier = v
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ClientOption {
	return func(c *Client) {
		c.nowTime = nowFunc
	}
}

// NewClient creates a client for the provider described by cfg.
func NewClient(cfg config.ProviderConfig, options ...ClientOption) (*Client, error) {
	if cfg.GetProviderURL() == "" {
		return nil, errors.New("[NewClient] provider URL is required")
	}
	if cfg.GetAnonKey() == "" {
		return nil, errors.New("[NewClient] anon key is required")
	}

	c := &Client{
		authURL:    cfg.GetAuthURL(),
		anonKey:    cfg.GetAnonKey(),
		httpClient: &http.Client{Timeout: cfg.GetHTTPTimeout()},
		nowTime:    time.Now,
		events:     NewBroadcaster(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*AuthResponse, error) {
	query := url.Values{"grant_type": {"password"}}
	body := map[string]string{"email": email, "password": password}

	var session Session
	if err := c.do(ctx, http.MethodPost, tokenPath, query, body, nil, &session); err != nil {
		return nil, errors.Wrap(err, "[Client.SignInWithPassword]")
	}
	if session.AccessToken == "" {
		return &AuthResponse{User: session.User}, nil
	}

	c.saveSession(&session)
	c.events.Publish(AuthStateChange{Event: SignedIn, Session: &session})
	return &AuthResponse{User: session.User, Session: &session}, nil
}

func (c *Client) SignUp(ctx context.Context, email, password, redirectTo string) (*AuthResponse, error) {
	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	body := map[string]string{"email": email, "password": password}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, signupPath, query, body, nil, &raw); err != nil {
		return nil, errors.Wrap(err, "[Client.SignUp]")
	}

	// With autoconfirm the reply is a session, otherwise it is the bare user.
	var probe struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, errors.Wrap(err, "[Client.SignUp] decode reply")
	}

	if probe.AccessToken == "" {
		var user User
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, errors.Wrap(err, "[Client.SignUp] decode user")
		}
		if user.ID == "" {
			return &AuthResponse{}, nil
		}
		return &AuthResponse{User: &user}, nil
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, errors.Wrap(err, "[Client.SignUp] decode session")
	}
	c.saveSession(&session)
	c.events.Publish(AuthStateChange{Event: SignedIn, Session: &session})
	return &AuthResponse{User: session.User, Session: &session}, nil
}

// SignOut revokes the session remotely before dropping it locally. A failed remote call
// leaves the local session in place.
func (c *Client) SignOut(ctx context.Context) error {
	session := c.currentSession()
	if session != nil {
		err := c.do(ctx, http.MethodPost, logoutPath, nil, nil, session.Token(), nil)
		if err != nil && !isSessionGone(err) {
			return errors.Wrap(err, "[Client.SignOut]")
		}
	}

	c.saveSession(nil)
	c.events.Publish(AuthStateChange{Event: SignedOut})
	return nil
}

func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	session := c.currentSession()
	if session == nil {
		return nil, nil
	}
	if !session.Expired(c.nowTime(), expiryMargin) {
		return session, nil
	}

	refreshed, err := c.refresh(ctx, session.RefreshToken)
	if err != nil {
		if !Retryable(err) {
			log.Debug().Err(err).Msg("Refresh rejected, dropping session")
			c.saveSession(nil)
			c.events.Publish(AuthStateChange{Event: SignedOut})
		}
		return nil, errors.Wrap(err, "[Client.GetSession] refresh")
	}
	return refreshed, nil
}

func (c *Client) SetSession(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	if accessToken == "" || refreshToken == "" {
		return nil, apperrors.ErrMissingTokens
	}

	if c.verifier != nil {
		if _, err := c.verifier.Verify(ctx, accessToken); err != nil {
			return nil, errors.Wrap(err, "[Client.SetSession] verify access token")
		}
	}

	claims, err := token.ParseClaims(accessToken)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.SetSession]")
	}

	if claims.Expired(c.nowTime()) {
		session, err := c.refresh(ctx, refreshToken)
		if err != nil {
			return nil, errors.Wrap(err, "[Client.SetSession] refresh")
		}
		return session, nil
	}

	tok := &oauth2.Token{AccessToken: accessToken, TokenType: "bearer"}
	var user User
	if err := c.do(ctx, http.MethodGet, userPath, nil, nil, tok, &user); err != nil {
		return nil, errors.Wrap(err, "[Client.SetSession] get user")
	}

	session := &Session{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		RefreshToken: refreshToken,
		User:         &user,
	}
	if !claims.ExpiresAt.IsZero() {
		session.ExpiresAt = claims.ExpiresAt.Unix()
		session.ExpiresIn = int(claims.ExpiresAt.Sub(c.nowTime()).Seconds())
	}

	c.saveSession(session)
	c.events.Publish(AuthStateChange{Event: SignedIn, Session: session})
	return session, nil
}

func (c *Client) UpdateUser(ctx context.Context, attrs UserAttributes) (*User, error) {
	session, err := c.GetSession(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateUser]")
	}
	if session == nil {
		return nil, ErrSessionMissing
	}

	var user User
	if err := c.do(ctx, http.MethodPut, userPath, nil, attrs, session.Token(), &user); err != nil {
		return nil, errors.Wrap(err, "[Client.UpdateUser]")
	}

	updated := *session
	updated.User = &user
	c.saveSession(&updated)
	c.events.Publish(AuthStateChange{Event: UserUpdated, Session: &updated})
	return &user, nil
}

func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	query := url.Values{}
	if redirectTo != "" {
		query.Set("redirect_to", redirectTo)
	}
	if err := c.do(ctx, http.MethodPost, recoverPath, query, map[string]string{"email": email}, nil, nil); err != nil {
		return errors.Wrap(err, "[Client.ResetPasswordForEmail]")
	}
	return nil
}

func (c *Client) Subscribe() *Subscription {
	return c.events.Subscribe()
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrSessionMissing
	}
	query := url.Values{"grant_type": {"refresh_token"}}

	var session Session
	if err := c.do(ctx, http.MethodPost, tokenPath, query, map[string]string{"refresh_token": refreshToken}, nil, &session); err != nil {
		return nil, err
	}
	if session.AccessToken == "" {
		return nil, apperrors.ErrUnexpectedReply
	}

	c.saveSession(&session)
	c.events.Publish(AuthStateChange{Event: TokenRefreshed, Session: &session})
	return &session, nil
}

func (c *Client) currentSession() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

func (c *Client) saveSession(session *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
}

// do sends one request to the auth API. Requests without a session token are authorized with the anon key.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, tok *oauth2.Token, out any) error {
	endpoint := c.authURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok != nil {
		tok.SetAuthHeader(req)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
