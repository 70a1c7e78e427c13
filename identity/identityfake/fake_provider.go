package identityfake

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-dashboard-auth/identity"
	"github.com/jrsteele09/go-dashboard-auth/internal/utils"
	"github.com/jrsteele09/go-dashboard-auth/token"
	"golang.org/x/crypto/bcrypt"
)

// Op names a provider call, used for failure injection and the call log.
type Op string

const (
	OpSignIn        Op = "sign_in"
	OpSignUp        Op = "sign_up"
	OpSignOut       Op = "sign_out"
	OpGetSession    Op = "get_session"
	OpSetSession    Op = "set_session"
	OpUpdateUser    Op = "update_user"
	OpResetPassword Op = "reset_password"
)

const sessionLifetime = time.Hour

var (
	errInvalidCredentials = &identity.Error{Status: http.StatusBadRequest, Code: "invalid_credentials", Message: "Invalid login credentials"}
	errNotConfirmed       = &identity.Error{Status: http.StatusBadRequest, Code: "email_not_confirmed", Message: "Email not confirmed"}
	errAlreadyRegistered  = &identity.Error{Status: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"}
	errInvalidJWT         = &identity.Error{Status: http.StatusUnauthorized, Code: "bad_jwt", Message: "invalid JWT: unable to parse or verify signature"}
)

type account struct {
	user         identity.User
	passwordHash []byte
}

var _ identity.Provider = (*Provider)(nil)

// Provider is an in-memory identity provider.
type Provider struct {
	lock sync.Mutex

	accounts      map[string]*account // email -> account
	accessTokens  map[string]string   // access token -> email
	refreshTokens map[string]string   // refresh token -> email
	session       *identity.Session

	requireConfirmation bool
	failures            map[Op]error
	failOnce            map[Op]bool
	calls               []Op
	recoveryEmails      []string
	events              *identity.Broadcaster
	nowTime             func() time.Time
}

type Option func(*Provider)

// WithConfirmationRequired makes sign-up return no session until the email is confirmed.
func WithConfirmationRequired() Option {
	return func(p *Provider) {
		p.requireConfirmation = true
	}
}

func WithNowTime(nowFunc func() time.Time) Option {
	return func(p *Provider) {
		p.nowTime = nowFunc
	}
}

func New(options ...Option) *Provider {
	p := &Provider{
		accounts:      make(map[string]*account),
		accessTokens:  make(map[string]string),
		refreshTokens: make(map[string]string),
		failures:      make(map[Op]error),
		failOnce:      make(map[Op]bool),
		events:        identity.NewBroadcaster(),
		nowTime:       time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// AddUser registers an account directly.
func (p *Provider) AddUser(email, password string, confirmed bool) (*identity.User, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.addUser(email, password, confirmed)
}

// Fail makes every call to op return err until Clear is called.
func (p *Provider) Fail(op Op, err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.failures[op] = err
	delete(p.failOnce, op)
}

// FailNext makes the next call to op return err.
func (p *Provider) FailNext(op Op, err error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.failures[op] = err
	p.failOnce[op] = true
}

func (p *Provider) Clear(op Op) {
	p.lock.Lock()
	defer p.lock.Unlock()
	delete(p.failures, op)
	delete(p.failOnce, op)
}

// Calls returns the provider calls made so far, in order.
func (p *Provider) Calls() []Op {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]Op(nil), p.calls...)
}

// RecoveryEmails returns the addresses a recovery email was actually sent to.
func (p *Provider) RecoveryEmails() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]string(nil), p.recoveryEmails...)
}

// IssueLinkTokens mints the token pair an emailed link of linkType would carry for email.
// Signup links confirm the account.
func (p *Provider) IssueLinkTokens(email string, linkType token.LinkType) *token.AuthTokens {
	p.lock.Lock()
	defer p.lock.Unlock()

	acc, ok := p.accounts[normalize(email)]
	if !ok {
		return nil
	}
	if linkType == token.LinkTypeSignup {
		acc.user.EmailConfirmedAt = utils.Ptr(p.nowTime())
	}
	session := p.issueSession(acc)
	return &token.AuthTokens{AccessToken: session.AccessToken, RefreshToken: session.RefreshToken, Type: linkType}
}

// PasswordMatches reports whether password is the current password of email.
func (p *Provider) PasswordMatches(email, password string) bool {
	p.lock.Lock()
	defer p.lock.Unlock()
	acc, ok := p.accounts[normalize(email)]
	return ok && bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)) == nil
}

func (p *Provider) SignInWithPassword(_ context.Context, email, password string) (*identity.AuthResponse, error) {
	p.lock.Lock()
	if err := p.record(OpSignIn); err != nil {
		p.lock.Unlock()
		return nil, err
	}
	acc, ok := p.accounts[normalize(email)]
	if !ok || bcrypt.CompareHashAndPassword(acc.passwordHash, []byte(password)) != nil {
		p.lock.Unlock()
		return nil, errInvalidCredentials
	}
	if p.requireConfirmation && acc.user.EmailConfirmedAt == nil {
		p.lock.Unlock()
		return nil, errNotConfirmed
	}
	session := p.issueSession(acc)
	p.session = session
	p.lock.Unlock()

	p.events.Publish(identity.AuthStateChange{Event: identity.SignedIn, Session: session})
	return &identity.AuthResponse{User: session.User, Session: session}, nil
}

func (p *Provider) SignUp(_ context.Context, email, password, _ string) (*identity.AuthResponse, error) {
	p.lock.Lock()
	if err := p.record(OpSignUp); err != nil {
		p.lock.Unlock()
		return nil, err
	}
	if _, exists := p.accounts[normalize(email)]; exists {
		p.lock.Unlock()
		return nil, errAlreadyRegistered
	}
	user, err := p.addUser(email, password, !p.requireConfirmation)
	if err != nil {
		p.lock.Unlock()
		return nil, err
	}
	if p.requireConfirmation {
		p.lock.Unlock()
		return &identity.AuthResponse{User: user}, nil
	}
	session := p.issueSession(p.accounts[normalize(email)])
	p.session = session
	p.lock.Unlock()

	p.events.Publish(identity.AuthStateChange{Event: identity.SignedIn, Session: session})
	return &identity.AuthResponse{User: session.User, Session: session}, nil
}

func (p *Provider) SignOut(_ context.Context) error {
	p.lock.Lock()
	if err := p.record(OpSignOut); err != nil {
		p.lock.Unlock()
		return err
	}
	if p.session != nil {
		delete(p.accessTokens, p.session.AccessToken)
		delete(p.refreshTokens, p.session.RefreshToken)
	}
	p.session = nil
	p.lock.Unlock()

	p.events.Publish(identity.AuthStateChange{Event: identity.SignedOut})
	return nil
}

func (p *Provider) GetSession(_ context.Context) (*identity.Session, error) {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.record(OpGetSession); err != nil {
		return nil, err
	}
	return p.session, nil
}

func (p *Provider) SetSession(_ context.Context, accessToken, refreshToken string) (*identity.Session, error) {
	p.lock.Lock()
	if err := p.record(OpSetSession); err != nil {
		p.lock.Unlock()
		return nil, err
	}
	email, ok := p.accessTokens[accessToken]
	if !ok || p.refreshTokens[refreshToken] != email {
		p.lock.Unlock()
		return nil, errInvalidJWT
	}
	acc := p.accounts[email]
	user := acc.user
	session := &identity.Session{
		AccessToken:  accessToken,
		TokenType:    "bearer",
		RefreshToken: refreshToken,
		ExpiresIn:    int(sessionLifetime.Seconds()),
		ExpiresAt:    p.nowTime().Add(sessionLifetime).Unix(),
		User:         &user,
	}
	p.session = session
	p.lock.Unlock()

	p.events.Publish(identity.AuthStateChange{Event: identity.SignedIn, Session: session})
	return session, nil
}

func (p *Provider) UpdateUser(_ context.Context, attrs identity.UserAttributes) (*identity.User, error) {
	p.lock.Lock()
	if err := p.record(OpUpdateUser); err != nil {
		p.lock.Unlock()
		return nil, err
	}
	if p.session == nil {
		p.lock.Unlock()
		return nil, identity.ErrSessionMissing
	}
	acc := p.accounts[normalize(p.session.User.Email)]
	if attrs.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(attrs.Password), bcrypt.MinCost)
		if err != nil {
			p.lock.Unlock()
			return nil, err
		}
		acc.passwordHash = hash
	}
	acc.user.UpdatedAt = p.nowTime()
	user := acc.user
	p.session.User = &user
	session := p.session
	p.lock.Unlock()

	p.events.Publish(identity.AuthStateChange{Event: identity.UserUpdated, Session: session})
	return &user, nil
}

// ResetPasswordForEmail only mails existing accounts but answers the same either way.
func (p *Provider) ResetPasswordForEmail(_ context.Context, email, _ string) error {
	p.lock.Lock()
	defer p.lock.Unlock()
	if err := p.record(OpResetPassword); err != nil {
		return err
	}
	if _, ok := p.accounts[normalize(email)]; ok {
		p.recoveryEmails = append(p.recoveryEmails, normalize(email))
	}
	return nil
}

func (p *Provider) Subscribe() *identity.Subscription {
	return p.events.Subscribe()
}

// Subscribers returns the number of open auth-state subscriptions.
func (p *Provider) Subscribers() int {
	return p.events.Len()
}

// record logs op and returns any injected failure. Callers hold the lock.
func (p *Provider) record(op Op) error {
	p.calls = append(p.calls, op)
	err, ok := p.failures[op]
	if !ok {
		return nil
	}
	if p.failOnce[op] {
		delete(p.failures, op)
		delete(p.failOnce, op)
	}
	return err
}

func (p *Provider) addUser(email, password string, confirmed bool) (*identity.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	now := p.nowTime()
	acc := &account{
		user: identity.User{
			ID:        uuid.New().String(),
			Email:     normalize(email),
			Role:      "authenticated",
			CreatedAt: now,
			UpdatedAt: now,
		},
		passwordHash: hash,
	}
	if confirmed {
		acc.user.EmailConfirmedAt = utils.Ptr(now)
	}
	p.accounts[acc.user.Email] = acc
	user := acc.user
	return &user, nil
}

func (p *Provider) issueSession(acc *account) *identity.Session {
	session := &identity.Session{
		AccessToken:  uuid.New().String(),
		TokenType:    "bearer",
		RefreshToken: uuid.New().String(),
		ExpiresIn:    int(sessionLifetime.Seconds()),
		ExpiresAt:    p.nowTime().Add(sessionLifetime).Unix(),
	}
	user := acc.user
	session.User = &user
	p.accessTokens[session.AccessToken] = acc.user.Email
	p.refreshTokens[session.RefreshToken] = acc.user.Email
	return session
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
