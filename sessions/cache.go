package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-dashboard-auth/auth"
	"github.com/jrsteele09/go-dashboard-auth/identity"
	apperrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"github.com/jrsteele09/go-dashboard-auth/internal/observe"
	"github.com/jrsteele09/go-dashboard-auth/navigation"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

const (
	defaultStaleTime  = 5 * time.Minute
	defaultRetryBase  = 100 * time.Millisecond
	defaultMaxRetries = 2
)

// State is the cache's view of the current user.
type State string

const (
	StateUnknown       State = "unknown"
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
	StateSigningOut    State = "signing-out" // only entered from authenticated
)

// Operations is the part of the auth service the cache resolves and ends sessions through.
type Operations interface {
	GetSession(ctx context.Context) auth.SessionResult
	SignOut(ctx context.Context) auth.Result
}

var _ Operations = (*auth.Service)(nil)

// Subscriber publishes auth-state changes.
type Subscriber interface {
	Subscribe() *identity.Subscription
}

// Snapshot is a point-in-time copy of the cache.
type Snapshot struct {
	State     State
	Session   *identity.Session
	Error     string    // user facing message of the last fetch or sign-out failure
	FetchedAt time.Time // zero until the first successful fetch
}

func (s Snapshot) User() *identity.User {
	if s.Session == nil {
		return nil
	}
	return s.Session.User
}

// Cache holds the current session for as long as its owner keeps it mounted.
// Start subscribes to the provider's auth-state changes and Close releases that subscription.
type Cache struct {
	events    Subscriber
	ops       Operations
	navigator navigation.Navigator
	staleTime time.Duration
	nowTime   func() time.Time
	backoff   func() retry.Backoff
	watchers  observe.Subject[Snapshot]

	mu       sync.RWMutex
	snapshot Snapshot
	started  bool
	closed   bool
	cancel   context.CancelFunc
	sub      *identity.Subscription

	fetchMu   sync.Mutex
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// CacheOption defines a function type to modify the Cache instance.
type CacheOption func(*Cache)

// WithStaleTime sets how long a fetched session is reused before the provider is asked again.
func WithStaleTime(d time.Duration) CacheOption {
	return func(c *Cache) {
		if d > 0 {
			c.staleTime = d
		}
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) CacheOption {
	return func(c *Cache) {
		c.nowTime = nowFunc
	}
}

// WithRetryBackoff sets the backoff used for transient fetch failures. A new backoff is built per fetch.
func WithRetryBackoff(newBackoff func() retry.Backoff) CacheOption {
	return func(c *Cache) {
		c.backoff = newBackoff
	}
}

func NewCache(events Subscriber, ops Operations, navigator navigation.Navigator, options ...CacheOption) (*Cache, error) {
	if events == nil {
		return nil, errors.New("[NewCache] subscriber is required")
	}
	if ops == nil {
		return nil, errors.New("[NewCache] operations are required")
	}
	if navigator == nil {
		return nil, errors.New("[NewCache] navigator is required")
	}

	c := &Cache{
		events:    events,
		ops:       ops,
		navigator: navigator,
		staleTime: defaultStaleTime,
		nowTime:   time.Now,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(defaultMaxRetries, retry.NewExponential(defaultRetryBase))
		},
		snapshot: Snapshot{State: StateUnknown},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Start mounts the cache: it subscribes to auth-state changes, enters loading and resolves the
// current session. Every later change notification triggers a re-fetch until Close.
// Starting twice is a no-op.
func (c *Cache) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return apperrors.ErrCacheClosed
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true

	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	c.sub = c.events.Subscribe()
	c.snapshot.State = StateLoading
	snapshot := c.snapshot
	sub := c.sub
	c.mu.Unlock()

	c.watchers.Notify(snapshot)

	c.wg.Add(1)
	go c.listen(listenCtx, sub)

	_, err := c.fetch(ctx, true)
	return err
}

// Close tears the cache down: the subscription is released exactly once and the listener stopped.
// Close must not be called from a watcher.
func (c *Cache) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		cancel := c.cancel
		sub := c.sub
		c.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if sub != nil {
			sub.Close()
		}
		c.wg.Wait()
	})
}

// Snapshot returns the current cached state without contacting the provider.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snapshot
}

func (c *Cache) State() State {
	return c.Snapshot().State
}

// Watch registers fn for every state change and returns a func that unregisters it.
func (c *Cache) Watch(fn func(Snapshot)) func() {
	return c.watchers.Watch(fn)
}

// Session returns the cached session while it is fresh, otherwise it re-fetches.
func (c *Cache) Session(ctx context.Context) (*identity.Session, error) {
	return c.fetch(ctx, false)
}

// User returns the signed-in user, nil when anonymous.
func (c *Cache) User(ctx context.Context) (*identity.User, error) {
	session, err := c.Session(ctx)
	if err != nil || session == nil {
		return nil, err
	}
	return session.User, nil
}

// Invalidate forces an immediate re-fetch. Callers issue it after a mutation has succeeded.
func (c *Cache) Invalidate(ctx context.Context) error {
	_, err := c.fetch(ctx, true)
	return err
}

// SignOut signs out remotely. Only a successful sign-out clears the cache and navigates home;
// on failure the previous state is kept and the message recorded.
func (c *Cache) SignOut(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return apperrors.ErrCacheClosed
	}
	previous := c.snapshot.State
	if previous == StateAuthenticated {
		c.snapshot.State = StateSigningOut
	}
	snapshot := c.snapshot
	c.mu.Unlock()
	c.watchers.Notify(snapshot)

	result := c.ops.SignOut(ctx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if !result.Success {
			return errors.New(result.Error)
		}
		return nil
	}
	if !result.Success {
		if c.snapshot.State == StateSigningOut {
			c.snapshot.State = previous
		}
		c.snapshot.Error = result.Error
		snapshot = c.snapshot
		c.mu.Unlock()
		c.watchers.Notify(snapshot)
		return errors.New(result.Error)
	}
	c.snapshot = Snapshot{State: StateAnonymous, FetchedAt: c.nowTime()}
	snapshot = c.snapshot
	c.mu.Unlock()

	c.watchers.Notify(snapshot)
	c.navigator.Push(navigation.RouteHome)
	return nil
}

func (c *Cache) listen(ctx context.Context, sub *identity.Subscription) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-sub.Events():
			if !ok {
				return
			}
			log.Debug().Str("event", string(change.Event)).Msg("Auth state changed, re-resolving session")
			if _, err := c.fetch(ctx, true); err != nil && !errors.Is(err, apperrors.ErrCacheClosed) {
				log.Debug().Err(err).Msg("Session re-fetch failed")
			}
		}
	}
}

// fetch asks the auth service for the current session unless force is false and the cached value is fresh.
// Fetches are serialized; a result arriving after Close is discarded.
func (c *Cache) fetch(ctx context.Context, force bool) (*identity.Session, error) {
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	c.mu.RLock()
	closed := c.closed
	snapshot := c.snapshot
	c.mu.RUnlock()
	if closed {
		return nil, apperrors.ErrCacheClosed
	}
	if !force && c.fresh(snapshot) {
		return snapshot.Session, nil
	}

	session, err := retry.DoValue(ctx, c.backoff(), func(ctx context.Context) (*identity.Session, error) {
		result := c.ops.GetSession(ctx)
		if result.Error == "" {
			return result.Session, nil
		}
		if result.Retryable {
			return nil, retry.RetryableError(errors.New(result.Error))
		}
		return nil, errors.New(result.Error)
	})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, apperrors.ErrCacheClosed
	}
	if err != nil {
		c.snapshot.Error = err.Error()
		if c.snapshot.State != StateAuthenticated && c.snapshot.State != StateSigningOut {
			c.snapshot.State = StateAnonymous
			c.snapshot.Session = nil
		}
	} else {
		state := StateAnonymous
		if session != nil {
			state = StateAuthenticated
		}
		c.snapshot = Snapshot{State: state, Session: session, FetchedAt: c.nowTime()}
	}
	snapshot = c.snapshot
	c.mu.Unlock()

	c.watchers.Notify(snapshot)
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (c *Cache) fresh(s Snapshot) bool {
	if s.FetchedAt.IsZero() {
		return false
	}
	if s.State != StateAuthenticated && s.State != StateAnonymous {
		return false
	}
	return c.nowTime().Sub(s.FetchedAt) < c.staleTime
}
