package identity

import (
	"sync"

	"github.com/google/uuid"
)

// AuthChangeEvent names an auth-state transition pushed to subscribers.
type AuthChangeEvent string

const (
	SignedIn       AuthChangeEvent = "SIGNED_IN"
	SignedOut      AuthChangeEvent = "SIGNED_OUT"
	TokenRefreshed AuthChangeEvent = "TOKEN_REFRESHED"
	UserUpdated    AuthChangeEvent = "USER_UPDATED"
)

const subscriptionBuffer = 16

type AuthStateChange struct {
	Event   AuthChangeEvent
	Session *Session
}

// Subscription is a live auth-state-change channel. Close releases it; further calls are no-ops.
type Subscription struct {
	id     uuid.UUID
	events chan AuthStateChange
	once   sync.Once
	broker *Broadcaster
}

func (s *Subscription) ID() string {
	return s.id.String()
}

// Events is closed once the subscription is closed.
func (s *Subscription) Events() <-chan AuthStateChange {
	return s.events
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.remove(s)
	})
}

// Broadcaster fans auth-state changes out to subscriptions.
// Publishing never blocks: a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*Subscription
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[uuid.UUID]*Subscription)}
}

func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{
		id:     uuid.New(),
		events: make(chan AuthStateChange, subscriptionBuffer),
		broker: b,
	}
	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub
}

func (b *Broadcaster) Publish(change AuthStateChange) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.events <- change:
		default:
		}
	}
}

// Len returns the number of open subscriptions.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Broadcaster) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, sub.id)
	close(sub.events)
}
