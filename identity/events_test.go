package identity_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/go-dashboard-auth/identity"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster(t *testing.T) {
	b := identity.NewBroadcaster()
	first := b.Subscribe()
	second := b.Subscribe()
	require.Equal(t, 2, b.Len())
	require.NotEqual(t, first.ID(), second.ID())

	b.Publish(identity.AuthStateChange{Event: identity.SignedIn})
	require.Equal(t, identity.SignedIn, (<-first.Events()).Event)
	require.Equal(t, identity.SignedIn, (<-second.Events()).Event)

	t.Run("close is idempotent and closes the channel", func(t *testing.T) {
		first.Close()
		first.Close()
		require.Equal(t, 1, b.Len())

		_, open := <-first.Events()
		require.False(t, open)
	})

	t.Run("publish does not block on a full subscriber", func(t *testing.T) {
		done := make(chan struct{})
		go func() {
			for i := 0; i < 100; i++ {
				b.Publish(identity.AuthStateChange{Event: identity.TokenRefreshed})
			}
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("publish blocked")
		}
	})

	second.Close()
	require.Equal(t, 0, b.Len())
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"server error", &identity.Error{Status: http.StatusBadGateway, Message: "bad gateway"}, true},
		{"rate limited", &identity.Error{Status: http.StatusTooManyRequests, Message: "Too many requests"}, true},
		{"bad request", &identity.Error{Status: http.StatusBadRequest, Message: "Invalid login credentials"}, false},
		{"network timeout", timeoutErr{}, true},
		{"cancelled", context.Canceled, false},
		{"plain error", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, identity.Retryable(tt.err))
		})
	}
}
