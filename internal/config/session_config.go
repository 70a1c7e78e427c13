package config

import "time"

type Session struct {
	StaleTime     time.Duration `env:"SESSION_STALE_TIME" envDefault:"5m"`
	RedirectDelay time.Duration `env:"REDIRECT_DELAY" envDefault:"2s"`
}

var _ SessionConfig = Session{}

// GetSessionStaleTime is how long a fetched session is reused without asking the provider again.
func (s Session) GetSessionStaleTime() time.Duration {
	if s.StaleTime <= 0 {
		return 5 * time.Minute
	}
	return s.StaleTime
}

func (s Session) GetRedirectDelay() time.Duration {
	if s.RedirectDelay < 0 {
		return 0
	}
	return s.RedirectDelay
}
