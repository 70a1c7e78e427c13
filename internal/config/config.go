package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	apperrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
)

type Config interface {
	EnvConfig
	ProviderConfig
	SessionConfig
}

type EnvConfig interface {
	GetAppName() string
	GetAppURL() string
	GetEnv() string
	IsDev() bool
	IsBuildPhase() bool
}

type ProviderConfig interface {
	GetProviderURL() string
	GetAuthURL() string
	GetAnonKey() string
	GetJWKSURL() string
	GetHTTPTimeout() time.Duration
}

type SessionConfig interface {
	GetSessionStaleTime() time.Duration
	GetRedirectDelay() time.Duration
}

type mainConfig struct {
	EnvVars
	Provider
	Session
}

// New loads the configuration from the process environment.
func New() (Config, error) {
	return Load(nil)
}

// Load parses configuration from environ, or from the process environment when environ is nil.
// The provider URL and anon key are required outside of the build phase.
func Load(environ map[string]string) (Config, error) {
	var c mainConfig
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return nil, apperrors.Wrapf(err, "parse env")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c mainConfig) validate() error {
	if c.IsBuildPhase() {
		return nil
	}
	required := []struct {
		name  string
		value string
	}{
		{providerURLVar, c.URL},
		{anonKeyVar, c.AnonKey},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrMissingConfig, strings.Join(missing, ", "))
	}
	return nil
}
