package main

import (
	"context"
	"os"
	"strings"

	"github.com/jrsteele09/go-dashboard-auth/auth"
	"github.com/jrsteele09/go-dashboard-auth/flows"
	"github.com/jrsteele09/go-dashboard-auth/identity"
	"github.com/jrsteele09/go-dashboard-auth/identity/identityfake"
	"github.com/jrsteele09/go-dashboard-auth/internal/config"
	apperrors "github.com/jrsteele09/go-dashboard-auth/internal/errors"
	"github.com/jrsteele09/go-dashboard-auth/internal/logging"
	"github.com/jrsteele09/go-dashboard-auth/navigation"
	"github.com/jrsteele09/go-dashboard-auth/sessions"
	"github.com/jrsteele09/go-dashboard-auth/token"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	demoEmail    = "demo@example.com"
	demoPassword = "demo1234"
)

// app wires the provider, the auth service and a location for one command.
type app struct {
	cfg      config.Config
	provider identity.Provider
	service  *auth.Service
	location *navigation.Location
}

func newApp(ctx context.Context, opts *rootOptions, startURL string) (*app, error) {
	cfg, err := loadConfig(opts.fake)
	if err != nil {
		return nil, err
	}
	logging.Setup(cfg.IsDev())
	if opts.banner {
		displayAppname(cfg.GetAppName())
	}

	provider, err := newProvider(ctx, cfg, opts.fake)
	if err != nil {
		return nil, err
	}

	service, err := auth.NewService(provider, auth.Options{AppURL: cfg.GetAppURL()})
	if err != nil {
		return nil, err
	}

	if startURL == "" {
		startURL = cfg.GetAppURL() + navigation.RouteHome
	}
	location, err := navigation.NewLocation(startURL)
	if err != nil {
		return nil, errors.Wrap(err, "[newApp] parse start URL")
	}

	return &app{cfg: cfg, provider: provider, service: service, location: location}, nil
}

// loadConfig reads the environment. The fake provider needs no credentials, so missing ones are
// tolerated when it is in use.
func loadConfig(fake bool) (config.Config, error) {
	cfg, err := config.New()
	if err == nil || !fake || !apperrors.Is(err, apperrors.ErrMissingConfig) {
		return cfg, err
	}

	environ := map[string]string{}
	for _, kv := range os.Environ() {
		if name, value, ok := strings.Cut(kv, "="); ok {
			environ[name] = value
		}
	}
	environ["BUILD_PHASE"] = "build"
	return config.Load(environ)
}

func newProvider(ctx context.Context, cfg config.Config, fake bool) (identity.Provider, error) {
	if fake {
		p := identityfake.New()
		if _, err := p.AddUser(demoEmail, demoPassword, true); err != nil {
			return nil, err
		}
		log.Debug().Str("email", demoEmail).Msg("Using in-memory identity provider")
		return p, nil
	}

	var options []identity.ClientOption
	if jwksURL := cfg.GetJWKSURL(); jwksURL != "" {
		options = append(options, identity.WithVerifier(token.NewVerifier(ctx, cfg.GetAuthURL(), jwksURL)))
	}
	return identity.NewClient(cfg, options...)
}

// newCache starts a session cache bound to the app's location. The caller must Close it.
func (a *app) newCache(ctx context.Context) (*sessions.Cache, error) {
	cache, err := sessions.NewCache(a.provider, a.service, a.location, sessions.WithStaleTime(a.cfg.GetSessionStaleTime()))
	if err != nil {
		return nil, err
	}
	if err := cache.Start(ctx); err != nil {
		log.Debug().Err(err).Msg("Initial session fetch failed")
	}
	return cache, nil
}

func (a *app) deps(cache flows.SessionInvalidator) flows.Deps {
	return flows.Deps{Service: a.service, Sessions: cache, Navigator: a.location}
}
