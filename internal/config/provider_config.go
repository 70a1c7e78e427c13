package config

import (
	"strings"
	"time"
)

const (
	providerURLVar = "SUPABASE_URL"
	anonKeyVar     = "SUPABASE_ANON_KEY"
	authPath       = "/auth/v1"
)

type Provider struct {
	URL         string        `env:"SUPABASE_URL"`
	AnonKey     string        `env:"SUPABASE_ANON_KEY"`
	JWKSURL     string        `env:"SUPABASE_JWKS_URL"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`
}

var _ ProviderConfig = Provider{}

func (p Provider) GetProviderURL() string {
	return strings.TrimRight(p.URL, "/")
}

// GetAuthURL returns the base of the provider's auth REST API.
func (p Provider) GetAuthURL() string {
	return p.GetProviderURL() + authPath
}

func (p Provider) GetAnonKey() string {
	return p.AnonKey
}

// GetJWKSURL is optional, access tokens are only verified when it is set.
func (p Provider) GetJWKSURL() string {
	return p.JWKSURL
}

func (p Provider) GetHTTPTimeout() time.Duration {
	if p.HTTPTimeout <= 0 {
		return 10 * time.Second
	}
	return p.HTTPTimeout
}
