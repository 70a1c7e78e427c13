package config

import "strings"

const (
	devEnv     = "DEV"
	buildPhase = "build"
)

type EnvVars struct {
	AppName    string `env:"APP_NAME" envDefault:"Dashboard"`
	AppURL     string `env:"APP_URL" envDefault:"http://localhost:3000"`
	Env        string `env:"ENV" envDefault:"DEV"`
	BuildPhase string `env:"BUILD_PHASE"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

// GetAppURL returns the public origin used to build confirmation and reset redirect links.
func (e EnvVars) GetAppURL() string {
	return strings.TrimRight(e.AppURL, "/")
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return devEnv
	}
	return e.Env
}

func (e EnvVars) IsDev() bool {
	return strings.EqualFold(e.GetEnv(), devEnv)
}

// IsBuildPhase reports whether required settings validation should be deferred.
func (e EnvVars) IsBuildPhase() bool {
	return strings.EqualFold(e.BuildPhase, buildPhase)
}
