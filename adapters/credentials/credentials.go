// Package credentials provides CredentialProvider implementations.
// Tokens are read fresh on every call so a rotated credential is picked up
// by the next refresh cycle without a restart.
package credentials

import (
	"os"
	"strings"

	"github.com/quotawatch/quotawatch/ports"
	"gopkg.in/yaml.v3"
)

// Env reads a bearer token from the first non-empty environment variable.
type Env struct {
	Vars []string
}

// NewEnv creates an environment provider. With no variables given it
// checks QUOTAWATCH_TOKEN then GITHUB_TOKEN.
func NewEnv(vars ...string) *Env {
	if len(vars) == 0 {
		vars = []string{"QUOTAWATCH_TOKEN", "GITHUB_TOKEN"}
	}
	return &Env{Vars: vars}
}

// Token returns the first configured environment value.
func (e *Env) Token() (string, bool) {
	for _, name := range e.Vars {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, true
		}
	}
	return "", false
}

// File reads a bearer token from a file containing only the token.
type File struct {
	Path string
}

// Token returns the trimmed file contents. A missing or empty file means
// no credential, not an error.
func (f *File) Token() (string, bool) {
	if f.Path == "" {
		return "", false
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return "", false
	}
	token := strings.TrimSpace(string(data))
	return token, token != ""
}

// GHConfig reads the oauth token the gh CLI stores in hosts.yml. Read-only;
// this provider never writes credential storage.
type GHConfig struct {
	Path string
	Host string
}

// NewGHConfig creates a provider for ~/.config/gh/hosts.yml.
func NewGHConfig() *GHConfig {
	home, err := os.UserHomeDir()
	if err != nil {
		return &GHConfig{}
	}
	return &GHConfig{Path: home + "/.config/gh/hosts.yml", Host: "github.com"}
}

// Token returns the stored oauth token for the configured host.
func (g *GHConfig) Token() (string, bool) {
	if g.Path == "" {
		return "", false
	}
	data, err := os.ReadFile(g.Path)
	if err != nil {
		return "", false
	}

	var hosts map[string]struct {
		OauthToken string `yaml:"oauth_token"`
	}
	if err := yaml.Unmarshal(data, &hosts); err != nil {
		return "", false
	}

	host := g.Host
	if host == "" {
		host = "github.com"
	}
	entry, ok := hosts[host]
	if !ok || strings.TrimSpace(entry.OauthToken) == "" {
		return "", false
	}
	return strings.TrimSpace(entry.OauthToken), true
}

// Chain tries providers in order and returns the first token found.
type Chain []ports.CredentialProvider

// Token returns the first available token in the chain.
func (c Chain) Token() (string, bool) {
	for _, p := range c {
		if token, ok := p.Token(); ok {
			return token, true
		}
	}
	return "", false
}

// Static always returns the given token. Used in tests.
type Static struct {
	Value string
}

// Token returns the static value.
func (s Static) Token() (string, bool) {
	return s.Value, s.Value != ""
}

// Ensure interface compliance.
var (
	_ ports.CredentialProvider = (*Env)(nil)
	_ ports.CredentialProvider = (*File)(nil)
	_ ports.CredentialProvider = (*GHConfig)(nil)
	_ ports.CredentialProvider = (Chain)(nil)
	_ ports.CredentialProvider = (Static{})
)
