package auth

import (
	"fmt"
	"net/url"
	"time"
)

// Yahoo authorization server endpoints. Overridable in Config for tests.
const (
	DefaultAuthURL     = "https://api.login.yahoo.com/oauth2/request_auth"
	DefaultTokenURL    = "https://api.login.yahoo.com/oauth2/get_token"
	DefaultUserInfoURL = "https://api.login.yahoo.com/openid/v1/userinfo"

	DefaultScope = "openid fspt-r"

	// DefaultAuthTimeout bounds the wait for the authorization callback.
	DefaultAuthTimeout = 5 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
)

// Config is the single credential profile this package manages: one
// client id / secret / redirect URI triple plus flow options.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scope        string
	TokenFile    string

	// Manual switches the flow to paste mode for headless environments:
	// the operator opens the printed URL and pastes back the redirected URL.
	Manual bool

	// Prompt, when set, is forwarded to the authorization endpoint
	// (e.g. "consent" to force re-consent).
	Prompt string

	// TLS key pair for the local listener. Required when the redirect URI
	// scheme is https.
	TLSCertFile string
	TLSKeyFile  string

	AuthURL     string
	TokenURL    string
	UserInfoURL string

	RequestTimeout time.Duration
	AuthTimeout    time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Scope == "" {
		out.Scope = DefaultScope
	}
	if out.AuthURL == "" {
		out.AuthURL = DefaultAuthURL
	}
	if out.TokenURL == "" {
		out.TokenURL = DefaultTokenURL
	}
	if out.UserInfoURL == "" {
		out.UserInfoURL = DefaultUserInfoURL
	}
	if out.RequestTimeout <= 0 {
		out.RequestTimeout = DefaultRequestTimeout
	}
	if out.AuthTimeout <= 0 {
		out.AuthTimeout = DefaultAuthTimeout
	}
	return out
}

// Validate checks the profile before any flow runs. Failures are fatal at
// startup and never retried.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return &ConfigurationError{Reason: "client id is required"}
	}
	if c.ClientSecret == "" {
		return &ConfigurationError{Reason: "client secret is required"}
	}
	if c.RedirectURI == "" {
		return &ConfigurationError{Reason: "redirect URI is required"}
	}
	if c.TokenFile == "" {
		return &ConfigurationError{Reason: "token file path is required"}
	}
	u, err := url.Parse(c.RedirectURI)
	if err != nil || u.Host == "" {
		return &ConfigurationError{Reason: fmt.Sprintf("redirect URI %q is not a valid URL", c.RedirectURI)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigurationError{Reason: fmt.Sprintf("redirect URI scheme %q is not supported", u.Scheme)}
	}
	if u.Scheme == "https" && !c.Manual && (c.TLSCertFile == "" || c.TLSKeyFile == "") {
		return &ConfigurationError{Reason: "https redirect URI requires TLS cert and key files"}
	}
	return nil
}

// redirectEndpoint splits the redirect URI into the listen address, the
// callback path and whether the listener must serve TLS.
func redirectEndpoint(redirectURI string) (addr, path string, useTLS bool, err error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", "", false, fmt.Errorf("parse redirect URI: %w", err)
	}
	useTLS = u.Scheme == "https"
	host := u.Hostname()
	if host == "" {
		host = "127.0.0.1"
	}
	port := u.Port()
	if port == "" {
		if useTLS {
			port = "443"
		} else {
			port = "80"
		}
	}
	path = u.Path
	if path == "" {
		path = "/"
	}
	return host + ":" + port, path, useTLS, nil
}
