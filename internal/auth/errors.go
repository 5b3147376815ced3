package auth

import (
	"fmt"
	"time"
)

// ConfigurationError indicates required credential configuration is missing
// or inconsistent. It is fatal at startup and never retried.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "auth configuration: " + e.Reason
}

// CorruptTokenError indicates the token file exists but does not parse.
// It is surfaced rather than treated as absent so an operator mistake is
// visible instead of silently triggering a new authorization.
type CorruptTokenError struct {
	Path string
	Err  error
}

func (e *CorruptTokenError) Error() string {
	return fmt.Sprintf("token file %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptTokenError) Unwrap() error { return e.Err }

// StateMismatchError indicates the callback carried a state value that was
// not issued by this flow. Treated as a potential CSRF attempt.
type StateMismatchError struct {
	Expected string
	Got      string
}

func (e *StateMismatchError) Error() string {
	return "authorization callback state mismatch"
}

// AuthorizationDeniedError indicates the authorization server reported an
// error instead of a code (user declined consent, invalid request, ...).
type AuthorizationDeniedError struct {
	Code        string
	Description string
}

func (e *AuthorizationDeniedError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("authorization denied: %s (%s)", e.Code, e.Description)
	}
	return "authorization denied: " + e.Code
}

// AuthorizationTimeoutError indicates no callback arrived within the wait
// window.
type AuthorizationTimeoutError struct {
	Wait time.Duration
}

func (e *AuthorizationTimeoutError) Error() string {
	return fmt.Sprintf("no authorization callback received within %s", e.Wait)
}

// TokenExchangeError indicates a non-2xx response from the token endpoint
// during the authorization_code exchange.
type TokenExchangeError struct {
	StatusCode int
	Body       string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: status %d: %s", e.StatusCode, e.Body)
}

// RefreshFailedError indicates a non-2xx response from the token endpoint
// during a refresh_token grant. A refresh failure usually means revoked
// consent or a configuration problem, so it is fatal rather than a trigger
// for a silent interactive re-authorization.
type RefreshFailedError struct {
	StatusCode int
	Body       string
}

func (e *RefreshFailedError) Error() string {
	return fmt.Sprintf("token refresh failed: status %d: %s", e.StatusCode, e.Body)
}
