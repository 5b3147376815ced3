package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ManagerOptions configures a CredentialManager.
type ManagerOptions struct {
	Config Config
	Logger *zap.Logger

	// HTTPClient is used for token endpoint calls. Defaults to a client
	// with the configured request timeout.
	HTTPClient *http.Client

	// Overrides for the interactive flow, used by tests and headless runs.
	OpenBrowser func(url string) error
	Stdin       io.Reader
	Stdout      io.Writer
}

// CredentialManager is the single entry point callers use to obtain a
// currently-valid bearer token or an authenticated HTTP client. It owns the
// store and the authorization flow; callers construct one instance and pass
// it around instead of relying on process-wide session state.
type CredentialManager struct {
	cfg        Config
	store      *TokenStore
	flow       *AuthorizationFlow
	httpClient *http.Client
	logger     *zap.Logger

	mu  sync.Mutex
	rec *TokenRecord
}

// NewCredentialManager validates the profile and wires the store and flow.
func NewCredentialManager(opts ManagerOptions) (*CredentialManager, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	cfg := opts.Config.withDefaults()

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	flow := newAuthorizationFlow(cfg, httpClient, logger)
	if opts.OpenBrowser != nil {
		flow.openBrowser = opts.OpenBrowser
	}
	if opts.Stdin != nil {
		flow.stdin = opts.Stdin
	}
	if opts.Stdout != nil {
		flow.stdout = opts.Stdout
	}

	return &CredentialManager{
		cfg:        cfg,
		store:      NewTokenStore(cfg.TokenFile),
		flow:       flow,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// GetValidToken returns a token that is valid for at least the skew margin.
// A still-valid persisted record is returned unchanged with no network call;
// an expiring record with a refresh token is refreshed; a record without one
// falls back to a full interactive authorization. Every acquisition persists
// before returning.
func (m *CredentialManager) GetValidToken(ctx context.Context) (*TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquireLocked(ctx, false)
}

// forceToken runs the refresh path regardless of the local expiry check.
// Used by the 401 response hook for clock-skew cases where the computed
// expiry under-estimated the server's.
func (m *CredentialManager) forceToken(ctx context.Context) (*TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquireLocked(ctx, true)
}

// Reauthorize discards any cached record and runs the interactive flow,
// for explicit setup commands and revoked-consent recovery.
func (m *CredentialManager) Reauthorize(ctx context.Context) (*TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return m.authorizeLocked(ctx)
}

// StoredToken loads the persisted record without touching the network.
// Returns (nil, nil) when no token has been saved yet.
func (m *CredentialManager) StoredToken() (*TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec != nil {
		return m.rec, nil
	}
	return m.store.Load()
}

func (m *CredentialManager) acquireLocked(ctx context.Context, force bool) (*TokenRecord, error) {
	rec := m.rec
	if rec == nil {
		loaded, err := m.store.Load()
		if err != nil {
			return nil, err
		}
		rec = loaded
	}

	switch {
	case rec == nil:
		return m.authorizeLocked(ctx)
	case !force && rec.Valid(time.Now()):
		m.rec = rec
		return rec, nil
	case rec.RefreshToken != "":
		return m.refreshLocked(ctx, rec)
	default:
		return m.authorizeLocked(ctx)
	}
}

func (m *CredentialManager) authorizeLocked(ctx context.Context) (*TokenRecord, error) {
	m.logger.Info("no usable token, starting authorization flow",
		zap.Bool("manual", m.cfg.Manual))

	rec, err := m.flow.Authorize(ctx)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(rec); err != nil {
		return nil, err
	}
	m.rec = rec
	return rec, nil
}

// refreshLocked mints a new access token with the refresh_token grant. A
// non-2xx response is fatal for this run: it usually means revoked consent
// or a configuration problem that a silent browser popup would not fix.
func (m *CredentialManager) refreshLocked(ctx context.Context, old *TokenRecord) (*TokenRecord, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("redirect_uri", m.cfg.RedirectURI)
	form.Set("refresh_token", old.RefreshToken)

	resp, issuedAt, err := postTokenEndpoint(ctx, m.httpClient, m.cfg, form)
	if err != nil {
		return nil, err
	}
	if resp.status/100 != 2 {
		return nil, &RefreshFailedError{StatusCode: resp.status, Body: resp.body}
	}

	var tr tokenResponse
	if err := json.Unmarshal([]byte(resp.body), &tr); err != nil {
		return nil, fmt.Errorf("decode refresh response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, &RefreshFailedError{StatusCode: resp.status, Body: "response missing access_token"}
	}

	rec := newTokenRecord(tr, old, issuedAt)
	if err := m.store.Save(rec); err != nil {
		return nil, err
	}
	m.rec = rec

	m.logger.Info("token refreshed",
		zap.String("access_token", maskToken(rec.AccessToken)),
		zap.Int64("expires_at", rec.ExpiresAt),
	)
	return rec, nil
}

// Client returns an HTTP client that injects the current bearer token on
// every request and, on a live 401, refreshes once and retries once.
func (m *CredentialManager) Client() *http.Client {
	return &http.Client{
		Timeout:   m.cfg.RequestTimeout,
		Transport: &bearerTransport{base: http.DefaultTransport, mgr: m},
	}
}

// UserInfo probes the OpenID userinfo endpoint with the current token, as a
// cheap liveness check for the credential.
func (m *CredentialManager) UserInfo(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.Client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenBodyBytes))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo probe failed: status %d: %s", resp.StatusCode, string(body))
	}

	var info map[string]any
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return info, nil
}

// Close releases any resources held by the manager. The authorization flow
// tears its listener down per call, so there is nothing long-lived to stop,
// but callers keep the init/teardown pairing explicit.
func (m *CredentialManager) Close() error { return nil }
