package auth

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"go.uber.org/zap"
)

// AuthorizationFlow obtains a brand-new authorization code from the operator
// and exchanges it for the initial TokenRecord. Interactive local-redirect
// capture is the default; manual paste mode serves headless environments.
type AuthorizationFlow struct {
	cfg        Config
	httpClient *http.Client
	logger     *zap.Logger

	// Overridable for tests.
	openBrowser func(url string) error
	stdin       io.Reader
	stdout      io.Writer
}

// newAuthorizationFlow wires a flow from an already-defaulted Config.
func newAuthorizationFlow(cfg Config, httpClient *http.Client, logger *zap.Logger) *AuthorizationFlow {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &AuthorizationFlow{
		cfg:         cfg,
		httpClient:  httpClient,
		logger:      logger,
		openBrowser: openBrowser,
		stdin:       os.Stdin,
		stdout:      os.Stdout,
	}
}

// newState returns a fresh random state value for CSRF protection of the
// redirect callback.
func newState() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// authorizationURL builds the consent page URL for the given state.
func (f *AuthorizationFlow) authorizationURL(state string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", f.cfg.ClientID)
	q.Set("redirect_uri", f.cfg.RedirectURI)
	q.Set("scope", f.cfg.Scope)
	q.Set("state", state)
	if f.cfg.Prompt != "" {
		q.Set("prompt", f.cfg.Prompt)
	}
	return f.cfg.AuthURL + "?" + q.Encode()
}

// Authorize runs the configured sub-mode end to end and returns the initial
// TokenRecord. The local listener, when used, is torn down before return
// whether the flow succeeded, timed out, or errored.
func (f *AuthorizationFlow) Authorize(ctx context.Context) (*TokenRecord, error) {
	state, err := newState()
	if err != nil {
		return nil, err
	}
	authURL := f.authorizationURL(state)

	var code string
	if f.cfg.Manual {
		code, err = f.captureManual(authURL, state)
	} else {
		code, err = f.captureLocal(ctx, authURL, state)
	}
	if err != nil {
		return nil, err
	}

	return f.exchange(ctx, code)
}

// captureManual prints the consent URL and extracts the code from the
// redirected URL the operator pastes back. No listener is started.
func (f *AuthorizationFlow) captureManual(authURL, state string) (string, error) {
	fmt.Fprintln(f.stdout, "Open this URL, authorize, and paste the full redirected URL:")
	fmt.Fprintln(f.stdout, authURL)
	fmt.Fprint(f.stdout, "Redirected URL: ")

	line, err := bufio.NewReader(f.stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read redirected URL: %w", err)
	}
	pasted, err := url.Parse(strings.TrimSpace(line))
	if err != nil {
		return "", fmt.Errorf("parse redirected URL: %w", err)
	}

	q := pasted.Query()
	if errCode := q.Get("error"); errCode != "" {
		return "", &AuthorizationDeniedError{Code: errCode, Description: q.Get("error_description")}
	}
	if got := q.Get("state"); got != state {
		return "", &StateMismatchError{Expected: state, Got: got}
	}
	code := q.Get("code")
	if code == "" {
		return "", fmt.Errorf("redirected URL has no code parameter")
	}
	return code, nil
}

// captureLocal binds the single-use listener parsed from the redirect URI,
// opens the browser, and waits for exactly one callback.
func (f *AuthorizationFlow) captureLocal(ctx context.Context, authURL, state string) (string, error) {
	addr, path, useTLS, err := redirectEndpoint(f.cfg.RedirectURI)
	if err != nil {
		return "", err
	}
	certFile, keyFile := "", ""
	if useTLS {
		certFile, keyFile = f.cfg.TLSCertFile, f.cfg.TLSKeyFile
	}

	srv := newCallbackServer(addr, path, state, certFile, keyFile)
	if err := srv.start(); err != nil {
		return "", err
	}
	defer srv.stop()

	f.logger.Info("waiting for authorization callback",
		zap.String("listen", addr),
		zap.String("path", path),
		zap.Duration("timeout", f.cfg.AuthTimeout),
	)

	if err := f.openBrowser(authURL); err != nil {
		f.logger.Warn("could not open browser, open the URL manually", zap.Error(err))
		fmt.Fprintln(f.stdout, "Open this URL in a browser to authorize:")
		fmt.Fprintln(f.stdout, authURL)
	}

	res, err := srv.wait(ctx, f.cfg.AuthTimeout)
	if err != nil {
		return "", err
	}
	if res.Error != "" {
		return "", &AuthorizationDeniedError{Code: res.Error, Description: res.ErrorDsc}
	}
	if res.State != state {
		return "", &StateMismatchError{Expected: state, Got: res.State}
	}
	if res.Code == "" {
		return "", fmt.Errorf("authorization callback has no code parameter")
	}
	return res.Code, nil
}

// exchange trades the authorization code for the initial token record.
func (f *AuthorizationFlow) exchange(ctx context.Context, code string) (*TokenRecord, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", f.cfg.RedirectURI)
	form.Set("code", code)

	resp, issuedAt, err := postTokenEndpoint(ctx, f.httpClient, f.cfg, form)
	if err != nil {
		return nil, err
	}
	if resp.status/100 != 2 {
		return nil, &TokenExchangeError{StatusCode: resp.status, Body: resp.body}
	}

	var tr tokenResponse
	if err := json.Unmarshal([]byte(resp.body), &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, &TokenExchangeError{StatusCode: resp.status, Body: "response missing access_token"}
	}

	f.logger.Info("authorization code exchanged",
		zap.String("access_token", maskToken(tr.AccessToken)),
		zap.Int64("expires_in", tr.ExpiresIn),
	)
	return newTokenRecord(tr, nil, issuedAt), nil
}
