package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

// freePort reserves an ephemeral port and releases it for the test to bind.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

// tokenEndpoint serves a canned token response and counts grant types.
func tokenEndpoint(t *testing.T, body string, grants *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, ok := r.BasicAuth(); !ok {
			t.Errorf("token endpoint called without basic auth")
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if grants != nil {
			*grants = append(*grants, r.PostForm.Get("grant_type"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
}

func flowConfig(tokenURL string) Config {
	cfg := Config{
		ClientID:     "abc",
		ClientSecret: "shh",
		RedirectURI:  "https://127.0.0.1:8910/callback",
		Scope:        "openid profile",
		TokenURL:     tokenURL,
		AuthURL:      "https://auth.example/request_auth",
	}
	return cfg.withDefaults()
}

func TestAuthorizationURL(t *testing.T) {
	f := newAuthorizationFlow(flowConfig("https://auth.example/get_token"), nil, zap.NewNop())

	raw := f.authorizationURL("xyz")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	q := u.Query()
	for key, want := range map[string]string{
		"response_type": "code",
		"client_id":     "abc",
		"redirect_uri":  "https://127.0.0.1:8910/callback",
		"scope":         "openid profile",
		"state":         "xyz",
	} {
		if got := q.Get(key); got != want {
			t.Fatalf("auth url %s: got %q want %q", key, got, want)
		}
	}
	if q.Has("prompt") {
		t.Fatalf("prompt must be omitted when unset")
	}
}

func TestAuthorizationURLPrompt(t *testing.T) {
	cfg := flowConfig("https://auth.example/get_token")
	cfg.Prompt = "consent"
	f := newAuthorizationFlow(cfg, nil, zap.NewNop())

	u, err := url.Parse(f.authorizationURL("s"))
	if err != nil {
		t.Fatalf("parse auth url: %v", err)
	}
	if got := u.Query().Get("prompt"); got != "consent" {
		t.Fatalf("prompt: got %q want consent", got)
	}
}

func TestCaptureManual(t *testing.T) {
	f := newAuthorizationFlow(flowConfig("unused"), nil, zap.NewNop())
	f.stdout = io.Discard
	f.stdin = strings.NewReader("https://127.0.0.1:8910/callback?code=C1&state=S1\n")

	code, err := f.captureManual("https://auth.example", "S1")
	if err != nil {
		t.Fatalf("capture manual: %v", err)
	}
	if code != "C1" {
		t.Fatalf("code: got %q want C1", code)
	}
}

func TestCaptureManualDenied(t *testing.T) {
	f := newAuthorizationFlow(flowConfig("unused"), nil, zap.NewNop())
	f.stdout = io.Discard
	f.stdin = strings.NewReader("https://127.0.0.1:8910/callback?error=access_denied&state=S1\n")

	_, err := f.captureManual("https://auth.example", "S1")
	var denied *AuthorizationDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected AuthorizationDeniedError, got %v", err)
	}
	if denied.Code != "access_denied" {
		t.Fatalf("denied code: got %q", denied.Code)
	}
}

func TestCaptureManualStateMismatch(t *testing.T) {
	f := newAuthorizationFlow(flowConfig("unused"), nil, zap.NewNop())
	f.stdout = io.Discard
	f.stdin = strings.NewReader("https://127.0.0.1:8910/callback?code=C1&state=evil\n")

	_, err := f.captureManual("https://auth.example", "S1")
	var mismatch *StateMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected StateMismatchError, got %v", err)
	}
}

// fakeBrowser simulates the consent redirect: it parses the authorization
// URL the flow built and performs the callback GET itself.
func fakeBrowser(t *testing.T, rewrite func(q url.Values)) func(string) error {
	t.Helper()
	return func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		q := u.Query()
		cb, err := url.Parse(q.Get("redirect_uri"))
		if err != nil {
			return err
		}
		params := url.Values{}
		params.Set("code", "C1")
		params.Set("state", q.Get("state"))
		if rewrite != nil {
			rewrite(params)
		}
		go func() {
			resp, err := http.Get(cb.String() + "?" + params.Encode())
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}
}

func TestInteractiveAuthorize(t *testing.T) {
	var grants []string
	ts := tokenEndpoint(t, `{"access_token":"AT","refresh_token":"RT","token_type":"bearer","expires_in":3600,"scope":"openid fspt-r"}`, &grants)
	defer ts.Close()

	port := freePort(t)
	cfg := flowConfig(ts.URL)
	cfg.RedirectURI = fmt.Sprintf("http://127.0.0.1:%d/callback", port)
	cfg.AuthTimeout = 5 * time.Second

	f := newAuthorizationFlow(cfg, ts.Client(), zap.NewNop())
	f.stdout = io.Discard
	f.openBrowser = fakeBrowser(t, nil)

	before := time.Now().Unix()
	rec, err := f.Authorize(context.Background())
	if err != nil {
		t.Fatalf("authorize: %v", err)
	}
	if rec.AccessToken != "AT" || rec.RefreshToken != "RT" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	wantExpiry := before + 3600 - 60
	if rec.ExpiresAt < wantExpiry || rec.ExpiresAt > wantExpiry+2 {
		t.Fatalf("expires_at %d not in [%d, %d]", rec.ExpiresAt, wantExpiry, wantExpiry+2)
	}
	if len(grants) != 1 || grants[0] != "authorization_code" {
		t.Fatalf("unexpected grants: %v", grants)
	}

	// The single-use listener must be torn down before Authorize returns.
	if _, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 200*time.Millisecond); err == nil {
		t.Fatalf("callback port still accepting connections after flow completed")
	}
}

func TestInteractiveAuthorizeDenied(t *testing.T) {
	var grants []string
	ts := tokenEndpoint(t, `{}`, &grants)
	defer ts.Close()

	port := freePort(t)
	cfg := flowConfig(ts.URL)
	cfg.RedirectURI = fmt.Sprintf("http://127.0.0.1:%d/callback", port)
	cfg.AuthTimeout = 5 * time.Second

	f := newAuthorizationFlow(cfg, ts.Client(), zap.NewNop())
	f.stdout = io.Discard
	f.openBrowser = fakeBrowser(t, func(q url.Values) {
		q.Del("code")
		q.Set("error", "access_denied")
	})

	_, err := f.Authorize(context.Background())
	var denied *AuthorizationDeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("expected AuthorizationDeniedError, got %v", err)
	}
	if len(grants) != 0 {
		t.Fatalf("token endpoint must not be called on denial, got %v", grants)
	}
	if _, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), 200*time.Millisecond); err == nil {
		t.Fatalf("callback port still accepting connections after denial")
	}
}

func TestInteractiveAuthorizeStateMismatch(t *testing.T) {
	ts := tokenEndpoint(t, `{}`, nil)
	defer ts.Close()

	port := freePort(t)
	cfg := flowConfig(ts.URL)
	cfg.RedirectURI = fmt.Sprintf("http://127.0.0.1:%d/callback", port)
	cfg.AuthTimeout = 5 * time.Second

	statusCh := make(chan int, 1)
	f := newAuthorizationFlow(cfg, ts.Client(), zap.NewNop())
	f.stdout = io.Discard
	f.openBrowser = func(authURL string) error {
		u, err := url.Parse(authURL)
		if err != nil {
			return err
		}
		cb := u.Query().Get("redirect_uri")
		go func() {
			resp, err := http.Get(cb + "?code=C1&state=forged")
			if err == nil {
				statusCh <- resp.StatusCode
				resp.Body.Close()
			}
		}()
		return nil
	}

	_, err := f.Authorize(context.Background())
	var mismatch *StateMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected StateMismatchError, got %v", err)
	}
	select {
	case status := <-statusCh:
		if status != http.StatusBadRequest {
			t.Fatalf("forged callback got status %d, want 400", status)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("forged callback response not observed")
	}
}

func TestInteractiveAuthorizeTimeout(t *testing.T) {
	port := freePort(t)
	cfg := flowConfig("http://unused.invalid")
	cfg.RedirectURI = fmt.Sprintf("http://127.0.0.1:%d/callback", port)
	cfg.AuthTimeout = 100 * time.Millisecond

	f := newAuthorizationFlow(cfg, nil, zap.NewNop())
	f.stdout = io.Discard
	f.openBrowser = func(string) error { return nil }

	_, err := f.Authorize(context.Background())
	var timeout *AuthorizationTimeoutError
	if !errors.As(err, &timeout) {
		t.Fatalf("expected AuthorizationTimeoutError, got %v", err)
	}
}

func TestExchangeNon2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_client", http.StatusBadRequest)
	}))
	defer ts.Close()

	f := newAuthorizationFlow(flowConfig(ts.URL), ts.Client(), zap.NewNop())
	_, err := f.exchange(context.Background(), "C1")
	var exchange *TokenExchangeError
	if !errors.As(err, &exchange) {
		t.Fatalf("expected TokenExchangeError, got %v", err)
	}
	if exchange.StatusCode != http.StatusBadRequest || !strings.Contains(exchange.Body, "invalid_client") {
		t.Fatalf("unexpected exchange error: %+v", exchange)
	}
}
