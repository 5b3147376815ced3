package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func managerFor(t *testing.T, cfg Config) *CredentialManager {
	t.Helper()
	mgr, err := NewCredentialManager(ManagerOptions{Config: cfg, Stdout: io.Discard})
	if err != nil {
		t.Fatalf("new credential manager: %v", err)
	}
	return mgr
}

func managerConfig(t *testing.T, tokenURL string) Config {
	t.Helper()
	return Config{
		ClientID:     "abc",
		ClientSecret: "shh",
		RedirectURI:  "http://127.0.0.1:8910/callback",
		TokenFile:    filepath.Join(t.TempDir(), "token.json"),
		TokenURL:     tokenURL,
	}
}

func TestValidTokenReturnedWithoutNetwork(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "unexpected", http.StatusInternalServerError)
	}))
	defer ts.Close()

	cfg := managerConfig(t, ts.URL)
	want := &TokenRecord{
		AccessToken:  "A",
		RefreshToken: "R",
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Unix() + 3600,
	}
	if err := NewTokenStore(cfg.TokenFile).Save(want); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	got, err := managerFor(t, cfg).GetValidToken(context.Background())
	if err != nil {
		t.Fatalf("get valid token: %v", err)
	}
	if *got != *want {
		t.Fatalf("record changed: got %+v want %+v", got, want)
	}
	if calls != 0 {
		t.Fatalf("expected no network calls, got %d", calls)
	}
}

func TestRefreshRecomputesAndCarriesOver(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type: got %q", got)
		}
		if got := r.PostForm.Get("refresh_token"); got != "R" {
			t.Errorf("refresh_token: got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"B","expires_in":3600}`)
	}))
	defer ts.Close()

	cfg := managerConfig(t, ts.URL)
	seed := &TokenRecord{
		AccessToken:  "A",
		RefreshToken: "R",
		TokenType:    "bearer",
		Scope:        "openid fspt-r",
		ExpiresAt:    time.Now().Unix() - 10,
	}
	if err := NewTokenStore(cfg.TokenFile).Save(seed); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	before := time.Now().Unix()
	got, err := managerFor(t, cfg).GetValidToken(context.Background())
	if err != nil {
		t.Fatalf("get valid token: %v", err)
	}
	if got.AccessToken != "B" {
		t.Fatalf("access token: got %q want B", got.AccessToken)
	}
	if got.RefreshToken != "R" {
		t.Fatalf("refresh token not carried over: got %q", got.RefreshToken)
	}
	if got.Scope != "openid fspt-r" {
		t.Fatalf("scope not carried over: got %q", got.Scope)
	}
	wantExpiry := before + 3600 - 60
	if got.ExpiresAt < wantExpiry || got.ExpiresAt > wantExpiry+2 {
		t.Fatalf("expires_at %d not in [%d, %d]", got.ExpiresAt, wantExpiry, wantExpiry+2)
	}

	data, err := os.ReadFile(cfg.TokenFile)
	if err != nil {
		t.Fatalf("read token file: %v", err)
	}
	var onDisk TokenRecord
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("parse token file: %v", err)
	}
	if onDisk != *got {
		t.Fatalf("disk record %+v differs from returned %+v", onDisk, got)
	}
}

func TestRefreshFailureIsFatal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	cfg := managerConfig(t, ts.URL)
	seed := &TokenRecord{
		AccessToken:  "A",
		RefreshToken: "R",
		TokenType:    "bearer",
		ExpiresAt:    time.Now().Unix() - 10,
	}
	if err := NewTokenStore(cfg.TokenFile).Save(seed); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	_, err := managerFor(t, cfg).GetValidToken(context.Background())
	var failed *RefreshFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("expected RefreshFailedError, got %v", err)
	}
	if failed.StatusCode != http.StatusBadRequest {
		t.Fatalf("status: got %d", failed.StatusCode)
	}
}

func TestNoRefreshTokenFallsBackToFlow(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type: got %q, fallback must run the authorization flow", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"fresh","refresh_token":"newR","expires_in":3600}`)
	}))
	defer ts.Close()

	port := freePort(t)
	cfg := managerConfig(t, ts.URL)
	cfg.RedirectURI = fmt.Sprintf("http://127.0.0.1:%d/callback", port)
	cfg.AuthTimeout = 5 * time.Second

	seed := &TokenRecord{
		AccessToken: "A",
		TokenType:   "bearer",
		ExpiresAt:   time.Now().Unix() - 10,
	}
	if err := NewTokenStore(cfg.TokenFile).Save(seed); err != nil {
		t.Fatalf("seed token: %v", err)
	}

	mgr, err := NewCredentialManager(ManagerOptions{
		Config:      cfg,
		Stdout:      io.Discard,
		OpenBrowser: fakeBrowser(t, nil),
	})
	if err != nil {
		t.Fatalf("new credential manager: %v", err)
	}

	got, err := mgr.GetValidToken(context.Background())
	if err != nil {
		t.Fatalf("get valid token: %v", err)
	}
	if got.AccessToken != "fresh" || got.RefreshToken != "newR" {
		t.Fatalf("unexpected record after fallback: %+v", got)
	}
}

func TestCorruptTokenFileSurfaced(t *testing.T) {
	cfg := managerConfig(t, "http://unused.invalid")
	if err := os.WriteFile(cfg.TokenFile, []byte("not json"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := managerFor(t, cfg).GetValidToken(context.Background())
	var corrupt *CorruptTokenError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected CorruptTokenError, got %v", err)
	}
}

func TestManagerRejectsIncompleteConfig(t *testing.T) {
	_, err := NewCredentialManager(ManagerOptions{Config: Config{ClientID: "abc"}})
	var confErr *ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}
