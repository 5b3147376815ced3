package auth

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStoreLoadAbsent(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "nested", "token.json"))
	rec, err := store.Load()
	if err != nil {
		t.Fatalf("load absent: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record for absent file, got %+v", rec)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "token.json")
	store := NewTokenStore(path)

	want := &TokenRecord{
		AccessToken:  "A",
		RefreshToken: "R",
		TokenType:    "bearer",
		Scope:        "openid fspt-r",
		ExpiresAt:    1700003540,
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *got != *want {
		t.Fatalf("round trip mismatch: got %+v want %+v", got, want)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != tokenFilePerm {
		t.Fatalf("token file permissions: got %o want %o", perm, tokenFilePerm)
	}
}

func TestStoreCorruptFileSurfaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	_, err := NewTokenStore(path).Load()
	var corrupt *CorruptTokenError
	if !errors.As(err, &corrupt) {
		t.Fatalf("expected CorruptTokenError, got %v", err)
	}
}

func TestStoreSaveSurvivesStaleTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token.json")
	store := NewTokenStore(path)

	if err := store.Save(&TokenRecord{AccessToken: "old", TokenType: "bearer", ExpiresAt: 1}); err != nil {
		t.Fatalf("save old: %v", err)
	}

	// A crash mid-save leaves only a staged temp file behind; the canonical
	// path must still parse as the last complete record.
	if err := os.WriteFile(filepath.Join(dir, ".token-dead.tmp"), []byte(`{"access_`), 0o600); err != nil {
		t.Fatalf("write stale temp: %v", err)
	}

	rec, err := store.Load()
	if err != nil {
		t.Fatalf("load after stale temp: %v", err)
	}
	if rec.AccessToken != "old" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	if err := store.Save(&TokenRecord{AccessToken: "new", TokenType: "bearer", ExpiresAt: 2}); err != nil {
		t.Fatalf("save new: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read canonical: %v", err)
	}
	var rt TokenRecord
	if err := json.Unmarshal(data, &rt); err != nil {
		t.Fatalf("canonical file does not parse: %v", err)
	}
	if rt.AccessToken != "new" {
		t.Fatalf("canonical file holds %q, want new", rt.AccessToken)
	}
}
