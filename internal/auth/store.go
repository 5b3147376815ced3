package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const tokenFilePerm os.FileMode = 0o600

// TokenStore persists a single TokenRecord to a JSON file. Writes are staged
// to a temporary file and renamed over the canonical path, so a reader never
// observes a partial record.
type TokenStore struct {
	path string
}

// NewTokenStore creates a store for the token file at path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Path returns the canonical token file path.
func (s *TokenStore) Path() string { return s.path }

// Load reads the persisted record. A missing file returns (nil, nil); a file
// that exists but does not parse returns a CorruptTokenError.
func (s *TokenStore) Load() (*TokenRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read token file: %w", err)
	}

	var rec TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &CorruptTokenError{Path: s.path, Err: err}
	}
	if rec.AccessToken == "" {
		return nil, &CorruptTokenError{Path: s.path, Err: errors.New("missing access_token")}
	}
	return &rec, nil
}

// Save atomically replaces the persisted record, creating the parent
// directory on first use.
func (s *TokenStore) Save(rec *TokenRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*.tmp")
	if err != nil {
		return fmt.Errorf("stage token file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Chmod(tmpName, tokenFilePerm); err != nil {
		return fmt.Errorf("chmod token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("promote token file: %w", err)
	}
	return nil
}
