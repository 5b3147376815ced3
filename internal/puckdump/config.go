package puckdump

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"puckdump/internal/auth"
)

// Duration parses from human-friendly strings (e.g., "60s") or numeric seconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
			d.Duration = time.Duration(seconds) * time.Second
			return nil
		}
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	}
	var seconds int64
	if err := json.Unmarshal(data, &seconds); err != nil {
		return err
	}
	d.Duration = time.Duration(seconds) * time.Second
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	// An int scalar decodes into a string too ("60"), so plain seconds
	// must be checked before ParseDuration gets to reject them.
	if value.Tag == "!!int" {
		var seconds int64
		if err := value.Decode(&seconds); err != nil {
			return err
		}
		d.Duration = time.Duration(seconds) * time.Second
		return nil
	}
	var text string
	if err := value.Decode(&text); err != nil {
		return errors.New("invalid duration format")
	}
	if seconds, err := strconv.ParseInt(text, 10, 64); err == nil {
		d.Duration = time.Duration(seconds) * time.Second
		return nil
	}
	parsed, err := time.ParseDuration(text)
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// OAuthConfig is the credential profile section of the config file. Every
// field can also arrive via the environment (YAHOO_CLIENT_ID and friends),
// which keeps the original .env operator surface working.
type OAuthConfig struct {
	ClientID     string `json:"client_id" yaml:"client_id"`
	ClientSecret string `json:"client_secret" yaml:"client_secret"`
	RedirectURI  string `json:"redirect_uri" yaml:"redirect_uri"`
	Scope        string `json:"scope" yaml:"scope"`
	TokenFile    string `json:"token_file" yaml:"token_file"`
	Manual       bool   `json:"manual" yaml:"manual"`
	Prompt       string `json:"prompt" yaml:"prompt"`
	TLSCertFile  string `json:"tls_cert_file" yaml:"tls_cert_file"`
	TLSKeyFile   string `json:"tls_key_file" yaml:"tls_key_file"`
}

// Config holds everything the dump commands need: the export tree root, the
// credential profile, and API client tuning.
type Config struct {
	ExportDir      string      `json:"export_dir" yaml:"export_dir"`
	Game           string      `json:"game" yaml:"game"`
	LogLevel       string      `json:"log_level" yaml:"log_level"`
	RequestTimeout Duration    `json:"request_timeout" yaml:"request_timeout"`
	RateLimit      int         `json:"rate_limit" yaml:"rate_limit"`
	OAuth          OAuthConfig `json:"oauth" yaml:"oauth"`
}

func DefaultConfig() Config {
	return Config{
		ExportDir:      "./exports",
		Game:           "nhl",
		LogLevel:       "info",
		RequestTimeout: Duration{Duration: 30 * time.Second},
		RateLimit:      3,
		OAuth: OAuthConfig{
			Scope:     auth.DefaultScope,
			TokenFile: "./data/yahoo_token.json",
		},
	}
}

// LoadConfig reads an optional YAML/JSON config file, then applies
// environment overrides and validates the result.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := decodeConfig(detectFormat(path), data, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config: %w", err)
		}
	}

	applyEnv(&cfg)
	ensureDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// applyEnv lets environment variables override file values, matching the
// variable names the original exporter used.
func applyEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&cfg.ExportDir, "EXPORT_DIR")
	set(&cfg.OAuth.ClientID, "YAHOO_CLIENT_ID")
	set(&cfg.OAuth.ClientSecret, "YAHOO_CLIENT_SECRET")
	set(&cfg.OAuth.RedirectURI, "YAHOO_REDIRECT_URI")
	set(&cfg.OAuth.Scope, "YAHOO_SCOPE")
	set(&cfg.OAuth.TokenFile, "TOKEN_FILE")
	set(&cfg.OAuth.Prompt, "OAUTH_PROMPT")
	set(&cfg.OAuth.TLSCertFile, "TLS_CERT_FILE")
	set(&cfg.OAuth.TLSKeyFile, "TLS_KEY_FILE")
	if v := strings.TrimSpace(os.Getenv("OAUTH_MANUAL")); v == "1" || strings.EqualFold(v, "true") {
		cfg.OAuth.Manual = true
	}
}

func ensureDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.ExportDir == "" {
		cfg.ExportDir = def.ExportDir
	}
	if cfg.Game == "" {
		cfg.Game = def.Game
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.RequestTimeout.Duration == 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.OAuth.Scope == "" {
		cfg.OAuth.Scope = def.OAuth.Scope
	}
	if cfg.OAuth.TokenFile == "" {
		cfg.OAuth.TokenFile = def.OAuth.TokenFile
	}
}

func (c *Config) Validate() error {
	if c.ExportDir == "" {
		return errors.New("export_dir cannot be empty")
	}
	if c.RequestTimeout.Duration <= 0 {
		return errors.New("request_timeout must be positive")
	}
	if c.RateLimit <= 0 {
		return errors.New("rate_limit must be positive")
	}
	return nil
}

// AuthConfig bridges the config file section into the credential core's
// profile. Credential completeness is checked there, not here, so read-only
// commands can run without a client secret.
func (c *Config) AuthConfig() auth.Config {
	return auth.Config{
		ClientID:       c.OAuth.ClientID,
		ClientSecret:   c.OAuth.ClientSecret,
		RedirectURI:    c.OAuth.RedirectURI,
		Scope:          c.OAuth.Scope,
		TokenFile:      c.OAuth.TokenFile,
		Manual:         c.OAuth.Manual,
		Prompt:         c.OAuth.Prompt,
		TLSCertFile:    c.OAuth.TLSCertFile,
		TLSKeyFile:     c.OAuth.TLSKeyFile,
		RequestTimeout: c.RequestTimeout.Duration,
	}
}

func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".yml", ".yaml":
		return "yaml"
	default:
		return "yaml" // prefer YAML when ambiguous
	}
}

func decodeConfig(format string, data []byte, cfg *Config) error {
	switch format {
	case "json":
		return json.Unmarshal(data, cfg)
	case "yaml":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format: %s", format)
	}
}
