// loader.go implements the configuration loading lifecycle.
//
// The loading sequence is:
//  1. Enforce UTC timezone to prevent drift bugs.
//  2. Load .env file via godotenv (non-fatal if absent).
//  3. Use envconfig to process struct tags and populate the Config struct.
//  4. Populate BuildInfo from linker-injected variables.
//  5. Validate the struct using go-playground/validator.
//  6. Decode the OAuth client pool, credential key and usage timezone.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is a diagnostic error type returned by LoadConfig.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// envLookup matches os.LookupEnv and allows injection for testing.
type envLookup func(key string) (string, bool)

type loaderDeps struct {
	lookupEnv envLookup
	dotenv    func() error
}

func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		dotenv:    func() error { return godotenv.Load() },
	}
}

// LoadConfig loads and validates the process configuration.
func LoadConfig() (*Config, error) {
	return loadConfigWithDeps(defaultDeps())
}

func loadConfigWithDeps(deps loaderDeps) (*Config, error) {
	time.Local = time.UTC

	// godotenv does not override variables already present in the environment.
	if deps.dotenv != nil {
		_ = deps.dotenv()
	}

	// The OAuth client pool is the one setting without which no user can
	// ever connect; report it as missing rather than as a validation error.
	if v, ok := deps.lookupEnv("YOUTUBE_OAUTH_CLIENTS"); !ok || v == "" {
		return nil, &ConfigError{
			Type:    ErrMissingEnv,
			Message: "YOUTUBE_OAUTH_CLIENTS is not set; at least one OAuth client identity is required",
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}

	cfg.Build = NewBuildInfo()

	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}

	clients, err := ParseOAuthClients(cfg.YouTube.ClientsJSON.Unmask())
	if err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "invalid YOUTUBE_OAUTH_CLIENTS",
			Err:     err,
		}
	}
	for i := range clients {
		if err := validate.Struct(clients[i]); err != nil {
			return nil, &ConfigError{
				Type:    ErrValidation,
				Message: fmt.Sprintf("OAuth client #%d is incomplete", i),
				Err:     err,
			}
		}
	}
	cfg.OAuthClients = clients

	key, err := decodeKey(cfg.Connect.CredentialKeyB64.Unmask())
	if err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "invalid CREDENTIAL_KEY",
			Err:     err,
		}
	}
	cfg.CredentialKey = key

	if _, err := time.LoadLocation(cfg.Ledger.Timezone); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "invalid USAGE_TIMEZONE",
			Err:     err,
		}
	}

	return &cfg, nil
}

// decodeKey accepts standard or URL-safe base64 and requires exactly 32 bytes.
func decodeKey(s string) ([32]byte, error) {
	var key [32]byte
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		raw, err = base64.RawURLEncoding.DecodeString(s)
		if err != nil {
			return key, fmt.Errorf("not valid base64: %w", err)
		}
	}
	if len(raw) != len(key) {
		return key, fmt.Errorf("decoded key is %d bytes, want %d", len(raw), len(key))
	}
	copy(key[:], raw)
	return key, nil
}
