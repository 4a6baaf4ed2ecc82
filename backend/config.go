package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

const (
	envPrefix     = "CAMPUS_"
	configFileEnv = "CAMPUS_CONFIG"
)

// Config is the process configuration of the backend.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `koanf:"addr"`

	// DatabaseURL is the Postgres DSN. Ignored when MemoryStore is set.
	DatabaseURL string `koanf:"database_url"`

	// MemoryStore keeps everything in process; handy for local frontend work.
	MemoryStore bool `koanf:"memory_store"`

	// Migrate creates the schema on startup.
	Migrate bool `koanf:"migrate"`

	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`

	// AllowedEmailDomain restricts registration, e.g. "thapar.edu".
	// Empty allows any domain.
	AllowedEmailDomain string `koanf:"allowed_email_domain"`

	// CORSOrigins lists allowed origins; "*" allows all.
	CORSOrigins []string `koanf:"cors_origins"`

	LogLevel string `koanf:"log_level"`
	LogJSON  bool   `koanf:"log_json"`
}

// DefaultConfig returns the development defaults.
func DefaultConfig() Config {
	return Config{
		Addr:               ":5001",
		DatabaseURL:        "user=admin password=password dbname=campusconnect sslmode=disable",
		Migrate:            true,
		JWTSecret:          "your_secret_key_please_change_in_production",
		TokenTTL:           24 * time.Hour,
		AllowedEmailDomain: "thapar.edu",
		CORSOrigins:        []string{"*"},
		LogLevel:           "info",
	}
}

// LoadConfig layers, from low to high precedence: defaults, the YAML file
// named by CAMPUS_CONFIG, and CAMPUS_* environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	k := koanf.New(".")

	if path := os.Getenv(configFileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// CAMPUS_JWT_SECRET -> jwt_secret
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields the server cannot run without.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.JWTSecret == "":
		return fmt.Errorf("%w: jwt_secret must not be empty", ErrInvalidConfig)
	case c.TokenTTL <= 0:
		return fmt.Errorf("%w: token_ttl must be positive", ErrInvalidConfig)
	case !c.MemoryStore && c.DatabaseURL == "":
		return fmt.Errorf("%w: database_url is required unless memory_store is set", ErrInvalidConfig)
	}
	return nil
}
