package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

type Config struct {
	APIBaseURL         string `mapstructure:"API_BASE_URL"`
	TokenFile          string `mapstructure:"TOKEN_FILE"`
	HTTPTimeoutSeconds int    `mapstructure:"HTTP_TIMEOUT_SECONDS"`
	Env                string `mapstructure:"ENV"`
}

// DefaultAPIBaseURL is used when API_BASE_URL is not supplied.
const DefaultAPIBaseURL = "https://api.medvault.health"

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("API_BASE_URL", DefaultAPIBaseURL)
	v.SetDefault("TOKEN_FILE", defaultTokenFile())
	v.SetDefault("HTTP_TIMEOUT_SECONDS", 30)
	v.SetDefault("ENV", "development")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("API_BASE_URL")
	v.BindEnv("TOKEN_FILE")
	v.BindEnv("HTTP_TIMEOUT_SECONDS")
	v.BindEnv("ENV")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is usable: the API base URL must be
// an absolute http(s) URL, the token file path must be non-empty, and the
// HTTP timeout must be positive.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("API_BASE_URL is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL must be an http(s) URL, got %q", c.APIBaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("API_BASE_URL must include a host, got %q", c.APIBaseURL)
	}
	if c.TokenFile == "" {
		return fmt.Errorf("TOKEN_FILE must not be empty")
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive, got %d", c.HTTPTimeoutSeconds)
	}
	return nil
}

// defaultTokenFile places the session token under the user's home directory,
// falling back to the working directory when home cannot be resolved.
func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".medvault/token"
	}
	return filepath.Join(home, ".medvault", "token")
}
