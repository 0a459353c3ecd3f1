package config

import (
	"errors"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// DefaultServer is proposed when neither a single server nor a history entry exists
const DefaultServer = "https://demo.kinto-storage.org/v1"

// Config holds all configuration for the auth module.
type Config struct {
	// Secret used to sign console tokens and to derive the sealing key
	SecretKey  string        `env:"CONSOLE_SECRET_KEY,required"`
	JWTIssuer  string        `env:"JWT_ISSUER" envDefault:"kinto-admin-console"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// Servers
	DefaultServer string `env:"KINTO_DEFAULT_SERVER" envDefault:"https://demo.kinto-storage.org/v1"`
	SingleServer  string `env:"KINTO_SINGLE_SERVER"`
	ConsoleURL    string `env:"CONSOLE_PUBLIC_URL" envDefault:"http://localhost:3000"`

	// Cookie Configuration
	CookieName     string `env:"COOKIE_NAME" envDefault:"kinto_admin_session"`
	CookiePath     string `env:"COOKIE_PATH" envDefault:"/"`
	CookieDomain   string `env:"COOKIE_DOMAIN" envDefault:""`
	CookieSecure   bool   `env:"COOKIE_SECURE" envDefault:"false"`
	CookieHTTPOnly bool   `env:"COOKIE_HTTP_ONLY" envDefault:"true"`
	CookieSameSite string `env:"COOKIE_SAME_SITE" envDefault:"Lax"`
}

// DefaultConfig returns a configuration usable in tests and local runs
func DefaultConfig() *Config {
	return &Config{
		SecretKey:      "development-secret-key-change-me-please",
		JWTIssuer:      "kinto-admin-console",
		SessionTTL:     24 * time.Hour,
		DefaultServer:  DefaultServer,
		ConsoleURL:     "http://localhost:3000",
		CookieName:     "kinto_admin_session",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	}
}

// LoadConfig loads configuration from environment variables and applies defaults.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load configuration from environment: " + err.Error() +
			". Please ensure all required environment variables are set.")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks and normalizes the configuration
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return errors.New("console_secret_key is required")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session_ttl must be positive")
	}

	switch strings.ToLower(c.CookieSameSite) {
	case "lax":
		c.CookieSameSite = "Lax"
	case "strict":
		c.CookieSameSite = "Strict"
	case "none":
		c.CookieSameSite = "None"
	default:
		return errors.New("cookie_same_site must be one of 'Lax', 'Strict', or 'None'")
	}

	c.ConsoleURL = strings.TrimRight(c.ConsoleURL, "/")
	if c.DefaultServer == "" {
		c.DefaultServer = DefaultServer
	}
	return nil
}
