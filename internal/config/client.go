package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v10"
)

// Failure policies for a failed exchange in the chat client.
const (
	FailureAppendApology      = "append"
	FailureReplacePlaceholder = "replace"
)

// ClientConfig configures the chat client binaries.
type ClientConfig struct {
	ServerURL     string `env:"CHAT_SERVER_URL" envDefault:"http://localhost:8080"`
	RelayPath     string `env:"CHAT_RELAY_PATH" envDefault:"/api/chat"`
	PublicAPIKey  string `env:"CHAT_PUBLIC_API_KEY"`
	AuthToken     string `env:"CHAT_AUTH_TOKEN"`
	TokenURL      string `env:"CHAT_TOKEN_URL"`
	ClientID      string `env:"CHAT_CLIENT_ID" envDefault:"support-chat"`
	Username      string `env:"CHAT_USERNAME"`
	Password      string `env:"CHAT_PASSWORD"`
	FailurePolicy string `env:"CHAT_FAILURE_POLICY" envDefault:"append"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"CHAT_LOG_FILE" envDefault:"support-chat.log"`
}

// LoadClient parses environment variables into ClientConfig.
func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.ServerURL = strings.TrimRight(strings.TrimSpace(cfg.ServerURL), "/")
	if _, err := url.ParseRequestURI(cfg.ServerURL); err != nil {
		return nil, fmt.Errorf("invalid CHAT_SERVER_URL: %w", err)
	}
	if cfg.TokenURL != "" {
		if _, err := url.ParseRequestURI(cfg.TokenURL); err != nil {
			return nil, fmt.Errorf("invalid CHAT_TOKEN_URL: %w", err)
		}
	}

	cfg.FailurePolicy = strings.ToLower(strings.TrimSpace(cfg.FailurePolicy))
	switch cfg.FailurePolicy {
	case FailureAppendApology, FailureReplacePlaceholder:
	default:
		return nil, fmt.Errorf("unsupported CHAT_FAILURE_POLICY %q", cfg.FailurePolicy)
	}
	return cfg, nil
}

// HasPasswordGrant reports whether credentials for an OIDC password grant are present.
func (c *ClientConfig) HasPasswordGrant() bool {
	return c.TokenURL != "" && c.Username != ""
}
