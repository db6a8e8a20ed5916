package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config aggregates every setting the service needs. The four tokens are
// shared secrets with the messaging platform and the NLU engine; startup
// fails when any of them is missing.
type Config struct {
	Port int `env:"PORT" envDefault:"8080"`

	// Messaging platform credentials.
	PageAccessToken string `env:"FB_PAGE_ACCESS_TOKEN,required,notEmpty"`
	AppSecret       string `env:"FB_APP_SECRET,required,notEmpty"`
	VerifyToken     string `env:"FB_VERIFY_TOKEN,required,notEmpty"`

	// NLU engine credential.
	NLUAccessToken string `env:"NLU_ACCESS_TOKEN,required,notEmpty"`

	// Optional endpoint overrides, used in tests and for self-hosted
	// engine deployments.
	GraphBaseURL string `env:"FB_GRAPH_BASE_URL" envDefault:"https://graph.facebook.com/v2.6"`
	NLUBaseURL   string `env:"NLU_BASE_URL" envDefault:"https://api.wit.ai"`

	// DatabaseURL enables the Postgres bot store; when empty the service
	// falls back to an in-memory store.
	DatabaseURL string `env:"DATABASE_URL"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
