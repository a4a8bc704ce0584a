package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

// Config is the broker's process configuration, parsed from the environment.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	Store         StoreConfig         `envPrefix:"STORE_"`
	Token         TokenConfig         `envPrefix:"JWT_"`
	Federation    FederationConfig    `envPrefix:"FEDERATION_"`
	PasswordReset PasswordResetConfig `envPrefix:"PASSWORD_RESET_"`
}

// StoreConfig selects and configures the identity store backend.
type StoreConfig struct {
	Driver         string `env:"DRIVER"           envDefault:"file"`
	FilePath       string `env:"FILE_PATH"        envDefault:"data/identities.json"`
	ResetTokenPath string `env:"RESET_TOKEN_PATH" envDefault:"data/reset_tokens.json"`
	MongoURI       string `env:"MONGO_URI"`
	MongoDatabase  string `env:"MONGO_DATABASE"   envDefault:"identity_broker"`
}

// TokenConfig configures the token issuer. The signing key is the one secret
// every issuer instance must share.
type TokenConfig struct {
	SigningKey    string        `env:"SIGNING_KEY"`
	Issuer        string        `env:"ISSUER"          envDefault:"identity-broker"`
	Audience      string        `env:"AUDIENCE"        envDefault:"identity-broker"`
	ResetTokenTTL time.Duration `env:"RESET_TOKEN_TTL" envDefault:"30m"`
}

// FederationConfig selects and configures the federated identity provider.
type FederationConfig struct {
	Provider string        `env:"PROVIDER"  envDefault:"graph"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"4m"`

	Graph          GraphConfig `envPrefix:"GRAPH_"`
	GoogleClientID string      `env:"GOOGLE_CLIENT_ID"`
}

// GraphConfig holds the Microsoft Entra app registration used for the
// on-behalf-of exchange.
type GraphConfig struct {
	TenantID     string   `env:"TENANT_ID"`
	ClientID     string   `env:"CLIENT_ID"`
	ClientSecret string   `env:"CLIENT_SECRET"`
	Scopes       []string `env:"SCOPES" envDefault:"User.Read"`
}

// PasswordResetConfig gates the password reset flow, which additionally
// needs SMTP_* variables for the mailer.
type PasswordResetConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"false"`
	URL     string `env:"URL"`
}

// Load parses the configuration from environment variables. Invalid
// configuration is fatal: the broker must not come up without its signing
// key or with an unknown backend.
func Load(logger *zerolog.Logger) *Config {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse environment variables")
	}

	if err := cfg.validate(); err != nil {
		logger.Fatal().Err(err).Msg("failed to validate configuration")
	}

	return &cfg
}

func (c *Config) validate() error {
	if c.Token.SigningKey == "" {
		return fmt.Errorf("missing JWT_SIGNING_KEY environment variable")
	}

	switch c.Store.Driver {
	case "file":
	case "mongo":
		if c.Store.MongoURI == "" {
			return fmt.Errorf("missing STORE_MONGO_URI environment variable")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Federation.Provider {
	case "graph":
		if c.Federation.Graph.TenantID == "" || c.Federation.Graph.ClientID == "" {
			return fmt.Errorf("graph federation requires FEDERATION_GRAPH_TENANT_ID and FEDERATION_GRAPH_CLIENT_ID")
		}
	case "google":
		if c.Federation.GoogleClientID == "" {
			return fmt.Errorf("google federation requires FEDERATION_GOOGLE_CLIENT_ID")
		}
	default:
		return fmt.Errorf("unknown federation provider %q", c.Federation.Provider)
	}

	if c.PasswordReset.Enabled && c.PasswordReset.URL == "" {
		return fmt.Errorf("missing PASSWORD_RESET_URL environment variable")
	}

	return nil
}
