package config

import (
	"fmt"
	"time"
)

// ServerApp holds server-side application settings derived from the shared
// structured config.
type ServerApp struct {
	// AuthHashKey is the HMAC key for auth token digests at rest.
	AuthHashKey string
	// ParamsKey is the HMAC key for deterministic decoy KDF parameters.
	ParamsKey string
	// TokenSignKey signs and verifies session JWTs.
	TokenSignKey string
	// TokenIssuer is the "iss" claim of issued session JWTs.
	TokenIssuer string
	// TokenDuration is the session JWT lifetime.
	TokenDuration time.Duration
	// Version is the build version reported by /api/version/.
	Version string
}

// ServerStorage groups server storage backend settings.
type ServerStorage struct {
	// DB holds the relational database settings.
	DB DB
}

// ServerConfig is the top-level server configuration assembled from
// [StructuredConfig].
type ServerConfig struct {
	// App contains application-level server settings.
	App ServerApp
	// Server contains listen addresses and timeouts.
	Server Server
	// Storage contains server storage settings.
	Storage ServerStorage
}

// GetServerConfig builds and validates a server-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the server runtime, and validates the resulting [ServerConfig].
func GetServerConfig() (*ServerConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	serverCfg := &ServerConfig{
		App: ServerApp{
			AuthHashKey:   cfg.App.AuthHashKey,
			ParamsKey:     cfg.App.ParamsKey,
			TokenSignKey:  cfg.App.TokenSignKey,
			TokenIssuer:   cfg.App.TokenIssuer,
			TokenDuration: cfg.App.TokenDuration,
			Version:       cfg.App.Version,
		},
		Server: cfg.Server,
		Storage: ServerStorage{
			DB: cfg.Storage.DB,
		},
	}

	return serverCfg, serverCfg.validate()
}
