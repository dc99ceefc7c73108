package config

import (
	"fmt"
	"time"
)

// ClientApp holds client-side application settings derived from the shared
// structured config.
type ClientApp struct {
	// KDFIterations is the PBKDF2 cost used when registering a new identity.
	KDFIterations int
	// Version is the client build version shown to the user.
	Version string
}

// ClientAdapter holds network settings used by the client transport layer.
type ClientAdapter struct {
	// HTTPAddress is the vault server address the client connects to.
	HTTPAddress string
	// RequestTimeout is the default timeout for outbound client requests.
	RequestTimeout time.Duration
}

// ClientCache holds the local vault cache settings for the client.
type ClientCache struct {
	// Path is the SQLite file backing the local vault cache.
	Path string
}

// ClientEscrow holds the hardware-bound unlock settings for the client.
type ClientEscrow struct {
	// StatePath is the JSON file holding the sealed master secret.
	StatePath string
}

// ClientStorage groups client storage backend settings.
type ClientStorage struct {
	// Cache holds local vault cache settings.
	Cache ClientCache
	// Escrow holds quick unlock state settings.
	Escrow ClientEscrow
}

// ClientWorkers contains client background job timing settings.
type ClientWorkers struct {
	// SyncInterval defines how often the client pulls the server vault.
	SyncInterval time.Duration
	// DebounceWindow is the quiet period after a local mutation before
	// the client pushes.
	DebounceWindow time.Duration
	// IdleLockAfter is the inactivity period after which the vault locks.
	IdleLockAfter time.Duration
}

// ClientConfig is the top-level client configuration assembled from
// [StructuredConfig].
type ClientConfig struct {
	// App contains application-level client settings.
	App ClientApp
	// Adapter contains client transport addresses and timeouts.
	Adapter ClientAdapter
	// Storage contains client storage settings.
	Storage ClientStorage
	// Workers contains background job settings.
	Workers ClientWorkers
}

// GetClientConfig builds and validates a client-specific config view from the
// merged structured configuration.
//
// It loads the base config via [GetStructuredConfig], maps only the fields
// relevant to the client runtime, and validates the resulting [ClientConfig].
func GetClientConfig() (*ClientConfig, error) {
	cfg, err := GetStructuredConfig()
	if err != nil {
		return nil, fmt.Errorf("error get structured config: %w", err)
	}

	clientCfg := &ClientConfig{
		App: ClientApp{
			KDFIterations: cfg.App.KDFIterations,
			Version:       cfg.App.Version,
		},
		Adapter: ClientAdapter{
			HTTPAddress:    cfg.Adapter.HTTPAddress,
			RequestTimeout: cfg.Adapter.RequestTimeout,
		},
		Storage: ClientStorage{
			Cache: ClientCache{
				Path: cfg.Storage.Cache.Path,
			},
			Escrow: ClientEscrow{
				StatePath: cfg.Storage.Escrow.StatePath,
			},
		},
		Workers: ClientWorkers{
			SyncInterval:   cfg.Workers.SyncInterval,
			DebounceWindow: cfg.Workers.DebounceWindow,
			IdleLockAfter:  cfg.Workers.IdleLockAfter,
		},
	}

	return clientCfg, clientCfg.validate()
}
