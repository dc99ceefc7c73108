package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/MKhiriev/go-otp-vault/internal/crypto"
)

// appDirName is the directory under the user config dir that holds all
// client-side state (vault cache, escrow file).
const appDirName = "go-otp-vault"

// defaultConfig returns the built-in defaults. Secrets (sign keys, hash
// keys, DSN) deliberately have no defaults; they must come from the
// environment, flags, or the JSON file.
func defaultConfig() *StructuredConfig {
	stateDir := defaultStateDir()

	return &StructuredConfig{
		App: App{
			TokenIssuer:   "go-otp-vault",
			TokenDuration: 24 * time.Hour,
			KDFIterations: crypto.MinKDFIterations,
		},
		Storage: Storage{
			Cache: Cache{
				Path: filepath.Join(stateDir, "cache.db"),
			},
			Escrow: Escrow{
				StatePath: filepath.Join(stateDir, "escrow.json"),
			},
		},
		Server: Server{
			HTTPAddress:    "localhost:8080",
			GRPCAddress:    "localhost:9090",
			RequestTimeout: 30 * time.Second,
		},
		Adapter: Adapter{
			HTTPAddress:    "http://localhost:8080",
			RequestTimeout: 15 * time.Second,
		},
		Workers: Workers{
			SyncInterval:   5 * time.Minute,
			DebounceWindow: 3 * time.Second,
			IdleLockAfter:  5 * time.Minute,
		},
	}
}

// defaultStateDir resolves the per-user client state directory. When the OS
// config dir cannot be determined the app directory is used relative to the
// working directory.
func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return appDirName
	}
	return filepath.Join(dir, appDirName)
}
