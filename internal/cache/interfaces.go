// Package cache persists the encrypted vault and the account's public
// KDF parameters on the local device, which is what lets the client
// unlock and read records while offline. Everything stored here is
// ciphertext or non-secret data: a stolen cache file gives an attacker
// exactly what a stolen server row would.
package cache

import (
	"context"

	"github.com/MKhiriev/go-otp-vault/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/vault_cache_mock.go -package=mock

// VaultCache is the device-local persistence layer for vault state.
// Rows are keyed by account identity; writes overwrite wholesale.
type VaultCache interface {
	// SaveVault replaces the cached encrypted vault for the identity.
	SaveVault(ctx context.Context, identity string, state models.VaultState) error

	// LoadVault returns the cached encrypted vault for the identity.
	// Returns ErrCacheMiss when no vault has been cached on this device.
	LoadVault(ctx context.Context, identity string) (models.VaultState, error)

	// SaveAuthParams replaces the cached KDF parameters for the identity.
	SaveAuthParams(ctx context.Context, identity string, params models.AuthParams) error

	// LoadAuthParams returns the cached KDF parameters for the identity.
	// Returns ErrCacheMiss when the parameters were never cached.
	LoadAuthParams(ctx context.Context, identity string) (models.AuthParams, error)

	// EraseAll removes every cached row for every identity. Called on
	// logout and after a recovery reset makes local state unusable.
	EraseAll(ctx context.Context) error

	// Close releases the underlying database handle.
	Close() error
}
