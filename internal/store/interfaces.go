// Package store implements the server's PostgreSQL persistence layer:
// account records and the per-account encrypted vault row. Everything it
// stores is either public KDF material or ciphertext; plaintext vault
// content and raw authentication tokens never reach this package.
package store

import (
	"context"

	"github.com/MKhiriev/go-otp-vault/models"
)

// UserRepository persists account records and owns the two cross-table
// transactions of the account lifecycle: registration (user + initial
// vault) and credentials reset (user + re-encrypted vault).
//
// All hashes in the passed models must already be keyed digests; the
// repository stores what it is given.
type UserRepository interface {
	// CreateUser inserts the account and its initial vault row (version 1)
	// in one transaction. Returns the user with server-assigned fields
	// populated, or ErrIdentityAlreadyExists when the identity is taken.
	CreateUser(ctx context.Context, user models.User, vault models.VaultState) (models.User, error)

	// FindUserByIdentity returns the account for the given identity, or
	// ErrNoUserWasFound.
	FindUserByIdentity(ctx context.Context, identity string) (models.User, error)

	// FindUserByID returns the account for the given internal id, or
	// ErrNoUserWasFound. Used by the auth middleware for the token epoch
	// check on every authenticated request.
	FindUserByID(ctx context.Context, userID int64) (models.User, error)

	// ResetCredentials replaces the account's credential fields with
	// those of user, bumps its token epoch, and swaps in the re-encrypted
	// vault, all in one transaction. Returns the updated account with the
	// new epoch populated.
	ResetCredentials(ctx context.Context, user models.User, vault models.VaultState) (models.User, error)
}

// VaultRepository reads and conditionally writes the per-account vault row.
type VaultRepository interface {
	// GetVault returns the account's vault row, or ErrVaultNotFound when
	// the account has never uploaded one.
	GetVault(ctx context.Context, userID int64) (models.VaultState, error)

	// CreateVault inserts the first vault row at version 1. Returns
	// ErrVersionConflict when a row already exists, since the caller's
	// base version 0 is then stale.
	CreateVault(ctx context.Context, userID int64, put models.VaultPutRequest) (int64, error)

	// UpdateVault replaces the blob only if the stored version still
	// equals put.Version, and returns the new version. Returns
	// ErrVersionConflict on a version mismatch and ErrVaultNotFound when
	// no row exists.
	UpdateVault(ctx context.Context, userID int64, put models.VaultPutRequest) (int64, error)
}

// ErrorClassificator decides whether a failed database operation is worth
// retrying.
type ErrorClassificator interface {
	Classify(err error) ErrorClassification
}
