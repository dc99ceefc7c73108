// Package service implements the server-side application logic between the
// HTTP handlers and the storage layer: account lifecycle, session tokens,
// conditional vault writes, and the recovery flow.
//
// The server holds no decryption capability. Every secret that reaches this
// package is already a derived token; the services hash those with a server
// key before storage and compare digests on the way back in.
package service

import (
	"context"

	"github.com/MKhiriev/go-otp-vault/models"
)

// AuthService handles account registration, login verification, KDF
// parameter lookup, and the JWT session lifecycle.
type AuthService interface {
	// RegisterUser creates a new account together with its initial vault.
	RegisterUser(ctx context.Context, request models.RegisterRequest) (models.User, error)

	// Login verifies the supplied authentication token against the stored
	// digest and returns the account on success.
	Login(ctx context.Context, request models.LoginRequest) (models.User, error)

	// Params returns the public KDF parameters for an identity. Unknown
	// identities receive a deterministic fabricated set, so the response
	// never reveals whether the account exists.
	Params(ctx context.Context, request models.ParamsRequest) (models.AuthParams, error)

	// CreateToken issues a signed session JWT for the user, carrying the
	// account's current token epoch.
	CreateToken(ctx context.Context, user models.User) (models.Token, error)

	// ParseToken validates a raw JWT string and returns the decoded token.
	ParseToken(ctx context.Context, tokenString string) (models.Token, error)

	// VerifySession checks a parsed token against the current account
	// state: a token minted under an older epoch is revoked.
	VerifySession(ctx context.Context, token models.Token) error
}

// VaultService serves the encrypted vault blob: unconditional downloads and
// version-guarded uploads.
type VaultService interface {
	// Download returns the account's vault state. An account that has no
	// vault row yet gets an empty state with version 0.
	Download(ctx context.Context, userID int64) (models.VaultState, error)

	// Upload applies a conditional write. A request with base version 0
	// creates the vault row; any other version must match the stored one.
	Upload(ctx context.Context, userID int64, put models.VaultPutRequest) (models.VaultPutResponse, error)
}

// RecoveryService implements the disaster-recovery flow: handing out the
// recovery bundle and performing the atomic credentials reset.
type RecoveryService interface {
	// Lookup returns the material needed to attempt recovery offline.
	// Identities without a recoverable account receive a deterministic
	// fabricated bundle.
	Lookup(ctx context.Context, request models.RecoveryLookupRequest) (models.RecoveryLookupResponse, error)

	// Reset verifies possession of the recovery secret and atomically
	// replaces the account's credentials and vault, revoking all sessions.
	Reset(ctx context.Context, request models.RecoveryResetRequest) (models.User, error)
}

// AppInfoService exposes build metadata of the running server.
type AppInfoService interface {
	GetAppVersion(ctx context.Context) string
}
