package models

import "time"

// VaultState is the server-side vault row for one account and the body
// of a successful vault download. The server treats the blob as opaque
// ciphertext; every field here is safe to store and transmit in the open.
type VaultState struct {
	// Blob is the encrypted vault in its transport encoding
	// ("v=1;iv=<base64>;ct=<base64>"). Empty when the account has not
	// uploaded a vault yet.
	Blob string `json:"blob"`

	// Version is the optimistic-concurrency counter. Zero means no vault
	// exists yet; every accepted write increments it by exactly one.
	Version int64 `json:"version"`

	// UpdatedAt is the server timestamp of the last accepted write.
	// Informational only; conflict detection uses Version.
	UpdatedAt time.Time `json:"updated_at"`

	// WrappedRecoveryKey is the data encryption key wrapped under the
	// recovery key, base64-encoded. Empty when recovery was never set up.
	WrappedRecoveryKey string `json:"wrapped_recovery_key,omitempty"`
}

// Exists reports whether the account has an uploaded vault.
func (v VaultState) Exists() bool {
	return v.Version > 0
}

// VaultPutRequest is a conditional vault upload.
// Version carries the version the client based its write on; the server
// accepts the blob only if that is still the current version.
type VaultPutRequest struct {
	// Blob is the new encrypted vault in its transport encoding.
	Blob string `json:"blob"`

	// Version is the version this write supersedes. Must be 0 when
	// creating the vault for the first time.
	Version int64 `json:"version"`

	// WrappedRecoveryKey optionally replaces the stored recovery-wrapped
	// data key together with the blob (set on registration and rotation).
	WrappedRecoveryKey string `json:"wrapped_recovery_key,omitempty"`
}

// VaultPutResponse reports the version assigned to an accepted write.
type VaultPutResponse struct {
	// Version is the new current version, always request version + 1.
	Version int64 `json:"version"`
}
