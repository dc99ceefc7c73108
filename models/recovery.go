package models

// RecoveryLookupRequest asks for the material needed to start account
// recovery. It is an unauthenticated call: possession of the recovery
// secret, not a session, is what the subsequent reset will prove.
type RecoveryLookupRequest struct {
	// Identity is the account identifier to recover.
	Identity string `json:"identity"`
}

// RecoveryLookupResponse carries everything a client needs to attempt
// recovery offline: the encrypted vault, the wrapped data key, and the
// KDF parameters for deriving the recovery key from the recovery secret.
//
// For unknown identities the server returns a deterministic fake
// response instead of an error, so the endpoint cannot be used to
// probe which accounts exist.
type RecoveryLookupResponse struct {
	// Blob is the encrypted vault in its transport encoding.
	Blob string `json:"blob"`

	// WrappedRecoveryKey is the data encryption key wrapped under the
	// recovery key, base64-encoded.
	WrappedRecoveryKey string `json:"wrapped_recovery_key"`

	// LoginSalt is the base64-encoded salt for deriving the recovery
	// authentication token from the recovery secret.
	LoginSalt string `json:"login_salt"`

	// DataSalt is the base64-encoded salt for deriving the recovery key
	// from the recovery secret.
	DataSalt string `json:"data_salt"`

	// KDFIterations is the PBKDF2 iteration count for both derivations.
	KDFIterations int `json:"kdf_iterations"`
}

// RecoveryResetRequest replaces an account's credentials after the
// client has proven possession of the recovery secret and re-encrypted
// the vault under a new master password.
//
// The server applies all fields in a single transaction and bumps the
// account's token epoch, so the reset either fully happens or not at
// all, and every session issued before it becomes invalid.
type RecoveryResetRequest struct {
	// Identity is the account being reset.
	Identity string `json:"identity"`

	// RecoveryAuthToken proves possession of the recovery secret:
	// hex-encoded PBKDF2 of the recovery secret and the login salt.
	RecoveryAuthToken string `json:"recovery_auth_token"`

	// AuthToken is the login authentication token derived from the new
	// master password and the new login salt.
	AuthToken string `json:"auth_token"`

	// LoginSalt and DataSalt are the fresh base64-encoded salts
	// generated for the new master password.
	LoginSalt string `json:"login_salt"`
	DataSalt  string `json:"data_salt"`

	// KDFIterations is the iteration count used with the new salts.
	KDFIterations int `json:"kdf_iterations"`

	// RecoveryVerifier is the verifier for the freshly rotated recovery
	// secret, hex-encoded.
	RecoveryVerifier string `json:"recovery_verifier"`

	// Blob is the vault re-encrypted under the new data encryption key.
	Blob string `json:"blob"`

	// WrappedRecoveryKey is the new data key wrapped under the rotated
	// recovery key, base64-encoded.
	WrappedRecoveryKey string `json:"wrapped_recovery_key"`
}
