package models

// RegisterRequest creates a new account. All cryptographic material in
// it is either public (salts, iteration count) or already derived on
// the client (tokens, verifier, ciphertext); the master password and
// the data key never appear on the wire.
type RegisterRequest struct {
	// Identity is the unique account identifier, typically an e-mail.
	Identity string `json:"identity"`

	// AuthToken is the hex-encoded login authentication token derived
	// from the master password and LoginSalt.
	AuthToken string `json:"auth_token"`

	// LoginSalt and DataSalt are the client-generated base64-encoded
	// salts the account's keys are derived with.
	LoginSalt string `json:"login_salt"`
	DataSalt  string `json:"data_salt"`

	// KDFIterations is the PBKDF2 iteration count chosen by the client.
	// The server enforces its configured floor.
	KDFIterations int `json:"kdf_iterations"`

	// RecoveryVerifier is the hex-encoded verifier derived from the
	// generated recovery secret. Optional; empty disables recovery.
	RecoveryVerifier string `json:"recovery_verifier,omitempty"`

	// Blob is the initial encrypted vault (usually an empty record set).
	Blob string `json:"blob"`

	// WrappedRecoveryKey is the data key wrapped under the recovery key,
	// base64-encoded. Optional, paired with RecoveryVerifier.
	WrappedRecoveryKey string `json:"wrapped_recovery_key,omitempty"`
}

// LoginRequest opens a session for an existing account.
type LoginRequest struct {
	// Identity is the account identifier.
	Identity string `json:"identity"`

	// AuthToken is the hex-encoded login authentication token.
	AuthToken string `json:"auth_token"`
}

// ParamsRequest asks for the public KDF parameters of an account so the
// client can derive its keys before authenticating.
type ParamsRequest struct {
	// Identity is the account identifier to look up.
	Identity string `json:"identity"`
}
