package models

import "time"

// User represents a vault account as stored on the server.
// The server never sees the master password or any encryption key:
// it keeps only public KDF parameters and keyed hashes of the
// authentication tokens derived from them on the client.
type User struct {
	// UserID is the internal unique identifier of the user.
	// It is not exposed via JSON and is used only at the persistence layer.
	UserID int64 `json:"-"`

	// Identity is the unique account identifier chosen at registration,
	// typically an e-mail address. Used during authentication and recovery.
	Identity string `json:"identity"`

	// LoginSalt is the base64-encoded salt for deriving the login
	// authentication token. Non-secret; returned to any caller asking
	// for the account's KDF parameters.
	LoginSalt string `json:"login_salt"`

	// DataSalt is the base64-encoded salt for deriving the data
	// encryption key. Non-secret, but the key derived from it never
	// leaves the client.
	DataSalt string `json:"data_salt"`

	// KDFIterations is the PBKDF2 iteration count the client must use
	// with both salts. Stored per account so it can be raised over time.
	KDFIterations int `json:"kdf_iterations"`

	// AuthHash is the keyed hash of the login authentication token.
	// This value MUST be a hash of a derived value, never the master
	// password itself. It is used only to verify login attempts.
	AuthHash string `json:"-"`

	// RecoveryHash is the keyed hash of the recovery verifier derived
	// from the recovery secret. Empty when recovery was never set up.
	RecoveryHash string `json:"-"`

	// TokenEpoch is bumped on every recovery reset. Sessions issued
	// under an older epoch are rejected, which revokes all tokens that
	// predate the reset.
	TokenEpoch int64 `json:"-"`

	// CreatedAt is the timestamp when the account was created.
	// Used for auditing and lifecycle management.
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the name of the database table
// associated with the User model.
func (u User) TableName() string {
	return "users"
}

// AuthParams is the public subset of account parameters a client needs
// before it can derive keys: the salts and the iteration count.
// For unknown identities the server fabricates a deterministic fake
// set so the response never reveals whether an account exists.
type AuthParams struct {
	// LoginSalt is the base64-encoded salt for the login token KDF.
	LoginSalt string `json:"login_salt"`

	// DataSalt is the base64-encoded salt for the data key KDF.
	DataSalt string `json:"data_salt"`

	// KDFIterations is the PBKDF2 iteration count for both derivations.
	KDFIterations int `json:"kdf_iterations"`
}
