package client

import "errors"

// Sentinel errors of the session flows. The command layer matches them
// with [errors.Is] to pick user-facing wording.
var (
	// ErrEmptyCredentials is returned when a flow is started without an
	// identity or a password.
	ErrEmptyCredentials = errors.New("identity and password must not be empty")

	// ErrParamsUnavailable is returned by Login when the server cannot be
	// reached and this device has no cached KDF parameters, so there is
	// nothing to derive keys from. First login for an account always
	// needs connectivity.
	ErrParamsUnavailable = errors.New("key derivation parameters unavailable")

	// ErrWrongPassword is returned when a password fails verification
	// against the locally cached vault ciphertext.
	ErrWrongPassword = errors.New("password does not open this vault")

	// ErrNoSession is returned by operations that need a logged-in
	// session when none is active.
	ErrNoSession = errors.New("no active session")
)
