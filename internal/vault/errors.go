package vault

import "errors"

// Sentinel errors of the vault codec.
// Callers must match them with [errors.Is].
var (
	// ErrDecryptionFailed is returned whenever a vault blob cannot be
	// decrypted, deliberately without saying why. A wrong key, a flipped
	// ciphertext bit, and a malformed container all produce this same
	// error, so nothing downstream can turn the codec into an oracle.
	ErrDecryptionFailed = errors.New("vault decryption failed")

	// ErrRecoveryUnwrapFailed is returned when a wrapped data key cannot
	// be unwrapped, typically because the recovery secret was mistyped.
	ErrRecoveryUnwrapFailed = errors.New("recovery key unwrap failed")
)
