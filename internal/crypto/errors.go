package crypto

import "errors"

// Sentinel errors of the key material layer.
// Callers must match them with [errors.Is]; all functions in this
// package wrap them with additional context before returning.
var (
	// ErrDerivationUnavailable is returned when a key derivation cannot
	// be performed with the given inputs (empty secret or salt,
	// non-positive iteration count).
	ErrDerivationUnavailable = errors.New("key derivation unavailable")

	// ErrKeyNotExportable is returned by [DataKey.Export] when the key
	// was derived without the exportable capability.
	ErrKeyNotExportable = errors.New("key is not exportable")

	// ErrKeyWiped is returned by any [DataKey] operation after Wipe has
	// destroyed the key material.
	ErrKeyWiped = errors.New("key material has been wiped")
)
