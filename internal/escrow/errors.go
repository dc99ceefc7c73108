package escrow

import "errors"

// Sentinel errors for the escrow path. Callers must treat both as a
// signal to fall back to manual master-secret entry, never as fatal.
var (
	// ErrNotEnrolled is returned when quick unlock was never enabled on
	// this device, or was enabled for a different identity.
	ErrNotEnrolled = errors.New("quick unlock not enrolled on this device")

	// ErrEscrowUnavailable is returned when the OS keychain cannot serve
	// the stored credential: unsupported platform, locked keychain, user
	// cancellation, or a corrupted escrow blob.
	ErrEscrowUnavailable = errors.New("escrow unavailable")
)
