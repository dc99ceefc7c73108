package engine

import "errors"

var (
	// ErrVaultLocked is returned by every operation that needs the data
	// key while the engine is locked. Callers unlock first, retry after.
	ErrVaultLocked = errors.New("vault is locked")

	// ErrReauthRequired means the server no longer accepts this session
	// or this data key: the account credentials were rotated, most
	// likely by a recovery reset on another device. Local state is kept
	// so nothing is lost, but syncing is impossible until the user
	// signs in again with the current password.
	ErrReauthRequired = errors.New("re-authentication required")

	// ErrRecordNotFound is returned when an operation targets a record
	// ID that does not exist in the vault, or that only exists as a
	// tombstone.
	ErrRecordNotFound = errors.New("record not found in vault")

	// ErrSyncRetriesExhausted is returned when the conflict cycle hit
	// its retry cap without the server accepting a write. The engine
	// stays dirty and the next sync starts the cycle over.
	ErrSyncRetriesExhausted = errors.New("sync retries exhausted")
)
