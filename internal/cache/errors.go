package cache

import "errors"

// Sentinel errors returned by cache methods. Callers should use
// [errors.Is] to match against these values.
var (
	// ErrCacheMiss is returned when the requested row has never been
	// written on this device, either because this is a fresh install
	// or because EraseAll ran since the last write.
	ErrCacheMiss = errors.New("not cached on this device")

	// ErrBeginningTransaction is returned when the database driver
	// cannot start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open
	// transaction fails. The transaction is considered rolled back
	// at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")
)
