// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package engine drives the client side of the vault: the decrypted
// record set, its local mutations, and the optimistic-concurrency sync
// loop against the server.
//
// Core concepts:
//   - Engine: the unlocked vault session. Holds the record set and the
//     data key in memory, tracks a sync status machine
//     (idle → dirty → syncing → {idle | conflict | dirty}), and owns
//     the timers that push changes and lock an idle vault.
//   - Event: status/version change notifications for interactive
//     frontends, delivered over Subscribe channels.
//
// All server and disk I/O goes through the injected adapter and cache
// interfaces; the engine itself never sees plaintext outside process
// memory and never sends it anywhere.
package engine

import (
	"context"

	"github.com/MKhiriev/go-otp-vault/internal/crypto"
	"github.com/MKhiriev/go-otp-vault/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/engine_mock.go -package=mock

// Event describes a change of the engine's observable state. Emitted
// whenever the status or the vault version moves, and when the engine
// locks or unlocks (the idle timer locks without any caller involved,
// so frontends need the wake-up).
type Event struct {
	Status  models.SyncStatus
	Version int64
	Locked  bool
}

// Engine is an unlocked vault session bound to one identity.
//
// Implementations are safe for concurrent use. Mutations are purely
// local and never fail on network state; synchronization happens in
// the background (debounced after mutations, periodic via the caller)
// or explicitly through Sync.
type Engine interface {

	// Unlock opens the vault for the given identity with a derived data
	// key: cached ciphertext is decrypted into memory and a best-effort
	// server refresh runs. A wrong key fails with ErrDecryptionFailed
	// and the engine stays locked. Returning ErrReauthRequired means
	// the unlock succeeded on local data but the server copy is
	// unreadable with this key (credentials rotated elsewhere).
	Unlock(ctx context.Context, identity string, key *crypto.DataKey) error

	// Lock wipes the data key and stops the background timers. Unpushed
	// changes stay in memory and survive a later Unlock with the same
	// identity and key.
	Lock()

	// Locked reports whether the engine currently holds a usable data key.
	Locked() bool

	// Add validates a draft record, assigns it an ID and timestamps,
	// and stores it. The completed record is returned.
	Add(ctx context.Context, draft models.Record) (models.Record, error)

	// Update replaces an existing live record's editable fields.
	// Returns ErrRecordNotFound for unknown or deleted IDs.
	Update(ctx context.Context, record models.Record) error

	// Delete tombstones a record and clears its secret material.
	// Deleting an already-deleted record is a no-op.
	Delete(ctx context.Context, id string) error

	// Records returns the live (non-tombstoned) records in creation order.
	Records(ctx context.Context) ([]models.Record, error)

	// Get returns a single live record by ID.
	Get(ctx context.Context, id string) (models.Record, error)

	// Sync runs one synchronization cycle right now: a push cycle when
	// local changes are pending, otherwise a refresh pull. Concurrent
	// calls coalesce into the in-flight cycle.
	Sync(ctx context.Context) error

	// Status returns the current sync status.
	Status() models.SyncStatus

	// Version returns the last server vault version this engine adopted.
	Version() int64

	// Subscribe returns a channel of status/version events. The channel
	// is buffered and never blocks the engine: events overflow silently
	// when the consumer lags, so treat them as wake-ups and read the
	// authoritative state through Status and Version.
	Subscribe() <-chan Event

	// Close locks the engine and releases its timers. The engine is not
	// usable afterwards.
	Close()
}
