// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-otp-vault/internal/adapter"
	"github.com/MKhiriev/go-otp-vault/internal/crypto"
	"github.com/MKhiriev/go-otp-vault/internal/vault"
	"github.com/MKhiriev/go-otp-vault/models"
)

// syncSnapshot is everything one sync round works from, captured
// atomically under the engine mutex. The network round-trip then runs
// without holding any lock; seq tells adopt whether the engine moved
// on while the round was in flight.
type syncSnapshot struct {
	records models.RecordSet
	base    models.RecordSet
	version int64
	wrapped string
	key     *crypto.DataKey
	seq     uint64
}

func (e *vaultEngine) snapshot() (syncSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.key == nil || e.records == nil {
		return syncSnapshot{}, false
	}

	return syncSnapshot{
		records: e.records.Clone(),
		base:    e.base.Clone(),
		version: e.version,
		wrapped: e.wrapped,
		key:     e.key,
		seq:     e.mutSeq,
	}, true
}

func (e *vaultEngine) Sync(ctx context.Context) error {
	e.mu.Lock()
	if e.key == nil {
		e.mu.Unlock()
		return ErrVaultLocked
	}
	if e.syncing {
		// a cycle is in flight; it will notice changes made behind it
		e.mu.Unlock()
		return nil
	}
	e.syncing = true
	dirty := e.status == models.StatusDirty || e.status == models.StatusConflict
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.syncing = false
		e.mu.Unlock()
	}()

	if dirty {
		return e.pushCycle(ctx)
	}

	return e.refresh(ctx)
}

// pushCycle drives pending local changes to the server: snapshot,
// encrypt, conditional PUT at the snapshot's version. A version
// conflict switches to the merge path, and the whole round repeats
// with linear backoff until the server accepts a write or the retry
// cap is hit.
func (e *vaultEngine) pushCycle(ctx context.Context) error {
	for round := 0; round <= e.retryCap; round++ {
		if round > 0 {
			select {
			case <-ctx.Done():
				e.setStatus(models.StatusDirty)
				return ctx.Err()
			case <-time.After(time.Duration(round) * e.retryDelay):
			}
		}

		snap, ok := e.snapshot()
		if !ok {
			return ErrVaultLocked
		}
		e.setStatus(models.StatusSyncing)

		blob, err := vault.EncryptRecords(snap.records, snap.key)
		if err != nil {
			e.setStatus(models.StatusDirty)
			if snap.key.Wiped() {
				return ErrVaultLocked
			}
			return fmt.Errorf("encrypt for push: %w", err)
		}

		version, err := e.server.UploadVault(ctx, models.VaultPutRequest{
			Blob:               blob,
			Version:            snap.version,
			WrappedRecoveryKey: snap.wrapped,
		})
		if err == nil {
			e.adopt(ctx, snap.records, version, blob, snap.wrapped, snap.seq)
			e.logger.Debug().Int64("version", version).Msg("vault pushed")
			return nil
		}

		switch {
		case errors.Is(err, adapter.ErrVersionConflict), errors.Is(err, adapter.ErrPreconditionFailed):
			// another device wrote first; reconcile below
		case errors.Is(err, adapter.ErrNetworkUnavailable):
			e.setStatus(models.StatusDirty)
			return fmt.Errorf("push postponed: %w", err)
		case errors.Is(err, adapter.ErrUnauthorized), errors.Is(err, adapter.ErrForbidden):
			e.setStatus(models.StatusDirty)
			return fmt.Errorf("push rejected: %w", ErrReauthRequired)
		default:
			e.setStatus(models.StatusDirty)
			return fmt.Errorf("push vault: %w", err)
		}

		e.setStatus(models.StatusConflict)
		e.logger.Debug().Int64("version", snap.version).Msg("push conflicted, merging")

		settled, err := e.reconcile(ctx, snap)
		if err != nil {
			return err
		}
		if settled {
			return nil
		}
		// lost another race; the next round re-snapshots and goes again
	}

	e.setStatus(models.StatusDirty)

	return ErrSyncRetriesExhausted
}

// reconcile resolves one version conflict: fetch the winning remote
// state, three-way merge against the shared base, then either adopt
// the remote outright (the merge added nothing to it) or push the
// merged set at the remote's version. A false return with a nil error
// means the merged push lost yet another race and the caller should
// run a fresh round.
func (e *vaultEngine) reconcile(ctx context.Context, snap syncSnapshot) (bool, error) {
	remote, err := e.server.DownloadVault(ctx)
	if err != nil {
		e.setStatus(models.StatusDirty)
		switch {
		case errors.Is(err, adapter.ErrNetworkUnavailable):
			return false, fmt.Errorf("conflict fetch postponed: %w", err)
		case errors.Is(err, adapter.ErrUnauthorized), errors.Is(err, adapter.ErrForbidden):
			return false, fmt.Errorf("conflict fetch rejected: %w", ErrReauthRequired)
		default:
			return false, fmt.Errorf("download for merge: %w", err)
		}
	}

	remoteSet := models.NewRecordSet()
	if remote.Exists() {
		remoteSet, err = vault.DecryptRecords(remote.Blob, snap.key)
		if err != nil {
			e.setStatus(models.StatusDirty)
			if snap.key.Wiped() {
				return false, ErrVaultLocked
			}
			// the key no longer opens the server copy: credentials were
			// rotated on another device. Local changes stay put.
			return false, fmt.Errorf("remote vault unreadable: %w", ErrReauthRequired)
		}
	}

	merged, err := e.merger.Merge(ctx, snap.base, snap.records, remoteSet)
	if err != nil {
		e.setStatus(models.StatusDirty)
		return false, fmt.Errorf("merge vaults: %w", err)
	}

	if merged.Equal(remoteSet) {
		// everything local already lives in the remote copy: adopt its
		// ciphertext as-is, nothing to write
		e.adopt(ctx, merged, remote.Version, remote.Blob, remote.WrappedRecoveryKey, snap.seq)
		e.logger.Debug().Int64("version", remote.Version).Msg("conflict resolved by adoption")
		return true, nil
	}

	mergedBlob, err := vault.EncryptRecords(merged, snap.key)
	if err != nil {
		e.setStatus(models.StatusDirty)
		if snap.key.Wiped() {
			return false, ErrVaultLocked
		}
		return false, fmt.Errorf("encrypt merged vault: %w", err)
	}

	version, err := e.server.UploadVault(ctx, models.VaultPutRequest{
		Blob:               mergedBlob,
		Version:            remote.Version,
		WrappedRecoveryKey: snap.wrapped,
	})
	if err == nil {
		e.adopt(ctx, merged, version, mergedBlob, snap.wrapped, snap.seq)
		e.logger.Debug().Int64("version", version).Msg("conflict resolved by merge")
		return true, nil
	}

	switch {
	case errors.Is(err, adapter.ErrVersionConflict), errors.Is(err, adapter.ErrPreconditionFailed):
		return false, nil
	case errors.Is(err, adapter.ErrNetworkUnavailable):
		e.setStatus(models.StatusDirty)
		return false, fmt.Errorf("merged push postponed: %w", err)
	case errors.Is(err, adapter.ErrUnauthorized), errors.Is(err, adapter.ErrForbidden):
		e.setStatus(models.StatusDirty)
		return false, fmt.Errorf("merged push rejected: %w", ErrReauthRequired)
	default:
		e.setStatus(models.StatusDirty)
		return false, fmt.Errorf("push merged vault: %w", err)
	}
}

// refresh pulls the server state while the engine is clean. A moved
// version is adopted outright; local edits that land during the fetch
// are folded in by adopt.
func (e *vaultEngine) refresh(ctx context.Context) error {
	snap, ok := e.snapshot()
	if !ok {
		return ErrVaultLocked
	}

	remote, err := e.server.DownloadVault(ctx)
	if err != nil {
		switch {
		case errors.Is(err, adapter.ErrNetworkUnavailable):
			return fmt.Errorf("refresh postponed: %w", err)
		case errors.Is(err, adapter.ErrUnauthorized), errors.Is(err, adapter.ErrForbidden):
			return fmt.Errorf("refresh rejected: %w", ErrReauthRequired)
		default:
			return fmt.Errorf("download vault: %w", err)
		}
	}

	if !remote.Exists() {
		if snap.version > 0 || len(snap.records) > 0 {
			// the server lost or never had what this device considers
			// synced state; flag it so the next push re-creates the vault
			e.setStatus(models.StatusDirty)
			e.debounce.Reset()
		}
		return nil
	}

	if remote.Version == snap.version {
		// the server bumps the version on every write, so an equal
		// version means identical content
		return nil
	}

	remoteSet, err := vault.DecryptRecords(remote.Blob, snap.key)
	if err != nil {
		if snap.key.Wiped() {
			return ErrVaultLocked
		}
		return fmt.Errorf("remote vault unreadable: %w", ErrReauthRequired)
	}

	e.adopt(ctx, remoteSet, remote.Version, remote.Blob, remote.WrappedRecoveryKey, snap.seq)
	e.logger.Debug().Int64("version", remote.Version).Msg("adopted server vault")

	return nil
}

// adopt installs a reconciled state: set at version is what the server
// now holds, blob is its ciphertext and becomes the cached copy. Local
// mutations that raced the cycle are folded over the adopted state and
// send the engine straight back to dirty.
func (e *vaultEngine) adopt(ctx context.Context, set models.RecordSet, version int64, blob, wrapped string, seq uint64) {
	e.mu.Lock()
	if e.key == nil || e.closed {
		// locked mid-flight: drop the result, the next unlock starts
		// from cache and server again
		e.mu.Unlock()
		return
	}

	raced := e.mutSeq != seq
	if raced {
		if folded, err := e.merger.Merge(ctx, e.base, e.records, set); err == nil {
			e.records = folded
		}
	} else {
		e.records = set
	}
	e.base = set.Clone()
	e.version = version
	e.wrapped = wrapped

	if raced {
		e.setStatusLocked(models.StatusDirty)
		e.mu.Unlock()
		e.debounce.Reset()
	} else {
		e.setStatusLocked(models.StatusIdle)
		e.mu.Unlock()
	}

	e.persist(ctx, blob, version, wrapped)
}

// persist rewrites the cache row with just-reconciled ciphertext.
// Cache trouble never fails a sync: the copy only serves offline
// starts and is rebuilt on the next reconciliation.
func (e *vaultEngine) persist(ctx context.Context, blob string, version int64, wrapped string) {
	e.mu.Lock()
	identity := e.identity
	e.mu.Unlock()
	if identity == "" {
		return
	}

	state := models.VaultState{
		Blob:               blob,
		Version:            version,
		UpdatedAt:          time.Now().UTC(),
		WrappedRecoveryKey: wrapped,
	}
	if err := e.cache.SaveVault(ctx, identity, state); err != nil {
		e.logger.Warn().Err(err).Msg("cache write failed after sync")
	}
}
