// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package merge reconciles three states of one vault: the common
// ancestor (base), the local working copy, and the remote copy another
// device pushed concurrently.
package merge

import (
	"context"
	"sort"
	"time"

	"github.com/MKhiriev/go-otp-vault/models"
)

// Merger resolves divergent vault states into a single record set.
type Merger interface {
	// Merge performs a deterministic three-way merge at record
	// granularity. base is the last state both sides agreed on, local
	// and remote are the two divergent descendants. The inputs are
	// never mutated; the result is a freshly built set.
	//
	// Resolution rules, in priority order:
	//  1. a tombstone on either side wins over any concurrent edit;
	//  2. a side that changed a record wins over a side that did not;
	//  3. both sides changed: the strictly later UpdatedAt wins, and
	//     remote wins exact ties as the copy that is already persisted;
	//  4. neither side changed: the base record is kept.
	Merge(ctx context.Context, base, local, remote models.RecordSet) (models.RecordSet, error)
}

// merger is the concrete implementation of [Merger].
// It performs a purely in-memory walk over the three record sets; no
// storage layer or logger is required because the operation is
// stateless and produces no side effects.
type merger struct{}

// NewMerger constructs a [Merger] ready for use.
func NewMerger() Merger {
	return &merger{}
}

// Merge implements [Merger].
//
// It walks the union of all record IDs in sorted order, so the output
// depends only on the input contents, never on map iteration order.
// ctx cancellation is checked at the start of each iteration so that
// callers can abort early when operating on large vaults.
func (m *merger) Merge(ctx context.Context, base, local, remote models.RecordSet) (models.RecordSet, error) {
	merged := make(models.RecordSet, max(len(local), len(remote)))

	for _, id := range unionIDs(base, local, remote) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b, inBase := base[id]
		l, inLocal := local[id]
		r, inRemote := remote[id]

		// ── Creations: the record postdates the common ancestor ────────────
		if !inBase {
			switch {
			case inLocal && !inRemote:
				if !l.IsDeleted() {
					// Created locally, never pushed → include as-is.
					merged[id] = l
				}
				// Created and deleted locally before any sync: the other
				// side never saw it → drop the tombstone entirely.

			case !inLocal && inRemote:
				if !r.IsDeleted() {
					// Created on another device → adopt.
					merged[id] = r
				}

			default:
				// Same ID created independently on both sides. With
				// UUID record IDs this is practically unreachable, but
				// the resolution must still be deterministic → run the
				// usual two-sided resolution with no base.
				merged[id] = resolve(nil, l, r)
			}
			continue
		}

		// ── Known records: resolve both descendants against base ───────────
		// A side that does not carry the record at all is treated as
		// having left it unchanged. Normal deletion writes a tombstone,
		// so plain absence only appears after cache loss or recovery.
		if !inLocal {
			l = b
		}
		if !inRemote {
			r = b
		}
		merged[id] = resolve(&b, l, r)
	}

	return merged, nil
}

// resolve picks the surviving version of one record. base is nil for
// records that did not exist in the common ancestor.
func resolve(base *models.Record, local, remote models.Record) models.Record {
	// Tombstones take priority over every concurrent edit, no matter
	// which side is newer: a deleted secret must stay deleted.
	localDead, remoteDead := local.IsDeleted(), remote.IsDeleted()
	if localDead || remoteDead {
		var winner models.Record
		switch {
		case localDead && remoteDead:
			winner = pickLater(local, remote)
		case localDead:
			winner = local
		default:
			winner = remote
		}
		// Carry the later modification time so the tombstone orders
		// after the edit it overrides.
		winner.UpdatedAt = laterTime(local.UpdatedAt, remote.UpdatedAt)
		return winner
	}

	if base != nil {
		localChanged := !local.Equal(*base)
		remoteChanged := !remote.Equal(*base)

		switch {
		case !localChanged && !remoteChanged:
			// Nobody touched it → keep the ancestor version.
			return *base
		case localChanged && !remoteChanged:
			// Only this device edited it → local wins.
			return local
		case !localChanged && remoteChanged:
			// Only the other device edited it → remote wins.
			return remote
		}
	}

	// Both sides changed the record concurrently → last write wins.
	return pickLater(local, remote)
}

// pickLater returns the record with the strictly later UpdatedAt.
// Remote wins ties: it is the copy the server has already accepted.
func pickLater(local, remote models.Record) models.Record {
	if local.UpdatedAt.After(remote.UpdatedAt) {
		return local
	}
	return remote
}

func laterTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// unionIDs returns every ID present in any of the three sets, sorted.
func unionIDs(base, local, remote models.RecordSet) []string {
	seen := make(map[string]struct{}, max(len(base), len(local), len(remote)))
	for _, set := range []models.RecordSet{base, local, remote} {
		for id := range set {
			seen[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
