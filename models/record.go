// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// OTPAlgorithm identifies the HMAC hash function used to generate
// one-time codes from a record's secret.
type OTPAlgorithm string

const (
	// AlgorithmSHA1 is the default algorithm of RFC 6238 and the only one
	// universally supported by issuers.
	AlgorithmSHA1 OTPAlgorithm = "SHA1"

	// AlgorithmSHA256 selects HMAC-SHA256 code generation.
	AlgorithmSHA256 OTPAlgorithm = "SHA256"

	// AlgorithmSHA512 selects HMAC-SHA512 code generation.
	AlgorithmSHA512 OTPAlgorithm = "SHA512"
)

// Valid reports whether the algorithm is one of the supported values.
func (a OTPAlgorithm) Valid() bool {
	switch a {
	case AlgorithmSHA1, AlgorithmSHA256, AlgorithmSHA512:
		return true
	}
	return false
}

// Record is a single OTP seed entry of the vault.
//
// Records are never hard-deleted on a device: deletion writes a tombstone
// (DeletedAt set, secret material cleared) so that concurrent edits of the
// same record on another device cannot resurrect it during merge.
type Record struct {
	// ID is the globally unique identifier of the record (UUIDv7).
	// Assigned once at creation and never reused, even across devices.
	ID string `json:"id"`

	// Issuer is the display name of the service that issued the seed
	// (e.g. "GitHub"). Non-unique, user-editable.
	Issuer string `json:"issuer"`

	// Account is the user identifier at the issuer (login or e-mail).
	Account string `json:"account"`

	// Secret is the shared OTP seed in base32 encoding (RFC 4648,
	// no padding). Cleared when the record becomes a tombstone.
	Secret string `json:"secret"`

	// Algorithm selects the HMAC hash used for code generation.
	Algorithm OTPAlgorithm `json:"algorithm"`

	// Digits is the length of generated codes, 6..8.
	Digits int `json:"digits"`

	// Period is the TOTP time step in seconds, usually 30.
	Period int `json:"period"`

	// CreatedAt is the creation timestamp, set once on the originating
	// device and carried unchanged through merges.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the last modification. Merge uses it
	// to order concurrent edits of the same record.
	UpdatedAt time.Time `json:"updated_at"`

	// DeletedAt marks the record as a tombstone when non-nil.
	// A tombstone always wins over a concurrent edit during merge.
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the record is a tombstone.
func (r Record) IsDeleted() bool {
	return r.DeletedAt != nil
}

// Equal reports whether two records carry the same content.
// Timestamps are compared with [time.Time.Equal], so the same instant
// in different locations compares equal.
func (r Record) Equal(other Record) bool {
	if r.ID != other.ID ||
		r.Issuer != other.Issuer ||
		r.Account != other.Account ||
		r.Secret != other.Secret ||
		r.Algorithm != other.Algorithm ||
		r.Digits != other.Digits ||
		r.Period != other.Period {
		return false
	}
	if !r.CreatedAt.Equal(other.CreatedAt) || !r.UpdatedAt.Equal(other.UpdatedAt) {
		return false
	}
	if (r.DeletedAt == nil) != (other.DeletedAt == nil) {
		return false
	}
	if r.DeletedAt != nil && !r.DeletedAt.Equal(*other.DeletedAt) {
		return false
	}
	return true
}

// RecordSet is the full decrypted content of a vault, indexed by record ID.
// Tombstones are kept in the set alongside live records.
type RecordSet map[string]Record

// NewRecordSet returns an empty, non-nil record set.
func NewRecordSet() RecordSet {
	return make(RecordSet)
}

// Clone returns an independent copy of the set.
// Record values are copied, so mutating the clone never touches the original.
func (s RecordSet) Clone() RecordSet {
	out := make(RecordSet, len(s))
	for id, r := range s {
		out[id] = r
	}
	return out
}

// SortedIDs returns all record IDs in ascending lexicographic order.
// This is the iteration order of every serialization and merge walk,
// which keeps both fully deterministic.
func (s RecordSet) SortedIDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Live returns the number of records that are not tombstones.
func (s RecordSet) Live() int {
	n := 0
	for _, r := range s {
		if !r.IsDeleted() {
			n++
		}
	}
	return n
}

// Equal reports whether both sets contain the same records with the
// same content. Tombstones participate in the comparison.
func (s RecordSet) Equal(other RecordSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id, r := range s {
		o, ok := other[id]
		if !ok || !r.Equal(o) {
			return false
		}
	}
	return true
}

// MarshalCanonical serializes the set into its canonical form: a JSON
// array of records sorted by ID. Two sets with equal content always
// produce byte-identical output, which is what lets the sync engine
// compare plaintexts across devices without decrypting twice.
func (s RecordSet) MarshalCanonical() ([]byte, error) {
	records := make([]Record, 0, len(s))
	for _, id := range s.SortedIDs() {
		records = append(records, s[id])
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("error serializing record set: %w", err)
	}
	return data, nil
}

// ParseRecordSet restores a record set from its canonical serialized form.
// Duplicate IDs in the input are rejected as corruption.
func ParseRecordSet(data []byte) (RecordSet, error) {
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("error parsing record set: %w", err)
	}

	set := make(RecordSet, len(records))
	for _, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("error parsing record set: record without id")
		}
		if _, exists := set[r.ID]; exists {
			return nil, fmt.Errorf("error parsing record set: duplicate record id %s", r.ID)
		}
		set[r.ID] = r
	}
	return set, nil
}
