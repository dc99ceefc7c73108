// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package vault implements the encrypted container format the server
// stores and the clients exchange.
//
// A vault blob is the canonical serialization of a record set, sealed
// with AES-256-GCM and framed as a printable string:
//
//	v=1;iv=<base64 nonce>;ct=<base64 ciphertext+tag>
//
// The format is versioned so the container can evolve without breaking
// stored vaults. The package also wraps and unwraps the data key under
// the recovery key; the wrapped form is what the server escrows for
// account recovery.
package vault

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/MKhiriev/go-otp-vault/internal/crypto"
	"github.com/MKhiriev/go-otp-vault/models"
)

// FormatVersion is the container version this codec writes.
const FormatVersion = "1"

// EncryptRecords serializes the record set into its canonical form and
// seals it under key. Every call draws a fresh nonce, so encrypting the
// same set twice yields different blobs that decrypt identically.
func EncryptRecords(set models.RecordSet, key *crypto.DataKey) (string, error) {
	plaintext, err := set.MarshalCanonical()
	if err != nil {
		return "", fmt.Errorf("error encrypting vault: %w", err)
	}

	nonce, ciphertext, err := key.Seal(plaintext)
	if err != nil {
		return "", fmt.Errorf("error encrypting vault: %w", err)
	}

	blob := fmt.Sprintf("v=%s;iv=%s;ct=%s",
		FormatVersion,
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(ciphertext),
	)
	return blob, nil
}

// DecryptRecords opens a vault blob and restores the record set.
//
// All failures come back as [ErrDecryptionFailed] with no further
// detail: the caller cannot tell a wrong key from tampered ciphertext
// or a mangled container, which keeps the decrypt path useless as a
// password oracle.
func DecryptRecords(blob string, key *crypto.DataKey) (models.RecordSet, error) {
	nonce, ciphertext, ok := parseBlob(blob)
	if !ok {
		return nil, ErrDecryptionFailed
	}

	plaintext, err := key.Open(nonce, ciphertext)
	if err != nil {
		return nil, ErrDecryptionFailed
	}

	set, err := models.ParseRecordSet(plaintext)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return set, nil
}

// WrapRecoveryKey seals the raw bytes of dataKey under recoveryKey and
// returns the wrapped form as base64(nonce || ciphertext). dataKey must
// have been derived with the exportable capability; the exported bytes
// are wiped before the function returns.
func WrapRecoveryKey(dataKey, recoveryKey *crypto.DataKey) (string, error) {
	raw, err := dataKey.Export()
	if err != nil {
		return "", fmt.Errorf("error wrapping data key: %w", err)
	}
	defer crypto.Wipe(raw)

	nonce, ciphertext, err := recoveryKey.Seal(raw)
	if err != nil {
		return "", fmt.Errorf("error wrapping data key: %w", err)
	}

	return base64.StdEncoding.EncodeToString(append(nonce, ciphertext...)), nil
}

// UnwrapRecoveryKey reverses [WrapRecoveryKey]: it opens the wrapped
// blob with recoveryKey and returns the restored data key as a
// non-exportable capability. A wrong recovery key, a corrupted blob,
// and a malformed encoding all fail with [ErrRecoveryUnwrapFailed].
func UnwrapRecoveryKey(wrapped string, recoveryKey *crypto.DataKey) (*crypto.DataKey, error) {
	blob, err := base64.StdEncoding.DecodeString(wrapped)
	if err != nil {
		return nil, ErrRecoveryUnwrapFailed
	}
	if len(blob) < crypto.NonceSize {
		return nil, ErrRecoveryUnwrapFailed
	}

	nonce, ciphertext := blob[:crypto.NonceSize], blob[crypto.NonceSize:]
	raw, err := recoveryKey.Open(nonce, ciphertext)
	if err != nil {
		return nil, ErrRecoveryUnwrapFailed
	}
	if len(raw) != crypto.KeySize {
		crypto.Wipe(raw)
		return nil, ErrRecoveryUnwrapFailed
	}

	return crypto.NewDataKeyFromBytes(raw, false), nil
}

// parseBlob splits a container string into its nonce and ciphertext.
// It accepts exactly the format this codec writes: three ;-separated
// fields with fixed prefixes, version first.
func parseBlob(blob string) (nonce, ciphertext []byte, ok bool) {
	parts := strings.Split(blob, ";")
	if len(parts) != 3 {
		return nil, nil, false
	}

	version, hasVersion := strings.CutPrefix(parts[0], "v=")
	ivB64, hasIV := strings.CutPrefix(parts[1], "iv=")
	ctB64, hasCT := strings.CutPrefix(parts[2], "ct=")
	if !hasVersion || !hasIV || !hasCT || version != FormatVersion {
		return nil, nil, false
	}

	nonce, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil || len(nonce) != crypto.NonceSize {
		return nil, nil, false
	}
	ciphertext, err = base64.StdEncoding.DecodeString(ctB64)
	if err != nil || len(ciphertext) == 0 {
		return nil, nil, false
	}
	return nonce, ciphertext, true
}
