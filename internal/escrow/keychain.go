// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package escrow implements the device-bound quick-unlock path.
//
// A random credential is parked in the OS keychain; a wrapping key is
// re-derived from it on demand with HKDF-SHA256 and used to seal the
// master secret on disk. The wrapping key itself is never stored
// anywhere. When the keychain cannot produce the credential the caller
// falls back to asking the user for the master secret, so a broken or
// absent keychain degrades the experience but never locks anyone out.
package escrow

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/hkdf"

	"github.com/MKhiriev/go-otp-vault/internal/crypto"
)

const (
	// serviceName is the keychain service entries are filed under.
	serviceName = "go-otp-vault"

	// escrowInfo provides HKDF domain separation so a leaked derivation
	// from another protocol can never collide with escrow wrap keys.
	escrowInfo = "go-otp-vault-escrow-v1"

	credentialSize = 32
)

// WrapKeyProvider is the hardware-bound capability of the escrow path:
// it holds a credential the caller never sees and re-derives the same
// wrapping key from it for any given salt. Implementations return keys
// as non-exportable [crypto.DataKey] values.
type WrapKeyProvider interface {
	// Enroll creates a fresh random credential for the identity and
	// stores it in the OS keychain, replacing any previous one.
	Enroll(identity string) error

	// Enrolled reports whether the keychain holds a credential for the
	// identity.
	Enrolled(identity string) bool

	// WrapKey re-derives the wrapping key for the identity and salt.
	// Returns ErrNotEnrolled when no credential is stored and
	// ErrEscrowUnavailable when the keychain cannot be reached.
	WrapKey(identity string, salt []byte) (*crypto.DataKey, error)

	// Remove deletes the stored credential. Removing an absent
	// credential is not an error.
	Remove(identity string) error
}

type keychainProvider struct{}

// NewWrapKeyProvider returns a WrapKeyProvider backed by the OS keychain.
func NewWrapKeyProvider() WrapKeyProvider {
	return &keychainProvider{}
}

func (k *keychainProvider) Enroll(identity string) error {
	credential, err := crypto.RandomBytes(credentialSize)
	if err != nil {
		return fmt.Errorf("error generating escrow credential: %w", err)
	}
	defer crypto.Wipe(credential)

	if err = keyring.Set(serviceName, identity, base64.StdEncoding.EncodeToString(credential)); err != nil {
		return fmt.Errorf("%w: %w", ErrEscrowUnavailable, err)
	}

	return nil
}

func (k *keychainProvider) Enrolled(identity string) bool {
	_, err := keyring.Get(serviceName, identity)
	return err == nil
}

func (k *keychainProvider) WrapKey(identity string, salt []byte) (*crypto.DataKey, error) {
	stored, err := keyring.Get(serviceName, identity)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("%w: %w", ErrEscrowUnavailable, err)
	}

	credential, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return nil, fmt.Errorf("%w: stored credential is malformed", ErrEscrowUnavailable)
	}
	defer crypto.Wipe(credential)

	reader := hkdf.New(sha256.New, credential, salt, []byte(escrowInfo))
	raw := make([]byte, crypto.KeySize)
	if _, err = io.ReadFull(reader, raw); err != nil {
		crypto.Wipe(raw)
		return nil, fmt.Errorf("%w: %w", ErrEscrowUnavailable, err)
	}

	return crypto.NewDataKeyFromBytes(raw, false), nil
}

func (k *keychainProvider) Remove(identity string) error {
	err := keyring.Delete(serviceName, identity)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrEscrowUnavailable, err)
	}
	return nil
}
