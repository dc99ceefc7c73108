// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// recoverySecretSize is the entropy of a generated recovery secret in
// bytes. 32 bytes encode to exactly 52 base32 characters, which groups
// evenly into thirteen blocks of four.
const recoverySecretSize = 32

var recoveryEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// keyChainService is the private implementation of [KeyChainService].
type keyChainService struct{}

// NewKeyChainService constructs a [KeyChainService].
//
// All derivations use PBKDF2-HMAC-SHA256 with a caller-supplied
// iteration count. The count is a per-account server-stored parameter
// rather than a constant here, so existing accounts keep working when
// the configured floor is raised for new ones.
func NewKeyChainService() KeyChainService {
	return &keyChainService{}
}

// GenerateSalt implements [KeyChainService]. It reads 16 random bytes
// from the OS CSPRNG and returns them as the salt. Returns an error if
// the random read fails.
func (k *keyChainService) GenerateSalt() ([]byte, error) {
	return RandomBytes(SaltSize)
}

// GenerateRecoverySecret implements [KeyChainService]. It reads 32
// random bytes from the OS CSPRNG and formats them as thirteen
// dash-joined groups of four base32 characters, e.g.
// "GEZD-GNBV-GY3T-QOJQ-GEZD-GNBV-GY3T-QOJQ-GEZD-GNBV-GY3T-QOJQ-GEZA".
func (k *keyChainService) GenerateRecoverySecret() (string, error) {
	raw, err := RandomBytes(recoverySecretSize)
	if err != nil {
		return "", err
	}
	defer Wipe(raw)

	encoded := recoveryEncoding.EncodeToString(raw)
	groups := make([]string, 0, len(encoded)/4)
	for i := 0; i < len(encoded); i += 4 {
		groups = append(groups, encoded[i:i+4])
	}
	return strings.Join(groups, "-"), nil
}

// DeriveAuthToken implements [KeyChainService]. It computes
// hex(PBKDF2-HMAC-SHA256(secret, salt, iterations, 32)), always exactly
// 64 lowercase hex characters.
//
// The derivation is deterministic and succeeds for any non-empty secret
// and salt; a wrong password yields a well-formed token the server will
// reject, never a local error.
func (k *keyChainService) DeriveAuthToken(secret string, salt []byte, iterations int) (string, error) {
	if err := checkDerivationInputs(secret, salt, iterations); err != nil {
		return "", err
	}
	raw := pbkdf2.Key([]byte(secret), salt, iterations, KeySize, sha256.New)
	token := hex.EncodeToString(raw)
	Wipe(raw)
	return token, nil
}

// DeriveDataKey implements [KeyChainService]. It derives 32 key bytes
// with PBKDF2-HMAC-SHA256 and transfers them into a [DataKey], which
// becomes their sole owner.
func (k *keyChainService) DeriveDataKey(secret string, salt []byte, iterations int, exportable bool) (*DataKey, error) {
	if err := checkDerivationInputs(secret, salt, iterations); err != nil {
		return nil, err
	}
	raw := pbkdf2.Key([]byte(secret), salt, iterations, KeySize, sha256.New)
	return newDataKey(raw, exportable), nil
}

// DeriveRecoveryKey implements [KeyChainService]. The recovery key
// shares the data key derivation; it only ever seals and opens the raw
// DEK, so it is never exportable.
func (k *keyChainService) DeriveRecoveryKey(secret string, salt []byte, iterations int) (*DataKey, error) {
	return k.DeriveDataKey(secret, salt, iterations, false)
}

// checkDerivationInputs rejects structurally invalid derivation inputs.
// Policy limits (the iteration floor for new accounts) are enforced at
// registration, not here: unlocking must honor whatever count the
// account was created with.
func checkDerivationInputs(secret string, salt []byte, iterations int) error {
	if secret == "" {
		return fmt.Errorf("%w: empty secret", ErrDerivationUnavailable)
	}
	if len(salt) == 0 {
		return fmt.Errorf("%w: empty salt", ErrDerivationUnavailable)
	}
	if iterations < 1 {
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrDerivationUnavailable, iterations)
	}
	return nil
}
