// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/MKhiriev/go-otp-vault/internal/crypto"
	"github.com/MKhiriev/go-otp-vault/internal/utils"
	"github.com/MKhiriev/go-otp-vault/internal/vault"
	"github.com/MKhiriev/go-otp-vault/models"
)

// Decoy material for identities that cannot be served for real: unknown
// accounts and accounts without enrolled recovery. Everything here is
// derived with HMAC-SHA256 from the identity and the server params key, so
// the same identity always gets the same bytes and a fabricated response
// is stable across calls and server restarts.
//
// The parameter and recovery endpoints must stay mutually consistent: a
// real account returns the same salts from both, so the decoys do too.

// decoy ciphertext lengths, sized to match a small real vault and a
// recovery-wrapped 32-byte key with its GCM tag.
const (
	decoyBlobCiphertextLen = 52
	decoyWrappedKeyLen     = crypto.NonceSize + crypto.KeySize + 16
)

// fakeAuthParams fabricates the KDF parameter set for an identity.
// The iteration count is pinned to the registration floor, which is what
// every account created with default settings carries.
func fakeAuthParams(identity, paramsKey string) models.AuthParams {
	return models.AuthParams{
		LoginSalt:     base64.StdEncoding.EncodeToString(decoyBytes("params:login-salt:"+identity, paramsKey, crypto.SaltSize)),
		DataSalt:      base64.StdEncoding.EncodeToString(decoyBytes("params:data-salt:"+identity, paramsKey, crypto.SaltSize)),
		KDFIterations: crypto.MinKDFIterations,
	}
}

// fakeRecoveryLookup fabricates a full recovery bundle: a blob in the
// transport encoding, a wrapped key of the right length, and the same
// salts fakeAuthParams would return for this identity.
func fakeRecoveryLookup(identity, paramsKey string) models.RecoveryLookupResponse {
	params := fakeAuthParams(identity, paramsKey)

	nonce := decoyBytes("recovery:iv:"+identity, paramsKey, crypto.NonceSize)
	ciphertext := decoyBytes("recovery:ct:"+identity, paramsKey, decoyBlobCiphertextLen)
	blob := fmt.Sprintf("v=%s;iv=%s;ct=%s",
		vault.FormatVersion,
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(ciphertext),
	)

	wrapped := decoyBytes("recovery:wrapped:"+identity, paramsKey, decoyWrappedKeyLen)

	return models.RecoveryLookupResponse{
		Blob:               blob,
		WrappedRecoveryKey: base64.StdEncoding.EncodeToString(wrapped),
		LoginSalt:          params.LoginSalt,
		DataSalt:           params.DataSalt,
		KDFIterations:      params.KDFIterations,
	}
}

// decoyBytes derives n deterministic bytes for the given label, chaining
// HMAC blocks when n exceeds one digest.
func decoyBytes(label, paramsKey string, n int) []byte {
	out := make([]byte, 0, n)
	block := utils.HashRaw(label, paramsKey)
	for len(out) < n {
		out = append(out, block...)
		block = utils.HashRaw(label+":"+hex.EncodeToString(block[:8]), paramsKey)
	}
	return out[:n]
}
