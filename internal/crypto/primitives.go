// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package crypto

import (
	"crypto/rand"
	"io"
)

const (
	// SaltSize is the length in bytes of every generated salt.
	SaltSize = 16

	// KeySize is the length in bytes of every derived key (AES-256).
	KeySize = 32

	// MinKDFIterations is the lowest PBKDF2 iteration count accounts may
	// be created with. Existing accounts keep their stored count, so the
	// floor can be raised over time without breaking old vaults.
	MinKDFIterations = 600_000
)

// RandomBytes reads n bytes from the OS CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Wipe destroys key material in place: the slice is overwritten with
// random bytes first and zeroed afterwards. A failed random read still
// leaves the slice zeroed.
//
// The Go runtime may have copied the bytes elsewhere (GC moves, stack
// growth); Wipe shortens the window the key lives in memory, it cannot
// eliminate it.
func Wipe(b []byte) {
	if len(b) == 0 {
		return
	}
	_, _ = io.ReadFull(rand.Reader, b)
	for i := range b {
		b[i] = 0
	}
}
