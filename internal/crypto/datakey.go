package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// DataKey is a symmetric encryption key handed out as a capability:
// holders can Seal and Open with it, but the raw bytes stay inside the
// package unless the key was derived with the exportable flag set.
//
// A DataKey is not safe for concurrent use. The sync engine serializes
// all access to it under its own lock, including the Wipe call from the
// inactivity timer.
type DataKey struct {
	key        []byte
	exportable bool
	wiped      bool
}

func newDataKey(raw []byte, exportable bool) *DataKey {
	return &DataKey{key: raw, exportable: exportable}
}

// NewDataKeyFromBytes wraps already-derived key material into a
// [DataKey], taking ownership of raw. It exists for the recovery path,
// where the data key is unwrapped from ciphertext instead of being
// derived from a password. raw must be a valid AES key length.
func NewDataKeyFromBytes(raw []byte, exportable bool) *DataKey {
	return newDataKey(raw, exportable)
}

// NonceSize is the length in bytes of the GCM nonce Seal generates and
// Open expects.
const NonceSize = 12

// Seal encrypts plaintext with AES-256-GCM under a fresh random nonce.
// It returns the nonce and the ciphertext (which carries the 16-byte
// authentication tag) separately so the caller controls the transport
// framing. A nonce is never reused: every call draws a new one from the
// OS CSPRNG.
func (k *DataKey) Seal(plaintext []byte) (nonce, ciphertext []byte, err error) {
	gcm, err := k.aead()
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("error generating nonce: %w", err)
	}

	return nonce, gcm.Seal(nil, nonce, plaintext, nil), nil
}

// Open decrypts ciphertext with AES-256-GCM and verifies its
// authentication tag. Any authentication failure is reported as a plain
// error without distinguishing wrong key from corrupted data.
func (k *DataKey) Open(nonce, ciphertext []byte) ([]byte, error) {
	gcm, err := k.aead()
	if err != nil {
		return nil, err
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("error opening ciphertext: %w", err)
	}
	return plaintext, nil
}

// Export returns a copy of the raw key bytes. It fails with
// [ErrKeyNotExportable] unless the key was derived with the exportable
// capability. The caller owns the copy and must Wipe it after use.
func (k *DataKey) Export() ([]byte, error) {
	if k.wiped {
		return nil, ErrKeyWiped
	}
	if !k.exportable {
		return nil, ErrKeyNotExportable
	}
	out := make([]byte, len(k.key))
	copy(out, k.key)
	return out, nil
}

// Wipe destroys the key material in place. Every subsequent operation
// on the key fails with [ErrKeyWiped]. Calling Wipe twice is harmless.
func (k *DataKey) Wipe() {
	if k.wiped {
		return
	}
	Wipe(k.key)
	k.key = nil
	k.wiped = true
}

// Wiped reports whether the key material has been destroyed.
func (k *DataKey) Wiped() bool {
	return k.wiped
}

func (k *DataKey) aead() (cipher.AEAD, error) {
	if k.wiped {
		return nil, ErrKeyWiped
	}

	block, err := aes.NewCipher(k.key)
	if err != nil {
		return nil, fmt.Errorf("error creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("error creating gcm: %w", err)
	}
	return gcm, nil
}
