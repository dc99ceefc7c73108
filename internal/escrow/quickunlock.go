package escrow

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MKhiriev/go-otp-vault/internal/crypto"
	"github.com/MKhiriev/go-otp-vault/internal/logger"
)

// wrappedSecretState is the on-disk form of the escrowed master secret.
// Everything in it is either public (salt, identity) or ciphertext.
type wrappedSecretState struct {
	Identity string `json:"identity"`
	Salt     string `json:"salt"`
	Nonce    string `json:"nonce"`
	CT       string `json:"ct"`
}

// QuickUnlock combines a WrapKeyProvider with an on-disk sealed copy of
// the master secret. Enable seals the secret under a keychain-derived
// wrapping key; Unlock re-derives the key and opens it. All failures
// are non-fatal: the caller prompts for the master secret instead.
type QuickUnlock struct {
	provider WrapKeyProvider
	path     string
	logger   *logger.Logger
}

// NewQuickUnlock returns a QuickUnlock persisting its sealed state at
// path (created with 0600 permissions).
func NewQuickUnlock(provider WrapKeyProvider, path string, log *logger.Logger) *QuickUnlock {
	return &QuickUnlock{provider: provider, path: path, logger: log}
}

// Enabled reports whether quick unlock is usable for the identity on
// this device: the sealed state file exists for this identity and the
// keychain still holds the credential.
func (q *QuickUnlock) Enabled(identity string) bool {
	state, err := q.load()
	if err != nil {
		return false
	}
	return state.Identity == identity && q.provider.Enrolled(identity)
}

// Enable enrolls a fresh keychain credential and seals masterSecret
// under the derived wrapping key. A previous enrollment for any
// identity is replaced.
func (q *QuickUnlock) Enable(identity, masterSecret string) error {
	if err := q.provider.Enroll(identity); err != nil {
		return err
	}

	salt, err := crypto.RandomBytes(crypto.SaltSize)
	if err != nil {
		return fmt.Errorf("error generating escrow salt: %w", err)
	}

	key, err := q.provider.WrapKey(identity, salt)
	if err != nil {
		return err
	}
	defer key.Wipe()

	secret := []byte(masterSecret)
	nonce, ct, err := key.Seal(secret)
	crypto.Wipe(secret)
	if err != nil {
		return fmt.Errorf("error sealing master secret: %w", err)
	}

	state := wrappedSecretState{
		Identity: identity,
		Salt:     base64.StdEncoding.EncodeToString(salt),
		Nonce:    base64.StdEncoding.EncodeToString(nonce),
		CT:       base64.StdEncoding.EncodeToString(ct),
	}
	if err = q.persist(state); err != nil {
		return err
	}

	q.logger.Info().Str("func", "QuickUnlock.Enable").Msg("quick unlock enabled")
	return nil
}

// Unlock re-derives the wrapping key from the keychain credential and
// returns the master secret. Returns ErrNotEnrolled when this device
// holds no sealed state for the identity and ErrEscrowUnavailable when
// the keychain or the sealed blob cannot serve it.
func (q *QuickUnlock) Unlock(identity string) (string, error) {
	state, err := q.load()
	if err != nil {
		return "", err
	}
	if state.Identity != identity {
		return "", ErrNotEnrolled
	}

	salt, nonce, ct, err := decodeState(state)
	if err != nil {
		return "", fmt.Errorf("%w: sealed state is malformed", ErrEscrowUnavailable)
	}

	key, err := q.provider.WrapKey(identity, salt)
	if err != nil {
		return "", err
	}
	defer key.Wipe()

	plain, err := key.Open(nonce, ct)
	if err != nil {
		return "", fmt.Errorf("%w: sealed master secret cannot be opened", ErrEscrowUnavailable)
	}

	secret := string(plain)
	crypto.Wipe(plain)
	return secret, nil
}

// Disable removes the keychain credential and the sealed state file.
// Disabling an un-enrolled device is not an error.
func (q *QuickUnlock) Disable(identity string) error {
	if err := q.provider.Remove(identity); err != nil {
		return err
	}

	if err := os.Remove(q.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("error removing sealed state file: %w", err)
	}

	q.logger.Info().Str("func", "QuickUnlock.Disable").Msg("quick unlock disabled")
	return nil
}

func (q *QuickUnlock) load() (wrappedSecretState, error) {
	data, err := os.ReadFile(q.path)
	if err != nil {
		if os.IsNotExist(err) {
			return wrappedSecretState{}, ErrNotEnrolled
		}
		return wrappedSecretState{}, fmt.Errorf("read sealed state file: %w", err)
	}

	var state wrappedSecretState
	if err = json.Unmarshal(data, &state); err != nil {
		return wrappedSecretState{}, fmt.Errorf("%w: decode sealed state file", ErrEscrowUnavailable)
	}

	return state, nil
}

func (q *QuickUnlock) persist(state wrappedSecretState) error {
	if dir := filepath.Dir(q.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create sealed state dir: %w", err)
		}
	}

	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sealed state: %w", err)
	}

	if err = os.WriteFile(q.path, payload, 0o600); err != nil {
		return fmt.Errorf("write sealed state file: %w", err)
	}

	return nil
}

func decodeState(state wrappedSecretState) (salt, nonce, ct []byte, err error) {
	if salt, err = base64.StdEncoding.DecodeString(state.Salt); err != nil {
		return nil, nil, nil, err
	}
	if nonce, err = base64.StdEncoding.DecodeString(state.Nonce); err != nil {
		return nil, nil, nil, err
	}
	if ct, err = base64.StdEncoding.DecodeString(state.CT); err != nil {
		return nil, nil, nil, err
	}
	return salt, nonce, ct, nil
}
