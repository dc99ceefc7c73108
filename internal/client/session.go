// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/MKhiriev/go-otp-vault/internal/adapter"
	"github.com/MKhiriev/go-otp-vault/internal/cache"
	"github.com/MKhiriev/go-otp-vault/internal/crypto"
	"github.com/MKhiriev/go-otp-vault/internal/engine"
	"github.com/MKhiriev/go-otp-vault/internal/escrow"
	"github.com/MKhiriev/go-otp-vault/internal/logger"
	"github.com/MKhiriev/go-otp-vault/internal/vault"
	"github.com/MKhiriev/go-otp-vault/models"
)

// Session owns the credential flows of one client process: register,
// login, quick unlock, recovery and logout. It derives every key the
// account needs, hands the data key to the engine, and keeps the master
// password confined to the functions that receive it.
//
// A Session serves one interactive user and is not safe for concurrent
// use; the engine behind it is.
type Session struct {
	server adapter.ServerAdapter
	cache  cache.VaultCache
	keys   crypto.KeyChainService
	quick  *escrow.QuickUnlock
	engine engine.Engine
	logger *logger.Logger

	// iterations is the PBKDF2 cost for NEW credentials (registration
	// and recovery). Existing accounts keep the cost they were
	// registered with, which arrives via AuthParams.
	iterations int

	identity string
}

// NewSession wires a session over the given transport, cache, key
// chain, escrow and engine.
func NewSession(server adapter.ServerAdapter, vaultCache cache.VaultCache, keys crypto.KeyChainService, quick *escrow.QuickUnlock, eng engine.Engine, iterations int, log *logger.Logger) *Session {
	return &Session{
		server:     server,
		cache:      vaultCache,
		keys:       keys,
		quick:      quick,
		engine:     eng,
		logger:     log,
		iterations: iterations,
	}
}

// Identity returns the account of the active session, or "" before login.
func (s *Session) Identity() string {
	return s.identity
}

// Register creates the account and opens the first session.
//
// Everything the server receives is derived material: the auth token,
// the two salts, the encrypted empty vault, the recovery verifier and
// the recovery-wrapped data key. The returned recovery secret exists
// only in the return value; it is shown to the user once and never
// stored anywhere.
func (s *Session) Register(ctx context.Context, identity, password string) (string, error) {
	if identity == "" || password == "" {
		return "", ErrEmptyCredentials
	}

	loginSalt, err := s.keys.GenerateSalt()
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	dataSalt, err := s.keys.GenerateSalt()
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}

	authToken, err := s.keys.DeriveAuthToken(password, loginSalt, s.iterations)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}

	recoverySecret, err := s.keys.GenerateRecoverySecret()
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	verifier, err := s.keys.DeriveAuthToken(recoverySecret, loginSalt, s.iterations)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}

	wrapped, dataKey, err := s.wrapUnderRecovery(password, recoverySecret, dataSalt, s.iterations)
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}

	blob, err := vault.EncryptRecords(models.NewRecordSet(), dataKey)
	if err != nil {
		dataKey.Wipe()
		return "", fmt.Errorf("register: %w", err)
	}

	request := models.RegisterRequest{
		Identity:           identity,
		AuthToken:          authToken,
		LoginSalt:          base64.StdEncoding.EncodeToString(loginSalt),
		DataSalt:           base64.StdEncoding.EncodeToString(dataSalt),
		KDFIterations:      s.iterations,
		RecoveryVerifier:   verifier,
		Blob:               blob,
		WrappedRecoveryKey: wrapped,
	}
	if _, err = s.server.Register(ctx, request); err != nil {
		dataKey.Wipe()
		return "", fmt.Errorf("register: %w", err)
	}

	params := models.AuthParams{
		LoginSalt:     request.LoginSalt,
		DataSalt:      request.DataSalt,
		KDFIterations: s.iterations,
	}
	if err = s.cache.SaveAuthParams(ctx, identity, params); err != nil {
		s.logger.Warn().Err(err).Str("func", "Session.Register").Msg("cache auth params failed")
	}

	if err = s.engine.Unlock(ctx, identity, dataKey); err != nil {
		return "", fmt.Errorf("register: unlock new vault: %w", err)
	}

	s.identity = identity
	s.logger.Info().Str("func", "Session.Register").Str("identity", identity).Msg("account registered")
	return recoverySecret, nil
}

// Login opens a session for an existing account.
//
// KDF parameters come from the server when it is reachable and from the
// device cache otherwise, so a device that has held this account before
// can log in fully offline. A wrong password offline is caught by the
// engine: the derived key will not open the cached ciphertext.
//
// Login returns [engine.ErrReauthRequired] when the vault unlocked from
// local data but the server copy is unreadable with this key; the
// session is usable offline and the caller decides how loudly to warn.
func (s *Session) Login(ctx context.Context, identity, password string) error {
	if identity == "" || password == "" {
		return ErrEmptyCredentials
	}

	params, fromServer, err := s.authParams(ctx, identity)
	if err != nil {
		return err
	}

	loginSalt, dataSalt, err := decodeSalts(params)
	if err != nil {
		return err
	}

	authToken, err := s.keys.DeriveAuthToken(password, loginSalt, params.KDFIterations)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	if fromServer {
		_, err = s.server.Login(ctx, models.LoginRequest{Identity: identity, AuthToken: authToken})
		switch {
		case err == nil:
		case errors.Is(err, adapter.ErrNetworkUnavailable):
			// сервер пропал между двумя запросами; продолжаем как офлайн-вход
			s.logger.Warn().Str("func", "Session.Login").Msg("server lost mid-login, continuing offline")
			fromServer = false
		default:
			return fmt.Errorf("login: %w", err)
		}
	}

	key, err := s.keys.DeriveDataKey(password, dataSalt, params.KDFIterations, false)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	unlockErr := s.engine.Unlock(ctx, identity, key)
	if unlockErr != nil && !errors.Is(unlockErr, engine.ErrReauthRequired) {
		return fmt.Errorf("login: %w", unlockErr)
	}

	if fromServer {
		if err = s.cache.SaveAuthParams(ctx, identity, params); err != nil {
			s.logger.Warn().Err(err).Str("func", "Session.Login").Msg("cache auth params failed")
		}
	}

	s.identity = identity
	s.logger.Info().Str("func", "Session.Login").Str("identity", identity).Bool("online", fromServer).Msg("session opened")
	return unlockErr
}

// QuickUnlock opens a session with the master password escrowed on this
// device. Callers fall back to a manual Login when it returns
// [escrow.ErrNotEnrolled] or [escrow.ErrEscrowUnavailable].
func (s *Session) QuickUnlock(ctx context.Context, identity string) error {
	password, err := s.quick.Unlock(identity)
	if err != nil {
		return err
	}
	return s.Login(ctx, identity, password)
}

// QuickUnlockEnabled reports whether this device can QuickUnlock the
// identity.
func (s *Session) QuickUnlockEnabled(identity string) bool {
	return s.quick.Enabled(identity)
}

// EnableQuickUnlock escrows the master password for the active session.
// When the device holds cached ciphertext the password is verified
// against it first, so a typo cannot get sealed into the escrow.
func (s *Session) EnableQuickUnlock(ctx context.Context, password string) error {
	if s.identity == "" {
		return ErrNoSession
	}
	if err := s.verifyPassword(ctx, password); err != nil {
		return err
	}
	return s.quick.Enable(s.identity, password)
}

// DisableQuickUnlock removes the escrowed password from this device.
func (s *Session) DisableQuickUnlock() error {
	if s.identity == "" {
		return ErrNoSession
	}
	return s.quick.Disable(s.identity)
}

// Recover regains access with the paper recovery secret and rotates
// every credential: new salts, new auth token, new data key, new
// recovery secret. The server revokes all existing sessions as part of
// the reset, and the local cache is erased because everything in it is
// encrypted under the retired key.
//
// The returned string is the NEW recovery secret; the one just used is
// burned by the reset.
func (s *Session) Recover(ctx context.Context, identity, recoverySecret, newPassword string) (string, error) {
	if identity == "" || newPassword == "" {
		return "", ErrEmptyCredentials
	}

	lookup, err := s.server.RecoveryLookup(ctx, identity)
	if err != nil {
		return "", fmt.Errorf("recovery lookup: %w", err)
	}

	oldLoginSalt, err := base64.StdEncoding.DecodeString(lookup.LoginSalt)
	if err != nil {
		return "", fmt.Errorf("recover: malformed login salt: %w", err)
	}
	oldDataSalt, err := base64.StdEncoding.DecodeString(lookup.DataSalt)
	if err != nil {
		return "", fmt.Errorf("recover: malformed data salt: %w", err)
	}

	secret := normalizeRecoverySecret(recoverySecret)

	recoveryKey, err := s.keys.DeriveRecoveryKey(secret, oldDataSalt, lookup.KDFIterations)
	if err != nil {
		return "", fmt.Errorf("recover: %w", err)
	}
	oldKey, err := vault.UnwrapRecoveryKey(lookup.WrappedRecoveryKey, recoveryKey)
	recoveryKey.Wipe()
	if err != nil {
		// неверный секрет и несуществующий аккаунт приходят сюда одинаково
		return "", err
	}

	records, err := vault.DecryptRecords(lookup.Blob, oldKey)
	oldKey.Wipe()
	if err != nil {
		return "", fmt.Errorf("recover: escrowed vault unreadable: %w", err)
	}

	recoveryToken, err := s.keys.DeriveAuthToken(secret, oldLoginSalt, lookup.KDFIterations)
	if err != nil {
		return "", fmt.Errorf("recover: %w", err)
	}

	// всё новое: соли, токен, ключ данных, секрет восстановления
	newLoginSalt, err := s.keys.GenerateSalt()
	if err != nil {
		return "", fmt.Errorf("recover: %w", err)
	}
	newDataSalt, err := s.keys.GenerateSalt()
	if err != nil {
		return "", fmt.Errorf("recover: %w", err)
	}
	newAuthToken, err := s.keys.DeriveAuthToken(newPassword, newLoginSalt, s.iterations)
	if err != nil {
		return "", fmt.Errorf("recover: %w", err)
	}
	newSecret, err := s.keys.GenerateRecoverySecret()
	if err != nil {
		return "", fmt.Errorf("recover: %w", err)
	}
	newVerifier, err := s.keys.DeriveAuthToken(newSecret, newLoginSalt, s.iterations)
	if err != nil {
		return "", fmt.Errorf("recover: %w", err)
	}
	wrapped, newKey, err := s.wrapUnderRecovery(newPassword, newSecret, newDataSalt, s.iterations)
	if err != nil {
		return "", fmt.Errorf("recover: %w", err)
	}
	blob, err := vault.EncryptRecords(records, newKey)
	if err != nil {
		newKey.Wipe()
		return "", fmt.Errorf("recover: %w", err)
	}

	request := models.RecoveryResetRequest{
		Identity:           identity,
		RecoveryAuthToken:  recoveryToken,
		AuthToken:          newAuthToken,
		LoginSalt:          base64.StdEncoding.EncodeToString(newLoginSalt),
		DataSalt:           base64.StdEncoding.EncodeToString(newDataSalt),
		KDFIterations:      s.iterations,
		RecoveryVerifier:   newVerifier,
		Blob:               blob,
		WrappedRecoveryKey: wrapped,
	}
	if _, err = s.server.RecoveryReset(ctx, request); err != nil {
		newKey.Wipe()
		return "", fmt.Errorf("recovery reset: %w", err)
	}

	// кеш и эскроу зашифрованы отозванным ключом и паролем
	if err = s.cache.EraseAll(ctx); err != nil {
		s.logger.Warn().Err(err).Str("func", "Session.Recover").Msg("erase stale cache failed")
	}
	if err = s.quick.Disable(identity); err != nil {
		s.logger.Warn().Err(err).Str("func", "Session.Recover").Msg("disable stale quick unlock failed")
	}

	params := models.AuthParams{
		LoginSalt:     request.LoginSalt,
		DataSalt:      request.DataSalt,
		KDFIterations: s.iterations,
	}
	if err = s.cache.SaveAuthParams(ctx, identity, params); err != nil {
		s.logger.Warn().Err(err).Str("func", "Session.Recover").Msg("cache auth params failed")
	}

	if err = s.engine.Unlock(ctx, identity, newKey); err != nil {
		return "", fmt.Errorf("recover: unlock rotated vault: %w", err)
	}

	s.identity = identity
	s.logger.Info().Str("func", "Session.Recover").Str("identity", identity).Msg("account recovered, credentials rotated")
	return newSecret, nil
}

// Logout ends the session and scrubs the device: the bearer token, the
// cached ciphertext and KDF parameters, and the escrowed password all
// go. Unsynced local changes are lost; callers should sync or warn
// first.
func (s *Session) Logout(ctx context.Context) error {
	if s.identity == "" {
		return ErrNoSession
	}

	s.engine.Lock()
	s.server.SetToken("")

	if err := s.quick.Disable(s.identity); err != nil {
		s.logger.Warn().Err(err).Str("func", "Session.Logout").Msg("disable quick unlock failed")
	}
	if err := s.cache.EraseAll(ctx); err != nil {
		return fmt.Errorf("logout: erase device cache: %w", err)
	}

	s.logger.Info().Str("func", "Session.Logout").Str("identity", s.identity).Msg("session closed")
	s.identity = ""
	return nil
}

// authParams fetches the account's KDF parameters, preferring the
// server and falling back to the device cache when offline.
func (s *Session) authParams(ctx context.Context, identity string) (models.AuthParams, bool, error) {
	params, err := s.server.RequestParams(ctx, identity)
	if err == nil {
		return params, true, nil
	}
	if !errors.Is(err, adapter.ErrNetworkUnavailable) {
		return models.AuthParams{}, false, fmt.Errorf("request KDF parameters: %w", err)
	}

	cached, cacheErr := s.cache.LoadAuthParams(ctx, identity)
	if cacheErr != nil {
		if errors.Is(cacheErr, cache.ErrCacheMiss) {
			return models.AuthParams{}, false, fmt.Errorf("%w: %v", ErrParamsUnavailable, err)
		}
		return models.AuthParams{}, false, fmt.Errorf("load cached KDF parameters: %w", cacheErr)
	}
	return cached, false, nil
}

// verifyPassword checks a password against the cached ciphertext. With
// nothing cached yet there is nothing to check against and the password
// is taken on faith, same as a resumed unlock.
func (s *Session) verifyPassword(ctx context.Context, password string) error {
	params, err := s.cache.LoadAuthParams(ctx, s.identity)
	if err != nil {
		return nil
	}
	state, err := s.cache.LoadVault(ctx, s.identity)
	if err != nil || !state.Exists() {
		return nil
	}

	_, dataSalt, err := decodeSalts(params)
	if err != nil {
		return err
	}
	key, err := s.keys.DeriveDataKey(password, dataSalt, params.KDFIterations, false)
	if err != nil {
		return err
	}
	defer key.Wipe()

	if _, err = vault.DecryptRecords(state.Blob, key); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// wrapUnderRecovery derives the account's data key twice: once
// exportable, sealed under the recovery key for escrow, and once as the
// non-exportable working copy the engine holds. The exportable copy and
// the recovery key are wiped before returning.
func (s *Session) wrapUnderRecovery(password, recoverySecret string, dataSalt []byte, iterations int) (wrapped string, dataKey *crypto.DataKey, err error) {
	recoveryKey, err := s.keys.DeriveRecoveryKey(recoverySecret, dataSalt, iterations)
	if err != nil {
		return "", nil, err
	}
	defer recoveryKey.Wipe()

	exportable, err := s.keys.DeriveDataKey(password, dataSalt, iterations, true)
	if err != nil {
		return "", nil, err
	}
	wrapped, err = vault.WrapRecoveryKey(exportable, recoveryKey)
	exportable.Wipe()
	if err != nil {
		return "", nil, err
	}

	dataKey, err = s.keys.DeriveDataKey(password, dataSalt, iterations, false)
	if err != nil {
		return "", nil, err
	}
	return wrapped, dataKey, nil
}

func decodeSalts(params models.AuthParams) (loginSalt, dataSalt []byte, err error) {
	if loginSalt, err = base64.StdEncoding.DecodeString(params.LoginSalt); err != nil {
		return nil, nil, fmt.Errorf("malformed login salt: %w", err)
	}
	if dataSalt, err = base64.StdEncoding.DecodeString(params.DataSalt); err != nil {
		return nil, nil, fmt.Errorf("malformed data salt: %w", err)
	}
	return loginSalt, dataSalt, nil
}

// normalizeRecoverySecret maps hand-typed forms of the paper secret
// (lowercase, spaces, missing dashes) back to the canonical
// dash-separated groups it was generated as.
func normalizeRecoverySecret(secret string) string {
	compact := strings.ToUpper(strings.NewReplacer(" ", "", "-", "").Replace(secret))
	if compact == "" {
		return ""
	}

	groups := make([]string, 0, (len(compact)+3)/4)
	for len(compact) > 4 {
		groups = append(groups, compact[:4])
		compact = compact[4:]
	}
	groups = append(groups, compact)
	return strings.Join(groups, "-")
}
