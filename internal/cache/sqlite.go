// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/MKhiriev/go-otp-vault/internal/logger"
	"github.com/MKhiriev/go-otp-vault/models"
)

type vaultCache struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewVaultCache opens the SQLite cache file at path, creating the file
// and its parent directory when missing, and runs pending schema
// migrations. The file is created with 0600 permissions. Pass ":memory:"
// to keep the cache for the lifetime of the process only.
func NewVaultCache(ctx context.Context, path string, log *logger.Logger) (VaultCache, error) {
	if path == "" {
		path = ":memory:"
	}

	if path != ":memory:" {
		if err := createCacheFileIfNotExists(path); err != nil {
			log.Err(err).Str("func", "NewVaultCache").Msg("error creating cache file")
			return nil, fmt.Errorf("error creating cache file: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		log.Err(err).Str("func", "NewVaultCache").Msg("error opening cache database")
		return nil, fmt.Errorf("error opening cache database: %w", err)
	}

	// ping database
	if err = conn.PingContext(ctx); err != nil {
		log.Err(err).Str("func", "NewVaultCache").Msg("error connecting cache database (ping)")
		return nil, err
	}

	if err = migrate(conn); err != nil {
		log.Err(err).Str("func", "NewVaultCache").Msg("cache migration failed")
		return nil, fmt.Errorf("cache migration failed: %w", err)
	}
	log.Debug().Str("func", "NewVaultCache").Msg("cache database ready")

	return &vaultCache{db: conn, logger: log}, nil
}

func createCacheFileIfNotExists(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("error creating cache dir: %w", err)
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		// if not found - create with owner-only permissions
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return fmt.Errorf("error creating cache file: %w", err)
		}
		f.Close()
	}

	// file already exists
	return nil
}

func (c *vaultCache) SaveVault(ctx context.Context, identity string, state models.VaultState) error {
	log := logger.FromContext(ctx)

	_, err := c.db.ExecContext(ctx, upsertVaultState,
		identity,
		state.Blob,
		state.Version,
		state.UpdatedAt,
		state.WrappedRecoveryKey,
	)
	if err != nil {
		log.Err(err).
			Str("func", "vaultCache.SaveVault").
			Int64("version", state.Version).
			Msg("failed to execute upsert for cached vault")
		return fmt.Errorf("failed to cache vault: %w", err)
	}

	return nil
}

func (c *vaultCache) LoadVault(ctx context.Context, identity string) (models.VaultState, error) {
	log := logger.FromContext(ctx)

	var state models.VaultState
	row := c.db.QueryRowContext(ctx, getVaultState, identity)

	scanErr := row.Scan(
		&state.Blob,
		&state.Version,
		&state.UpdatedAt,
		&state.WrappedRecoveryKey,
	)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return models.VaultState{}, ErrCacheMiss
	}
	if scanErr != nil {
		log.Err(scanErr).
			Str("func", "vaultCache.LoadVault").
			Msg("failed to scan cached vault row")
		return models.VaultState{}, fmt.Errorf("failed to scan cached vault row: %w", scanErr)
	}

	return state, nil
}

func (c *vaultCache) SaveAuthParams(ctx context.Context, identity string, params models.AuthParams) error {
	log := logger.FromContext(ctx)

	_, err := c.db.ExecContext(ctx, upsertAuthParams,
		identity,
		params.LoginSalt,
		params.DataSalt,
		params.KDFIterations,
	)
	if err != nil {
		log.Err(err).
			Str("func", "vaultCache.SaveAuthParams").
			Msg("failed to execute upsert for cached auth params")
		return fmt.Errorf("failed to cache auth params: %w", err)
	}

	return nil
}

func (c *vaultCache) LoadAuthParams(ctx context.Context, identity string) (models.AuthParams, error) {
	log := logger.FromContext(ctx)

	var params models.AuthParams
	row := c.db.QueryRowContext(ctx, getAuthParams, identity)

	scanErr := row.Scan(
		&params.LoginSalt,
		&params.DataSalt,
		&params.KDFIterations,
	)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return models.AuthParams{}, ErrCacheMiss
	}
	if scanErr != nil {
		log.Err(scanErr).
			Str("func", "vaultCache.LoadAuthParams").
			Msg("failed to scan cached auth params row")
		return models.AuthParams{}, fmt.Errorf("failed to scan cached auth params row: %w", scanErr)
	}

	return params, nil
}

func (c *vaultCache) EraseAll(ctx context.Context) error {
	log := logger.FromContext(ctx)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).
			Str("func", "vaultCache.EraseAll").
			Msg("failed to begin erase transaction")
		return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, eraseVaultState); err != nil {
		log.Err(err).
			Str("func", "vaultCache.EraseAll").
			Msg("failed to erase cached vault rows")
		return fmt.Errorf("failed to erase cached vault rows: %w", err)
	}

	if _, err = tx.ExecContext(ctx, eraseAuthParams); err != nil {
		log.Err(err).
			Str("func", "vaultCache.EraseAll").
			Msg("failed to erase cached auth params rows")
		return fmt.Errorf("failed to erase cached auth params rows: %w", err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		log.Err(commitErr).
			Str("func", "vaultCache.EraseAll").
			Msg("failed to commit erase transaction")
		return fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
	}

	log.Info().
		Str("func", "vaultCache.EraseAll").
		Msg("local cache erased")

	return nil
}

func (c *vaultCache) Close() error {
	return c.db.Close()
}
