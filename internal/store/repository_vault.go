package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-otp-vault/internal/logger"
	"github.com/MKhiriev/go-otp-vault/models"
)

// vaultRepository is the PostgreSQL-backed implementation of
// [VaultRepository]. It operates on the "vaults" table, one row per account,
// with an optimistic-locking version column as the only write guard.
//
// Every method obtains a context-scoped logger via [logger.FromContext] so
// that all database interactions are traced with structured fields.
type vaultRepository struct {
	*DB
	logger *logger.Logger
}

// NewVaultRepository constructs a [VaultRepository] backed by the provided
// database connection and logger.
func NewVaultRepository(db *DB, logger *logger.Logger) VaultRepository {
	logger.Debug().Msg("creating vault repository")
	return &vaultRepository{
		DB:     db,
		logger: logger,
	}
}

// GetVault retrieves the account's vault row.
//
// Returns [ErrVaultNotFound] when the account has no row, which the service
// layer translates into the "empty vault, version 0" download response.
func (v *vaultRepository) GetVault(ctx context.Context, userID int64) (models.VaultState, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectVaultQuery(userID)
	if err != nil {
		log.Err(err).
			Str("func", "vaultRepository.GetVault").
			Int64("user_id", userID).
			Msg("failed to create query")
		return models.VaultState{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var state models.VaultState
	err = v.DB.QueryRowContext(ctx, query, args...).Scan(
		&state.Blob,
		&state.Version,
		&state.UpdatedAt,
		&state.WrappedRecoveryKey,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.VaultState{}, ErrVaultNotFound
		}
		log.Err(err).
			Str("func", "vaultRepository.GetVault").
			Int64("user_id", userID).
			Msg("failed to execute vault lookup")
		return models.VaultState{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	return state, nil
}

// CreateVault inserts the account's first vault row at version 1.
//
// A concurrent first upload is detected by the INSERT's ON CONFLICT DO
// NOTHING returning zero rows; the caller's base version 0 is then already
// stale, so the method reports [ErrVersionConflict].
func (v *vaultRepository) CreateVault(ctx context.Context, userID int64, put models.VaultPutRequest) (int64, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildCreateVaultQuery(userID, put)
	if err != nil {
		log.Err(err).
			Str("func", "vaultRepository.CreateVault").
			Int64("user_id", userID).
			Msg("failed to create query")
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var version int64
	if err := v.DB.QueryRowContext(ctx, query, args...).Scan(&version); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn().
				Str("func", "vaultRepository.CreateVault").
				Int64("user_id", userID).
				Msg("vault row already exists, base version 0 is stale")
			return 0, ErrVersionConflict
		}
		log.Err(err).
			Str("func", "vaultRepository.CreateVault").
			Int64("user_id", userID).
			Msg("failed to insert vault row")
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	log.Info().
		Str("func", "vaultRepository.CreateVault").
		Int64("user_id", userID).
		Int64("version", version).
		Msg("vault created")

	return version, nil
}

// UpdateVault applies an optimistic-locking write of the vault blob.
//
// It executes the CTE-based update built by [buildUpdateVaultQuery], which
// returns both the updated version and the current database version,
// enabling the method to distinguish between "not found" (both NULL)
// and "version conflict" (new_version NULL, current_db_version non-NULL).
func (v *vaultRepository) UpdateVault(ctx context.Context, userID int64, put models.VaultPutRequest) (int64, error) {
	log := logger.FromContext(ctx)

	query, args := buildUpdateVaultQuery(userID, put)

	var newVersion *int64
	var currentDBVersion *int64

	queryRowErr := v.DB.QueryRowContext(ctx, query, args...).Scan(&newVersion, &currentDBVersion)
	if queryRowErr != nil {
		log.Err(queryRowErr).
			Str("func", "vaultRepository.UpdateVault").
			Int64("user_id", userID).
			Msg("failed to execute conditional vault update")
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, queryRowErr)
	}

	// not found: target_vault empty -> both NULL
	if currentDBVersion == nil {
		log.Warn().
			Str("func", "vaultRepository.UpdateVault").
			Int64("user_id", userID).
			Msg("vault row not found")
		return 0, ErrVaultNotFound
	}

	// found but not updated -> version mismatch
	if newVersion == nil {
		log.Error().
			Str("func", "vaultRepository.UpdateVault").
			Int64("user_id", userID).
			Int64("db_version", *currentDBVersion).
			Int64("provided_version", put.Version).
			Msg("optimistic lock failed: version mismatch on vault write")
		return 0, ErrVersionConflict
	}

	log.Info().
		Str("func", "vaultRepository.UpdateVault").
		Int64("user_id", userID).
		Int64("new_version", *newVersion).
		Msg("vault updated")

	return *newVersion, nil
}
