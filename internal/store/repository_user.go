package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-otp-vault/internal/logger"
	"github.com/MKhiriev/go-otp-vault/models"
	"github.com/jackc/pgerrcode"
)

// userRepository is the PostgreSQL-backed implementation of [UserRepository].
// It handles account creation, lookup, and credentials reset against the
// "users" table, touching "vaults" inside the two lifecycle transactions.
//
// All methods obtain a context-scoped logger via [logger.FromContext] for
// structured, request-level tracing of database interactions.
type userRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewUserRepository constructs a [UserRepository] backed by the provided
// database connection and logger.
func NewUserRepository(db *DB, logger *logger.Logger) UserRepository {
	logger.Debug().Msg("creating user repository")
	return &userRepository{
		db:     db,
		logger: logger,
	}
}

// CreateUser persists a new account and its initial vault row in a single
// transaction and returns the fully populated [models.User] with
// server-assigned fields (UserID, CreatedAt).
//
// The initial vault is inserted at version 1 with the blob and
// recovery-wrapped key from vault; registration therefore leaves an account
// that can immediately serve a vault download.
//
// Error handling:
//   - PostgreSQL unique_violation (23505) → [ErrIdentityAlreadyExists].
//   - Any other driver-level error → wrapped as "unexpected DB error".
//   - Scan or commit failure → wrapped with the matching sentinel.
func (r *userRepository) CreateUser(ctx context.Context, user models.User, vault models.VaultState) (models.User, error) {
	log := logger.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.CreateUser").Msg("failed to begin transaction")
		return models.User{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, createUser,
		user.Identity, user.AuthHash, user.LoginSalt, user.DataSalt, user.KDFIterations, user.RecoveryHash)

	// create user in db
	if err := row.Err(); err != nil {
		log.Err(err).Str("func", "*userRepository.CreateUser").Msg("error: row is nil")

		switch postgresError(err) {
		case pgerrcode.UniqueViolation:
			return models.User{}, ErrIdentityAlreadyExists
		default:
			return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
		}
	}

	// scan server-assigned fields
	if err := row.Scan(&user.UserID, &user.CreatedAt); err != nil {
		log.Err(err).Str("func", "*userRepository.CreateUser").Msg("error: scanning error")
		if postgresError(err) == pgerrcode.UniqueViolation {
			return models.User{}, ErrIdentityAlreadyExists
		}
		return models.User{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	// create the initial vault row for the account
	var initialVersion int64
	if err := tx.QueryRowContext(ctx, createInitialVault, user.UserID, vault.Blob, vault.WrappedRecoveryKey).Scan(&initialVersion); err != nil {
		log.Err(err).
			Str("func", "*userRepository.CreateUser").
			Int64("user_id", user.UserID).
			Msg("failed to insert initial vault")
		return models.User{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		log.Err(commitErr).Str("func", "*userRepository.CreateUser").Msg("failed to commit transaction")
		return models.User{}, fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
	}

	log.Info().
		Str("func", "*userRepository.CreateUser").
		Int64("user_id", user.UserID).
		Int64("initial_version", initialVersion).
		Msg("account registered")

	return user, nil
}

// FindUserByIdentity retrieves the account whose identity matches the one
// provided.
//
// Error handling:
//   - No matching row → [ErrNoUserWasFound].
//   - Any other driver-level error → wrapped as "unexpected DB error".
func (r *userRepository) FindUserByIdentity(ctx context.Context, identity string) (models.User, error) {
	return r.findUser(ctx, findUserByIdentity, identity)
}

// FindUserByID retrieves the account with the given internal id.
//
// Error handling mirrors [FindUserByIdentity].
func (r *userRepository) FindUserByID(ctx context.Context, userID int64) (models.User, error) {
	return r.findUser(ctx, findUserByID, userID)
}

func (r *userRepository) findUser(ctx context.Context, query string, arg any) (models.User, error) {
	log := logger.FromContext(ctx)

	var foundUser models.User
	row := r.db.QueryRowContext(ctx, query, arg)

	if err := row.Err(); err != nil {
		log.Err(err).Str("func", "*userRepository.findUser").Msg("error: row is nil")
		return models.User{}, fmt.Errorf("unexpected DB error: %w", err)
	}

	// scan found user from db
	err := row.Scan(
		&foundUser.UserID,
		&foundUser.Identity,
		&foundUser.AuthHash,
		&foundUser.LoginSalt,
		&foundUser.DataSalt,
		&foundUser.KDFIterations,
		&foundUser.RecoveryHash,
		&foundUser.TokenEpoch,
		&foundUser.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNoUserWasFound
		}
		log.Err(err).Str("func", "*userRepository.findUser").Msg("error: scanning error")
		return models.User{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return foundUser, nil
}

// ResetCredentials replaces the account's credential fields and vault content
// in a single transaction.
//
// The users UPDATE bumps token_epoch so every session issued before the reset
// stops validating; the vaults UPDATE swaps in the blob re-encrypted under
// the new data key and advances the vault version. Both rows must exist:
// a missing account yields [ErrNoUserWasFound], a missing vault row
// [ErrVaultNotFound] (possible only if the schema was tampered with, since
// registration always creates one).
func (r *userRepository) ResetCredentials(ctx context.Context, user models.User, vault models.VaultState) (models.User, error) {
	log := logger.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*userRepository.ResetCredentials").Msg("failed to begin transaction")
		return models.User{}, fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	// replace credentials and revoke existing sessions
	err = tx.QueryRowContext(ctx, resetUserCredentials,
		user.UserID, user.AuthHash, user.LoginSalt, user.DataSalt, user.KDFIterations, user.RecoveryHash,
	).Scan(&user.TokenEpoch)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrNoUserWasFound
		}
		log.Err(err).
			Str("func", "*userRepository.ResetCredentials").
			Int64("user_id", user.UserID).
			Msg("failed to update user credentials")
		return models.User{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	// swap in the re-encrypted vault
	var newVersion int64
	err = tx.QueryRowContext(ctx, resetVaultContent,
		user.UserID, vault.Blob, vault.WrappedRecoveryKey,
	).Scan(&newVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, ErrVaultNotFound
		}
		log.Err(err).
			Str("func", "*userRepository.ResetCredentials").
			Int64("user_id", user.UserID).
			Msg("failed to replace vault content")
		return models.User{}, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}

	if commitErr := tx.Commit(); commitErr != nil {
		log.Err(commitErr).Str("func", "*userRepository.ResetCredentials").Msg("failed to commit transaction")
		return models.User{}, fmt.Errorf("%w: %w", ErrCommitingTransaction, commitErr)
	}

	log.Info().
		Str("func", "*userRepository.ResetCredentials").
		Int64("user_id", user.UserID).
		Int64("token_epoch", user.TokenEpoch).
		Int64("vault_version", newVersion).
		Msg("credentials reset, sessions revoked")

	return user, nil
}
