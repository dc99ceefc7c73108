// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package store

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/MKhiriev/go-otp-vault/models"
)

const (
	createUser = `INSERT INTO users (identity, auth_hash, login_salt, data_salt, kdf_iterations, recovery_hash)
    VALUES ($1, $2, $3, $4, $5, $6)
    RETURNING user_id, created_at;`

	createInitialVault = `INSERT INTO vaults (user_id, blob, version, wrapped_recovery_key)
    VALUES ($1, $2, 1, $3)
    RETURNING version;`

	findUserByIdentity = `SELECT user_id, identity, auth_hash, login_salt, data_salt, kdf_iterations, recovery_hash, token_epoch, created_at
    FROM users
    WHERE identity = $1;`

	findUserByID = `SELECT user_id, identity, auth_hash, login_salt, data_salt, kdf_iterations, recovery_hash, token_epoch, created_at
    FROM users
    WHERE user_id = $1;`

	resetUserCredentials = `UPDATE users
    SET auth_hash = $2, login_salt = $3, data_salt = $4, kdf_iterations = $5, recovery_hash = $6, token_epoch = token_epoch + 1
    WHERE user_id = $1
    RETURNING token_epoch;`

	resetVaultContent = `UPDATE vaults
    SET blob = $2, wrapped_recovery_key = $3, version = version + 1, updated_at = NOW()
    WHERE user_id = $1
    RETURNING version;`

	// updateVaultTemplate is the optimistic-locking write. The CTE reads the
	// current version and the UPDATE applies only when it still matches the
	// one the client based its write on, so the single SELECT at the end
	// distinguishes "no vault row" (both NULL) from "version conflict"
	// (new_version NULL, current_db_version set).
	updateVaultTemplate = `
		WITH target_vault AS (
			SELECT user_id, version
			FROM vaults
			WHERE user_id = $1
		),
		updated_vault AS (
			UPDATE vaults
			SET %s
			WHERE user_id = $1
			  AND version = $3
			RETURNING version
		)
		SELECT
			(SELECT version FROM updated_vault) AS new_version,
			(SELECT version FROM target_vault)  AS current_db_version;`
)

// buildSelectVaultQuery builds the vault row lookup for one account.
func buildSelectVaultQuery(userID int64) (string, []any, error) {
	return sq.Select("blob", "version", "updated_at", "wrapped_recovery_key").
		From("vaults").
		Where(sq.Eq{"user_id": userID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

// buildCreateVaultQuery builds the first-upload INSERT. ON CONFLICT DO
// NOTHING makes a concurrent create scan zero rows instead of erroring,
// which the repository reports as a version conflict.
func buildCreateVaultQuery(userID int64, put models.VaultPutRequest) (string, []any, error) {
	return sq.Insert("vaults").
		Columns("user_id", "blob", "version", "wrapped_recovery_key").
		Values(userID, put.Blob, 1, put.WrappedRecoveryKey).
		Suffix("ON CONFLICT (user_id) DO NOTHING RETURNING version").
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

// buildUpdateVaultQuery builds the conditional vault UPDATE from
// [updateVaultTemplate].
//
// The SET clause is dynamic in one place: the stored recovery-wrapped key is
// replaced only when the request carries a new one, so ordinary pushes leave
// the recovery material untouched.
func buildUpdateVaultQuery(userID int64, put models.VaultPutRequest) (string, []any) {
	setClauses := new(strings.Builder)
	setClauses.WriteString("blob = $2, version = version + 1, updated_at = NOW()")

	args := []any{userID, put.Blob, put.Version}

	if put.WrappedRecoveryKey != "" {
		setClauses.WriteString(", wrapped_recovery_key = $4")
		args = append(args, put.WrappedRecoveryKey)
	}

	return fmt.Sprintf(updateVaultTemplate, setClauses.String()), args
}
