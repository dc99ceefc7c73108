// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package cache

const (
	upsertVaultState = `
		INSERT INTO vault_state (
			identity,
			blob,
			version,
			updated_at,
			wrapped_recovery_key
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity) DO UPDATE SET
			blob                 = excluded.blob,
			version              = excluded.version,
			updated_at           = excluded.updated_at,
			wrapped_recovery_key = excluded.wrapped_recovery_key;`

	getVaultState = `
		SELECT
			blob,
			version,
			updated_at,
			wrapped_recovery_key
		FROM vault_state
		WHERE identity = $1;`

	upsertAuthParams = `
		INSERT INTO auth_params (
			identity,
			login_salt,
			data_salt,
			kdf_iterations
		) VALUES ($1, $2, $3, $4)
		ON CONFLICT (identity) DO UPDATE SET
			login_salt     = excluded.login_salt,
			data_salt      = excluded.data_salt,
			kdf_iterations = excluded.kdf_iterations;`

	getAuthParams = `
		SELECT
			login_salt,
			data_salt,
			kdf_iterations
		FROM auth_params
		WHERE identity = $1;`

	eraseVaultState = `DELETE FROM vault_state;`

	eraseAuthParams = `DELETE FROM auth_params;`
)
