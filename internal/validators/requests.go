// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package validators

import (
	"context"
	"encoding/base64"
	"regexp"

	"github.com/MKhiriev/go-otp-vault/internal/crypto"
	"github.com/MKhiriev/go-otp-vault/models"
)

// Field name constants for request validation.
const (
	// FieldIdentity targets the account identifier of a request.
	FieldIdentity = "identity"

	// FieldAuthToken targets the derived login authentication token.
	FieldAuthToken = "auth_token"

	// FieldSalts targets both KDF salts of a registration or reset.
	FieldSalts = "salts"

	// FieldIterations targets the PBKDF2 iteration count.
	FieldIterations = "iterations"

	// FieldBlob targets the encrypted vault payload.
	FieldBlob = "blob"

	// FieldVersion targets the optimistic-concurrency version of an upload.
	FieldVersion = "version"

	// FieldRecovery targets the recovery verifier and wrapped key pair.
	FieldRecovery = "recovery"

	// FieldRecoveryAuthToken targets the token derived from the recovery secret.
	FieldRecoveryAuthToken = "recovery_auth_token"
)

// maxIdentityLength bounds stored identities; matches the column width.
const maxIdentityLength = 254

var hexToken = regexp.MustCompile(`^[0-9a-f]{64}$`)

// RequestValidator implements the Validator interface for every request
// body the HTTP API accepts: registration, login, parameter lookup,
// vault upload, and the recovery pair.
//
// It checks shape only. Whether a token matches, a version is current,
// or an identity exists is decided by the service and storage layers.
type RequestValidator struct {
}

func NewRequestValidator() Validator {
	return &RequestValidator{}
}

func (v *RequestValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.RegisterRequest:
		return v.validateRegister(ctx, value, fields...)
	case *models.RegisterRequest:
		return v.validateRegister(ctx, *value, fields...)

	case models.LoginRequest:
		return v.validateLogin(ctx, value, fields...)
	case *models.LoginRequest:
		return v.validateLogin(ctx, *value, fields...)

	case models.ParamsRequest:
		return v.validateIdentityOnly(ctx, value.Identity)
	case *models.ParamsRequest:
		return v.validateIdentityOnly(ctx, value.Identity)

	case models.VaultPutRequest:
		return v.validateVaultPut(ctx, value, fields...)
	case *models.VaultPutRequest:
		return v.validateVaultPut(ctx, *value, fields...)

	case models.RecoveryLookupRequest:
		return v.validateIdentityOnly(ctx, value.Identity)
	case *models.RecoveryLookupRequest:
		return v.validateIdentityOnly(ctx, value.Identity)

	case models.RecoveryResetRequest:
		return v.validateRecoveryReset(ctx, value, fields...)
	case *models.RecoveryResetRequest:
		return v.validateRecoveryReset(ctx, *value, fields...)

	default:
		return ErrUnsupportedType
	}
}

func validIdentity(identity string) bool {
	return identity != "" && len(identity) <= maxIdentityLength
}

func validSalt(salt string) bool {
	raw, err := base64.StdEncoding.DecodeString(salt)
	return err == nil && len(raw) == crypto.SaltSize
}

func (v *RequestValidator) validateIdentityOnly(_ context.Context, identity string) error {
	if !validIdentity(identity) {
		return ErrInvalidIdentity
	}
	return nil
}

func (v *RequestValidator) validateRegister(_ context.Context, request models.RegisterRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldIdentity, FieldAuthToken, FieldSalts, FieldIterations, FieldBlob, FieldRecovery}
	}

	for _, f := range fields {
		switch f {
		case FieldIdentity:
			if !validIdentity(request.Identity) {
				return ErrInvalidIdentity
			}
		case FieldAuthToken:
			if !hexToken.MatchString(request.AuthToken) {
				return ErrInvalidAuthToken
			}
		case FieldSalts:
			if !validSalt(request.LoginSalt) || !validSalt(request.DataSalt) {
				return ErrInvalidSalt
			}
		case FieldIterations:
			// The floor applies to account creation only: unlocking an
			// old account keeps the count it was registered with.
			if request.KDFIterations < crypto.MinKDFIterations {
				return ErrLowIterations
			}
		case FieldBlob:
			if request.Blob == "" {
				return ErrEmptyBlob
			}
		case FieldRecovery:
			hasVerifier := request.RecoveryVerifier != ""
			hasWrapped := request.WrappedRecoveryKey != ""
			if hasVerifier != hasWrapped {
				return ErrMissingRecoveryData
			}
			if hasVerifier && !hexToken.MatchString(request.RecoveryVerifier) {
				return ErrInvalidVerifier
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *RequestValidator) validateLogin(_ context.Context, request models.LoginRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldIdentity, FieldAuthToken}
	}

	for _, f := range fields {
		switch f {
		case FieldIdentity:
			if !validIdentity(request.Identity) {
				return ErrInvalidIdentity
			}
		case FieldAuthToken:
			if !hexToken.MatchString(request.AuthToken) {
				return ErrInvalidAuthToken
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *RequestValidator) validateVaultPut(_ context.Context, request models.VaultPutRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldBlob, FieldVersion}
	}

	for _, f := range fields {
		switch f {
		case FieldBlob:
			if request.Blob == "" {
				return ErrEmptyBlob
			}
		case FieldVersion:
			if request.Version < 0 {
				return ErrInvalidVersion
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}

func (v *RequestValidator) validateRecoveryReset(_ context.Context, request models.RecoveryResetRequest, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldIdentity, FieldRecoveryAuthToken, FieldAuthToken, FieldSalts, FieldIterations, FieldBlob, FieldRecovery}
	}

	for _, f := range fields {
		switch f {
		case FieldIdentity:
			if !validIdentity(request.Identity) {
				return ErrInvalidIdentity
			}
		case FieldRecoveryAuthToken:
			if !hexToken.MatchString(request.RecoveryAuthToken) {
				return ErrInvalidAuthToken
			}
		case FieldAuthToken:
			if !hexToken.MatchString(request.AuthToken) {
				return ErrInvalidAuthToken
			}
		case FieldSalts:
			if !validSalt(request.LoginSalt) || !validSalt(request.DataSalt) {
				return ErrInvalidSalt
			}
		case FieldIterations:
			if request.KDFIterations < crypto.MinKDFIterations {
				return ErrLowIterations
			}
		case FieldBlob:
			if request.Blob == "" {
				return ErrEmptyBlob
			}
		case FieldRecovery:
			// A reset always rotates the recovery material: accepting a
			// reset that drops it would strand the next lockout.
			if !hexToken.MatchString(request.RecoveryVerifier) {
				return ErrInvalidVerifier
			}
			if request.WrappedRecoveryKey == "" {
				return ErrMissingRecoveryData
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}
