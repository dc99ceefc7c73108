// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

// Package adapter provides transport-layer abstractions for communicating with
// the vault server.
//
// The primary abstraction is [ServerAdapter], which decouples the sync engine
// from the underlying protocol. The package ships an HTTP/REST implementation
// ([NewHTTPServerAdapter]) built on resty.
//
// Error values defined in errors.go are mapped from HTTP status codes by
// mapHTTPError so that callers can use [errors.Is] for transport-agnostic error
// handling (e.g. [ErrVersionConflict] for 409, [ErrUnauthorized] for 401).
// Failures that never produced an HTTP response are wrapped in
// [ErrNetworkUnavailable].
package adapter

import (
	"context"

	"github.com/MKhiriev/go-otp-vault/models"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/server_adapter_mock.go -package=mock

// ServerAdapter defines transport-agnostic communication with the vault
// server. Implementations are responsible for serialisation, authentication
// header management, and mapping transport-level errors to the sentinel values
// defined in this package.
type ServerAdapter interface {
	// SetToken stores the bearer token that will be attached to all subsequent
	// authenticated requests. It should be called immediately after a
	// successful Register, Login or RecoveryReset, and with an empty string
	// on logout.
	SetToken(token string)

	// Token returns the bearer token currently stored in the adapter, or an
	// empty string if no token has been set yet.
	Token() string

	// Register creates the account and its initial vault in one request.
	// The request carries only derived material: salts, iteration count,
	// the login auth token, the recovery verifier and the already-encrypted
	// initial blob. On success the issued bearer token is extracted from the
	// Authorization response header, stored via SetToken and returned.
	Register(ctx context.Context, req models.RegisterRequest) (models.Token, error)

	// Login authenticates with the derived auth token. On success the issued
	// bearer token is stored via SetToken and returned. Returns
	// [ErrUnauthorized] when the server rejects the credentials.
	Login(ctx context.Context, req models.LoginRequest) (models.Token, error)

	// RequestParams fetches the account's KDF parameters (salts and
	// iteration count) needed to derive keys before Login. The server
	// answers for unknown identities too, so a successful call proves
	// nothing about account existence.
	RequestParams(ctx context.Context, identity string) (models.AuthParams, error)

	// DownloadVault fetches the current server-side vault state: the
	// encrypted blob, its version and the recovery-wrapped data key.
	// Requires a valid bearer token.
	DownloadVault(ctx context.Context) (models.VaultState, error)

	// UploadVault performs a conditional write of the encrypted blob and
	// returns the newly assigned version. Returns [ErrVersionConflict]
	// (wrapped) when another device wrote first, and [ErrPreconditionFailed]
	// (wrapped) when creating a vault with a non-zero claimed version.
	// Requires a valid bearer token.
	UploadVault(ctx context.Context, req models.VaultPutRequest) (int64, error)

	// RecoveryLookup fetches the material needed to start account recovery:
	// the current blob, the recovery-wrapped data key and the KDF
	// parameters. Unauthenticated; unknown identities receive a
	// deterministic fake response.
	RecoveryLookup(ctx context.Context, identity string) (models.RecoveryLookupResponse, error)

	// RecoveryReset atomically replaces the account's credentials and vault
	// after a successful recovery. On success the server has revoked every
	// previously issued session; the fresh bearer token from the
	// Authorization response header is stored via SetToken and returned.
	RecoveryReset(ctx context.Context, req models.RecoveryResetRequest) (models.Token, error)

	// Version returns the server build version string.
	Version(ctx context.Context) (string, error)
}
