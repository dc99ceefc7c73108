package adapter

import "errors"

// Sentinel transport errors. mapHTTPError translates HTTP status codes into
// these values; callers match them with [errors.Is].
var (
	// ErrBadRequest corresponds to HTTP 400: the server rejected the
	// request shape or field values.
	ErrBadRequest = errors.New("bad request")

	// ErrUnauthorized corresponds to HTTP 401: missing, expired or revoked
	// credentials. A session issued before a recovery reset surfaces this.
	ErrUnauthorized = errors.New("client unauthorized")

	// ErrForbidden corresponds to HTTP 403.
	ErrForbidden = errors.New("access forbidden")

	// ErrNotFound corresponds to HTTP 404.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict corresponds to HTTP 409: the conditional vault
	// write lost the race, another device uploaded first.
	ErrVersionConflict = errors.New("vault version conflict")

	// ErrIdentityTaken is the Register-specific meaning of HTTP 409:
	// an account with the requested identity already exists.
	ErrIdentityTaken = errors.New("identity already registered")

	// ErrPreconditionFailed corresponds to HTTP 412: a vault creation
	// claimed a non-zero base version.
	ErrPreconditionFailed = errors.New("vault write precondition failed")

	// ErrInternalServerError corresponds to HTTP 500.
	ErrInternalServerError = errors.New("internal server error")

	// ErrBadGateway corresponds to HTTP 502.
	ErrBadGateway = errors.New("bad gateway")

	// ErrNetworkUnavailable wraps request failures that never produced an
	// HTTP response: connection refused, DNS failure, timeout, cancelled
	// context. The sync engine treats it as "try again later".
	ErrNetworkUnavailable = errors.New("network unavailable")
)
