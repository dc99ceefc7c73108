package validators

import "errors"

var (
	ErrUnsupportedType = errors.New("unsupported type for validation")
	ErrUnknownField    = errors.New("unknown field for validation")

	ErrInvalidRecordID     = errors.New("invalid record id")
	ErrInvalidSecret       = errors.New("secret is not valid base32")
	ErrInvalidAlgorithm    = errors.New("unsupported OTP algorithm")
	ErrInvalidDigits       = errors.New("digits must be between 6 and 8")
	ErrInvalidPeriod       = errors.New("period must be positive")
	ErrInvalidTimestamps   = errors.New("record timestamps are not set")
	ErrInvalidIdentity     = errors.New("invalid identity")
	ErrInvalidAuthToken    = errors.New("auth token must be 64 hex characters")
	ErrInvalidSalt         = errors.New("salt must be base64 of 16 bytes")
	ErrLowIterations       = errors.New("kdf iteration count below the accepted floor")
	ErrEmptyBlob           = errors.New("vault blob is required")
	ErrInvalidVersion      = errors.New("invalid version")
	ErrInvalidVerifier     = errors.New("recovery verifier must be 64 hex characters")
	ErrMissingRecoveryData = errors.New("recovery verifier and wrapped key must be set together")
)
