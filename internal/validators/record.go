package validators

import (
	"context"
	"encoding/base32"

	"github.com/MKhiriev/go-otp-vault/models"
)

// Field name constants used to specify which fields should be validated.
// These constants are passed to Validate to restrict validation to a
// subset of fields (field-level scoping).
const (
	// FieldRecordID targets the unique identifier of a vault record.
	FieldRecordID = "record_id"

	// FieldSecret targets the base32-encoded OTP seed of a record.
	FieldSecret = "secret"

	// FieldAlgorithm targets the HMAC algorithm of a record.
	FieldAlgorithm = "algorithm"

	// FieldDigits targets the generated code length of a record.
	FieldDigits = "digits"

	// FieldPeriod targets the TOTP time step of a record.
	FieldPeriod = "period"

	// FieldTimestamps targets the creation and modification timestamps.
	FieldTimestamps = "timestamps"
)

// secretEncoding accepts the unpadded uppercase base32 alphabet issuers
// put into otpauth URIs. Callers normalize case and strip spaces before
// validation.
var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// RecordValidator implements the Validator interface for vault records.
// It enforces the structural rules every record must satisfy before it
// enters the local record set: a present ID, a decodable seed, a known
// algorithm, and sane code parameters.
type RecordValidator struct {
}

func NewRecordValidator() Validator {
	return &RecordValidator{}
}

func (v *RecordValidator) Validate(ctx context.Context, obj any, fields ...string) error {
	switch value := obj.(type) {
	case models.Record:
		return v.validateRecord(ctx, value, fields...)
	case *models.Record:
		return v.validateRecord(ctx, *value, fields...)
	default:
		return ErrUnsupportedType
	}
}

func (v *RecordValidator) validateRecord(_ context.Context, record models.Record, fields ...string) error {
	if len(fields) == 0 {
		fields = []string{FieldRecordID, FieldSecret, FieldAlgorithm, FieldDigits, FieldPeriod, FieldTimestamps}
	}

	for _, f := range fields {
		switch f {
		case FieldRecordID:
			if record.ID == "" {
				return ErrInvalidRecordID
			}
		case FieldSecret:
			// Tombstones carry no seed; everything else must decode.
			if record.IsDeleted() {
				continue
			}
			if record.Secret == "" {
				return ErrInvalidSecret
			}
			if _, err := secretEncoding.DecodeString(record.Secret); err != nil {
				return ErrInvalidSecret
			}
		case FieldAlgorithm:
			if !record.Algorithm.Valid() {
				return ErrInvalidAlgorithm
			}
		case FieldDigits:
			if record.Digits < 6 || record.Digits > 8 {
				return ErrInvalidDigits
			}
		case FieldPeriod:
			if record.Period <= 0 {
				return ErrInvalidPeriod
			}
		case FieldTimestamps:
			if record.CreatedAt.IsZero() || record.UpdatedAt.IsZero() {
				return ErrInvalidTimestamps
			}
		default:
			return ErrUnknownField
		}
	}

	return nil
}
