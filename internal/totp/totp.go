// Package totp generates time-based one-time passwords (RFC 6238) from
// vault records. Code generation is pure computation over the record's
// seed and parameters; nothing here touches the network or storage.
package totp

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base32"
	"errors"
	"fmt"
	"hash"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/MKhiriev/go-otp-vault/models"
)

const (
	// DefaultDigits is the standard TOTP code length.
	DefaultDigits = 6

	// DefaultPeriod is the standard TOTP time step in seconds.
	DefaultPeriod = 30
)

var (
	// ErrInvalidSecret is returned when a record's seed is not valid
	// base32.
	ErrInvalidSecret = errors.New("secret is not valid base32")

	// ErrUnsupportedAlgorithm is returned for algorithms outside the
	// SHA1/SHA256/SHA512 set.
	ErrUnsupportedAlgorithm = errors.New("unsupported OTP algorithm")
)

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Code computes the record's one-time code for the time window
// containing at. Zero-valued Digits and Period fall back to the RFC
// defaults, so records imported from minimal otpauth URIs still work.
func Code(record models.Record, at time.Time) (string, error) {
	key, err := decodeSecret(record.Secret)
	if err != nil {
		return "", err
	}

	newHash, err := hashFor(record.Algorithm)
	if err != nil {
		return "", err
	}

	digits := record.Digits
	if digits == 0 {
		digits = DefaultDigits
	}
	period := record.Period
	if period <= 0 {
		period = DefaultPeriod
	}

	counter := at.Unix() / int64(period)
	return fmt.Sprintf("%0*d", digits, hotp(key, counter, digits, newHash)), nil
}

// Remaining reports how long the code valid at time at will still be
// accepted before the window rolls over.
func Remaining(record models.Record, at time.Time) time.Duration {
	period := int64(record.Period)
	if period <= 0 {
		period = DefaultPeriod
	}
	return time.Duration(period-at.Unix()%period) * time.Second
}

// URI renders the record as an otpauth:// URI in the Key Uri Format
// understood by authenticator apps, suitable for QR display.
func URI(record models.Record) string {
	label := url.PathEscape(record.Account)
	if record.Issuer != "" {
		label = url.PathEscape(record.Issuer) + ":" + label
	}

	query := url.Values{}
	query.Set("secret", normalizeSecret(record.Secret))
	if record.Issuer != "" {
		query.Set("issuer", record.Issuer)
	}
	query.Set("algorithm", string(record.Algorithm))
	query.Set("digits", fmt.Sprintf("%d", record.Digits))
	query.Set("period", fmt.Sprintf("%d", record.Period))

	return fmt.Sprintf("otpauth://totp/%s?%s", label, query.Encode())
}

// hotp implements the RFC 4226 HMAC-based one-time password algorithm,
// parameterized by hash function for the RFC 6238 variants.
func hotp(key []byte, counter int64, digits int, newHash func() hash.Hash) int {
	// Counter is hashed as a big-endian 8-byte value.
	counterBytes := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		counterBytes[i] = byte(counter & 0xff)
		counter >>= 8
	}

	mac := hmac.New(newHash, key)
	mac.Write(counterBytes)
	sum := mac.Sum(nil)

	// Dynamic truncation: the low 4 bits of the last byte pick the
	// offset, the MSB of the extracted word is cleared to avoid signed
	// interpretation differences.
	offset := sum[len(sum)-1] & 0x0f
	code := (int(sum[offset]&0x7f) << 24) |
		(int(sum[offset+1]) << 16) |
		(int(sum[offset+2]) << 8) |
		int(sum[offset+3])

	return code % int(math.Pow10(digits))
}

func hashFor(algorithm models.OTPAlgorithm) (func() hash.Hash, error) {
	switch algorithm {
	case models.AlgorithmSHA1, "":
		return sha1.New, nil
	case models.AlgorithmSHA256:
		return sha256.New, nil
	case models.AlgorithmSHA512:
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}
}

func decodeSecret(secret string) ([]byte, error) {
	normalized := normalizeSecret(secret)
	if normalized == "" {
		return nil, ErrInvalidSecret
	}
	key, err := secretEncoding.DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSecret, err)
	}
	return key, nil
}

// normalizeSecret tolerates the spacing and case variations issuers put
// on setup screens.
func normalizeSecret(secret string) string {
	return strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
}
