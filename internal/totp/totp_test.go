package totp

import (
	"encoding/base32"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MKhiriev/go-otp-vault/models"
)

func b32(ascii string) string {
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString([]byte(ascii))
}

func totpRecord(algorithm models.OTPAlgorithm, secret string, digits, period int) models.Record {
	return models.Record{
		ID: "test", Issuer: "Example", Account: "alice@example.com",
		Secret: secret, Algorithm: algorithm, Digits: digits, Period: period,
	}
}

// TestCode_RFC6238Vectors checks the published Appendix B vectors for
// all three hash variants (8 digits, 30-second step).
func TestCode_RFC6238Vectors(t *testing.T) {
	sha1Secret := b32("12345678901234567890")
	sha256Secret := b32("12345678901234567890123456789012")
	sha512Secret := b32("1234567890123456789012345678901234567890123456789012345678901234")

	tests := []struct {
		at        int64
		algorithm models.OTPAlgorithm
		secret    string
		want      string
	}{
		{59, models.AlgorithmSHA1, sha1Secret, "94287082"},
		{59, models.AlgorithmSHA256, sha256Secret, "46119246"},
		{59, models.AlgorithmSHA512, sha512Secret, "90693936"},
		{1111111109, models.AlgorithmSHA1, sha1Secret, "07081804"},
		{1111111109, models.AlgorithmSHA256, sha256Secret, "68084774"},
		{1111111109, models.AlgorithmSHA512, sha512Secret, "25091201"},
		{1111111111, models.AlgorithmSHA1, sha1Secret, "14050471"},
		{1111111111, models.AlgorithmSHA256, sha256Secret, "67062674"},
		{1111111111, models.AlgorithmSHA512, sha512Secret, "99943326"},
		{1234567890, models.AlgorithmSHA1, sha1Secret, "89005924"},
		{1234567890, models.AlgorithmSHA256, sha256Secret, "91819424"},
		{1234567890, models.AlgorithmSHA512, sha512Secret, "93441116"},
		{2000000000, models.AlgorithmSHA1, sha1Secret, "69279037"},
		{2000000000, models.AlgorithmSHA256, sha256Secret, "90698825"},
		{2000000000, models.AlgorithmSHA512, sha512Secret, "38618901"},
		{20000000000, models.AlgorithmSHA1, sha1Secret, "65353130"},
		{20000000000, models.AlgorithmSHA256, sha256Secret, "77737706"},
		{20000000000, models.AlgorithmSHA512, sha512Secret, "47863826"},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%s@%d", tc.algorithm, tc.at), func(t *testing.T) {
			record := totpRecord(tc.algorithm, tc.secret, 8, 30)
			got, err := Code(record, time.Unix(tc.at, 0).UTC())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

// TestCode_RFC4226Vectors checks the HOTP Appendix D vectors by mapping
// counter N onto the time window [30N, 30N+30).
func TestCode_RFC4226Vectors(t *testing.T) {
	secret := b32("12345678901234567890")
	want := []string{
		"755224", "287082", "359152", "969429", "338314",
		"254676", "287922", "162583", "399871", "520489",
	}

	record := totpRecord(models.AlgorithmSHA1, secret, 6, 30)
	for counter, expected := range want {
		got, err := Code(record, time.Unix(int64(counter)*30, 0))
		require.NoError(t, err)
		assert.Equal(t, expected, got, "counter %d", counter)
	}
}

// TestCode_LeadingZerosPreserved pins a vector whose code starts with a
// zero; formatting must keep the full width.
func TestCode_LeadingZerosPreserved(t *testing.T) {
	record := totpRecord(models.AlgorithmSHA1, b32("12345678901234567890"), 8, 30)
	got, err := Code(record, time.Unix(1111111109, 0))
	require.NoError(t, err)
	assert.Equal(t, "07081804", got)
}

// TestCode_DefaultsApplied verifies the RFC defaults for records with
// zero-valued digits and period.
func TestCode_DefaultsApplied(t *testing.T) {
	secret := b32("12345678901234567890")
	at := time.Unix(59, 0)

	defaulted, err := Code(totpRecord("", secret, 0, 0), at)
	require.NoError(t, err)
	explicit, err := Code(totpRecord(models.AlgorithmSHA1, secret, 6, 30), at)
	require.NoError(t, err)

	assert.Equal(t, explicit, defaulted)
	assert.Len(t, defaulted, 6)
}

// TestCode_NormalizesSecretSpelling verifies that lowercase and grouped
// secrets (as printed on issuer setup screens) are accepted.
func TestCode_NormalizesSecretSpelling(t *testing.T) {
	at := time.Unix(1234567890, 0)
	canonical, err := Code(totpRecord(models.AlgorithmSHA1, "JBSWY3DPEHPK3PXP", 6, 30), at)
	require.NoError(t, err)

	spaced, err := Code(totpRecord(models.AlgorithmSHA1, "jbsw y3dp ehpk 3pxp", 6, 30), at)
	require.NoError(t, err)
	assert.Equal(t, canonical, spaced)
}

func TestCode_InvalidInputs(t *testing.T) {
	at := time.Unix(59, 0)

	_, err := Code(totpRecord(models.AlgorithmSHA1, "", 6, 30), at)
	assert.ErrorIs(t, err, ErrInvalidSecret)

	_, err = Code(totpRecord(models.AlgorithmSHA1, "not-base32!", 6, 30), at)
	assert.ErrorIs(t, err, ErrInvalidSecret)

	_, err = Code(totpRecord("MD5", "JBSWY3DPEHPK3PXP", 6, 30), at)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestRemaining(t *testing.T) {
	record := totpRecord(models.AlgorithmSHA1, "JBSWY3DPEHPK3PXP", 6, 30)

	assert.Equal(t, time.Second, Remaining(record, time.Unix(59, 0)))
	assert.Equal(t, 30*time.Second, Remaining(record, time.Unix(60, 0)))
	assert.Equal(t, 15*time.Second, Remaining(record, time.Unix(75, 0)))
}

// TestURI_RoundTripsThroughURL verifies the otpauth URI shape and the
// escaping of label components.
func TestURI_RoundTripsThroughURL(t *testing.T) {
	record := totpRecord(models.AlgorithmSHA256, "JBSWY3DPEHPK3PXP", 7, 60)
	record.Issuer = "Acme Corp"

	uri := URI(record)
	parsed, err := url.Parse(uri)
	require.NoError(t, err)

	assert.Equal(t, "otpauth", parsed.Scheme)
	assert.Equal(t, "totp", parsed.Host)
	assert.Equal(t, "/Acme Corp:alice@example.com", parsed.Path)

	query := parsed.Query()
	assert.Equal(t, "JBSWY3DPEHPK3PXP", query.Get("secret"))
	assert.Equal(t, "Acme Corp", query.Get("issuer"))
	assert.Equal(t, "SHA256", query.Get("algorithm"))
	assert.Equal(t, "7", query.Get("digits"))
	assert.Equal(t, "60", query.Get("period"))
}

// TestURI_NoIssuer verifies the label degrades to the bare account.
func TestURI_NoIssuer(t *testing.T) {
	record := totpRecord(models.AlgorithmSHA1, "JBSWY3DPEHPK3PXP", 6, 30)
	record.Issuer = ""

	uri := URI(record)
	parsed, err := url.Parse(uri)
	require.NoError(t, err)

	assert.Equal(t, "/alice@example.com", parsed.Path)
	assert.Empty(t, parsed.Query().Get("issuer"))
}
