// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
	"time"

	"github.com/MKhiriev/go-otp-vault/models"
)

const testHashKey = "test-secret-key"

func testRecord(id, issuer, account string) models.Record {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return models.Record{
		ID:        id,
		Issuer:    issuer,
		Account:   account,
		Secret:    "JBSWY3DPEHPK3PXP",
		Algorithm: models.AlgorithmSHA1,
		Digits:    6,
		Period:    30,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func testRecordSet(records ...models.Record) models.RecordSet {
	s := models.NewRecordSet()
	for _, r := range records {
		s[r.ID] = r
	}
	return s
}

// TestHashString_AuthTokenDigest проверяет хеширование токена аутентификации,
// как это делает сервер при регистрации и входе
func TestHashString_AuthTokenDigest(t *testing.T) {
	authToken := strings.Repeat("ab", 32)

	got := HashString(authToken, testHashKey)

	// Эталонный хеш считаем напрямую через crypto/hmac
	mac := hmac.New(sha256.New, []byte(testHashKey))
	mac.Write([]byte(authToken))
	want := hex.EncodeToString(mac.Sum(nil))

	if got != want {
		t.Errorf("Hash mismatch:\n  got:  %s\n  want: %s", got, want)
	}
}

// TestHashString_DifferentRecordSets проверяет что разные наборы записей дают разные хеши
func TestHashString_DifferentRecordSets(t *testing.T) {
	set1 := testRecordSet(testRecord("01920000-0000-7000-8000-000000000001", "GitHub", "alice"))
	set2 := testRecordSet(testRecord("01920000-0000-7000-8000-000000000002", "GitLab", "bob"))

	bytes1, err := set1.MarshalCanonical()
	if err != nil {
		t.Fatalf("failed to marshal set1: %v", err)
	}
	bytes2, err := set2.MarshalCanonical()
	if err != nil {
		t.Fatalf("failed to marshal set2: %v", err)
	}

	hash1 := HashString(string(bytes1), testHashKey)
	hash2 := HashString(string(bytes2), testHashKey)

	if hash1 == hash2 {
		t.Error("different record sets must produce different hashes")
	}
}

// TestHashString_DifferentKeys проверяет что разные ключи дают разные хеши для одних данных
func TestHashString_DifferentKeys(t *testing.T) {
	set := testRecordSet(testRecord("01920000-0000-7000-8000-0000000000bb", "Fastmail", "carol"))
	payloadBytes, err := set.MarshalCanonical()
	if err != nil {
		t.Fatalf("failed to marshal record set: %v", err)
	}

	hash1 := HashString(string(payloadBytes), "key-one")
	hash2 := HashString(string(payloadBytes), "key-two")

	if hash1 == hash2 {
		t.Error("different keys must produce different hashes for the same payload")
	}
}

// TestHashString_InsertionOrderIndependent проверяет что порядок добавления записей
// не влияет на хеш. Канонический формат сортирует записи по ID, поэтому два
// клиента, собравшие один и тот же набор в разном порядке, получат одинаковые
// байты и одинаковый хеш. Без этого сверка содержимого между устройствами
// давала бы ложные расхождения.
func TestHashString_InsertionOrderIndependent(t *testing.T) {
	a := testRecord("01920000-0000-7000-8000-00000000000a", "GitHub", "alice")
	b := testRecord("01920000-0000-7000-8000-00000000000b", "GitLab", "alice")
	c := testRecord("01920000-0000-7000-8000-00000000000c", "Google", "alice")

	set1 := testRecordSet(a, b, c)
	set2 := testRecordSet(c, a, b)

	bytes1, err := set1.MarshalCanonical()
	if err != nil {
		t.Fatalf("failed to marshal set1: %v", err)
	}
	bytes2, err := set2.MarshalCanonical()
	if err != nil {
		t.Fatalf("failed to marshal set2: %v", err)
	}

	hash1 := HashString(string(bytes1), testHashKey)
	hash2 := HashString(string(bytes2), testHashKey)

	t.Logf("set1 canonical: %s", bytes1)
	t.Logf("set2 canonical: %s", bytes2)

	if hash1 != hash2 {
		t.Error("insertion order must not affect the hash of a canonically serialized set")
	}
}

func TestHashRaw_MatchesHashString(t *testing.T) {
	data := "params:login-salt:user@example.com"

	raw := HashRaw(data, testHashKey)

	if len(raw) != sha256.Size {
		t.Fatalf("expected %d raw digest bytes, got %d", sha256.Size, len(raw))
	}
	if hex.EncodeToString(raw) != HashString(data, testHashKey) {
		t.Error("HashRaw and HashString must be the same computation")
	}
}
