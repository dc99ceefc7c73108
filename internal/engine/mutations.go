package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MKhiriev/go-otp-vault/models"
)

// Defaults for OTP parameters an otpauth URI may omit.
const (
	defaultDigits = 6
	defaultPeriod = 30
)

func (e *vaultEngine) Add(ctx context.Context, draft models.Record) (models.Record, error) {
	now := time.Now().UTC()

	record := draft
	record.ID = e.ids.Generate()
	record.Secret = normalizeSecret(record.Secret)
	if record.Algorithm == "" {
		record.Algorithm = models.AlgorithmSHA1
	}
	if record.Digits == 0 {
		record.Digits = defaultDigits
	}
	if record.Period == 0 {
		record.Period = defaultPeriod
	}
	record.CreatedAt = now
	record.UpdatedAt = now
	record.DeletedAt = nil

	if err := e.validator.Validate(ctx, record); err != nil {
		return models.Record{}, fmt.Errorf("add record: %w", err)
	}

	e.mu.Lock()
	if e.key == nil {
		e.mu.Unlock()
		return models.Record{}, ErrVaultLocked
	}
	e.records[record.ID] = record
	e.mutSeq++
	e.setStatusLocked(models.StatusDirty)
	e.mu.Unlock()

	e.debounce.Reset()
	e.idle.Touch()

	return record, nil
}

// Update replaces the editable fields of a live record. Zero-valued OTP
// parameters and an empty secret keep their current values, so callers
// can edit a label without re-entering the seed.
func (e *vaultEngine) Update(ctx context.Context, record models.Record) error {
	record.Secret = normalizeSecret(record.Secret)

	e.mu.Lock()
	if e.key == nil {
		e.mu.Unlock()
		return ErrVaultLocked
	}

	existing, ok := e.records[record.ID]
	if !ok || existing.IsDeleted() {
		e.mu.Unlock()
		return ErrRecordNotFound
	}

	record.CreatedAt = existing.CreatedAt
	record.UpdatedAt = time.Now().UTC()
	record.DeletedAt = nil
	if record.Secret == "" {
		record.Secret = existing.Secret
	}
	if record.Algorithm == "" {
		record.Algorithm = existing.Algorithm
	}
	if record.Digits == 0 {
		record.Digits = existing.Digits
	}
	if record.Period == 0 {
		record.Period = existing.Period
	}

	if err := e.validator.Validate(ctx, record); err != nil {
		e.mu.Unlock()
		return fmt.Errorf("update record: %w", err)
	}

	e.records[record.ID] = record
	e.mutSeq++
	e.setStatusLocked(models.StatusDirty)
	e.mu.Unlock()

	e.debounce.Reset()
	e.idle.Touch()

	return nil
}

func (e *vaultEngine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	if e.key == nil {
		e.mu.Unlock()
		return ErrVaultLocked
	}

	existing, ok := e.records[id]
	if !ok {
		e.mu.Unlock()
		return ErrRecordNotFound
	}
	if existing.IsDeleted() {
		e.mu.Unlock()
		return nil
	}

	now := time.Now().UTC()
	existing.Secret = "" // the tombstone keeps no seed material
	existing.DeletedAt = &now
	existing.UpdatedAt = now
	e.records[id] = existing
	e.mutSeq++
	e.setStatusLocked(models.StatusDirty)
	e.mu.Unlock()

	e.debounce.Reset()
	e.idle.Touch()

	return nil
}

// Records lists live records. Sorting by ID gives creation order, since
// IDs are time-ordered UUIDs.
func (e *vaultEngine) Records(_ context.Context) ([]models.Record, error) {
	e.mu.Lock()
	if e.key == nil {
		e.mu.Unlock()
		return nil, ErrVaultLocked
	}

	out := make([]models.Record, 0, len(e.records))
	for _, id := range e.records.SortedIDs() {
		if record := e.records[id]; !record.IsDeleted() {
			out = append(out, record)
		}
	}
	e.mu.Unlock()

	e.idle.Touch()

	return out, nil
}

func (e *vaultEngine) Get(_ context.Context, id string) (models.Record, error) {
	e.mu.Lock()
	if e.key == nil {
		e.mu.Unlock()
		return models.Record{}, ErrVaultLocked
	}
	record, ok := e.records[id]
	e.mu.Unlock()

	if !ok || record.IsDeleted() {
		return models.Record{}, ErrRecordNotFound
	}

	e.idle.Touch()

	return record, nil
}

// normalizeSecret converts user- and URI-supplied seeds to the form the
// validator and the code generator expect: uppercase unpadded base32
// with separators stripped.
func normalizeSecret(secret string) string {
	secret = strings.ReplaceAll(secret, " ", "")
	secret = strings.ReplaceAll(secret, "-", "")
	secret = strings.ToUpper(secret)

	return strings.TrimRight(secret, "=")
}
