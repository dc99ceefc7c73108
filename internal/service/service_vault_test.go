// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package service

import (
	"context"
	"testing"
	"time"

	"github.com/MKhiriev/go-otp-vault/internal/logger"
	"github.com/MKhiriev/go-otp-vault/internal/store"
	"github.com/MKhiriev/go-otp-vault/internal/validators"
	"github.com/MKhiriev/go-otp-vault/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─────────────────────────────────────────────
// Mock: store.VaultRepository
// ─────────────────────────────────────────────

type mockVaultRepository struct {
	getFn    func(ctx context.Context, userID int64) (models.VaultState, error)
	createFn func(ctx context.Context, userID int64, put models.VaultPutRequest) (int64, error)
	updateFn func(ctx context.Context, userID int64, put models.VaultPutRequest) (int64, error)
}

func (m *mockVaultRepository) GetVault(ctx context.Context, userID int64) (models.VaultState, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return models.VaultState{}, store.ErrVaultNotFound
}

func (m *mockVaultRepository) CreateVault(ctx context.Context, userID int64, put models.VaultPutRequest) (int64, error) {
	if m.createFn != nil {
		return m.createFn(ctx, userID, put)
	}
	return 1, nil
}

func (m *mockVaultRepository) UpdateVault(ctx context.Context, userID int64, put models.VaultPutRequest) (int64, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, userID, put)
	}
	return put.Version + 1, nil
}

func newRawVaultService(repo *mockVaultRepository) *vaultService {
	return &vaultService{
		vaultRepository: repo,
		validator:       validators.NewRequestValidator(),
		logger:          logger.Nop(),
	}
}

// ─────────────────────────────────────────────
// Download
// ─────────────────────────────────────────────

func TestVaultService_Download_Success(t *testing.T) {
	stored := models.VaultState{
		Blob:      "v=1;iv=abc;ct=def",
		Version:   5,
		UpdatedAt: time.Now(),
	}
	repo := &mockVaultRepository{
		getFn: func(_ context.Context, userID int64) (models.VaultState, error) {
			assert.Equal(t, int64(7), userID)
			return stored, nil
		},
	}
	svc := newRawVaultService(repo)

	state, err := svc.Download(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, stored, state)
	assert.True(t, state.Exists())
}

func TestVaultService_Download_NoRow_EmptyStateVersionZero(t *testing.T) {
	svc := newRawVaultService(&mockVaultRepository{})

	state, err := svc.Download(context.Background(), 7)

	require.NoError(t, err, "a missing vault is a valid answer, not an error")
	assert.Equal(t, int64(0), state.Version)
	assert.Empty(t, state.Blob)
	assert.False(t, state.Exists())
}

func TestVaultService_Download_StorageError(t *testing.T) {
	repo := &mockVaultRepository{
		getFn: func(_ context.Context, _ int64) (models.VaultState, error) {
			return models.VaultState{}, errStorage
		},
	}
	svc := newRawVaultService(repo)

	_, err := svc.Download(context.Background(), 7)

	require.ErrorIs(t, err, errStorage)
}

// ─────────────────────────────────────────────
// Upload
// ─────────────────────────────────────────────

func TestVaultService_Upload_VersionZero_TakesCreatePath(t *testing.T) {
	created, updated := false, false
	repo := &mockVaultRepository{
		createFn: func(_ context.Context, _ int64, put models.VaultPutRequest) (int64, error) {
			created = true
			return 1, nil
		},
		updateFn: func(_ context.Context, _ int64, put models.VaultPutRequest) (int64, error) {
			updated = true
			return put.Version + 1, nil
		},
	}
	svc := newRawVaultService(repo)

	response, err := svc.Upload(context.Background(), 7, models.VaultPutRequest{Blob: "v=1;iv=a;ct=b", Version: 0})

	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, updated)
	assert.Equal(t, int64(1), response.Version)
}

func TestVaultService_Upload_NonZeroVersion_TakesUpdatePath(t *testing.T) {
	created, updated := false, false
	repo := &mockVaultRepository{
		createFn: func(_ context.Context, _ int64, _ models.VaultPutRequest) (int64, error) {
			created = true
			return 1, nil
		},
		updateFn: func(_ context.Context, _ int64, put models.VaultPutRequest) (int64, error) {
			updated = true
			return put.Version + 1, nil
		},
	}
	svc := newRawVaultService(repo)

	response, err := svc.Upload(context.Background(), 7, models.VaultPutRequest{Blob: "v=1;iv=a;ct=b", Version: 4})

	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, updated)
	assert.Equal(t, int64(5), response.Version)
}

func TestVaultService_Upload_EmptyBlob_Invalid(t *testing.T) {
	called := false
	repo := &mockVaultRepository{
		createFn: func(_ context.Context, _ int64, _ models.VaultPutRequest) (int64, error) {
			called = true
			return 1, nil
		},
		updateFn: func(_ context.Context, _ int64, _ models.VaultPutRequest) (int64, error) {
			called = true
			return 0, nil
		},
	}
	svc := newRawVaultService(repo)

	_, err := svc.Upload(context.Background(), 7, models.VaultPutRequest{Blob: "", Version: 0})

	require.ErrorIs(t, err, ErrInvalidDataProvided)
	assert.False(t, called)
}

func TestVaultService_Upload_VersionConflict_Passthrough(t *testing.T) {
	repo := &mockVaultRepository{
		updateFn: func(_ context.Context, _ int64, _ models.VaultPutRequest) (int64, error) {
			return 0, store.ErrVersionConflict
		},
	}
	svc := newRawVaultService(repo)

	_, err := svc.Upload(context.Background(), 7, models.VaultPutRequest{Blob: "v=1;iv=a;ct=b", Version: 4})

	require.ErrorIs(t, err, store.ErrVersionConflict)
}

func TestVaultService_Upload_MissingRowWithClaimedVersion(t *testing.T) {
	repo := &mockVaultRepository{
		updateFn: func(_ context.Context, _ int64, _ models.VaultPutRequest) (int64, error) {
			return 0, store.ErrVaultNotFound
		},
	}
	svc := newRawVaultService(repo)

	_, err := svc.Upload(context.Background(), 7, models.VaultPutRequest{Blob: "v=1;iv=a;ct=b", Version: 4})

	require.ErrorIs(t, err, store.ErrVaultNotFound)
}
