package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-otp-vault/internal/logger"
	"github.com/MKhiriev/go-otp-vault/internal/store"
	"github.com/MKhiriev/go-otp-vault/internal/validators"
	"github.com/MKhiriev/go-otp-vault/models"
)

// vaultService is the concrete implementation of VaultService. The blob
// is opaque ciphertext at this layer; the only semantics the service adds
// on top of the repository are the empty-vault download and the routing
// of uploads between first create and conditional update.
type vaultService struct {
	vaultRepository store.VaultRepository
	validator       validators.Validator
	logger          *logger.Logger
}

// NewVaultService constructs a VaultService backed by the given repository.
func NewVaultService(vaultRepository store.VaultRepository, logger *logger.Logger) VaultService {
	return &vaultService{
		vaultRepository: vaultRepository,
		validator:       validators.NewRequestValidator(),
		logger:          logger,
	}
}

// Download returns the account's vault state.
//
// An account without a vault row gets an empty state with version 0, not an
// error: to the client that is a valid answer meaning "nothing uploaded yet",
// and version 0 is the base it must use for its first upload.
func (s *vaultService) Download(ctx context.Context, userID int64) (models.VaultState, error) {
	log := logger.FromContext(ctx)

	state, err := s.vaultRepository.GetVault(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrVaultNotFound) {
			return models.VaultState{}, nil
		}
		log.Err(err).Int64("user_id", userID).Msg("vault download failed")
		return models.VaultState{}, fmt.Errorf("vault download failed: %w", err)
	}

	return state, nil
}

// Upload applies a conditional vault write and returns the new version.
//
// Base version 0 means the client believes no vault exists: the write goes
// through the create path and fails with store.ErrVersionConflict if a row
// appeared concurrently. Any other base version goes through the
// optimistic-locking update, which distinguishes a stale version
// (store.ErrVersionConflict) from a write against a missing row
// (store.ErrVaultNotFound).
func (s *vaultService) Upload(ctx context.Context, userID int64, put models.VaultPutRequest) (models.VaultPutResponse, error) {
	log := logger.FromContext(ctx)

	if err := s.validator.Validate(ctx, put); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("invalid vault upload provided")
		return models.VaultPutResponse{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	var newVersion int64
	var err error
	if put.Version == 0 {
		newVersion, err = s.vaultRepository.CreateVault(ctx, userID, put)
	} else {
		newVersion, err = s.vaultRepository.UpdateVault(ctx, userID, put)
	}
	if err != nil {
		log.Err(err).
			Int64("user_id", userID).
			Int64("base_version", put.Version).
			Msg("vault write rejected")
		return models.VaultPutResponse{}, fmt.Errorf("vault write rejected: %w", err)
	}

	return models.VaultPutResponse{Version: newVersion}, nil
}
