package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/MKhiriev/go-otp-vault/internal/config"
	"github.com/MKhiriev/go-otp-vault/internal/logger"
	"github.com/MKhiriev/go-otp-vault/internal/store"
	"github.com/MKhiriev/go-otp-vault/internal/utils"
	"github.com/MKhiriev/go-otp-vault/internal/validators"
	"github.com/MKhiriev/go-otp-vault/models"
)

// recoveryService is the concrete implementation of RecoveryService.
//
// Both operations are unauthenticated: what gates a reset is possession of
// the recovery secret, proven by the recovery authentication token matching
// the stored verifier digest. Lookup hands out only material that is
// useless without that secret.
type recoveryService struct {
	userRepository  store.UserRepository
	vaultRepository store.VaultRepository
	validator       validators.Validator

	// hashKey digests recovery tokens and verifiers, same key as auth.
	hashKey string

	// paramsKey fabricates deterministic bundles for unknown identities.
	paramsKey string

	logger *logger.Logger
}

// NewRecoveryService constructs a RecoveryService over both repositories.
func NewRecoveryService(userRepository store.UserRepository, vaultRepository store.VaultRepository, cfg config.ServerApp, logger *logger.Logger) RecoveryService {
	return &recoveryService{
		userRepository:  userRepository,
		vaultRepository: vaultRepository,
		validator:       validators.NewRequestValidator(),
		hashKey:         cfg.AuthHashKey,
		paramsKey:       cfg.ParamsKey,
		logger:          logger,
	}
}

// Lookup returns the recovery bundle for an identity: the encrypted vault,
// the recovery-wrapped data key, and the KDF parameters for deriving the
// recovery key from the recovery secret.
//
// Identities that cannot be recovered — unknown ones, accounts that never
// enrolled recovery — all receive the same deterministic fabricated bundle
// instead of an error. The response alone therefore never reveals whether
// an account exists; only decrypting the blob with the real recovery secret
// distinguishes the cases.
func (r *recoveryService) Lookup(ctx context.Context, request models.RecoveryLookupRequest) (models.RecoveryLookupResponse, error) {
	log := logger.FromContext(ctx)

	if err := r.validator.Validate(ctx, request); err != nil {
		log.Error().Err(err).Msg("invalid recovery lookup provided")
		return models.RecoveryLookupResponse{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	foundUser, err := r.userRepository.FindUserByIdentity(ctx, request.Identity)
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			log.Debug().Msg("serving fabricated recovery bundle")
			return fakeRecoveryLookup(request.Identity, r.paramsKey), nil
		}
		log.Err(err).Msg("user search by identity failed")
		return models.RecoveryLookupResponse{}, fmt.Errorf("user search by identity failed: %w", err)
	}

	if foundUser.RecoveryHash == "" {
		log.Debug().Int64("user_id", foundUser.UserID).Msg("recovery not enrolled, serving fabricated bundle")
		return fakeRecoveryLookup(request.Identity, r.paramsKey), nil
	}

	vaultState, err := r.vaultRepository.GetVault(ctx, foundUser.UserID)
	if err != nil {
		if errors.Is(err, store.ErrVaultNotFound) {
			return fakeRecoveryLookup(request.Identity, r.paramsKey), nil
		}
		log.Err(err).Int64("user_id", foundUser.UserID).Msg("vault lookup for recovery failed")
		return models.RecoveryLookupResponse{}, fmt.Errorf("vault lookup for recovery failed: %w", err)
	}
	if vaultState.WrappedRecoveryKey == "" {
		return fakeRecoveryLookup(request.Identity, r.paramsKey), nil
	}

	return models.RecoveryLookupResponse{
		Blob:               vaultState.Blob,
		WrappedRecoveryKey: vaultState.WrappedRecoveryKey,
		LoginSalt:          foundUser.LoginSalt,
		DataSalt:           foundUser.DataSalt,
		KDFIterations:      foundUser.KDFIterations,
	}, nil
}

// Reset replaces an account's credentials and vault content after verifying
// possession of the recovery secret.
//
// The recovery authentication token is digested with the server hash key and
// compared against the stored verifier digest in constant time; unknown
// identities, accounts without recovery, and wrong tokens all fail with the
// same ErrWrongCredentials. On success the repository applies every field in
// one transaction and bumps the token epoch, which revokes all sessions
// issued before the reset.
func (r *recoveryService) Reset(ctx context.Context, request models.RecoveryResetRequest) (models.User, error) {
	log := logger.FromContext(ctx)

	if err := r.validator.Validate(ctx, request); err != nil {
		log.Error().Err(err).Msg("invalid recovery reset provided")
		return models.User{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	foundUser, err := r.userRepository.FindUserByIdentity(ctx, request.Identity)
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			log.Warn().Msg("recovery reset attempt for unknown identity")
			return models.User{}, ErrWrongCredentials
		}
		log.Err(err).Msg("user search by identity failed")
		return models.User{}, fmt.Errorf("user search by identity failed: %w", err)
	}

	if foundUser.RecoveryHash == "" {
		log.Warn().Int64("user_id", foundUser.UserID).Msg("recovery reset attempt without enrolled recovery")
		return models.User{}, ErrWrongCredentials
	}
	if !digestsEqual(foundUser.RecoveryHash, utils.HashString(request.RecoveryAuthToken, r.hashKey)) {
		log.Warn().Int64("user_id", foundUser.UserID).Msg("wrong recovery token")
		return models.User{}, ErrWrongCredentials
	}

	foundUser.AuthHash = utils.HashString(request.AuthToken, r.hashKey)
	foundUser.LoginSalt = request.LoginSalt
	foundUser.DataSalt = request.DataSalt
	foundUser.KDFIterations = request.KDFIterations
	foundUser.RecoveryHash = utils.HashString(request.RecoveryVerifier, r.hashKey)

	newVault := models.VaultState{
		Blob:               request.Blob,
		WrappedRecoveryKey: request.WrappedRecoveryKey,
	}

	resetUser, err := r.userRepository.ResetCredentials(ctx, foundUser, newVault)
	if err != nil {
		log.Err(err).Int64("user_id", foundUser.UserID).Msg("credentials reset ended with error")
		return models.User{}, fmt.Errorf("credentials reset ended with error: %w", err)
	}

	return resetUser, nil
}
