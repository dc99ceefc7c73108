package service

import (
	"context"
	"crypto/hmac"
	"errors"
	"fmt"
	"time"

	"github.com/MKhiriev/go-otp-vault/internal/config"
	"github.com/MKhiriev/go-otp-vault/internal/logger"
	"github.com/MKhiriev/go-otp-vault/internal/store"
	"github.com/MKhiriev/go-otp-vault/internal/utils"
	"github.com/MKhiriev/go-otp-vault/internal/validators"
	"github.com/MKhiriev/go-otp-vault/models"
)

// authService is the concrete implementation of AuthService.
// It handles account registration, token verification, and the JWT
// session lifecycle using a UserRepository for persistence and
// HMAC-SHA256 for digesting authentication tokens before storage.
type authService struct {
	// userRepository is the data-access layer used to create and look up users.
	userRepository store.UserRepository

	// validator checks the shape of incoming request bodies.
	validator validators.Validator

	// hashKey is the HMAC secret used when digesting authentication tokens
	// before storage or comparison. Must match the value used at
	// registration time.
	hashKey string

	// paramsKey is the HMAC secret for fabricating deterministic KDF
	// parameters for unknown identities.
	paramsKey string

	// tokenSignKey is the HMAC secret used to sign and verify JWT tokens.
	tokenSignKey string

	// tokenIssuer is the "iss" claim embedded in every issued JWT.
	// Tokens whose issuer does not match this value are rejected during parsing.
	tokenIssuer string

	// tokenDuration controls how long a newly issued JWT remains valid.
	tokenDuration time.Duration

	// logger is the structured logger used for diagnostic and error output.
	logger *logger.Logger
}

// NewAuthService constructs a new AuthService wired to the given UserRepository
// and populated with security parameters from cfg.
//
// The returned service is safe for concurrent use; all state is read-only after
// construction.
func NewAuthService(userRepository store.UserRepository, cfg config.ServerApp, logger *logger.Logger) AuthService {
	return &authService{
		userRepository: userRepository,
		validator:      validators.NewRequestValidator(),
		hashKey:        cfg.AuthHashKey,
		paramsKey:      cfg.ParamsKey,
		tokenSignKey:   cfg.TokenSignKey,
		tokenIssuer:    cfg.TokenIssuer,
		tokenDuration:  cfg.TokenDuration,
		logger:         logger,
	}
}

// RegisterUser creates a new account together with its initial vault row.
//
// The request carries only derived material: the authentication token is
// digested with the server hash key before it is stored, and the blob is
// persisted as-is. The optional recovery verifier is digested the same way.
//
// Returns the persisted user (with a server-assigned UserID) or:
//   - ErrInvalidDataProvided if the request fails shape validation,
//     including an iteration count below the accepted floor.
//   - A wrapped storage error if the repository call fails (e.g. identity
//     already taken — see store.ErrIdentityAlreadyExists).
func (a *authService) RegisterUser(ctx context.Context, request models.RegisterRequest) (models.User, error) {
	log := logger.FromContext(ctx)

	if err := a.validator.Validate(ctx, request); err != nil {
		log.Error().Err(err).Str("identity", request.Identity).Msg("invalid registration data provided")
		return models.User{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	user := models.User{
		Identity:      request.Identity,
		LoginSalt:     request.LoginSalt,
		DataSalt:      request.DataSalt,
		KDFIterations: request.KDFIterations,
		AuthHash:      utils.HashString(request.AuthToken, a.hashKey),
	}
	if request.RecoveryVerifier != "" {
		user.RecoveryHash = utils.HashString(request.RecoveryVerifier, a.hashKey)
	}

	initialVault := models.VaultState{
		Blob:               request.Blob,
		WrappedRecoveryKey: request.WrappedRecoveryKey,
	}

	registeredUser, err := a.userRepository.CreateUser(ctx, user, initialVault)
	if err != nil {
		log.Err(err).Str("identity", request.Identity).Msg("user creation ended with error")
		return models.User{}, fmt.Errorf("user creation ended with error: %w", err)
	}

	return registeredUser, nil
}

// Login authenticates an existing account.
//
// It digests the supplied authentication token with the server hash key,
// looks the account up by identity, and compares digests in constant time.
//
// Returns the authenticated user record or:
//   - ErrInvalidDataProvided if the request fails shape validation.
//   - ErrWrongCredentials for an unknown identity and for a digest
//     mismatch alike, so the error does not reveal which one failed.
//   - A wrapped storage error on repository failure.
func (a *authService) Login(ctx context.Context, request models.LoginRequest) (models.User, error) {
	log := logger.FromContext(ctx)

	if err := a.validator.Validate(ctx, request); err != nil {
		log.Error().Err(err).Str("identity", request.Identity).Msg("invalid login data provided")
		return models.User{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	foundUser, err := a.userRepository.FindUserByIdentity(ctx, request.Identity)
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			log.Warn().Str("identity", request.Identity).Msg("login attempt for unknown identity")
			return models.User{}, ErrWrongCredentials
		}
		log.Err(err).Str("identity", request.Identity).Msg("user search by identity failed")
		return models.User{}, fmt.Errorf("user search by identity failed: %w", err)
	}

	if !digestsEqual(foundUser.AuthHash, utils.HashString(request.AuthToken, a.hashKey)) {
		log.Warn().
			Int64("id", foundUser.UserID).
			Str("identity", foundUser.Identity).
			Msg("wrong authentication token")
		return models.User{}, ErrWrongCredentials
	}

	return foundUser, nil
}

// Params returns the public KDF parameters for an identity.
//
// A known identity gets its stored salts and iteration count. An unknown
// one gets a fabricated set derived with HMAC from the identity and the
// server params key: stable across calls and indistinguishable in shape
// from a real account, so the endpoint cannot be used for enumeration.
func (a *authService) Params(ctx context.Context, request models.ParamsRequest) (models.AuthParams, error) {
	log := logger.FromContext(ctx)

	if err := a.validator.Validate(ctx, request); err != nil {
		log.Error().Err(err).Msg("invalid params request provided")
		return models.AuthParams{}, fmt.Errorf("%w: %w", ErrInvalidDataProvided, err)
	}

	foundUser, err := a.userRepository.FindUserByIdentity(ctx, request.Identity)
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			log.Debug().Msg("serving fabricated KDF parameters")
			return fakeAuthParams(request.Identity, a.paramsKey), nil
		}
		log.Err(err).Msg("user search by identity failed")
		return models.AuthParams{}, fmt.Errorf("user search by identity failed: %w", err)
	}

	return models.AuthParams{
		LoginSalt:     foundUser.LoginSalt,
		DataSalt:      foundUser.DataSalt,
		KDFIterations: foundUser.KDFIterations,
	}, nil
}

// CreateToken issues a signed JWT for the given user.
//
// The token is signed with the configured tokenSignKey, carries the configured
// tokenIssuer as the "iss" claim and the account's current token epoch, and
// expires after tokenDuration.
//
// Returns the token model on success or a wrapped error if JWT generation fails.
func (a *authService) CreateToken(ctx context.Context, user models.User) (models.Token, error) {
	token, err := utils.GenerateJWTToken(a.tokenIssuer, user.UserID, user.TokenEpoch, a.tokenDuration, a.tokenSignKey)
	if err != nil {
		return models.Token{}, fmt.Errorf("%w: %w", ErrTokenCreationFailed, err)
	}

	return token, nil
}

// ParseToken validates and parses a raw JWT string.
//
// It delegates to utils.ValidateAndParseJWTToken, verifying the signature and
// the issuer claim. Any validation failure (expired, wrong issuer, malformed)
// is normalised to ErrTokenIsExpiredOrInvalid so that callers do not need to
// inspect low-level JWT errors.
//
// Returns the decoded token model on success or ErrTokenIsExpiredOrInvalid on
// any validation failure.
func (a *authService) ParseToken(ctx context.Context, tokenString string) (models.Token, error) {
	token, err := utils.ValidateAndParseJWTToken(tokenString, a.tokenSignKey, a.tokenIssuer)
	if err != nil {
		return models.Token{}, ErrTokenIsExpiredOrInvalid
	}

	return token, nil
}

// VerifySession checks a parsed token against the account's current state.
//
// A recovery reset bumps the stored token epoch; any token carrying an older
// epoch was issued before the reset and is rejected with ErrSessionRevoked.
// A token whose account no longer exists is rejected the same way.
func (a *authService) VerifySession(ctx context.Context, token models.Token) error {
	log := logger.FromContext(ctx)

	user, err := a.userRepository.FindUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNoUserWasFound) {
			return ErrSessionRevoked
		}
		log.Err(err).Int64("user_id", token.UserID).Msg("user search by id failed")
		return fmt.Errorf("user search by id failed: %w", err)
	}

	if token.TokenEpoch < user.TokenEpoch {
		log.Warn().
			Int64("user_id", user.UserID).
			Int64("token_epoch", token.TokenEpoch).
			Int64("current_epoch", user.TokenEpoch).
			Msg("token issued before credentials reset")
		return ErrSessionRevoked
	}

	return nil
}

// digestsEqual compares two hex digests in constant time.
func digestsEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
