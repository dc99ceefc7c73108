package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"

	"github.com/MKhiriev/go-otp-vault/internal/config"
	"github.com/MKhiriev/go-otp-vault/internal/logger"
	"github.com/MKhiriev/go-otp-vault/internal/utils"
	"github.com/MKhiriev/go-otp-vault/models"
)

type httpServerAdapter struct {
	client *utils.HTTPClient

	mu    sync.RWMutex
	token string

	logger *logger.Logger
}

// NewHTTPServerAdapter constructs an HTTP/REST implementation of
// [ServerAdapter]. It normalises and validates the base URL from
// adapterCfg.HTTPAddress and configures the underlying HTTP client with the
// resolved base URL and request timeout.
//
// Returns an error if adapterCfg.HTTPAddress is empty or cannot be parsed as
// a valid URL.
func NewHTTPServerAdapter(adapterCfg config.ClientAdapter, logger *logger.Logger) (ServerAdapter, error) {
	client := utils.NewHTTPClient()
	baseURL, err := normalizeBaseURL(adapterCfg.HTTPAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid adapter http address: %w", err)
	}

	client.
		SetBaseURL(baseURL).
		SetTimeout(adapterCfg.RequestTimeout)

	return &httpServerAdapter{client: client, logger: logger}, nil
}

func normalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty address")
	}

	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("address must include host and scheme")
	}

	return strings.TrimRight(u.String(), "/"), nil
}

// SetToken implements [ServerAdapter]. It stores token (whitespace-trimmed)
// for use in the Authorization header of all subsequent authenticated
// requests. Safe for concurrent use with the engine's timer goroutines.
func (h *httpServerAdapter) SetToken(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

// Token implements [ServerAdapter]. It returns the bearer token currently
// held by the adapter, or an empty string if none has been set.
func (h *httpServerAdapter) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Register implements [ServerAdapter]. It POSTs the registration material to
// POST /api/user/register. On success the bearer token is extracted from the
// Authorization response header and stored via SetToken. Returns an error if
// the request fails, the server returns a non-2xx status, or the token cannot
// be parsed.
func (h *httpServerAdapter) Register(ctx context.Context, req models.RegisterRequest) (models.Token, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/user/register")
	if err != nil {
		return models.Token{}, fmt.Errorf("%w: register request: %w", ErrNetworkUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		// 409 on this endpoint means the identity, not the vault version
		if errors.Is(err, ErrVersionConflict) {
			return models.Token{}, fmt.Errorf("%w: %s", ErrIdentityTaken, req.Identity)
		}
		return models.Token{}, err
	}

	token, err := h.bearerFromResponse(resp)
	if err != nil {
		return models.Token{}, fmt.Errorf("register: %w", err)
	}

	return token, nil
}

// Login implements [ServerAdapter]. It POSTs the derived auth token to
// POST /api/user/login. On success the bearer token is extracted from the
// Authorization response header and stored via SetToken. Returns
// [ErrUnauthorized] when the server rejects the credentials.
func (h *httpServerAdapter) Login(ctx context.Context, req models.LoginRequest) (models.Token, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/user/login")
	if err != nil {
		return models.Token{}, fmt.Errorf("%w: login request: %w", ErrNetworkUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Token{}, err
	}

	token, err := h.bearerFromResponse(resp)
	if err != nil {
		return models.Token{}, fmt.Errorf("login: %w", err)
	}

	return token, nil
}

// RequestParams implements [ServerAdapter]. It POSTs the identity to
// POST /api/user/params and returns the account's KDF parameters. The server
// fabricates a stable fake response for unknown identities, so this call
// cannot be used to probe account existence.
func (h *httpServerAdapter) RequestParams(ctx context.Context, identity string) (models.AuthParams, error) {
	var params models.AuthParams

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.ParamsRequest{Identity: identity}).
		SetResult(&params).
		Post("/api/user/params")
	if err != nil {
		return models.AuthParams{}, fmt.Errorf("%w: request params: %w", ErrNetworkUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.AuthParams{}, err
	}

	return params, nil
}

// DownloadVault implements [ServerAdapter]. It GETs the current vault state
// from GET /api/vault/ and decodes it into [models.VaultState]. Requires a
// valid bearer token. Returns an error if the request, response mapping, or
// JSON decoding fails.
func (h *httpServerAdapter) DownloadVault(ctx context.Context) (models.VaultState, error) {
	resp, err := h.authedRequest(ctx).Get("/api/vault/")
	if err != nil {
		return models.VaultState{}, fmt.Errorf("%w: download vault request: %w", ErrNetworkUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.VaultState{}, err
	}

	var state models.VaultState
	if err = json.Unmarshal(resp.Body(), &state); err != nil {
		return models.VaultState{}, fmt.Errorf("decode vault state response: %w", err)
	}

	return state, nil
}

// UploadVault implements [ServerAdapter]. It PUTs the conditional write to
// PUT /api/vault/ and returns the version the server assigned. Returns
// [ErrVersionConflict] (wrapped) on HTTP 409 and [ErrPreconditionFailed]
// (wrapped) on HTTP 412. Requires a valid bearer token.
func (h *httpServerAdapter) UploadVault(ctx context.Context, req models.VaultPutRequest) (int64, error) {
	resp, err := h.authedRequest(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Put("/api/vault/")
	if err != nil {
		return 0, fmt.Errorf("%w: upload vault request: %w", ErrNetworkUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return 0, err
	}

	var put models.VaultPutResponse
	if err = json.Unmarshal(resp.Body(), &put); err != nil {
		return 0, fmt.Errorf("decode vault put response: %w", err)
	}

	return put.Version, nil
}

// RecoveryLookup implements [ServerAdapter]. It POSTs the identity to
// POST /api/recovery/lookup and returns the recovery material. Unknown
// identities receive a deterministic fake response, so a successful call
// proves nothing about account existence.
func (h *httpServerAdapter) RecoveryLookup(ctx context.Context, identity string) (models.RecoveryLookupResponse, error) {
	var lookup models.RecoveryLookupResponse

	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.RecoveryLookupRequest{Identity: identity}).
		SetResult(&lookup).
		Post("/api/recovery/lookup")
	if err != nil {
		return models.RecoveryLookupResponse{}, fmt.Errorf("%w: recovery lookup request: %w", ErrNetworkUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.RecoveryLookupResponse{}, err
	}

	return lookup, nil
}

// RecoveryReset implements [ServerAdapter]. It POSTs the replacement
// credentials and vault to POST /api/recovery/reset. On success every
// previously issued session is revoked server-side; the fresh bearer token is
// extracted from the Authorization response header and stored via SetToken.
func (h *httpServerAdapter) RecoveryReset(ctx context.Context, req models.RecoveryResetRequest) (models.Token, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/api/recovery/reset")
	if err != nil {
		return models.Token{}, fmt.Errorf("%w: recovery reset request: %w", ErrNetworkUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.Token{}, err
	}

	token, err := h.bearerFromResponse(resp)
	if err != nil {
		return models.Token{}, fmt.Errorf("recovery reset: %w", err)
	}

	return token, nil
}

// Version implements [ServerAdapter]. It GETs the plain-text build version
// from GET /api/version/.
func (h *httpServerAdapter) Version(ctx context.Context) (string, error) {
	resp, err := h.client.R().SetContext(ctx).Get("/api/version/")
	if err != nil {
		return "", fmt.Errorf("%w: version request: %w", ErrNetworkUnavailable, err)
	}
	if err = mapHTTPError(resp); err != nil {
		return "", err
	}

	return strings.TrimSpace(string(resp.Body())), nil
}

func (h *httpServerAdapter) authedRequest(ctx context.Context) *resty.Request {
	req := h.client.R().SetContext(ctx)
	if token := h.Token(); token != "" {
		req.SetHeader("Authorization", "Bearer "+token)
	}
	return req
}

// bearerFromResponse extracts the issued JWT from the Authorization response
// header, caches it for subsequent authenticated requests, and returns it
// together with the user ID parsed from the subject claim.
func (h *httpServerAdapter) bearerFromResponse(resp *resty.Response) (models.Token, error) {
	token, err := utils.ParseBearerToken(resp.Header().Get("Authorization"))
	if err != nil {
		return models.Token{}, fmt.Errorf("parse bearer token: %w", err)
	}

	userID, err := utils.ParseUserIDFromJWT(token)
	if err != nil {
		return models.Token{}, fmt.Errorf("parse user id: %w", err)
	}

	h.SetToken(token)
	return models.Token{SignedString: token, UserID: userID}, nil
}
