package http

import (
	"encoding/json"
	"net/http"

	"github.com/MKhiriev/go-otp-vault/internal/logger"
	"github.com/MKhiriev/go-otp-vault/internal/utils"
	"github.com/MKhiriev/go-otp-vault/models"
)

func (h *Handler) downloadVault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.downloadVault").Msg("no user ID was given")
		http.Error(w, "no user ID was given", http.StatusBadRequest)
		return
	}

	state, err := h.services.VaultService.Download(ctx, userID)
	if err != nil {
		log.Err(err).Str("func", "*Handler.downloadVault").Msg("error downloading vault")
		http.Error(w, "error downloading vault", statusFromError(err))
		return
	}

	utils.WriteJSON(w, state, http.StatusOK)
}

func (h *Handler) uploadVault(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromRequest(r)

	userID, found := utils.GetUserIDFromContext(ctx)
	if !found {
		log.Error().Str("func", "*Handler.uploadVault").Msg("no user ID was given")
		http.Error(w, "no user ID was given", http.StatusBadRequest)
		return
	}

	var put models.VaultPutRequest
	if err := json.NewDecoder(r.Body).Decode(&put); err != nil {
		log.Err(err).Str("func", "*Handler.uploadVault").Msg("Invalid JSON was passed")
		http.Error(w, "Invalid JSON was passed", http.StatusBadRequest)
		return
	}

	response, err := h.services.VaultService.Upload(ctx, userID, put)
	if err != nil {
		log.Err(err).
			Str("func", "*Handler.uploadVault").
			Int64("base_version", put.Version).
			Msg("vault write rejected")
		http.Error(w, "vault write rejected", statusFromError(err))
		return
	}

	utils.WriteJSON(w, response, http.StatusOK)
}
