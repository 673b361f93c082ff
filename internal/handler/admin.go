package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/nkoleva/sflogin/internal/apperror"
	"github.com/nkoleva/sflogin/internal/model"
	"github.com/nkoleva/sflogin/internal/service"
)

// AdminHandler exposes the connected-app settings over a small JSON API,
// replacing the settings form of the original module. Both routes sit behind
// RequireAuth.
type AdminHandler struct {
	settings *service.SettingsService
	logger   *slog.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(settings *service.SettingsService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{settings: settings, logger: logger}
}

// settingsResponse is what admins see. The consumer secret is write-only:
// responses report whether one is saved, never its value.
type settingsResponse struct {
	LoginURL        string `json:"loginUrl"`
	ClientID        string `json:"clientId"`
	ClientSecretSet bool   `json:"clientSecretSet"`
	RedirectURI     string `json:"redirectUri"` // read-only, computed by the server
}

func toSettingsResponse(s *model.Settings) settingsResponse {
	return settingsResponse{
		LoginURL:        s.LoginURL,
		ClientID:        s.ClientID,
		ClientSecretSet: s.ClientSecret != "",
		RedirectURI:     s.RedirectURI,
	}
}

// HandleGetSettings returns the current connected-app settings.
//
// HTTP: GET /admin/settings
func (h *AdminHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.Get(r.Context())
	if err != nil {
		h.logger.Error("admin settings: load failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}

// HandlePutSettings validates and saves new connected-app settings.
//
// HTTP: PUT /admin/settings
//
// The body carries login_url, client_id, and client_secret; the redirect URI
// is recomputed server-side no matter what the client sends.
func (h *AdminHandler) HandlePutSettings(w http.ResponseWriter, r *http.Request) {
	var in service.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, apperror.ValidationFailed("body", "request body must be valid JSON"))
		return
	}

	settings, err := h.settings.Update(r.Context(), in)
	if err != nil {
		h.logger.Warn("admin settings: update rejected", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSettingsResponse(settings))
}
