package handlers

import (
	"log/slog"
	"net/http"

	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/settings"
)

// SettingsHandler serves the dispatch settings API.
type SettingsHandler struct {
	settings *settings.Service
}

func NewSettingsHandler(settings *settings.Service) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

type settingsPayload struct {
	EmailDelay          int `json:"email_delay"`
	BatchSize           int `json:"batch_size"`
	BatchDelay          int `json:"batch_delay"`
	MaxAttachments      int `json:"max_attachments"`
	MaxAttachmentSizeMB int `json:"max_attachment_size_mb"`
}

func toSettingsPayload(s *models.Settings) settingsPayload {
	return settingsPayload{
		EmailDelay:          s.EmailDelay,
		BatchSize:           s.BatchSize,
		BatchDelay:          s.BatchDelay,
		MaxAttachments:      s.MaxAttachments,
		MaxAttachmentSizeMB: s.MaxAttachmentSizeMB,
	}
}

func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context())
	if err != nil {
		slog.Error("failed to load settings", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toSettingsPayload(s))
}

func (h *SettingsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var payload settingsPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := h.settings.Update(r.Context(), &models.Settings{
		EmailDelay:          payload.EmailDelay,
		BatchSize:           payload.BatchSize,
		BatchDelay:          payload.BatchDelay,
		MaxAttachments:      payload.MaxAttachments,
		MaxAttachmentSizeMB: payload.MaxAttachmentSizeMB,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toSettingsPayload(updated))
}
