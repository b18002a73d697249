package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/postroom/postroom/internal/credential"
	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/store"
)

// CredentialHandler serves the SMTP credential API. Secrets are write-only:
// they never appear in responses.
type CredentialHandler struct {
	credentials *credential.Service
}

func NewCredentialHandler(credentials *credential.Service) *CredentialHandler {
	return &CredentialHandler{credentials: credentials}
}

type credentialPayload struct {
	Host        string `json:"host"`
	Port        int    `json:"port"`
	Username    string `json:"username"`
	Secret      string `json:"secret"`
	FromAddress string `json:"from_address"`
	Security    string `json:"security"`
}

type credentialResponse struct {
	ID          uuid.UUID `json:"id"`
	Host        string    `json:"host"`
	Port        int       `json:"port"`
	Username    string    `json:"username"`
	FromAddress string    `json:"from_address"`
	Security    string    `json:"security"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toCredentialResponse(c *models.Credential) credentialResponse {
	return credentialResponse{
		ID:          c.PublicID,
		Host:        c.Host,
		Port:        c.Port,
		Username:    c.Username,
		FromAddress: c.FromAddress,
		Security:    c.Security,
		Active:      c.Active,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (p *credentialPayload) toModel() *models.Credential {
	return &models.Credential{
		Host:        p.Host,
		Port:        p.Port,
		Username:    p.Username,
		Secret:      p.Secret,
		FromAddress: p.FromAddress,
		Security:    p.Security,
	}
}

func (h *CredentialHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	credentials, err := h.credentials.List(r.Context())
	if err != nil {
		slog.Error("failed to list credentials", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]credentialResponse, 0, len(credentials))
	for i := range credentials {
		out = append(out, toCredentialResponse(&credentials[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CredentialHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var payload credentialPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := h.credentials.Create(r.Context(), payload.toModel())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toCredentialResponse(created))
}

func (h *CredentialHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a valid UUID")
		return
	}

	var payload credentialPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := h.credentials.Update(r.Context(), id, payload.toModel())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "credential not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(updated))
}

func (h *CredentialHandler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a valid UUID")
		return
	}

	if err := h.credentials.Activate(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "credential not found")
			return
		}
		slog.Error("failed to activate credential", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleTest dials the credential's SMTP server once to verify it.
func (h *CredentialHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a valid UUID")
		return
	}

	if err := h.credentials.Test(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "credential not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (h *CredentialHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a valid UUID")
		return
	}

	if err := h.credentials.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "credential not found")
			return
		}
		slog.Error("failed to delete credential", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
