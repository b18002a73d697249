package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/recipient"
	"github.com/postroom/postroom/internal/store"
)

// RecipientHandler serves the recipient list API.
type RecipientHandler struct {
	recipients *recipient.Service
}

func NewRecipientHandler(recipients *recipient.Service) *RecipientHandler {
	return &RecipientHandler{recipients: recipients}
}

type recipientPayload struct {
	Email   string `json:"email"`
	Company string `json:"company"`
}

type recipientResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	CreatedAt time.Time `json:"created_at"`
}

func toRecipientResponse(r *models.Recipient) recipientResponse {
	return recipientResponse{
		ID:        r.PublicID,
		Email:     r.Email,
		Company:   r.Company,
		CreatedAt: r.CreatedAt,
	}
}

func (h *RecipientHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	recipients, err := h.recipients.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		slog.Error("failed to list recipients", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]recipientResponse, 0, len(recipients))
	for i := range recipients {
		out = append(out, toRecipientResponse(&recipients[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *RecipientHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var payload recipientPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := h.recipients.Create(r.Context(), payload.Email, payload.Company)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			writeError(w, http.StatusConflict, "recipient already exists")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toRecipientResponse(created))
}

func (h *RecipientHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a valid UUID")
		return
	}

	var payload recipientPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := h.recipients.Update(r.Context(), id, payload.Email, payload.Company)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recipient not found")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toRecipientResponse(updated))
}

func (h *RecipientHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a valid UUID")
		return
	}

	if err := h.recipients.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recipient not found")
			return
		}
		slog.Error("failed to delete recipient", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleImport ingests a CSV upload under the "csv_file" form field.
func (h *RecipientHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("csv_file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "csv_file upload is required")
		return
	}
	defer file.Close()

	result, err := h.recipients.ImportCSV(r.Context(), file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}
