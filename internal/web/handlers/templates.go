package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/store"
)

// TemplateHandler serves the message template API.
type TemplateHandler struct {
	templates store.TemplateStore
}

func NewTemplateHandler(templates store.TemplateStore) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

type templatePayload struct {
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (p *templatePayload) validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.Subject == "" {
		return errors.New("subject is required")
	}
	if p.Body == "" {
		return errors.New("body is required")
	}
	return nil
}

type templateResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toTemplateResponse(t *models.EmailTemplate) templateResponse {
	return templateResponse{
		ID:        t.PublicID,
		Name:      t.Name,
		Subject:   t.Subject,
		Body:      t.Body,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func (h *TemplateHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.ListTemplates(r.Context())
	if err != nil {
		slog.Error("failed to list templates", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]templateResponse, 0, len(templates))
	for i := range templates {
		out = append(out, toTemplateResponse(&templates[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *TemplateHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var payload templatePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := payload.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.templates.CreateTemplate(r.Context(), payload.Name, payload.Subject, payload.Body)
	if err != nil {
		slog.Error("failed to create template", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, toTemplateResponse(created))
}

func (h *TemplateHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a valid UUID")
		return
	}

	tmpl, err := h.templates.GetTemplateByPublicID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "template not found")
			return
		}
		slog.Error("failed to load template", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toTemplateResponse(tmpl))
}

func (h *TemplateHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a valid UUID")
		return
	}

	var payload templatePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := payload.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.templates.GetTemplateByPublicID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "template not found")
			return
		}
		slog.Error("failed to load template", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	updated, err := h.templates.UpdateTemplate(r.Context(), existing.ID, payload.Name, payload.Subject, payload.Body)
	if err != nil {
		slog.Error("failed to update template", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toTemplateResponse(updated))
}

func (h *TemplateHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be a valid UUID")
		return
	}

	existing, err := h.templates.GetTemplateByPublicID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "template not found")
			return
		}
		slog.Error("failed to load template", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	// Delivery history keeps its rows; the log's template reference is
	// nulled out by the schema.
	if err := h.templates.DeleteTemplate(r.Context(), existing.ID); err != nil {
		slog.Error("failed to delete template", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
