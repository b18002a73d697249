package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/postroom/postroom/internal/dispatch"
	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/recipient"
	"github.com/postroom/postroom/internal/store"
)

// maxDispatchMemory bounds how much of a multipart dispatch request is held
// in memory before spilling to disk.
const maxDispatchMemory = 32 << 20

// DispatchHandler accepts bulk send requests and exposes the lifecycle of
// the background runs they start.
type DispatchHandler struct {
	recipients *recipient.Service
	templates  store.TemplateStore
	runner     *dispatch.Runner
}

func NewDispatchHandler(recipients *recipient.Service, templates store.TemplateStore, runner *dispatch.Runner) *DispatchHandler {
	return &DispatchHandler{recipients: recipients, templates: templates, runner: runner}
}

type dispatchPayload struct {
	Subject      string      `json:"subject"`
	Body         string      `json:"body"`
	TemplateID   *uuid.UUID  `json:"template_id"`
	RecipientIDs []uuid.UUID `json:"recipient_ids"`
}

type runResponse struct {
	ID         uuid.UUID  `json:"id"`
	State      string     `json:"state"`
	Total      int        `json:"total"`
	Processed  int        `json:"processed"`
	Success    int        `json:"success"`
	Failed     int        `json:"failed"`
	Errors     []string   `json:"errors"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func toRunResponse(run dispatch.Run) runResponse {
	resp := runResponse{
		ID:         run.ID,
		State:      string(run.State),
		Total:      run.Total,
		Processed:  run.Processed,
		Errors:     []string{},
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
	if run.Result != nil {
		resp.Success = run.Result.Success
		resp.Failed = run.Result.Failed
		if run.Result.Errors != nil {
			resp.Errors = run.Result.Errors
		}
	}
	return resp
}

// HandleStart accepts a multipart form with a "data" JSON field and zero or
// more "attachments" file parts, then starts a background run.
func (h *DispatchHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxDispatchMemory); err != nil {
		writeError(w, http.StatusBadRequest, "request must be multipart form data")
		return
	}

	var payload dispatchPayload
	data := r.FormValue("data")
	if data == "" {
		writeError(w, http.StatusBadRequest, "data field is required")
		return
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "data field must be valid JSON")
		return
	}

	if len(payload.RecipientIDs) == 0 {
		writeError(w, http.StatusBadRequest, "at least one recipient is required")
		return
	}

	req := dispatch.BulkRequest{
		Subject: payload.Subject,
		Body:    payload.Body,
	}

	if payload.TemplateID != nil {
		tmpl, err := h.templates.GetTemplateByPublicID(r.Context(), *payload.TemplateID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "template not found")
				return
			}
			slog.Error("failed to load template", "id", *payload.TemplateID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		req.TemplateID = &tmpl.ID
		if req.Subject == "" {
			req.Subject = tmpl.Subject
		}
		if req.Body == "" {
			req.Body = tmpl.Body
		}
	}

	if req.Subject == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "subject and body are required")
		return
	}

	recipients, err := h.recipients.Resolve(r.Context(), payload.RecipientIDs)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		slog.Error("failed to resolve recipients", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	req.Recipients = recipients

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["attachments"] {
			file, err := header.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "failed to read attachment "+header.Filename)
				return
			}
			content, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				writeError(w, http.StatusBadRequest, "failed to read attachment "+header.Filename)
				return
			}
			req.Attachments = append(req.Attachments, models.Attachment{
				Filename:    header.Filename,
				Content:     content,
				ContentType: header.Header.Get("Content-Type"),
				Size:        header.Size,
			})
		}
	}

	runID := h.runner.Start(req)
	slog.Info("dispatch run started", "run_id", runID, "recipients", len(recipients), "attachments", len(req.Attachments))

	writeJSON(w, http.StatusAccepted, map[string]any{"run_id": runID})
}

func (h *DispatchHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "run id must be a valid UUID")
		return
	}

	run, ok := h.runner.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, toRunResponse(run))
}

func (h *DispatchHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "runID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "run id must be a valid UUID")
		return
	}

	if !h.runner.Cancel(id) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}
