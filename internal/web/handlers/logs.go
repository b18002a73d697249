package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/store"
)

// LogHandler serves delivery history and dashboard counts.
type LogHandler struct {
	logs       store.EmailLogStore
	recipients store.RecipientStore
	templates  store.TemplateStore
}

func NewLogHandler(logs store.EmailLogStore, recipients store.RecipientStore, templates store.TemplateStore) *LogHandler {
	return &LogHandler{logs: logs, recipients: recipients, templates: templates}
}

type logResponse struct {
	ID              int64      `json:"id"`
	RecipientEmail  string     `json:"recipient_email"`
	Subject         string     `json:"subject"`
	Body            string     `json:"body"`
	Status          string     `json:"status"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	HasAttachments  bool       `json:"has_attachments"`
	AttachmentCount int        `json:"attachment_count"`
	SentAt          *time.Time `json:"sent_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func toLogResponse(l *models.EmailLog) logResponse {
	return logResponse{
		ID:              l.ID,
		RecipientEmail:  l.RecipientEmail,
		Subject:         l.Subject,
		Body:            l.Body,
		Status:          l.Status,
		ErrorMessage:    l.ErrorMessage,
		HasAttachments:  l.HasAttachments,
		AttachmentCount: l.AttachmentCount,
		SentAt:          l.SentAt,
		CreatedAt:       l.CreatedAt,
	}
}

func (h *LogHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	query := models.EmailLogQuery{
		Status: r.URL.Query().Get("status"),
	}
	switch query.Status {
	case "", models.StatusSent, models.StatusFailed, models.StatusPending:
	default:
		writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		query.Limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must not be negative")
			return
		}
		query.Offset = n
	}

	logs, err := h.logs.ListEmailLogs(r.Context(), query)
	if err != nil {
		slog.Error("failed to list email logs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]logResponse, 0, len(logs))
	for i := range logs {
		resp = append(resp, toLogResponse(&logs[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

type statsResponse struct {
	Recipients int `json:"recipients"`
	Templates  int `json:"templates"`
	Sent       int `json:"emails_sent"`
	Failed     int `json:"emails_failed"`
}

func (h *LogHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	recipients, err := h.recipients.CountRecipients(ctx)
	if err != nil {
		slog.Error("failed to count recipients", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	templates, err := h.templates.CountTemplates(ctx)
	if err != nil {
		slog.Error("failed to count templates", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	counts, err := h.logs.CountEmailLogsByStatus(ctx)
	if err != nil {
		slog.Error("failed to count email logs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Recipients: recipients,
		Templates:  templates,
		Sent:       counts.Sent,
		Failed:     counts.Failed,
	})
}
