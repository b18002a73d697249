package postgres

import (
	"context"
	"database/sql"

	"github.com/postroom/postroom/internal/models"
)

type EmailLogStore struct {
	db *sql.DB
}

func NewEmailLogStore(db *sql.DB) *EmailLogStore {
	return &EmailLogStore{db: db}
}

func (s *EmailLogStore) CreateEmailLog(ctx context.Context, params models.EmailLogCreateParams) (*models.EmailLog, error) {
	entry := &models.EmailLog{
		RecipientID:     params.RecipientID,
		RecipientEmail:  params.RecipientEmail,
		TemplateID:      params.TemplateID,
		Subject:         params.Subject,
		Body:            params.Body,
		Status:          params.Status,
		ErrorMessage:    params.ErrorMessage,
		HasAttachments:  params.HasAttachments,
		AttachmentCount: params.AttachmentCount,
		SentAt:          params.SentAt,
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO email_logs (recipient_id, recipient_email, template_id, subject, body, status, error_message, has_attachments, attachment_count, sent_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		params.RecipientID, params.RecipientEmail, params.TemplateID,
		params.Subject, params.Body, params.Status, params.ErrorMessage,
		params.HasAttachments, params.AttachmentCount, params.SentAt,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (s *EmailLogStore) ListEmailLogs(ctx context.Context, query models.EmailLogQuery) ([]models.EmailLog, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recipient_id, recipient_email, template_id, subject, body, status, error_message, has_attachments, attachment_count, sent_at, created_at
		 FROM email_logs
		 WHERE $1 = '' OR status = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		query.Status, limit, query.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.EmailLog
	for rows.Next() {
		var e models.EmailLog
		if err := rows.Scan(
			&e.ID, &e.RecipientID, &e.RecipientEmail, &e.TemplateID,
			&e.Subject, &e.Body, &e.Status, &e.ErrorMessage,
			&e.HasAttachments, &e.AttachmentCount, &e.SentAt, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		logs = append(logs, e)
	}
	return logs, rows.Err()
}

func (s *EmailLogStore) CountEmailLogsByStatus(ctx context.Context) (*models.LogCounts, error) {
	counts := &models.LogCounts{}
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE status = 'sent'),
			COUNT(*) FILTER (WHERE status = 'failed')
		 FROM email_logs`,
	).Scan(&counts.Sent, &counts.Failed)
	if err != nil {
		return nil, err
	}
	return counts, nil
}
