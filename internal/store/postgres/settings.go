package postgres

import (
	"context"
	"database/sql"

	"github.com/postroom/postroom/internal/models"
)

// settingsRowID pins the singleton: every read and write targets this row.
const settingsRowID = 1

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) GetOrInitSettings(ctx context.Context) (*models.Settings, error) {
	st := &models.Settings{}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO email_settings (id) VALUES ($1)
		 ON CONFLICT (id) DO UPDATE SET id = email_settings.id
		 RETURNING id, email_delay, batch_size, batch_delay, max_attachments, max_attachment_size_mb, updated_at`,
		settingsRowID,
	).Scan(
		&st.ID, &st.EmailDelay, &st.BatchSize, &st.BatchDelay,
		&st.MaxAttachments, &st.MaxAttachmentSizeMB, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (s *SettingsStore) UpdateSettings(ctx context.Context, in *models.Settings) (*models.Settings, error) {
	st := &models.Settings{}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO email_settings (id, email_delay, batch_size, batch_delay, max_attachments, max_attachment_size_mb, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 ON CONFLICT (id) DO UPDATE SET
			email_delay = EXCLUDED.email_delay,
			batch_size = EXCLUDED.batch_size,
			batch_delay = EXCLUDED.batch_delay,
			max_attachments = EXCLUDED.max_attachments,
			max_attachment_size_mb = EXCLUDED.max_attachment_size_mb,
			updated_at = NOW()
		 RETURNING id, email_delay, batch_size, batch_delay, max_attachments, max_attachment_size_mb, updated_at`,
		settingsRowID, in.EmailDelay, in.BatchSize, in.BatchDelay,
		in.MaxAttachments, in.MaxAttachmentSizeMB,
	).Scan(
		&st.ID, &st.EmailDelay, &st.BatchSize, &st.BatchDelay,
		&st.MaxAttachments, &st.MaxAttachmentSizeMB, &st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return st, nil
}
