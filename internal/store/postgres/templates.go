package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/store"
)

type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func (s *TemplateStore) CreateTemplate(ctx context.Context, name, subject, body string) (*models.EmailTemplate, error) {
	t := &models.EmailTemplate{
		PublicID: uuid.New(),
		Name:     name,
		Subject:  subject,
		Body:     body,
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO email_templates (public_id, name, subject, body)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, updated_at`,
		t.PublicID, t.Name, t.Subject, t.Body,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return t, nil
}

func (s *TemplateStore) GetTemplateByPublicID(ctx context.Context, publicID uuid.UUID) (*models.EmailTemplate, error) {
	t := &models.EmailTemplate{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, public_id, name, subject, body, created_at, updated_at
		 FROM email_templates WHERE public_id = $1`,
		publicID,
	).Scan(&t.ID, &t.PublicID, &t.Name, &t.Subject, &t.Body, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TemplateStore) ListTemplates(ctx context.Context) ([]models.EmailTemplate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, public_id, name, subject, body, created_at, updated_at
		 FROM email_templates ORDER BY name ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []models.EmailTemplate
	for rows.Next() {
		var t models.EmailTemplate
		if err := rows.Scan(&t.ID, &t.PublicID, &t.Name, &t.Subject, &t.Body, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

func (s *TemplateStore) UpdateTemplate(ctx context.Context, id int64, name, subject, body string) (*models.EmailTemplate, error) {
	t := &models.EmailTemplate{ID: id, Name: name, Subject: subject, Body: body}
	err := s.db.QueryRowContext(ctx,
		`UPDATE email_templates SET name = $2, subject = $3, body = $4, updated_at = NOW()
		 WHERE id = $1
		 RETURNING public_id, created_at, updated_at`,
		id, name, subject, body,
	).Scan(&t.PublicID, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *TemplateStore) DeleteTemplate(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM email_templates WHERE id = $1`, id)
	return err
}

func (s *TemplateStore) CountTemplates(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM email_templates`).Scan(&count)
	return count, err
}
