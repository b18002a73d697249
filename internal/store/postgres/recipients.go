package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/store"
)

type RecipientStore struct {
	db *sql.DB
}

func NewRecipientStore(db *sql.DB) *RecipientStore {
	return &RecipientStore{db: db}
}

func (s *RecipientStore) CreateRecipient(ctx context.Context, email, company string) (*models.Recipient, error) {
	r := &models.Recipient{
		PublicID: uuid.New(),
		Email:    email,
		Company:  company,
	}

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO recipients (public_id, email, company)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		r.PublicID, r.Email, r.Company,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return nil, err
	}

	return r, nil
}

func (s *RecipientStore) GetRecipientByEmail(ctx context.Context, email string) (*models.Recipient, error) {
	r := &models.Recipient{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, public_id, email, company, created_at
		 FROM recipients WHERE email = $1`,
		email,
	).Scan(&r.ID, &r.PublicID, &r.Email, &r.Company, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RecipientStore) GetRecipientByPublicID(ctx context.Context, publicID uuid.UUID) (*models.Recipient, error) {
	r := &models.Recipient{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, public_id, email, company, created_at
		 FROM recipients WHERE public_id = $1`,
		publicID,
	).Scan(&r.ID, &r.PublicID, &r.Email, &r.Company, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RecipientStore) ListRecipients(ctx context.Context, search string) ([]models.Recipient, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, public_id, email, company, created_at
		 FROM recipients
		 WHERE $1 = '' OR email ILIKE '%' || $1 || '%' OR company ILIKE '%' || $1 || '%'
		 ORDER BY email ASC`,
		search,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []models.Recipient
	for rows.Next() {
		var r models.Recipient
		if err := rows.Scan(&r.ID, &r.PublicID, &r.Email, &r.Company, &r.CreatedAt); err != nil {
			return nil, err
		}
		recipients = append(recipients, r)
	}
	return recipients, rows.Err()
}

func (s *RecipientStore) UpdateRecipient(ctx context.Context, id int64, email, company string) (*models.Recipient, error) {
	r := &models.Recipient{ID: id, Email: email, Company: company}
	err := s.db.QueryRowContext(ctx,
		`UPDATE recipients SET email = $2, company = $3 WHERE id = $1
		 RETURNING public_id, created_at`,
		id, email, company,
	).Scan(&r.PublicID, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RecipientStore) DeleteRecipient(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM recipients WHERE id = $1`, id)
	return err
}

func (s *RecipientStore) CountRecipients(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipients`).Scan(&count)
	return count, err
}
