package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/store"
)

type CredentialStore struct {
	db *sql.DB
}

func NewCredentialStore(db *sql.DB) *CredentialStore {
	return &CredentialStore{db: db}
}

const credentialColumns = `id, public_id, host, port, username, secret, from_address, security, active, created_at, updated_at`

func scanCredential(row *sql.Row) (*models.Credential, error) {
	c := &models.Credential{}
	err := row.Scan(
		&c.ID, &c.PublicID, &c.Host, &c.Port, &c.Username, &c.Secret,
		&c.FromAddress, &c.Security, &c.Active, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CredentialStore) CreateCredential(ctx context.Context, c *models.Credential) (*models.Credential, error) {
	created := *c
	created.PublicID = uuid.New()

	err := s.db.QueryRowContext(ctx,
		`INSERT INTO email_credentials (public_id, host, port, username, secret, from_address, security)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, active, created_at, updated_at`,
		created.PublicID, created.Host, created.Port, created.Username,
		created.Secret, created.FromAddress, created.Security,
	).Scan(&created.ID, &created.Active, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &created, nil
}

func (s *CredentialStore) GetCredentialByPublicID(ctx context.Context, publicID uuid.UUID) (*models.Credential, error) {
	return scanCredential(s.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM email_credentials WHERE public_id = $1`,
		publicID,
	))
}

func (s *CredentialStore) GetActiveCredential(ctx context.Context) (*models.Credential, error) {
	return scanCredential(s.db.QueryRowContext(ctx,
		`SELECT `+credentialColumns+` FROM email_credentials WHERE active = TRUE`,
	))
}

func (s *CredentialStore) ListCredentials(ctx context.Context) ([]models.Credential, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+credentialColumns+` FROM email_credentials ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credentials []models.Credential
	for rows.Next() {
		var c models.Credential
		if err := rows.Scan(
			&c.ID, &c.PublicID, &c.Host, &c.Port, &c.Username, &c.Secret,
			&c.FromAddress, &c.Security, &c.Active, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		credentials = append(credentials, c)
	}
	return credentials, rows.Err()
}

func (s *CredentialStore) UpdateCredential(ctx context.Context, c *models.Credential) (*models.Credential, error) {
	updated := *c
	err := s.db.QueryRowContext(ctx,
		`UPDATE email_credentials
		 SET host = $2, port = $3, username = $4, secret = $5, from_address = $6, security = $7, updated_at = NOW()
		 WHERE id = $1
		 RETURNING public_id, active, created_at, updated_at`,
		c.ID, c.Host, c.Port, c.Username, c.Secret, c.FromAddress, c.Security,
	).Scan(&updated.PublicID, &updated.Active, &updated.CreatedAt, &updated.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ActivateCredential flips the active flag to the given credential. Clearing
// the previous holder and setting the new one happen in one transaction so
// at most one credential is ever active.
func (s *CredentialStore) ActivateCredential(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE email_credentials SET active = FALSE, updated_at = NOW() WHERE active = TRUE`,
	); err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE email_credentials SET active = TRUE, updated_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}

	return tx.Commit()
}

func (s *CredentialStore) DeleteCredential(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM email_credentials WHERE id = $1`, id)
	return err
}
