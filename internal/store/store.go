package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/postroom/postroom/internal/models"
)

// ErrNotFound is returned by all stores when a lookup matches no row.
var ErrNotFound = errors.New("store: not found")

type RecipientStore interface {
	CreateRecipient(ctx context.Context, email, company string) (*models.Recipient, error)
	GetRecipientByEmail(ctx context.Context, email string) (*models.Recipient, error)
	GetRecipientByPublicID(ctx context.Context, publicID uuid.UUID) (*models.Recipient, error)
	ListRecipients(ctx context.Context, search string) ([]models.Recipient, error)
	UpdateRecipient(ctx context.Context, id int64, email, company string) (*models.Recipient, error)
	DeleteRecipient(ctx context.Context, id int64) error
	CountRecipients(ctx context.Context) (int, error)
}

type TemplateStore interface {
	CreateTemplate(ctx context.Context, name, subject, body string) (*models.EmailTemplate, error)
	GetTemplateByPublicID(ctx context.Context, publicID uuid.UUID) (*models.EmailTemplate, error)
	ListTemplates(ctx context.Context) ([]models.EmailTemplate, error)
	UpdateTemplate(ctx context.Context, id int64, name, subject, body string) (*models.EmailTemplate, error)
	DeleteTemplate(ctx context.Context, id int64) error
	CountTemplates(ctx context.Context) (int, error)
}

type CredentialStore interface {
	CreateCredential(ctx context.Context, c *models.Credential) (*models.Credential, error)
	GetCredentialByPublicID(ctx context.Context, publicID uuid.UUID) (*models.Credential, error)
	// GetActiveCredential returns ErrNotFound when no credential is active.
	GetActiveCredential(ctx context.Context) (*models.Credential, error)
	ListCredentials(ctx context.Context) ([]models.Credential, error)
	UpdateCredential(ctx context.Context, c *models.Credential) (*models.Credential, error)
	// ActivateCredential marks the given credential active and clears the
	// flag on every other credential in the same transaction.
	ActivateCredential(ctx context.Context, id int64) error
	DeleteCredential(ctx context.Context, id int64) error
}

type SettingsStore interface {
	// GetOrInitSettings returns the singleton settings row, creating it
	// with defaults if it does not exist yet.
	GetOrInitSettings(ctx context.Context) (*models.Settings, error)
	// UpdateSettings coalesces the given values onto the singleton row.
	UpdateSettings(ctx context.Context, s *models.Settings) (*models.Settings, error)
}

type EmailLogStore interface {
	CreateEmailLog(ctx context.Context, params models.EmailLogCreateParams) (*models.EmailLog, error)
	ListEmailLogs(ctx context.Context, query models.EmailLogQuery) ([]models.EmailLog, error)
	CountEmailLogsByStatus(ctx context.Context) (*models.LogCounts, error)
}
