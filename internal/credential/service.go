// Package credential manages SMTP credentials: CRUD, exclusive activation
// and resolution into a usable transport.
package credential

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"

	"github.com/google/uuid"
	"github.com/postroom/postroom/internal/mail"
	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/secret"
	"github.com/postroom/postroom/internal/store"
)

// Service provides credential business logic. Secrets are encrypted before
// they reach the store and stay encrypted at rest.
type Service struct {
	creds store.CredentialStore
	box   *secret.Box

	// verify is swapped out in tests; it defaults to dialing the SMTP
	// server once.
	verify func(cfg mail.TransportConfig) error
}

func NewService(creds store.CredentialStore, box *secret.Box) *Service {
	return &Service{
		creds:  creds,
		box:    box,
		verify: mail.Verify,
	}
}

func validate(c *models.Credential) error {
	if c.Host == "" {
		return errors.New("host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.FromAddress == "" {
		return errors.New("from address is required")
	}
	if _, err := netmail.ParseAddress(c.FromAddress); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	switch c.Security {
	case models.SecurityNone, models.SecurityTLS, models.SecuritySSL:
		return nil
	default:
		return fmt.Errorf("invalid security mode %q", c.Security)
	}
}

// Create stores a new credential. The Secret field of the input is
// plaintext and is sealed before it is persisted.
func (s *Service) Create(ctx context.Context, in *models.Credential) (*models.Credential, error) {
	if in.Security == "" {
		in.Security = models.SecurityTLS
	}
	if in.Port == 0 {
		in.Port = 587
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	sealed, err := s.box.Encrypt(in.Secret)
	if err != nil {
		return nil, fmt.Errorf("credential: failed to encrypt secret: %w", err)
	}

	c := *in
	c.Secret = sealed
	created, err := s.creds.CreateCredential(ctx, &c)
	if err != nil {
		return nil, fmt.Errorf("credential: failed to create credential: %w", err)
	}
	return created, nil
}

// Update overwrites the credential's transport fields. An empty Secret
// keeps the stored one instead of blanking it.
func (s *Service) Update(ctx context.Context, publicID uuid.UUID, in *models.Credential) (*models.Credential, error) {
	existing, err := s.creds.GetCredentialByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}

	c := *in
	c.ID = existing.ID
	if c.Security == "" {
		c.Security = existing.Security
	}
	if c.Port == 0 {
		c.Port = existing.Port
	}
	if err := validate(&c); err != nil {
		return nil, err
	}

	if c.Secret == "" {
		c.Secret = existing.Secret
	} else {
		sealed, err := s.box.Encrypt(c.Secret)
		if err != nil {
			return nil, fmt.Errorf("credential: failed to encrypt secret: %w", err)
		}
		c.Secret = sealed
	}

	updated, err := s.creds.UpdateCredential(ctx, &c)
	if err != nil {
		return nil, fmt.Errorf("credential: failed to update credential: %w", err)
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, publicID uuid.UUID) (*models.Credential, error) {
	return s.creds.GetCredentialByPublicID(ctx, publicID)
}

func (s *Service) List(ctx context.Context) ([]models.Credential, error) {
	return s.creds.ListCredentials(ctx)
}

// Activate makes the credential the one dispatch runs send through,
// deactivating every other credential in the same transaction.
func (s *Service) Activate(ctx context.Context, publicID uuid.UUID) error {
	cred, err := s.creds.GetCredentialByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	if err := s.creds.ActivateCredential(ctx, cred.ID); err != nil {
		return fmt.Errorf("credential: failed to activate credential: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, publicID uuid.UUID) error {
	cred, err := s.creds.GetCredentialByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	return s.creds.DeleteCredential(ctx, cred.ID)
}

// Test dials the credential's SMTP server once and closes the connection.
func (s *Service) Test(ctx context.Context, publicID uuid.UUID) error {
	cred, err := s.creds.GetCredentialByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	return s.verify(transportConfig(cred, s.box))
}
