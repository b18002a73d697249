// Package recipient manages the recipient list the dispatch engine draws
// from.
package recipient

import (
	"context"
	"errors"
	"fmt"
	netmail "net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/store"
)

// Service provides recipient list business logic.
type Service struct {
	recipients store.RecipientStore
}

func NewService(recipients store.RecipientStore) *Service {
	return &Service{recipients: recipients}
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errors.New("email is required")
	}
	addr, err := netmail.ParseAddress(email)
	if err != nil {
		return "", fmt.Errorf("invalid email address %q: %w", email, err)
	}
	return strings.ToLower(addr.Address), nil
}

func (s *Service) Create(ctx context.Context, email, company string) (*models.Recipient, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	r, err := s.recipients.CreateRecipient(ctx, normalized, strings.TrimSpace(company))
	if err != nil {
		return nil, fmt.Errorf("recipient: failed to create recipient: %w", err)
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, publicID uuid.UUID) (*models.Recipient, error) {
	return s.recipients.GetRecipientByPublicID(ctx, publicID)
}

// List returns recipients ordered by email, optionally filtered by a
// case-insensitive search over email and company.
func (s *Service) List(ctx context.Context, search string) ([]models.Recipient, error) {
	return s.recipients.ListRecipients(ctx, strings.TrimSpace(search))
}

// Resolve maps a set of public IDs onto recipients, preserving the caller's
// order so pacing decisions downstream are well-defined.
func (s *Service) Resolve(ctx context.Context, publicIDs []uuid.UUID) ([]models.Recipient, error) {
	recipients := make([]models.Recipient, 0, len(publicIDs))
	for _, id := range publicIDs {
		r, err := s.recipients.GetRecipientByPublicID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("recipient: unknown recipient %s: %w", id, err)
		}
		recipients = append(recipients, *r)
	}
	return recipients, nil
}

func (s *Service) Update(ctx context.Context, publicID uuid.UUID, email, company string) (*models.Recipient, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}

	existing, err := s.recipients.GetRecipientByPublicID(ctx, publicID)
	if err != nil {
		return nil, err
	}
	return s.recipients.UpdateRecipient(ctx, existing.ID, normalized, strings.TrimSpace(company))
}

func (s *Service) Delete(ctx context.Context, publicID uuid.UUID) error {
	existing, err := s.recipients.GetRecipientByPublicID(ctx, publicID)
	if err != nil {
		return err
	}
	return s.recipients.DeleteRecipient(ctx, existing.ID)
}
