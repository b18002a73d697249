// Package settings manages the process-wide dispatch settings singleton.
package settings

import (
	"context"
	"fmt"

	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/store"
)

// Bounds for each settings field.
const (
	MinEmailDelay          = 0
	MaxEmailDelay          = 60
	MinMaxAttachments      = 1
	MaxMaxAttachments      = 10
	MinMaxAttachmentSizeMB = 1
	MaxMaxAttachmentSizeMB = 25
)

// Service validates settings writes and hands out the singleton. Exactly
// one settings record exists; updates coalesce onto it.
type Service struct {
	settings store.SettingsStore
}

func NewService(settings store.SettingsStore) *Service {
	return &Service{settings: settings}
}

// Get returns the settings record, creating it with defaults on first use.
func (s *Service) Get(ctx context.Context) (*models.Settings, error) {
	return s.settings.GetOrInitSettings(ctx)
}

// Update validates the given values and coalesces them onto the singleton
// row.
func (s *Service) Update(ctx context.Context, in *models.Settings) (*models.Settings, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	return s.settings.UpdateSettings(ctx, in)
}

// Validate checks every field against its documented bounds.
func Validate(s *models.Settings) error {
	if s.EmailDelay < MinEmailDelay || s.EmailDelay > MaxEmailDelay {
		return fmt.Errorf("email delay must be between %d and %d seconds, got %d", MinEmailDelay, MaxEmailDelay, s.EmailDelay)
	}
	if s.BatchSize < 0 {
		return fmt.Errorf("batch size must not be negative, got %d", s.BatchSize)
	}
	if s.BatchDelay < 0 {
		return fmt.Errorf("batch delay must not be negative, got %d", s.BatchDelay)
	}
	if s.MaxAttachments < MinMaxAttachments || s.MaxAttachments > MaxMaxAttachments {
		return fmt.Errorf("max attachments must be between %d and %d, got %d", MinMaxAttachments, MaxMaxAttachments, s.MaxAttachments)
	}
	if s.MaxAttachmentSizeMB < MinMaxAttachmentSizeMB || s.MaxAttachmentSizeMB > MaxMaxAttachmentSizeMB {
		return fmt.Errorf("max attachment size must be between %d and %d MB, got %d", MinMaxAttachmentSizeMB, MaxMaxAttachmentSizeMB, s.MaxAttachmentSizeMB)
	}
	return nil
}
