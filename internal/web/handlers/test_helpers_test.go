package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/store"
)

// --- Shared mock stores used across the handler tests ---

type mockRecipientStore struct {
	recipients map[int64]*models.Recipient
	nextID     int64
}

func newMockRecipientStore() *mockRecipientStore {
	return &mockRecipientStore{
		recipients: make(map[int64]*models.Recipient),
		nextID:     1,
	}
}

func (m *mockRecipientStore) addRecipient(email, company string) *models.Recipient {
	r := &models.Recipient{
		ID:        m.nextID,
		PublicID:  uuid.New(),
		Email:     email,
		Company:   company,
		CreatedAt: time.Now(),
	}
	m.nextID++
	m.recipients[r.ID] = r
	return r
}

func (m *mockRecipientStore) CreateRecipient(_ context.Context, email, company string) (*models.Recipient, error) {
	for _, r := range m.recipients {
		if r.Email == email {
			return nil, errors.New(`pq: duplicate key value violates unique constraint "recipients_email_key"`)
		}
	}
	return m.addRecipient(email, company), nil
}

func (m *mockRecipientStore) GetRecipientByEmail(_ context.Context, email string) (*models.Recipient, error) {
	for _, r := range m.recipients {
		if r.Email == email {
			return r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockRecipientStore) GetRecipientByPublicID(_ context.Context, publicID uuid.UUID) (*models.Recipient, error) {
	for _, r := range m.recipients {
		if r.PublicID == publicID {
			return r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockRecipientStore) ListRecipients(_ context.Context, search string) ([]models.Recipient, error) {
	out := []models.Recipient{}
	needle := strings.ToLower(search)
	for _, r := range m.recipients {
		if search == "" || strings.Contains(strings.ToLower(r.Email), needle) || strings.Contains(strings.ToLower(r.Company), needle) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockRecipientStore) UpdateRecipient(_ context.Context, id int64, email, company string) (*models.Recipient, error) {
	r, ok := m.recipients[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	r.Email = email
	r.Company = company
	return r, nil
}

func (m *mockRecipientStore) DeleteRecipient(_ context.Context, id int64) error {
	if _, ok := m.recipients[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.recipients, id)
	return nil
}

func (m *mockRecipientStore) CountRecipients(_ context.Context) (int, error) {
	return len(m.recipients), nil
}

type mockTemplateStore struct {
	templates map[int64]*models.EmailTemplate
	nextID    int64
}

func newMockTemplateStore() *mockTemplateStore {
	return &mockTemplateStore{
		templates: make(map[int64]*models.EmailTemplate),
		nextID:    1,
	}
}

func (m *mockTemplateStore) addTemplate(name, subject, body string) *models.EmailTemplate {
	t := &models.EmailTemplate{
		ID:        m.nextID,
		PublicID:  uuid.New(),
		Name:      name,
		Subject:   subject,
		Body:      body,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.nextID++
	m.templates[t.ID] = t
	return t
}

func (m *mockTemplateStore) CreateTemplate(_ context.Context, name, subject, body string) (*models.EmailTemplate, error) {
	return m.addTemplate(name, subject, body), nil
}

func (m *mockTemplateStore) GetTemplateByPublicID(_ context.Context, publicID uuid.UUID) (*models.EmailTemplate, error) {
	for _, t := range m.templates {
		if t.PublicID == publicID {
			return t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockTemplateStore) ListTemplates(_ context.Context) ([]models.EmailTemplate, error) {
	out := []models.EmailTemplate{}
	for _, t := range m.templates {
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockTemplateStore) UpdateTemplate(_ context.Context, id int64, name, subject, body string) (*models.EmailTemplate, error) {
	t, ok := m.templates[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	t.Name = name
	t.Subject = subject
	t.Body = body
	return t, nil
}

func (m *mockTemplateStore) DeleteTemplate(_ context.Context, id int64) error {
	if _, ok := m.templates[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

func (m *mockTemplateStore) CountTemplates(_ context.Context) (int, error) {
	return len(m.templates), nil
}

type mockSettingsStore struct {
	settings *models.Settings
}

func (m *mockSettingsStore) GetOrInitSettings(_ context.Context) (*models.Settings, error) {
	if m.settings == nil {
		m.settings = &models.Settings{
			ID:                  1,
			EmailDelay:          1,
			BatchSize:           0,
			BatchDelay:          0,
			MaxAttachments:      5,
			MaxAttachmentSizeMB: 10,
		}
	}
	return m.settings, nil
}

func (m *mockSettingsStore) UpdateSettings(_ context.Context, s *models.Settings) (*models.Settings, error) {
	updated := *s
	updated.ID = 1
	updated.UpdatedAt = time.Now()
	m.settings = &updated
	return m.settings, nil
}

type mockEmailLogStore struct {
	entries []models.EmailLog
}

func (m *mockEmailLogStore) CreateEmailLog(_ context.Context, params models.EmailLogCreateParams) (*models.EmailLog, error) {
	entry := models.EmailLog{
		ID:              int64(len(m.entries) + 1),
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
		CreatedAt:       time.Now(),
	}
	m.entries = append(m.entries, entry)
	return &entry, nil
}

func (m *mockEmailLogStore) ListEmailLogs(_ context.Context, query models.EmailLogQuery) ([]models.EmailLog, error) {
	out := []models.EmailLog{}
	for _, e := range m.entries {
		if query.Status == "" || e.Status == query.Status {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEmailLogStore) CountEmailLogsByStatus(_ context.Context) (*models.LogCounts, error) {
	counts := &models.LogCounts{}
	for _, e := range m.entries {
		switch e.Status {
		case models.StatusSent:
			counts.Sent++
		case models.StatusFailed:
			counts.Failed++
		}
	}
	return counts, nil
}
