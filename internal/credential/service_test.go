package credential

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/postroom/postroom/internal/mail"
	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/secret"
	"github.com/postroom/postroom/internal/store"
)

// --- Mock store ---

type mockCredentialStore struct {
	credentials map[int64]*models.Credential
	byPublicID  map[uuid.UUID]*models.Credential
	nextID      int64
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{
		credentials: make(map[int64]*models.Credential),
		byPublicID:  make(map[uuid.UUID]*models.Credential),
		nextID:      1,
	}
}

func (m *mockCredentialStore) CreateCredential(_ context.Context, c *models.Credential) (*models.Credential, error) {
	created := *c
	created.ID = m.nextID
	created.PublicID = uuid.New()
	m.nextID++
	m.credentials[created.ID] = &created
	m.byPublicID[created.PublicID] = &created
	return &created, nil
}

func (m *mockCredentialStore) GetCredentialByPublicID(_ context.Context, publicID uuid.UUID) (*models.Credential, error) {
	c, ok := m.byPublicID[publicID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (m *mockCredentialStore) GetActiveCredential(_ context.Context) (*models.Credential, error) {
	for _, c := range m.credentials {
		if c.Active {
			return c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *mockCredentialStore) ListCredentials(_ context.Context) ([]models.Credential, error) {
	var out []models.Credential
	for _, c := range m.credentials {
		out = append(out, *c)
	}
	return out, nil
}

func (m *mockCredentialStore) UpdateCredential(_ context.Context, c *models.Credential) (*models.Credential, error) {
	existing, ok := m.credentials[c.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	updated := *c
	updated.PublicID = existing.PublicID
	updated.Active = existing.Active
	*existing = updated
	return existing, nil
}

func (m *mockCredentialStore) ActivateCredential(_ context.Context, id int64) error {
	target, ok := m.credentials[id]
	if !ok {
		return store.ErrNotFound
	}
	for _, c := range m.credentials {
		c.Active = false
	}
	target.Active = true
	return nil
}

func (m *mockCredentialStore) DeleteCredential(_ context.Context, id int64) error {
	c, ok := m.credentials[id]
	if !ok {
		return nil
	}
	delete(m.byPublicID, c.PublicID)
	delete(m.credentials, id)
	return nil
}

func (m *mockCredentialStore) activeCount() int {
	n := 0
	for _, c := range m.credentials {
		if c.Active {
			n++
		}
	}
	return n
}

func testBox(t *testing.T) *secret.Box {
	t.Helper()
	key := make([]byte, secret.KeySize)
	for i := range key {
		key[i] = byte(i)
	}
	box, err := secret.NewBox(base64.StdEncoding.EncodeToString(key))
	if err != nil {
		t.Fatalf("NewBox returned error: %v", err)
	}
	return box
}

func validCredential() *models.Credential {
	return &models.Credential{
		Host:        "smtp.example.com",
		Port:        587,
		Username:    "mailer",
		Secret:      "hunter2",
		FromAddress: "ops@example.com",
		Security:    models.SecurityTLS,
	}
}

// --- Tests ---

func TestCreate_EncryptsSecretAtRest(t *testing.T) {
	ms := newMockCredentialStore()
	svc := NewService(ms, testBox(t))

	created, err := svc.Create(context.Background(), validCredential())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	stored := ms.credentials[created.ID]
	if stored.Secret == "hunter2" {
		t.Fatal("secret stored in plaintext")
	}
	if !strings.HasPrefix(stored.Secret, "v1:") {
		t.Fatalf("expected sealed secret, got %q", stored.Secret)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc := NewService(newMockCredentialStore(), testBox(t))

	tests := []struct {
		name   string
		mutate func(*models.Credential)
	}{
		{"missing host", func(c *models.Credential) { c.Host = "" }},
		{"bad port", func(c *models.Credential) { c.Port = 70000 }},
		{"missing from", func(c *models.Credential) { c.FromAddress = "" }},
		{"malformed from", func(c *models.Credential) { c.FromAddress = "not an address" }},
		{"bad security", func(c *models.Credential) { c.Security = "starttls" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCredential()
			tt.mutate(c)
			if _, err := svc.Create(context.Background(), c); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestActivate_IsExclusive(t *testing.T) {
	ms := newMockCredentialStore()
	svc := NewService(ms, testBox(t))
	ctx := context.Background()

	a, err := svc.Create(ctx, validCredential())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	b, err := svc.Create(ctx, validCredential())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := svc.Activate(ctx, a.PublicID); err != nil {
		t.Fatalf("Activate(a) returned error: %v", err)
	}
	if err := svc.Activate(ctx, b.PublicID); err != nil {
		t.Fatalf("Activate(b) returned error: %v", err)
	}

	if ms.activeCount() != 1 {
		t.Fatalf("expected exactly one active credential, got %d", ms.activeCount())
	}
	active, err := ms.GetActiveCredential(ctx)
	if err != nil {
		t.Fatalf("GetActiveCredential returned error: %v", err)
	}
	if active.PublicID != b.PublicID {
		t.Fatal("expected credential B to be the active one")
	}
}

func TestUpdate_EmptySecretKeepsStoredOne(t *testing.T) {
	ms := newMockCredentialStore()
	svc := NewService(ms, testBox(t))
	ctx := context.Background()

	created, err := svc.Create(ctx, validCredential())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	sealedBefore := ms.credentials[created.ID].Secret

	in := validCredential()
	in.Secret = ""
	in.Host = "smtp2.example.com"
	updated, err := svc.Update(ctx, created.PublicID, in)
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.Host != "smtp2.example.com" {
		t.Fatalf("expected updated host, got %q", updated.Host)
	}
	if ms.credentials[created.ID].Secret != sealedBefore {
		t.Fatal("empty secret on update must keep the stored secret")
	}
}

func TestResolve_ActiveCredentialWins(t *testing.T) {
	ms := newMockCredentialStore()
	box := testBox(t)
	svc := NewService(ms, box)
	ctx := context.Background()

	created, err := svc.Create(ctx, validCredential())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if err := svc.Activate(ctx, created.PublicID); err != nil {
		t.Fatalf("Activate returned error: %v", err)
	}

	fallback := mail.TransportConfig{Host: "localhost", Port: 25, From: "default@example.com"}
	resolver := NewResolver(ms, box, fallback)

	cfg, err := resolver.Resolve(ctx)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.Host != "smtp.example.com" || cfg.From != "ops@example.com" {
		t.Fatalf("expected active credential's transport, got %+v", cfg)
	}
	if cfg.Password != "hunter2" {
		t.Fatalf("expected decrypted secret, got %q", cfg.Password)
	}
}

func TestResolve_FallsBackWhenNoneActive(t *testing.T) {
	ms := newMockCredentialStore()
	fallback := mail.TransportConfig{Host: "localhost", Port: 25, From: "default@example.com"}
	resolver := NewResolver(ms, testBox(t), fallback)

	cfg, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg != fallback {
		t.Fatalf("expected fallback transport, got %+v", cfg)
	}
}

func TestResolve_LegacyPlaintextSecret(t *testing.T) {
	ms := newMockCredentialStore()
	box := testBox(t)

	// A credential written before encryption was introduced: the stored
	// secret has no seal. Resolution must treat it as plaintext, never
	// error.
	created, _ := ms.CreateCredential(context.Background(), &models.Credential{
		Host: "smtp.example.com", Port: 587, Secret: "plain-old-password",
		FromAddress: "ops@example.com", Security: models.SecurityNone,
	})
	if err := ms.ActivateCredential(context.Background(), created.ID); err != nil {
		t.Fatalf("ActivateCredential returned error: %v", err)
	}

	resolver := NewResolver(ms, box, mail.TransportConfig{})
	cfg, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if cfg.Password != "plain-old-password" {
		t.Fatalf("expected plaintext fallback, got %q", cfg.Password)
	}
}

func TestTest_DialsWithDecryptedSecret(t *testing.T) {
	ms := newMockCredentialStore()
	svc := NewService(ms, testBox(t))
	ctx := context.Background()

	created, err := svc.Create(ctx, validCredential())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	var got mail.TransportConfig
	svc.verify = func(cfg mail.TransportConfig) error {
		got = cfg
		return nil
	}

	if err := svc.Test(ctx, created.PublicID); err != nil {
		t.Fatalf("Test returned error: %v", err)
	}
	if got.Password != "hunter2" {
		t.Fatalf("expected decrypted secret passed to verify, got %q", got.Password)
	}
}
