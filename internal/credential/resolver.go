package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/postroom/postroom/internal/mail"
	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/secret"
	"github.com/postroom/postroom/internal/store"
)

// Resolver selects the transport a dispatch run sends through: the active
// credential when one exists, otherwise the process-level default.
type Resolver struct {
	creds    store.CredentialStore
	box      *secret.Box
	fallback mail.TransportConfig
}

func NewResolver(creds store.CredentialStore, box *secret.Box, fallback mail.TransportConfig) *Resolver {
	return &Resolver{
		creds:    creds,
		box:      box,
		fallback: fallback,
	}
}

// Resolve returns the transport config for the active credential with its
// secret decrypted, or the fallback when no credential is active. It is
// read-only.
func (r *Resolver) Resolve(ctx context.Context) (mail.TransportConfig, error) {
	cred, err := r.creds.GetActiveCredential(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return r.fallback, nil
	}
	if err != nil {
		return mail.TransportConfig{}, fmt.Errorf("credential: failed to look up active credential: %w", err)
	}

	return transportConfig(cred, r.box), nil
}

// transportConfig maps a stored credential onto a transport, decrypting the
// secret in memory. Decrypt never fails: a legacy plaintext secret comes
// back unchanged.
func transportConfig(cred *models.Credential, box *secret.Box) mail.TransportConfig {
	return mail.TransportConfig{
		Host:     cred.Host,
		Port:     cred.Port,
		Username: cred.Username,
		Password: box.Decrypt(cred.Secret),
		Security: cred.Security,
		From:     cred.FromAddress,
	}
}
