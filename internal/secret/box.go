// Package secret encrypts SMTP credential secrets at rest with a
// process-wide symmetric key.
package secret

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

// KeySize is the required key length in bytes.
const KeySize = 32

// prefix marks values written by Encrypt. Stored values without it predate
// encryption and are handled as plaintext.
const prefix = "v1:"

// Box seals and opens short secrets with NaCl secretbox
// (XSalsa20-Poly1305). Decrypt never fails: values that cannot be opened
// are returned unchanged so records written before encryption was
// introduced keep working.
type Box struct {
	key [KeySize]byte
}

// NewBox creates a Box from a base64-encoded 32-byte key.
func NewBox(base64Key string) (*Box, error) {
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, fmt.Errorf("secret: invalid base64 key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("secret: key must be %d bytes, got %d", KeySize, len(key))
	}

	b := &Box{}
	copy(b.key[:], key)
	return b, nil
}

// Encrypt seals the plaintext under a fresh random nonce and returns a
// prefixed base64 string suitable for storage.
func (b *Box) Encrypt(plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("secret: failed to generate nonce: %w", err)
	}

	sealed := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &b.key)
	return prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value written by Encrypt. Anything that is not a valid
// sealed value (no prefix, bad encoding, wrong key, truncated data) is
// returned as-is, treating the stored value as legacy plaintext.
func (b *Box) Decrypt(stored string) string {
	if !strings.HasPrefix(stored, prefix) {
		return stored
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, prefix))
	if err != nil || len(raw) < 24 {
		return stored
	}

	var nonce [24]byte
	copy(nonce[:], raw[:24])

	plaintext, ok := secretbox.Open(nil, raw[24:], &nonce, &b.key)
	if !ok {
		return stored
	}
	return string(plaintext)
}
