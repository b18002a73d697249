// Package mail provides the outbound SMTP transport used by the dispatch
// engine.
package mail

import (
	"crypto/tls"
	"fmt"

	"github.com/postroom/postroom/internal/models"
	gomail "gopkg.in/gomail.v2"
)

// TransportConfig is a fully resolved SMTP endpoint: host, credentials in
// decrypted form, security mode and the from-address to stamp on messages.
type TransportConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Security string
	From     string
}

// Dial opens one SMTP connection for the given transport. The returned
// SendCloser is reused for every message of a dispatch run and must be
// closed by the caller.
func Dial(cfg TransportConfig) (gomail.SendCloser, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("mail: transport has no SMTP host")
	}

	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)

	switch cfg.Security {
	case models.SecuritySSL:
		d.SSL = true
		d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	case models.SecurityTLS:
		d.TLSConfig = &tls.Config{ServerName: cfg.Host}
	case models.SecurityNone, "":
		// Plain connection; gomail still upgrades via STARTTLS when the
		// server advertises it.
	default:
		return nil, fmt.Errorf("mail: unknown security mode %q", cfg.Security)
	}

	sc, err := d.Dial()
	if err != nil {
		return nil, fmt.Errorf("mail: failed to connect to %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return sc, nil
}

// Verify dials the transport and immediately closes the connection. It is
// used by the credential test endpoint.
func Verify(cfg TransportConfig) error {
	sc, err := Dial(cfg)
	if err != nil {
		return err
	}
	return sc.Close()
}
