// Package dispatch implements the bulk send loop: render, send, log and
// pace, one recipient at a time.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/textproto"
	"time"

	"github.com/postroom/postroom/internal/mail"
	"github.com/postroom/postroom/internal/models"
	"github.com/postroom/postroom/internal/personalize"
	"github.com/postroom/postroom/internal/store"
	gomail "gopkg.in/gomail.v2"
)

// CredentialResolver yields the transport to send through. Resolution
// happens once per run; credential edits during a long run do not affect
// it.
type CredentialResolver interface {
	Resolve(ctx context.Context) (mail.TransportConfig, error)
}

// DialFunc opens an SMTP connection for a resolved transport.
type DialFunc func(cfg mail.TransportConfig) (gomail.SendCloser, error)

// SleepFunc pauses between sends. It returns early with the context error
// when the run is cancelled mid-pause.
type SleepFunc func(ctx context.Context, d time.Duration) error

// BulkRequest describes one dispatch run.
type BulkRequest struct {
	Subject     string
	Body        string
	Recipients  []models.Recipient
	TemplateID  *int64
	Attachments []models.Attachment

	// Progress, when set, is invoked after each recipient with the number
	// of recipients handled so far.
	Progress func(processed, total int)
}

// Engine drives the sequential send loop. Sends are strictly one at a time:
// pacing correctness depends on each send finishing before the next begins.
type Engine struct {
	creds    CredentialResolver
	settings store.SettingsStore
	logs     store.EmailLogStore

	dial  DialFunc
	sleep SleepFunc
}

func NewEngine(creds CredentialResolver, settings store.SettingsStore, logs store.EmailLogStore) *Engine {
	return &Engine{
		creds:    creds,
		settings: settings,
		logs:     logs,
		dial:     mail.Dial,
		sleep:    sleepContext,
	}
}

// SendBulk sends the templated message to every recipient in order and
// returns the aggregate result.
//
// Credential, settings and attachment validation all happen before the
// first send; an error there aborts the call with no log entries written.
// Once the loop starts, one recipient's failure never aborts it: the
// failure is logged, recorded in the result, and the loop moves on. The
// only exceptions are context cancellation and the transport becoming
// unusable, both of which stop the loop early without fabricating entries
// for untried recipients.
func (e *Engine) SendBulk(ctx context.Context, req BulkRequest) (*models.DispatchResult, error) {
	tc, err := e.creds.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("dispatch: failed to resolve credential: %w", err)
	}

	settings, err := e.settings.GetOrInitSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("dispatch: failed to load settings: %w", err)
	}

	if err := ValidateAttachments(req.Attachments, settings); err != nil {
		return nil, err
	}

	// One connection for the whole run, reused across recipients.
	sender, err := e.dial(tc)
	if err != nil {
		return nil, fmt.Errorf("dispatch: failed to connect: %w", err)
	}
	defer func() {
		if sender != nil {
			sender.Close()
		}
	}()

	result := &models.DispatchResult{}
	total := len(req.Recipients)

	for i, recipient := range req.Recipients {
		index := i + 1

		// Cancellation is consulted once per iteration, never mid-send.
		if err := ctx.Err(); err != nil {
			return result, err
		}

		subject := personalize.Render(req.Subject, recipient)
		body := personalize.Render(req.Body, recipient)

		msg := gomail.NewMessage()
		msg.SetHeader("From", tc.From)
		msg.SetHeader("To", recipient.Email)
		msg.SetHeader("Subject", subject)
		msg.SetBody("text/plain", body)
		attached := attachAll(ctx, msg, req.Attachments, recipient.Email)

		sendErr := sender.Send(tc.From, []string{recipient.Email}, msg)
		if sendErr == nil {
			now := time.Now().UTC()
			e.record(ctx, models.EmailLogCreateParams{
				RecipientID:     recipient.ID,
				RecipientEmail:  recipient.Email,
				TemplateID:      req.TemplateID,
				Subject:         subject,
				Body:            body,
				Status:          models.StatusSent,
				HasAttachments:  attached > 0,
				AttachmentCount: attached,
				SentAt:          &now,
			})
			result.Success++
			slog.InfoContext(ctx, "email sent", "recipient", recipient.Email, "attachments", attached)
		} else {
			// The failure log keeps the original, unrendered subject and
			// body, and the attachment count of the input set rather than
			// of what was attached.
			e.record(ctx, models.EmailLogCreateParams{
				RecipientID:     recipient.ID,
				RecipientEmail:  recipient.Email,
				TemplateID:      req.TemplateID,
				Subject:         req.Subject,
				Body:            req.Body,
				Status:          models.StatusFailed,
				ErrorMessage:    sendErr.Error(),
				HasAttachments:  len(req.Attachments) > 0,
				AttachmentCount: len(req.Attachments),
			})
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %s", recipient.Email, sendErr))
			slog.ErrorContext(ctx, "failed to send email", "recipient", recipient.Email, "error", sendErr)

			if !isProtocolError(sendErr) {
				// The connection itself looks broken. One reconnect
				// attempt; if that fails too, stop the loop early.
				sender.Close()
				sender, err = e.dial(tc)
				if err != nil {
					return result, fmt.Errorf("dispatch: transport unusable after %s: %w", recipient.Email, err)
				}
			}
		}

		if req.Progress != nil {
			req.Progress(index, total)
		}

		if d := delayAfter(index, total, settings); d > 0 {
			if err := e.sleep(ctx, d); err != nil {
				return result, err
			}
		}
	}

	return result, nil
}

// attachAll adds each attachment to the message, skipping files that cannot
// be attached. A skipped file is logged but does not abort the recipient's
// send; only successfully attached files are counted.
func attachAll(ctx context.Context, msg *gomail.Message, files []models.Attachment, recipient string) int {
	attached := 0
	for _, f := range files {
		if f.Filename == "" || len(f.Content) == 0 {
			slog.WarnContext(ctx, "skipping unattachable file",
				"filename", f.Filename,
				"recipient", recipient,
			)
			continue
		}

		content := f.Content
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(content)
				return err
			}),
		}
		if f.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {f.ContentType},
			}))
		}

		msg.Attach(f.Filename, settings...)
		attached++
	}
	return attached
}

// record persists one delivery log entry. A sink failure is logged and
// swallowed: losing an audit row must not abort the run.
func (e *Engine) record(ctx context.Context, params models.EmailLogCreateParams) {
	if _, err := e.logs.CreateEmailLog(ctx, params); err != nil {
		slog.ErrorContext(ctx, "failed to record delivery log entry",
			"recipient", params.RecipientEmail,
			"status", params.Status,
			"error", err,
		)
	}
}

// isProtocolError reports whether the error is an SMTP reply from the
// server. A reply means the connection survived the failure; anything else
// (dial, IO, TLS errors) means it may not have.
func isProtocolError(err error) bool {
	var te *textproto.Error
	return errors.As(err, &te)
}
