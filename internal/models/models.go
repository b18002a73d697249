package models

import (
	"time"

	"github.com/google/uuid"
)

// Log entry statuses.
const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Transport security modes for SMTP credentials.
const (
	SecurityNone = "none"
	SecurityTLS  = "tls" // STARTTLS on a plaintext connection
	SecuritySSL  = "ssl" // implicit TLS
)

type Recipient struct {
	ID        int64
	PublicID  uuid.UUID
	Email     string
	Company   string
	CreatedAt time.Time
}

type EmailTemplate struct {
	ID        int64
	PublicID  uuid.UUID
	Name      string
	Subject   string
	Body      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Credential is an SMTP account. Secret is stored encrypted at rest and is
// only decrypted in memory for the duration of a dispatch run.
type Credential struct {
	ID          int64
	PublicID    uuid.UUID
	Host        string
	Port        int
	Username    string
	Secret      string
	FromAddress string
	Security    string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Settings is a process-wide singleton: exactly one row ever exists and
// writes coalesce onto it. Delays are in seconds.
type Settings struct {
	ID                  int64
	EmailDelay          int
	BatchSize           int
	BatchDelay          int
	MaxAttachments      int
	MaxAttachmentSizeMB int
	UpdatedAt           time.Time
}

// Attachment exists only for the duration of one dispatch call.
type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
	Size        int64
}

// EmailLog is one delivery attempt. Rows are append-only; the only mutation
// is the pending -> sent/failed transition at the moment of the attempt.
type EmailLog struct {
	ID              int64
	RecipientID     int64
	RecipientEmail  string
	TemplateID      *int64
	Subject         string
	Body            string
	Status          string
	ErrorMessage    string
	HasAttachments  bool
	AttachmentCount int
	SentAt          *time.Time
	CreatedAt       time.Time
}

// EmailLogCreateParams carries the fields the dispatch engine records per
// attempt.
type EmailLogCreateParams struct {
	RecipientID     int64
	RecipientEmail  string
	TemplateID      *int64
	Subject         string
	Body            string
	Status          string
	ErrorMessage    string
	HasAttachments  bool
	AttachmentCount int
	SentAt          *time.Time
}

// EmailLogQuery filters log listings.
type EmailLogQuery struct {
	Status string
	Limit  int
	Offset int
}

// LogCounts summarises delivery history for the dashboard.
type LogCounts struct {
	Sent   int
	Failed int
}

// DispatchResult aggregates one bulk run. It is run-scoped and never
// persisted; history is reconstructable from the log entries.
type DispatchResult struct {
	Success int
	Failed  int
	Errors  []string
}
