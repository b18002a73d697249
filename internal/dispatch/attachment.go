package dispatch

import (
	"fmt"

	"github.com/postroom/postroom/internal/models"
)

// TooManyAttachmentsError reports an attachment set over the configured
// count limit.
type TooManyAttachmentsError struct {
	Count int
	Limit int
}

func (e *TooManyAttachmentsError) Error() string {
	return fmt.Sprintf("too many attachments: %d exceeds limit of %d", e.Count, e.Limit)
}

// AttachmentTooLargeError reports a single file over the configured size
// limit.
type AttachmentTooLargeError struct {
	Filename string
	Size     int64
	Limit    int64
}

func (e *AttachmentTooLargeError) Error() string {
	return fmt.Sprintf("attachment %q is too large: %d bytes exceeds limit of %d", e.Filename, e.Size, e.Limit)
}

// ValidateAttachments enforces the settings limits on an attachment set. It
// runs once per dispatch call, before any send: an invalid set aborts the
// whole run rather than failing partway through recipients.
func ValidateAttachments(files []models.Attachment, settings *models.Settings) error {
	if len(files) > settings.MaxAttachments {
		return &TooManyAttachmentsError{Count: len(files), Limit: settings.MaxAttachments}
	}

	limit := int64(settings.MaxAttachmentSizeMB) * 1024 * 1024
	for _, f := range files {
		size := f.Size
		if size == 0 {
			size = int64(len(f.Content))
		}
		if size > limit {
			return &AttachmentTooLargeError{Filename: f.Filename, Size: size, Limit: limit}
		}
	}
	return nil
}
