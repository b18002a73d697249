// Package personalize substitutes per-recipient fields into message
// templates.
package personalize

import (
	"regexp"

	"github.com/postroom/postroom/internal/models"
)

// placeholderPattern matches the recognized placeholders, tolerating inner
// whitespace ({{email}}, {{ company }}). Unrecognized tokens are left
// alone.
var placeholderPattern = regexp.MustCompile(`\{\{\s*(email|company)\s*\}\}`)

// Render replaces every {{email}} and {{company}} placeholder in text with
// the recipient's field values. It is a pure function: unknown placeholders
// pass through as literal text, and substituted values are inserted in a
// single pass so recipient data containing template syntax is never
// re-interpreted.
func Render(text string, r models.Recipient) string {
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		switch placeholderPattern.FindStringSubmatch(match)[1] {
		case "email":
			return r.Email
		case "company":
			return r.Company
		}
		return match
	})
}
