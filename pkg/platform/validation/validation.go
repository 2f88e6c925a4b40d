// Package validation holds the input checks and sanitizers shared by request
// types. Rules are expressed as go-playground/validator tags and evaluated per
// field so that every violation is collected before the request is rejected.
package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "person-registry/pkg/domain-errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Check reports whether value satisfies the validator tag.
func Check(value, tag string) bool {
	return validate.Var(value, tag) == nil
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	`"`, "&quot;",
	"'", "&#x27;",
	"<", "&lt;",
	">", "&gt;",
	"/", "&#x2F;",
	`\`, "&#x5C;",
	"`", "&#96;",
)

// Escape replaces HTML-significant characters with entities.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Sanitize trims surrounding whitespace and escapes markup.
func Sanitize(s string) string {
	return Escape(strings.TrimSpace(s))
}

// Errors collects field violations.
type Errors []dErrors.Detail

// Add records a violation for field.
func (e *Errors) Add(field, value, message string) {
	*e = append(*e, dErrors.Detail{Field: field, Value: value, Message: message})
}

// Err returns a validation domain error, or nil when nothing was collected.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return dErrors.Validation(e)
}
