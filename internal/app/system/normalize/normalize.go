// internal/app/system/normalize/normalize.go
package normalize

import (
	"strings"

	"github.com/gosimple/slug"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace and collapses inner runs of spaces.
// Case is preserved.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Role lowercases and trims a role value.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Slug builds a URL-safe lowercase slug from free text.
func Slug(s string) string {
	return slug.Make(strings.TrimSpace(s))
}
