// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Group chat stores plain text only; markup is never rendered.
var strict = bluemonday.StrictPolicy()

// PlainText removes every tag from s, drops script/style bodies, and
// returns the remaining text unescaped and trimmed.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
