package infrastructure

import (
	"strings"

	"github.com/alessio/shellescape"
)

const redacted = "<redacted>"

// ShellEscapeCommand creates a shell-safe command line string for logging.
// Bearer tokens in header arguments are replaced so logs never carry them.
func ShellEscapeCommand(binary string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, binary)
	for _, arg := range args {
		parts = append(parts, RedactBearer(arg))
	}
	return shellescape.QuoteCommand(parts)
}

// RedactBearer hides the token of every "Bearer <token>" occurrence in s
func RedactBearer(s string) string {
	const marker = "Bearer "
	var b strings.Builder
	for {
		i := strings.Index(s, marker)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}
		b.WriteString(s[:i+len(marker)])
		b.WriteString(redacted)
		s = s[i+len(marker):]
		end := strings.IndexAny(s, " \r\n\t")
		if end < 0 {
			return b.String()
		}
		s = s[end:]
	}
}
