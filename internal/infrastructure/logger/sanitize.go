package logger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// SanitizeForLog escapes control characters in user-supplied strings such as
// file paths before they reach a log line. Unicode is preserved; newlines,
// tabs and other control runes are written as escapes so a crafted file name
// cannot forge entries or drive the terminal.
func SanitizeForLog(s string) string {
	if !needsEscape(s) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 8)
	for _, r := range s {
		switch r {
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if isControl(r) {
				fmt.Fprintf(&b, `\x%02x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}

// Path is a zerolog helper for the common "path" field.
func Path(e *zerolog.Event, path string) *zerolog.Event {
	return e.Str("path", SanitizeForLog(path))
}

func needsEscape(s string) bool {
	for _, r := range s {
		if isControl(r) {
			return true
		}
	}
	return false
}

func isControl(r rune) bool {
	return r < 32 || r == 127
}
