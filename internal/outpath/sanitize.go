package outpath

import (
	"strings"
	"unicode/utf8"
)

// maxNameBytes is the common filesystem limit for a single path element.
const maxNameBytes = 255

var unsafeRunes = map[rune]bool{
	'"':  true,
	'\\': true,
	'/':  true,
	':':  true,
	'*':  true,
	'?':  true,
	'<':  true,
	'>':  true,
	'|':  true,
}

// SanitizeFilename makes a single path element safe to create inside an
// output directory. Separators and control characters become underscores,
// unicode is preserved, and names that would resolve to "." or ".." are
// replaced with "file".
func SanitizeFilename(name string) string {
	var sb strings.Builder
	sb.Grow(len(name))
	for _, r := range name {
		if r < 32 || r == 127 || unsafeRunes[r] {
			sb.WriteRune('_')
			continue
		}
		sb.WriteRune(r)
	}

	result := strings.TrimSpace(sb.String())
	if strings.Trim(result, "_.") == "" {
		return "file"
	}
	return truncateToBytes(result, maxNameBytes)
}

// truncateToBytes cuts s to at most n bytes without splitting a rune.
func truncateToBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
