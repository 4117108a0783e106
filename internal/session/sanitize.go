package session

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxMessageLen bounds a single user message after cleaning.
const maxMessageLen = 10000

var (
	scriptRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	markupRe = regexp.MustCompile(`(?i)javascript:|on(?:error|load|click)\s*=|<(?:iframe|embed|object)[^>]*>`)
)

// Sanitize cleans raw user input: markup injection patterns and
// non-printable characters are stripped, whitespace is collapsed, and
// the result is capped at maxMessageLen. An empty result means the
// message carried nothing processable.
func Sanitize(raw string) string {
	cleaned := scriptRe.ReplaceAllString(raw, "")
	cleaned = markupRe.ReplaceAllString(cleaned, "")

	var b strings.Builder
	b.Grow(len(cleaned))
	for _, r := range cleaned {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			b.WriteRune(r)
		}
	}
	cleaned = strings.Join(strings.Fields(b.String()), " ")

	if len(cleaned) > maxMessageLen {
		// Cut on a rune boundary so the cap never leaves invalid UTF-8.
		cut := maxMessageLen
		for cut > 0 && !utf8.RuneStart(cleaned[cut]) {
			cut--
		}
		cleaned = strings.TrimSpace(cleaned[:cut])
	}
	return cleaned
}
