package utils

import (
	"strings"
	"unicode"
)

// Slugify turns a book title into a filesystem-safe mirror filename
// stem: lowercase, runs of non-alphanumerics collapsed to single
// dashes, trimmed, capped at 100 characters.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true // suppress a leading dash
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if runes := []rune(slug); len(runes) > 100 {
		slug = strings.Trim(string(runes[:100]), "-")
	}
	if slug == "" {
		return "untitled"
	}
	return slug
}
