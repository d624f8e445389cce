package domain

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FallbackSlug is used when a title contains nothing slug-safe.
const FallbackSlug = "untitled"

var (
	// reUnsafe matches characters outside the slug alphabet.
	reUnsafe = regexp.MustCompile(`[^a-z0-9\s-]`)
	// reSpaces matches whitespace runs.
	reSpaces = regexp.MustCompile(`\s+`)
	// reHyphens matches consecutive hyphens.
	reHyphens = regexp.MustCompile(`-{2,}`)
)

// Slugify derives a lowercase, hyphen-separated, ASCII-only candidate from
// a title. Accented letters are folded to their base letter first.
func Slugify(title string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		title,
	)
	if err != nil {
		folded = title
	}

	s := strings.ToLower(folded)
	s = reUnsafe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = reSpaces.ReplaceAllString(s, "-")
	s = reHyphens.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if s == "" {
		return FallbackSlug
	}
	return s
}
