package keyword

import (
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^\pL\pN]+`)

// Takes an arbitrary string (eg, an identifier or free-form text) and returns a version with all non-letter, non-digit characters removed, and all lower-case
func Slugify(orig string) string {
	return strings.ToLower(nonSlugChars.ReplaceAllString(orig, ""))
}

// Strips a leading '#' (or fullwidth '＃') and lower-cases.
func NormalizeHashtag(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "#")
	raw = strings.TrimPrefix(raw, "＃")
	return strings.ToLower(raw)
}

// Strips a leading '@' or reddit-style "u/" prefix and lower-cases.
func NormalizeMention(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "@")
	raw = strings.TrimPrefix(raw, "/")
	raw = strings.TrimPrefix(raw, "u/")
	return strings.ToLower(raw)
}
