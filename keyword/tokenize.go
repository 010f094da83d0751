// Tokenizing and normalization for free-form text, hashtags, mentions, and identifiers.
package keyword

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonTokenChars         = regexp.MustCompile(`[^\pL\pN\s]+`)
	nonTokenCharsKeepTags = regexp.MustCompile(`[^\pL\pN\s#$@_]+`)
)

// Splits free-form text in to tokens, including lower-case, unicode normalization, and some unicode folding.
//
// The intent is for this to work similarly to an NLP tokenizer, as might be used in a fulltext search engine, and enable fast matching to a list of known terms.
func TokenizeTextWithRegex(text string, nonTokenCharsRegex *regexp.Regexp) []string {
	// this function needs to be re-defined in every function call to prevent a race condition
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	split := strings.ToLower(nonTokenCharsRegex.ReplaceAllString(text, " "))
	out, _, err := transform.String(normFunc, split)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		out = split
	}
	return strings.Fields(out)
}

func TokenizeText(text string) []string {
	return TokenizeTextWithRegex(text, nonTokenChars)
}

// Like TokenizeText, but hashtag, cashtag, and mention sigils survive, so callers can tell "#deal" apart from "deal".
func TokenizeTextKeepingSigils(text string) []string {
	return TokenizeTextWithRegex(text, nonTokenCharsKeepTags)
}

func splitIdentRune(c rune) bool {
	return !unicode.IsLetter(c) && !unicode.IsNumber(c)
}

// Splits an identifier in to tokens. Removes any single-character tokens.
//
// For example, follow_back.4.follow would be split in to ["follow", "back", "follow"]
func TokenizeIdentifier(orig string) []string {
	fields := strings.FieldsFunc(orig, splitIdentRune)
	out := make([]string, 0, len(fields))
	for _, v := range fields {
		tok := Slugify(v)
		if len(tok) > 1 {
			out = append(out, tok)
		}
	}
	return out
}

// Returns all contiguous runs of 1 to maxLen tokens, joined with a single space. Shorter n-grams come first.
func NGrams(tokens []string, maxLen int) []string {
	if maxLen < 1 {
		return []string{}
	}
	out := make([]string, 0, len(tokens)*maxLen)
	for n := 1; n <= maxLen; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}
