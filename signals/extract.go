package signals

import (
	"strings"

	"github.com/shadowcheck/shadowcheck/helpers"
	"github.com/shadowcheck/shadowcheck/keyword"
	"github.com/shadowcheck/shadowcheck/platform"
)

type ExtractResult struct {
	Kind    Kind       `json:"kind"`
	Tokens  []string   `json:"tokens"`
	Results BulkResult `json:"results"`
}

// Pulls this database's kind of token out of free text (using the platform's lexical conventions) and classifies them.
func (db *Database) ExtractAndCheck(text, platformID string) ExtractResult {
	tokens := db.Extract(text, platformID)
	return ExtractResult{
		Kind:    db.kind,
		Tokens:  tokens,
		Results: db.CheckBulk(tokens, platformID),
	}
}

// Extracts candidate tokens of this database's kind from text. Unknown platforms fall back to generic sigil rules.
func (db *Database) Extract(text, platformID string) []string {
	var content *platform.Content
	if db.platforms != nil {
		if a, ok := db.platforms.Lookup(platformID); ok {
			c := a.ExtractContent(text)
			content = &c
		}
	}

	switch db.kind {
	case KindHashtags:
		if content != nil {
			return content.Hashtags
		}
		return sigilTokens(text, "#")
	case KindMentions:
		if content != nil {
			return content.Mentions
		}
		return sigilTokens(text, "@")
	case KindLinks:
		if content != nil {
			return content.URLs
		}
		return nonNil(helpers.ExtractLinks(text))
	case KindTerms:
		out := keyword.NGrams(keyword.TokenizeText(text), max(db.maxWords, 1))
		if content != nil {
			for _, c := range content.Cashtags {
				out = append(out, "$"+strings.ToLower(c))
			}
		} else {
			out = append(out, sigilTokens(text, "$")...)
		}
		return out
	case KindEmojis:
		return ExtractEmojis(text)
	}
	return []string{}
}

func sigilTokens(text, sigil string) []string {
	out := []string{}
	for _, tok := range keyword.TokenizeTextKeepingSigils(text) {
		if len(tok) > len(sigil) && strings.HasPrefix(tok, sigil) {
			out = append(out, tok)
		}
	}
	return nonNil(helpers.DedupeStrings(out))
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
