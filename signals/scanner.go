package signals

import (
	"fmt"
	"unicode"

	"github.com/shadowcheck/shadowcheck/platform"
)

// Detection type names, which can be individually disabled.
const (
	DetectTerms    = "terms"
	DetectCaps     = "caps"
	DetectEmoji    = "emoji"
	DetectHashtags = "hashtags"
	DetectMentions = "mentions"
	DetectRepeated = "repeated"
	DetectCurrency = "currency"
)

var AllDetections = []string{DetectTerms, DetectCaps, DetectEmoji, DetectHashtags, DetectMentions, DetectRepeated, DetectCurrency}

const (
	capsMinLetters   = 10
	capsRatio        = 0.6
	repeatedRunLen   = 5
	currencyClusterN = 3
)

// One structural heuristic which fired.
type PatternHit struct {
	Code     string         `json:"code"`
	Type     string         `json:"type"`
	Message  string         `json:"message"`
	Score    int            `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type ScanResult struct {
	// nil when term matching was disabled or no terms database was configured
	Terms     *ExtractResult `json:"terms,omitempty"`
	Patterns  []PatternHit   `json:"patterns"`
	RiskScore int            `json:"riskScore"`
	// true if the terms database was wanted but missing
	Degraded bool `json:"degraded"`
}

// Combines phrase matching against the terms database with structural heuristics (shouting, emoji/hashtag/mention stuffing, character floods, currency clusters).
type Scanner struct {
	Terms     *Database
	Platforms *platform.Registry
}

// Scans text for a platform. Detection types in disabled are skipped.
func (s *Scanner) Scan(text, platformID string, disabled map[string]bool) ScanResult {
	res := ScanResult{Patterns: []PatternHit{}}
	score := 0

	if !disabled[DetectTerms] {
		if s.Terms == nil {
			res.Degraded = true
		} else {
			tr := s.Terms.ExtractAndCheck(text, platformID)
			res.Terms = &tr
			score += tr.Results.Summary.RiskScore
		}
	}

	limits := platform.DefaultLimits
	var content platform.Content
	if s.Platforms != nil {
		limits = s.Platforms.LimitsFor(platformID)
		if a, ok := s.Platforms.Lookup(platformID); ok {
			content = a.ExtractContent(text)
		}
	}
	if content.Hashtags == nil {
		content.Hashtags = sigilTokens(text, "#")
		content.Mentions = sigilTokens(text, "@")
	}

	hit := func(h PatternHit) {
		res.Patterns = append(res.Patterns, h)
		score += h.Score
	}

	if !disabled[DetectCaps] {
		letters, upper := 0, 0
		for _, r := range text {
			if unicode.IsLetter(r) {
				letters++
				if unicode.IsUpper(r) {
					upper++
				}
			}
		}
		if letters >= capsMinLetters && float64(upper)/float64(letters) > capsRatio {
			hit(PatternHit{
				Code:     "EXCESSIVE_CAPS",
				Type:     DetectCaps,
				Message:  fmt.Sprintf("%d%% of letters are upper-case", upper*100/letters),
				Score:    15,
				Metadata: map[string]any{"letters": letters, "upper": upper},
			})
		}
	}

	if !disabled[DetectEmoji] {
		if n := len(ExtractEmojis(text)); n > limits.MaxEmojis {
			hit(PatternHit{
				Code:     "EXCESSIVE_EMOJI",
				Type:     DetectEmoji,
				Message:  fmt.Sprintf("%d emojis (more than %d)", n, limits.MaxEmojis),
				Score:    10,
				Metadata: map[string]any{"count": n, "limit": limits.MaxEmojis},
			})
		}
	}

	if !disabled[DetectHashtags] {
		if n := len(content.Hashtags); n > limits.MaxHashtags {
			hit(PatternHit{
				Code:     "EXCESSIVE_HASHTAGS",
				Type:     DetectHashtags,
				Message:  fmt.Sprintf("%d hashtags (more than %d)", n, limits.MaxHashtags),
				Score:    15,
				Metadata: map[string]any{"count": n, "limit": limits.MaxHashtags},
			})
		}
	}

	if !disabled[DetectMentions] {
		if n := len(content.Mentions); n > limits.MaxMentions {
			hit(PatternHit{
				Code:     "EXCESSIVE_MENTIONS",
				Type:     DetectMentions,
				Message:  fmt.Sprintf("%d mentions (more than %d)", n, limits.MaxMentions),
				Score:    10,
				Metadata: map[string]any{"count": n, "limit": limits.MaxMentions},
			})
		}
	}

	if !disabled[DetectRepeated] {
		if r, n := longestRun(text); n >= repeatedRunLen {
			hit(PatternHit{
				Code:     "REPEATED_CHARACTERS",
				Type:     DetectRepeated,
				Message:  fmt.Sprintf("character %q repeated %d times", r, n),
				Score:    5,
				Metadata: map[string]any{"char": string(r), "length": n},
			})
		}
	}

	if !disabled[DetectCurrency] {
		if n, adjacent := currencySymbols(text); n >= currencyClusterN || adjacent {
			hit(PatternHit{
				Code:     "CURRENCY_CLUSTER",
				Type:     DetectCurrency,
				Message:  fmt.Sprintf("%d currency symbols", n),
				Score:    10,
				Metadata: map[string]any{"count": n},
			})
		}
	}

	res.RiskScore = min(score, 100)
	return res
}

// Longest run of one repeated letter or punctuation mark ("1000000" is fine, "soooooo" is not). Emoji and currency runs are counted elsewhere.
func longestRun(text string) (rune, int) {
	var best, prev rune
	bestN, n := 0, 0
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsPunct(r) {
			prev, n = 0, 0
			continue
		}
		if r == prev {
			n++
		} else {
			prev, n = r, 1
		}
		if n > bestN {
			best, bestN = r, n
		}
	}
	return best, bestN
}

// Counts currency symbols, and whether any two appear back to back.
func currencySymbols(text string) (int, bool) {
	count := 0
	adjacent := false
	lastWas := false
	for _, r := range text {
		is := unicode.Is(unicode.Sc, r)
		if is {
			count++
			if lastWas {
				adjacent = true
			}
		}
		lastWas = is
	}
	return count, adjacent
}
