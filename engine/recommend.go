package engine

import (
	"fmt"
	"sort"

	"github.com/shadowcheck/shadowcheck/agent"
	"github.com/shadowcheck/shadowcheck/helpers"
)

type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

var priorityRank = map[Priority]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

type Recommendation struct {
	Priority Priority `json:"priority"`
	Action   string   `json:"action"`
	Message  string   `json:"message"`
	// finding codes which triggered this
	Triggers []string `json:"triggers"`
	// offending tokens (hashtags, domains, phrases), when known
	Subjects []string `json:"subjects,omitempty"`
}

type recommendationRule struct {
	Codes    []string
	Priority Priority
	Action   string
	Message  string
}

// Checked in order; each action is recommended at most once.
var recommendationRules = []recommendationRule{
	{Codes: []string{"BANNED_HASHTAG"}, Priority: PriorityCritical, Action: "remove-hashtags",
		Message: "Remove banned hashtags. Posts carrying them are hidden from search and hashtag pages."},
	{Codes: []string{"BANNED_DOMAIN"}, Priority: PriorityCritical, Action: "remove-links",
		Message: "Remove links to banned domains. They can get the post removed and the account restricted."},
	{Codes: []string{"BANNED_TERM"}, Priority: PriorityCritical, Action: "rewrite-content",
		Message: "Rewrite the post without banned phrases."},
	{Codes: []string{"RESTRICTED_HASHTAG"}, Priority: PriorityHigh, Action: "replace-hashtags",
		Message: "Replace restricted hashtags with more specific, topical ones."},
	{Codes: []string{"RESTRICTED_DOMAIN"}, Priority: PriorityHigh, Action: "remove-links",
		Message: "Avoid linking to restricted domains."},
	{Codes: []string{"RESTRICTED_TERM"}, Priority: PriorityHigh, Action: "rewrite-content",
		Message: "Rephrase wording associated with spam or misinformation."},
	{Codes: []string{"FLAGGED_ACCOUNT"}, Priority: PriorityHigh, Action: "review-account",
		Message: "This account is on a watch list. Review recent activity and appeal any restriction through the platform."},
	{Codes: []string{"TREND_WORSENING"}, Priority: PriorityHigh, Action: "pause-posting",
		Message: "Risk has been rising across recent checks. Pause promotional posting for a few days."},
	{Codes: []string{"THROTTLED_DOMAIN"}, Priority: PriorityMedium, Action: "alternative-link",
		Message: "This platform throttles posts linking there. Put the link in a reply or your bio, or use an alternative host."},
	{Codes: []string{"LINK_SHORTENER"}, Priority: PriorityMedium, Action: "expand-links",
		Message: "Use the full destination URL instead of a link shortener."},
	{Codes: []string{"EXCESSIVE_LINKS"}, Priority: PriorityMedium, Action: "reduce-links",
		Message: "Keep to one or two links per post."},
	{Codes: []string{"EXCESSIVE_HASHTAGS", "HASHTAG_DENSITY"}, Priority: PriorityMedium, Action: "reduce-hashtags",
		Message: "Use fewer hashtags, and keep them relevant to the post."},
	{Codes: []string{"EXCESSIVE_MENTIONS", "FLAGGED_MENTION"}, Priority: PriorityMedium, Action: "review-mentions",
		Message: "Mention fewer accounts, and avoid tagging bots or impersonators."},
	{Codes: []string{"ENGAGEMENT_BAIT"}, Priority: PriorityMedium, Action: "remove-engagement-bait",
		Message: "Drop explicit requests for likes, shares, or tags. Ranking systems demote engagement bait."},
	{Codes: []string{"POSTING_BURST", "PRIOR_HIGH_RISK", "RECURRING_FLAG"}, Priority: PriorityMedium, Action: "slow-down",
		Message: "Slow down, and stop reposting content that was flagged before."},
	{Codes: []string{"CURRENCY_CLUSTER", "RISKY_EMOJI"}, Priority: PriorityMedium, Action: "tone-down",
		Message: "Cut back on currency symbols and suggestive or drug-associated emoji."},
	{Codes: []string{"EXCESSIVE_CAPS", "REPEATED_CHARACTERS", "EXCESSIVE_EMOJI"}, Priority: PriorityLow, Action: "fix-formatting",
		Message: "Write in normal sentence case without character floods or emoji walls."},
	{Codes: []string{"SUSPICIOUS_USERNAME"}, Priority: PriorityLow, Action: "review-username",
		Message: "Handles with long number suffixes or spam words look automated."},
	{Codes: []string{"MONITORED_HASHTAG", "MONITORED_DOMAIN", "MONITORED_TERM", "MONITORED_EMOJI"}, Priority: PriorityLow, Action: "watch-monitored",
		Message: "Some content is on watch lists. It is fine on its own, but adds up with other signals."},
}

var genericRecommendation = Recommendation{
	Priority: PriorityLow,
	Action:   "review-content",
	Message:  "No specific issues found. Keep following the platform's community guidelines.",
	Triggers: []string{},
}

// metadata keys holding the offending token of a finding
var subjectKeys = []string{"hashtag", "domain", "term", "mention", "emoji", "username"}

// Rule-based advice keyed off finding codes, most urgent first. Never empty.
func Recommend(results []agent.Result) []Recommendation {
	byCode := map[string][]agent.Finding{}
	failed := 0
	for _, r := range results {
		if r.Status == agent.StatusError {
			failed++
		}
		for _, f := range r.Findings {
			byCode[f.Code] = append(byCode[f.Code], f)
		}
	}

	out := []Recommendation{}
	seen := map[string]bool{}
	for _, rule := range recommendationRules {
		if seen[rule.Action] {
			continue
		}
		var triggers, subjects []string
		for _, code := range rule.Codes {
			fs := byCode[code]
			if len(fs) == 0 {
				continue
			}
			triggers = append(triggers, code)
			for _, f := range fs {
				subjects = append(subjects, findingSubject(f))
			}
		}
		if len(triggers) == 0 {
			continue
		}
		seen[rule.Action] = true
		subjects = helpers.DedupeStrings(dropEmpty(subjects))
		out = append(out, Recommendation{
			Priority: rule.Priority,
			Action:   rule.Action,
			Message:  rule.Message,
			Triggers: triggers,
			Subjects: subjects,
		})
	}

	if failed > 0 {
		out = append(out, Recommendation{
			Priority: PriorityLow,
			Action:   "retry",
			Message:  fmt.Sprintf("%d of %d checks could not complete. Run again later for a more confident verdict.", failed, len(results)),
			Triggers: []string{},
		})
	}
	if len(out) == 0 {
		out = append(out, genericRecommendation)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return priorityRank[out[i].Priority] < priorityRank[out[j].Priority]
	})
	return out
}

func findingSubject(f agent.Finding) string {
	for _, k := range subjectKeys {
		if v, ok := f.Metadata[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func dropEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
