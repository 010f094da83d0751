package agents

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/shadowcheck/shadowcheck/agent"
	"github.com/shadowcheck/shadowcheck/check"
	"github.com/shadowcheck/shadowcheck/keyword"
	"github.com/shadowcheck/shadowcheck/signals"
)

const (
	usernameDigitRun   = 6
	usernameScore      = 5
	usernameUnderscore = 3
)

// Factor 1: hashtags and mentions against the platform databases, plus username heuristics for account checks.
type PlatformSignalAgent struct {
	Hashtags *signals.Database
	Mentions *signals.Database
}

var _ agent.Agent = (*PlatformSignalAgent)(nil)

func NewPlatformSignalAgent(deps Deps) *PlatformSignalAgent {
	return &PlatformSignalAgent{
		Hashtags: deps.db(signals.KindHashtags),
		Mentions: deps.db(signals.KindMentions),
	}
}

func (a *PlatformSignalAgent) Identity() agent.Identity {
	return PlatformSignalIdentity
}

func (a *PlatformSignalAgent) Analyze(ctx context.Context, req *check.Request, cfg *agent.Config) agent.Result {
	id := a.Identity()
	hashtags := req.Content.Hashtags
	mentions := req.Content.Mentions

	if len(hashtags) == 0 && len(mentions) == 0 && req.Username == "" {
		res := agent.NewResult(id, 0, 50)
		res.Message = "No hashtags, mentions, or username to evaluate"
		return res
	}

	var missing []string
	var findings []agent.Finding
	score := 0

	if len(hashtags) > 0 {
		if a.Hashtags == nil {
			missing = append(missing, "hashtag database")
		} else {
			bulk := a.Hashtags.CheckBulk(hashtags, req.Platform)
			score += bulk.Summary.RiskScore
			for _, m := range bulk.Matches {
				findings = append(findings, hashtagFinding(m))
			}
		}
	}

	if len(mentions) > 0 || req.Username != "" {
		if a.Mentions == nil {
			missing = append(missing, "mention database")
		} else {
			if len(mentions) > 0 {
				bulk := a.Mentions.CheckBulk(mentions, req.Platform)
				score += bulk.Summary.RiskScore
				for _, m := range bulk.Matches {
					findings = append(findings, agent.NewFinding("FLAGGED_MENTION", agent.SeverityMedium, m.Entry.Tier.Weight(),
						fmt.Sprintf("Mentions @%s (%s, %s)", m.Token, m.Entry.Tier, m.Entry.Category),
						map[string]any{"mention": m.Token, "tier": m.Entry.Tier, "category": m.Entry.Category}))
				}
			}
			if req.Username != "" {
				if e, ok := a.Mentions.Lookup(a.Mentions.Normalize(req.Username), req.Platform); ok && e.Tier != signals.TierSafe {
					score += e.Tier.Weight()
					findings = append(findings, agent.NewFinding("FLAGGED_ACCOUNT", tierSeverity(e.Tier), e.Tier.Weight(),
						fmt.Sprintf("Account @%s is listed as %s (%s)", req.Username, e.Tier, e.Category),
						map[string]any{"username": req.Username, "tier": e.Tier}))
				}
			}
		}
	}

	if req.Username != "" {
		for _, f := range a.usernameFindings(req) {
			score += f.ScoreContribution
			findings = append(findings, f)
		}
	}

	confidence := min(90, 60+5*(len(hashtags)+len(mentions)))
	if len(missing) > 0 {
		return agent.Degraded(id, score, confidence/2, unavailable(strings.Join(missing, ", ")), findings...)
	}
	return agent.NewResult(id, score, confidence, findings...)
}

func hashtagFinding(m signals.Match) agent.Finding {
	meta := map[string]any{"hashtag": m.Token, "tier": m.Entry.Tier, "category": m.Entry.Category}
	switch m.Entry.Tier {
	case signals.TierBanned:
		return agent.NewFinding("BANNED_HASHTAG", agent.SeverityCritical, m.Entry.Tier.Weight(),
			fmt.Sprintf("#%s is banned (%s)", m.Token, m.Entry.Category), meta)
	case signals.TierRestricted:
		return agent.NewFinding("RESTRICTED_HASHTAG", agent.SeverityHigh, m.Entry.Tier.Weight(),
			fmt.Sprintf("#%s has restricted reach (%s)", m.Token, m.Entry.Category), meta)
	}
	return agent.NewFinding("MONITORED_HASHTAG", agent.SeverityLow, m.Entry.Tier.Weight(),
		fmt.Sprintf("#%s is monitored (%s)", m.Token, m.Entry.Category), meta)
}

// Spam-bot looking handles: long digit suffixes, underscore padding, and engagement-farming words.
func (a *PlatformSignalAgent) usernameFindings(req *check.Request) []agent.Finding {
	name := req.Username
	var reasons []string

	digits := 0
	for i := len(name) - 1; i >= 0 && unicode.IsDigit(rune(name[i])); i-- {
		digits++
	}
	if digits >= usernameDigitRun {
		reasons = append(reasons, fmt.Sprintf("ends in %d digits", digits))
	}
	if strings.Count(name, "_") >= usernameUnderscore {
		reasons = append(reasons, "underscore padding")
	}
	if a.Hashtags != nil {
		for _, tok := range keyword.TokenizeIdentifier(name) {
			if e, ok := a.Hashtags.Lookup(tok, req.Platform); ok && e.Tier == signals.TierBanned {
				reasons = append(reasons, fmt.Sprintf("contains %q", tok))
				break
			}
		}
	}

	out := make([]agent.Finding, 0, len(reasons))
	for _, r := range reasons {
		out = append(out, agent.NewFinding("SUSPICIOUS_USERNAME", agent.SeverityLow, usernameScore,
			fmt.Sprintf("Username @%s looks automated: %s", name, r),
			map[string]any{"username": name, "reason": r}))
	}
	return out
}
