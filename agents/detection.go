package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/shadowcheck/shadowcheck/agent"
	"github.com/shadowcheck/shadowcheck/check"
	"github.com/shadowcheck/shadowcheck/signals"
)

var patternSeverity = map[string]agent.Severity{
	signals.DetectCaps:     agent.SeverityLow,
	signals.DetectEmoji:    agent.SeverityLow,
	signals.DetectHashtags: agent.SeverityMedium,
	signals.DetectMentions: agent.SeverityMedium,
	signals.DetectRepeated: agent.SeverityLow,
	signals.DetectCurrency: agent.SeverityMedium,
}

// Factor 4: the content itself. Phrase matching against the terms database, plus structural spam heuristics.
type DetectionAgent struct {
	Scanner *signals.Scanner
}

var _ agent.Agent = (*DetectionAgent)(nil)

func NewDetectionAgent(deps Deps) *DetectionAgent {
	terms := deps.db(signals.KindTerms)
	if terms == nil {
		return &DetectionAgent{}
	}
	return &DetectionAgent{
		Scanner: &signals.Scanner{
			Terms:     terms,
			Platforms: deps.platforms(),
		},
	}
}

func (a *DetectionAgent) Identity() agent.Identity {
	return DetectionIdentity
}

func (a *DetectionAgent) Analyze(ctx context.Context, req *check.Request, cfg *agent.Config) agent.Result {
	id := a.Identity()
	if strings.TrimSpace(req.Text) == "" {
		res := agent.NewResult(id, 0, 100)
		res.Message = "No text content to analyze"
		return res
	}

	scanner := a.Scanner
	if scanner == nil {
		scanner = &signals.Scanner{}
	}
	scan := scanner.Scan(req.Text, req.Platform, cfg.DisabledDetections())

	var findings []agent.Finding
	if scan.Terms != nil {
		for _, m := range scan.Terms.Results.Matches {
			findings = append(findings, termFinding(m))
		}
	}
	for _, p := range scan.Patterns {
		sev, ok := patternSeverity[p.Type]
		if !ok {
			sev = agent.SeverityLow
		}
		findings = append(findings, agent.NewFinding(p.Code, sev, p.Score, p.Message, p.Metadata))
	}

	if scan.Degraded {
		return agent.Degraded(id, scan.RiskScore, 50, unavailable("terms database")+"; heuristics only", findings...)
	}
	return agent.NewResult(id, scan.RiskScore, 85, findings...)
}

func termFinding(m signals.Match) agent.Finding {
	meta := map[string]any{"term": m.Token, "tier": m.Entry.Tier, "category": m.Entry.Category}
	w := m.Entry.Tier.Weight()
	switch m.Entry.Tier {
	case signals.TierBanned:
		return agent.NewFinding("BANNED_TERM", agent.SeverityCritical, w,
			fmt.Sprintf("%q is a banned phrase (%s)", m.Token, m.Entry.Category), meta)
	case signals.TierRestricted:
		return agent.NewFinding("RESTRICTED_TERM", agent.SeverityHigh, w,
			fmt.Sprintf("%q reduces distribution (%s)", m.Token, m.Entry.Category), meta)
	}
	return agent.NewFinding("MONITORED_TERM", agent.SeverityLow, w,
		fmt.Sprintf("%q is monitored (%s)", m.Token, m.Entry.Category), meta)
}
