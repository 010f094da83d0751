package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shadowcheck/shadowcheck/agent"
	"github.com/shadowcheck/shadowcheck/check"
	"github.com/shadowcheck/shadowcheck/helpers"
	"github.com/shadowcheck/shadowcheck/platform"
	"github.com/shadowcheck/shadowcheck/signals"
)

const (
	maxLinksBeforePenalty = 2
	excessiveLinksScore   = 10
	// resolving is done one link at a time; bound the work per check
	maxResolvedLinks = 3
)

// Factor 2: outbound links. Domains are classified against the links database; shortened links are optionally followed to classify their destination too.
type WebVisibilityAgent struct {
	Links     *signals.Database
	Platforms *platform.Registry
	Resolver  LinkResolver
	Logger    *slog.Logger
}

var _ agent.Agent = (*WebVisibilityAgent)(nil)

func NewWebVisibilityAgent(deps Deps) *WebVisibilityAgent {
	return &WebVisibilityAgent{
		Links:     deps.db(signals.KindLinks),
		Platforms: deps.platforms(),
		Resolver:  deps.Resolver,
		Logger:    deps.logger().With("agent", WebVisibilityIdentity.ID),
	}
}

func (a *WebVisibilityAgent) Identity() agent.Identity {
	return WebVisibilityIdentity
}

// Outbound links in a request, canonicalized, excluding links to the platform itself.
func (a *WebVisibilityAgent) outboundLinks(req *check.Request) []string {
	out := []string{}
	for _, raw := range req.URLs {
		if !strings.Contains(raw, "://") {
			raw = "https://" + raw
		}
		host := helpers.LinkHost(raw)
		if host == "" {
			continue
		}
		if req.Adapter != nil && req.Adapter.OwnsHost(host) {
			continue
		}
		out = append(out, platform.NormalizeLossyURL(raw))
	}
	return helpers.DedupeStrings(out)
}

func (a *WebVisibilityAgent) Analyze(ctx context.Context, req *check.Request, cfg *agent.Config) agent.Result {
	id := a.Identity()
	links := a.outboundLinks(req)
	if len(links) == 0 {
		res := agent.NewResult(id, 0, 70)
		res.Message = "No outbound links"
		return res
	}
	if a.Links == nil {
		return agent.Degraded(id, 0, 20, unavailable("link database"))
	}

	var findings []agent.Finding
	bulk := a.Links.CheckBulk(links, req.Platform)
	score := bulk.Summary.RiskScore
	shortened := []string{}
	for _, m := range bulk.Matches {
		findings = append(findings, domainFinding(m, ""))
		if m.Entry.Category == "shortener" {
			shortened = append(shortened, m.Token)
		}
	}

	if len(links) > maxLinksBeforePenalty {
		score += excessiveLinksScore
		findings = append(findings, agent.NewFinding("EXCESSIVE_LINKS", agent.SeverityMedium, excessiveLinksScore,
			fmt.Sprintf("%d outbound links; more than %d tends to reduce reach", len(links), maxLinksBeforePenalty),
			map[string]any{"count": len(links)}))
	}

	confidence := 80
	if len(shortened) > 0 {
		if a.Resolver == nil {
			// destinations are unknown
			confidence = 60
		} else {
			extra, resolved := a.resolveShortened(ctx, req, links, shortened)
			for _, f := range extra {
				score += f.ScoreContribution
				findings = append(findings, f)
			}
			if resolved == 0 {
				confidence = 60
			}
		}
	}
	return agent.NewResult(id, score, confidence, findings...)
}

// Follows shortened links and classifies where they end up. Returns findings and the number of links successfully resolved.
func (a *WebVisibilityAgent) resolveShortened(ctx context.Context, req *check.Request, links, shortHosts []string) ([]agent.Finding, int) {
	isShort := make(map[string]bool, len(shortHosts))
	for _, h := range shortHosts {
		isShort[h] = true
	}
	var findings []agent.Finding
	resolved := 0
	for _, link := range links {
		if resolved >= maxResolvedLinks || ctx.Err() != nil {
			break
		}
		host := a.Links.Normalize(link)
		if !isShortHost(isShort, host) {
			continue
		}
		res, err := a.Resolver.Resolve(ctx, link)
		if err != nil {
			a.Logger.Warn("failed to resolve shortened link", "url", link, "err", err)
			continue
		}
		resolved++
		dest := a.Links.Normalize(res.FinalURL)
		if dest == "" || dest == host {
			continue
		}
		e, ok := a.Links.Lookup(dest, req.Platform)
		if !ok || e.Tier == signals.TierSafe {
			continue
		}
		findings = append(findings, domainFinding(signals.Match{Token: dest, Entry: e}, link))
	}
	return findings, resolved
}

func isShortHost(short map[string]bool, host string) bool {
	for host != "" {
		if short[host] {
			return true
		}
		_, parent, found := strings.Cut(host, ".")
		if !found {
			return false
		}
		host = parent
	}
	return false
}

// via is the shortened link a destination was reached through, if any.
func domainFinding(m signals.Match, via string) agent.Finding {
	meta := map[string]any{"domain": m.Token, "tier": m.Entry.Tier, "category": m.Entry.Category}
	suffix := ""
	if via != "" {
		meta["via"] = via
		suffix = fmt.Sprintf(" (reached via %s)", via)
	}
	w := m.Entry.Tier.Weight()
	switch {
	case m.Entry.Tier == signals.TierBanned:
		return agent.NewFinding("BANNED_DOMAIN", agent.SeverityCritical, w,
			fmt.Sprintf("Links to %s, a banned domain (%s)%s", m.Token, m.Entry.Category, suffix), meta)
	case m.Entry.Tier == signals.TierRestricted && m.Entry.Category == "throttled":
		return agent.NewFinding("THROTTLED_DOMAIN", agent.SeverityMedium, w,
			fmt.Sprintf("Links to %s are throttled on this platform%s", m.Token, suffix), meta)
	case m.Entry.Tier == signals.TierRestricted:
		return agent.NewFinding("RESTRICTED_DOMAIN", agent.SeverityHigh, w,
			fmt.Sprintf("Links to %s, a restricted domain (%s)%s", m.Token, m.Entry.Category, suffix), meta)
	case m.Entry.Category == "shortener":
		return agent.NewFinding("LINK_SHORTENER", agent.SeverityMedium, w,
			fmt.Sprintf("%s hides the link destination", m.Token), meta)
	}
	return agent.NewFinding("MONITORED_DOMAIN", agent.SeverityLow, w,
		fmt.Sprintf("Links to %s, a monitored domain (%s)%s", m.Token, m.Entry.Category, suffix), meta)
}
