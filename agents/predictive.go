package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shadowcheck/shadowcheck/agent"
	"github.com/shadowcheck/shadowcheck/check"
	"github.com/shadowcheck/shadowcheck/countstore"
	"github.com/shadowcheck/shadowcheck/helpers"
	"github.com/shadowcheck/shadowcheck/history"
	"github.com/shadowcheck/shadowcheck/keyword"
	"github.com/shadowcheck/shadowcheck/signals"
)

const (
	engagementBaitScore = 15
	hashtagDensityScore = 10
	postingBurstScore   = 15
	// hashtags as a share of all words, once there are at least minDensityHashtags
	hashtagDensityRatio = 0.5
	minDensityHashtags  = 3
	// same content checked this many times in an hour
	repeatCheckLimit = 5
	// one account checking this many different texts in an hour
	distinctContentLimit = 10
)

// Phrases which ask for engagement outright. Matched against tokenized text.
var engagementBaitPhrases = []string{
	"like if you agree",
	"like if you",
	"retweet if",
	"share if you",
	"comment below",
	"comment yes",
	"tag a friend",
	"tag someone",
	"tag 3 friends",
	"follow for more",
	"smash that like",
	"drop a like",
	"who else",
	"type amen",
	"dont scroll",
	"don t scroll",
}

// Factor 5: signals which tend to precede a restriction rather than cause one: risky emoji, engagement bait, hashtag stuffing, and bursts of checks for the same account or content.
type PredictiveAgent struct {
	Emojis   *signals.Database
	Counters countstore.CountStore
	Logger   *slog.Logger
}

var (
	_ agent.Agent    = (*PredictiveAgent)(nil)
	_ agent.Recorder = (*PredictiveAgent)(nil)
)

func NewPredictiveAgent(deps Deps) *PredictiveAgent {
	return &PredictiveAgent{
		Emojis:   deps.db(signals.KindEmojis),
		Counters: deps.Counters,
		Logger:   deps.logger().With("agent", PredictiveIdentity.ID),
	}
}

func (a *PredictiveAgent) Identity() agent.Identity {
	return PredictiveIdentity
}

func (a *PredictiveAgent) Analyze(ctx context.Context, req *check.Request, cfg *agent.Config) agent.Result {
	id := a.Identity()
	var findings []agent.Finding
	var missing []string
	score := 0
	confidence := 55

	if req.Text != "" {
		if a.Emojis == nil {
			missing = append(missing, "emoji database")
		} else {
			confidence += 10
			er := a.Emojis.ExtractAndCheck(req.Text, req.Platform)
			score += er.Results.Summary.RiskScore
			for _, m := range er.Results.Matches {
				findings = append(findings, emojiFinding(m))
			}
		}

		tokens := keyword.TokenizeText(req.Text)
		if phrase := engagementBait(tokens); phrase != "" {
			score += engagementBaitScore
			findings = append(findings, agent.NewFinding("ENGAGEMENT_BAIT", agent.SeverityMedium, engagementBaitScore,
				fmt.Sprintf("Asks for engagement outright (%q)", phrase),
				map[string]any{"phrase": phrase}))
		}

		tags := len(req.Content.Hashtags)
		if tags >= minDensityHashtags && len(tokens) > 0 && float64(tags)/float64(len(tokens)) >= hashtagDensityRatio {
			score += hashtagDensityScore
			findings = append(findings, agent.NewFinding("HASHTAG_DENSITY", agent.SeverityMedium, hashtagDensityScore,
				fmt.Sprintf("%d of %d words are hashtags", tags, len(tokens)),
				map[string]any{"hashtags": tags, "words": len(tokens)}))
		}
	}

	if a.Counters == nil {
		missing = append(missing, "check counters")
	} else {
		f, err := a.postingBurst(ctx, req)
		if err != nil {
			a.Logger.Warn("failed to read check counters", "err", err)
			missing = append(missing, "check counters")
		} else {
			confidence += 10
			if f != nil {
				score += f.ScoreContribution
				findings = append(findings, *f)
			}
		}
	}

	if len(missing) > 0 {
		return agent.Degraded(id, score, confidence-10, unavailable(strings.Join(missing, ", ")), findings...)
	}
	return agent.NewResult(id, score, confidence, findings...)
}

func engagementBait(tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	text := " " + strings.Join(tokens, " ") + " "
	for _, p := range engagementBaitPhrases {
		if strings.Contains(text, " "+p+" ") {
			return p
		}
	}
	return ""
}

func emojiFinding(m signals.Match) agent.Finding {
	meta := map[string]any{"emoji": m.Token, "tier": m.Entry.Tier, "category": m.Entry.Category}
	if m.Entry.Tier == signals.TierBanned || m.Entry.Tier == signals.TierRestricted {
		return agent.NewFinding("RISKY_EMOJI", agent.SeverityMedium, m.Entry.Tier.Weight(),
			fmt.Sprintf("%s is associated with %s content", m.Token, m.Entry.Category), meta)
	}
	return agent.NewFinding("MONITORED_EMOJI", agent.SeverityLow, m.Entry.Tier.Weight(),
		fmt.Sprintf("%s is monitored (%s)", m.Token, m.Entry.Category), meta)
}

// Account bucket for distinct-content counting. Empty if the request has no username.
func accountBucket(req *check.Request) string {
	if req.Username == "" {
		return ""
	}
	return req.Platform + ":" + strings.ToLower(req.Username)
}

func contentHash(req *check.Request) string {
	norm := history.NormalizeText(req.Text)
	if norm == "" {
		return ""
	}
	return helpers.HashOfString(norm)
}

// Counts are of previous checks; the current one is only counted once it completes (see Record).
func (a *PredictiveAgent) postingBurst(ctx context.Context, req *check.Request) (*agent.Finding, error) {
	repeats, err := a.Counters.GetCount(ctx, countstore.CounterChecks, history.Fingerprint(req), countstore.PeriodHour)
	if err != nil {
		return nil, err
	}
	distinct := 0
	if bucket := accountBucket(req); bucket != "" {
		distinct, err = a.Counters.GetCountDistinct(ctx, countstore.CounterAccountContent, bucket, countstore.PeriodHour)
		if err != nil {
			return nil, err
		}
	}
	if repeats < repeatCheckLimit && distinct < distinctContentLimit {
		return nil, nil
	}
	f := agent.NewFinding("POSTING_BURST", agent.SeverityMedium, postingBurstScore,
		fmt.Sprintf("High check volume in the last hour (%d repeat checks, %d distinct texts for this account)", repeats, distinct),
		map[string]any{"repeatChecks": repeats, "distinctContent": distinct})
	return &f, nil
}

// Counts the completed check towards the hourly volume counters.
func (a *PredictiveAgent) Record(ctx context.Context, req *check.Request, out agent.Outcome) error {
	if a.Counters == nil {
		return nil
	}
	var errs []error
	if err := a.Counters.Increment(ctx, countstore.CounterChecks, history.Fingerprint(req)); err != nil {
		errs = append(errs, err)
	}
	bucket := accountBucket(req)
	hash := contentHash(req)
	if bucket != "" && hash != "" {
		if err := a.Counters.IncrementDistinct(ctx, countstore.CounterAccountContent, bucket, hash); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
