package agents

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shadowcheck/shadowcheck/agent"
	"github.com/shadowcheck/shadowcheck/check"
	"github.com/shadowcheck/shadowcheck/history"
)

const (
	trendAdjustment = 10
	priorHighScore  = 5
	recurringScore  = 5
	// cap for each of the prior-high and recurring-flag contributions
	historyBonusCap = 15
)

// Factor 3: how this entity fared in earlier checks. Also records each completed check in to the history store.
type HistoricalAgent struct {
	Store  history.Store
	Logger *slog.Logger
	// for tests
	now func() time.Time
}

var (
	_ agent.Agent    = (*HistoricalAgent)(nil)
	_ agent.Recorder = (*HistoricalAgent)(nil)
)

func NewHistoricalAgent(deps Deps) *HistoricalAgent {
	return &HistoricalAgent{
		Store:  deps.History,
		Logger: deps.logger().With("agent", HistoricalIdentity.ID),
		now:    time.Now,
	}
}

func (a *HistoricalAgent) Identity() agent.Identity {
	return HistoricalIdentity
}

func (a *HistoricalAgent) Analyze(ctx context.Context, req *check.Request, cfg *agent.Config) agent.Result {
	id := a.Identity()
	if a.Store == nil {
		return agent.Degraded(id, 0, 10, unavailable("history store"))
	}

	key := history.Fingerprint(req)
	records, err := a.Store.Get(ctx, key)
	if err != nil {
		return agent.ErrorResult(id, fmt.Errorf("reading history: %w", err))
	}
	if len(records) == 0 {
		res := agent.NewResult(id, 0, 30)
		res.Message = "No prior data, first-time analysis"
		return res
	}

	an := history.Analyze(records)
	score := int(math.Round(an.MeanScore))
	var findings []agent.Finding

	switch an.Trend {
	case history.TrendWorsening:
		score += trendAdjustment
		findings = append(findings, agent.NewFinding("TREND_WORSENING", agent.SeverityHigh, trendAdjustment,
			fmt.Sprintf("Risk is rising: recent checks average %.0f, up from %.0f", an.RecentMean, an.OlderMean),
			map[string]any{"recentMean": an.RecentMean, "olderMean": an.OlderMean}))
	case history.TrendImproving:
		score -= trendAdjustment
		findings = append(findings, agent.NewFinding("TREND_IMPROVING", agent.SeverityLow, -trendAdjustment,
			fmt.Sprintf("Risk is falling: recent checks average %.0f, down from %.0f", an.RecentMean, an.OlderMean),
			map[string]any{"recentMean": an.RecentMean, "olderMean": an.OlderMean}))
	}

	if an.HighSeverityCount > 0 {
		bonus := min(historyBonusCap, priorHighScore*an.HighSeverityCount)
		score += bonus
		findings = append(findings, agent.NewFinding("PRIOR_HIGH_RISK", agent.SeverityMedium, bonus,
			fmt.Sprintf("%d of %d earlier checks scored %d or more", an.HighSeverityCount, an.Count, history.HighSeverityScore),
			map[string]any{"count": an.HighSeverityCount}))
	}

	if len(an.RecurringFlags) > 0 {
		bonus := min(historyBonusCap, recurringScore*len(an.RecurringFlags))
		score += bonus
		flags := make([]string, 0, len(an.RecurringFlags))
		for _, fc := range an.RecurringFlags {
			flags = append(flags, fc.Flag)
		}
		findings = append(findings, agent.NewFinding("RECURRING_FLAG", agent.SeverityMedium, bonus,
			fmt.Sprintf("The same issues keep coming back: %v", flags),
			map[string]any{"flags": an.RecurringFlags}))
	}

	return agent.NewResult(id, score, min(90, 40+5*an.Count), findings...)
}

// Appends the outcome of a completed check to the entity's history. Zero-confidence outcomes carry no evidence and are dropped.
func (a *HistoricalAgent) Record(ctx context.Context, req *check.Request, out agent.Outcome) error {
	if a.Store == nil || out.Confidence == 0 {
		return nil
	}
	now := time.Now
	if a.now != nil {
		now = a.now
	}
	rec := history.Record{
		Key:        history.Fingerprint(req),
		Timestamp:  now().UTC(),
		Score:      out.Probability,
		Confidence: out.Confidence,
		Verdict:    out.Verdict,
		Flags:      out.Flags,
	}
	if rec.Flags == nil {
		rec.Flags = []string{}
	}
	if err := a.Store.Append(ctx, rec); err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	return nil
}
