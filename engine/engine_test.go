package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shadowcheck/shadowcheck/agent"
	"github.com/shadowcheck/shadowcheck/agents"
	"github.com/shadowcheck/shadowcheck/check"
	"github.com/shadowcheck/shadowcheck/countstore"
	"github.com/shadowcheck/shadowcheck/history"
	"github.com/shadowcheck/shadowcheck/platform"
	"github.com/shadowcheck/shadowcheck/signals"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerdict(t *testing.T) {
	assert := assert.New(t)

	fixtures := []struct {
		p, c    int
		verdict string
	}{
		{p: 10, c: 70, verdict: VerdictClear},
		{p: 80, c: 65, verdict: VerdictRestricted},
		{p: 40, c: 30, verdict: VerdictUncertain},
		{p: 15, c: 60, verdict: VerdictClear},
		{p: 15, c: 59, verdict: VerdictLikelyClear},
		{p: 30, c: 50, verdict: VerdictLikelyClear},
		{p: 30, c: 49, verdict: VerdictUncertain},
		{p: 50, c: 100, verdict: VerdictUncertain},
		{p: 70, c: 50, verdict: VerdictLikelyRestricted},
		{p: 60, c: 40, verdict: VerdictUncertain},
		{p: 71, c: 59, verdict: VerdictUncertain},
		{p: 100, c: 100, verdict: VerdictRestricted},
		{p: 0, c: 0, verdict: VerdictUncertain},
	}
	for _, fix := range fixtures {
		assert.Equal(fix.verdict, Verdict(fix.p, fix.c), "p=%d c=%d", fix.p, fix.c)
	}
}

func identity(id string, factor, weight int) agent.Identity {
	return agent.Identity{ID: id, Name: id, FactorNumber: factor, Weight: weight}
}

func highFinding(code string) agent.Finding {
	return agent.NewFinding(code, agent.SeverityHigh, 10, code, nil)
}

func TestSynthesize(t *testing.T) {
	assert := assert.New(t)

	results := []agent.Result{
		agent.NewResult(identity("a", 1, 25), 80, 90, highFinding("A1"), highFinding("A2"), highFinding("A3"),
			agent.NewFinding("LOW", agent.SeverityLow, 1, "", nil)),
		agent.NewResult(identity("b", 2, 20), 40, 70, highFinding("B1"), highFinding("B2"), highFinding("B3"),
			agent.NewFinding("CRIT", agent.SeverityCritical, 25, "", nil)),
		agent.ErrorResult(identity("c", 3, 15), errors.New("boom")),
	}
	syn := Synthesize(results)

	// (80*25 + 40*20) / 45, with the errored agent left out
	assert.Equal(62, syn.Probability)
	assert.Equal(80, syn.Confidence)
	assert.Equal(VerdictLikelyRestricted, syn.Verdict)
	assert.Len(syn.Agents, 3)

	codes := []string{}
	for _, f := range syn.PrimaryIssues {
		codes = append(codes, f.Code)
	}
	assert.Equal([]string{"A3", "B1", "B2", "B3", "CRIT"}, codes)
	assert.Equal([]string{"A1", "A2", "A3", "LOW", "B1", "B2", "B3", "CRIT"}, syn.Flags)

	// retry advice for the failed agent
	last := syn.Recommendations[len(syn.Recommendations)-1]
	assert.Equal("retry", last.Action)
}

func TestSynthesizeEmpty(t *testing.T) {
	assert := assert.New(t)

	syn := Synthesize(nil)
	assert.Equal(0, syn.Probability)
	assert.Equal(0, syn.Confidence)
	assert.Equal(VerdictUncertain, syn.Verdict)
	assert.NotNil(syn.Agents)
	assert.NotNil(syn.PrimaryIssues)
	assert.NotNil(syn.Flags)
	assert.Equal([]Recommendation{genericRecommendation}, syn.Recommendations)

	// every agent failed
	syn = Synthesize([]agent.Result{agent.ErrorResult(identity("a", 1, 100), errors.New("x"))})
	assert.Equal(0, syn.Probability)
	assert.Equal(0, syn.Confidence)
}

func TestSynthesizeBounds(t *testing.T) {
	assert := assert.New(t)

	for raw := 0; raw <= 100; raw += 7 {
		for w := 1; w <= 100; w += 33 {
			results := []agent.Result{
				agent.NewResult(identity("a", 1, w), raw, 50),
				agent.NewResult(identity("b", 2, 100-w+1), 100-raw, 50),
			}
			syn := Synthesize(results)
			assert.GreaterOrEqual(syn.Probability, 0)
			assert.LessOrEqual(syn.Probability, 100)
		}
	}
}

func TestRecommend(t *testing.T) {
	assert := assert.New(t)

	results := []agent.Result{
		agent.NewResult(identity("a", 1, 50), 50, 80,
			agent.NewFinding("LINK_SHORTENER", agent.SeverityMedium, 3, "", map[string]any{"domain": "bit.ly"}),
			agent.NewFinding("BANNED_HASHTAG", agent.SeverityCritical, 25, "", map[string]any{"hashtag": "followback"}),
			agent.NewFinding("BANNED_HASHTAG", agent.SeverityCritical, 25, "", map[string]any{"hashtag": "f4f"}),
		),
		agent.NewResult(identity("b", 2, 50), 50, 80,
			agent.NewFinding("EXCESSIVE_HASHTAGS", agent.SeverityMedium, 15, "", nil),
			agent.NewFinding("HASHTAG_DENSITY", agent.SeverityMedium, 10, "", nil),
		),
	}
	recs := Recommend(results)
	require.Len(t, recs, 3)
	assert.Equal(PriorityCritical, recs[0].Priority)
	assert.Equal("remove-hashtags", recs[0].Action)
	assert.Equal([]string{"followback", "f4f"}, recs[0].Subjects)
	assert.Equal("expand-links", recs[1].Action)
	assert.Equal([]string{"bit.ly"}, recs[1].Subjects)
	assert.Equal("reduce-hashtags", recs[2].Action)
	assert.Equal([]string{"EXCESSIVE_HASHTAGS", "HASHTAG_DENSITY"}, recs[2].Triggers)

	// throttled domains get alternative-link advice
	recs = Recommend([]agent.Result{agent.NewResult(identity("a", 1, 100), 10, 80,
		agent.NewFinding("THROTTLED_DOMAIN", agent.SeverityMedium, 10, "", map[string]any{"domain": "substack.com"}))})
	require.Len(t, recs, 1)
	assert.Equal(PriorityMedium, recs[0].Priority)
	assert.Equal("alternative-link", recs[0].Action)

	recs = Recommend([]agent.Result{agent.NewResult(identity("a", 1, 100), 0, 80)})
	assert.Equal([]Recommendation{genericRecommendation}, recs)
}

type testEnv struct {
	eng      *Engine
	history  *history.MemStore
	counters *countstore.MemCountStore
}

func newTestEnv(t *testing.T, extra ...agent.Agent) testEnv {
	platforms := platform.DefaultRegistry()
	hist := history.NewMemStore(10)
	counters := countstore.NewMemCountStore()
	reg := agent.NewRegistry(nil)
	require.NoError(t, agents.RegisterDefaults(reg, agents.Deps{
		Platforms: platforms,
		Signals:   signals.Default(platforms),
		History:   hist,
		Counters:  counters,
	}))
	for _, a := range extra {
		require.NoError(t, reg.Register(a))
	}
	cfg := agent.DefaultConfig()
	if len(extra) > 0 {
		// make room for the extra agents' weight
		cfg = cfg.WithAgentEnabled(agents.PredictiveIdentity.ID, false)
	}
	eng, err := NewEngine(nil, platforms, reg, cfg)
	require.NoError(t, err)
	return testEnv{eng: eng, history: hist, counters: counters}
}

func TestEngineCheck(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	syn, err := env.eng.Check(ctx, check.Input{Platform: "twitter", Text: "great day #followback #f4f #tech"})
	require.NoError(t, err)
	assert.Len(syn.Agents, 5)
	assert.Contains(syn.Flags, "BANNED_HASHTAG")
	assert.Greater(syn.Probability, 0)
	assert.Equal("twitter", syn.Platform)
	assert.Equal("text", syn.Kind)
	assert.Equal("remove-hashtags", syn.Recommendations[0].Action)
	for _, r := range syn.Agents {
		assert.NotEqual(agent.StatusError, r.Status, r.AgentID)
	}

	// outcome was recorded, and shows up on the next check
	recs, err := env.history.Get(ctx, syn.Fingerprint)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(syn.Probability, recs[0].Score)
	assert.Equal(syn.Verdict, recs[0].Verdict)

	again, err := env.eng.Check(ctx, check.Input{Platform: "x", Text: "Great day! #followback #f4f #tech"})
	require.NoError(t, err)
	assert.Equal(syn.Fingerprint, again.Fingerprint)
	var hist agent.Result
	for _, r := range again.Agents {
		if r.AgentID == agents.HistoricalIdentity.ID {
			hist = r
		}
	}
	assert.Equal(45, hist.Confidence)
}

func TestEngineValidation(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	fixtures := []check.Input{
		{},
		{Platform: "myspace", Text: "hello"},
		{Kind: "video", Platform: "twitter", Text: "hello"},
		{Text: "no platform"},
		{URL: "https://example.com/page"},
	}
	for _, in := range fixtures {
		syn, err := env.eng.Check(ctx, in)
		assert.Nil(syn)
		assert.ErrorIs(err, check.ErrValidation, "%+v", in)
		var verr *check.ValidationError
		assert.True(errors.As(err, &verr))
	}
	// nothing ran, so nothing was recorded
	assert.Equal(0, env.history.Len())
}

type panicAgent struct{}

func (panicAgent) Identity() agent.Identity {
	return agent.Identity{ID: "panicky", Name: "Panicky", FactorNumber: 6, Weight: 15}
}

func (panicAgent) Analyze(ctx context.Context, req *check.Request, cfg *agent.Config) agent.Result {
	panic("something broke")
}

func TestEngineAgentFailure(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t, panicAgent{})

	syn, err := env.eng.Check(context.Background(), check.Input{Platform: "twitter", Text: "hello world"})
	require.NoError(t, err)
	// predictive is disabled in favor of the failing agent
	require.Len(t, syn.Agents, 5)
	failed := syn.Agents[4]
	assert.Equal("panicky", failed.AgentID)
	assert.Equal(agent.StatusError, failed.Status)
	assert.Equal(0, failed.Confidence)
	assert.NotEmpty(syn.Verdict)
}

func TestEngineCanceledCheck(t *testing.T) {
	assert := assert.New(t)
	env := newTestEnv(t)
	in := check.Input{Platform: "twitter", Username: "jack", Text: "great day #followback #f4f #tech"}

	// one real check first, so there is state to compare against
	first, err := env.eng.Check(context.Background(), in)
	require.NoError(t, err)
	fp := first.Fingerprint

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	syn, err := env.eng.Check(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, syn)
	assert.Equal(fp, syn.Fingerprint)
	assert.Len(syn.Agents, 5)
	assert.NotEmpty(syn.Verdict)

	recs, err := env.history.Get(context.Background(), fp)
	require.NoError(t, err)
	assert.Len(recs, 1)
	c, err := env.counters.GetCount(context.Background(), countstore.CounterChecks, fp, countstore.PeriodTotal)
	assert.NoError(err)
	assert.Equal(1, c)
	c, err = env.counters.GetCountDistinct(context.Background(), countstore.CounterAccountContent, "twitter:jack", countstore.PeriodTotal)
	assert.NoError(err)
	assert.Equal(1, c)

	// and a later, uncanceled check still sees only the first outcome
	again, err := env.eng.Check(context.Background(), in)
	require.NoError(t, err)
	for _, r := range again.Agents {
		if r.AgentID == agents.HistoricalIdentity.ID {
			assert.Equal(45, r.Confidence)
		}
	}
}

func TestEngineNoEvidenceCheck(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	env := newTestEnv(t, panicAgent{})

	// only the failing agent runs; the recorders are still registered
	cfg := env.eng.Config()
	for _, id := range env.eng.Agents.Identities() {
		if id.ID != "panicky" {
			cfg = cfg.WithAgentEnabled(id.ID, false)
		}
	}
	require.NoError(t, env.eng.SetConfig(cfg.WithWeight("panicky", 100)))

	syn, err := env.eng.Check(ctx, check.Input{Platform: "twitter", Text: "hello world"})
	require.NoError(t, err)
	require.Len(t, syn.Agents, 1)
	assert.Equal(agent.StatusError, syn.Agents[0].Status)
	assert.Equal(0, syn.Confidence)

	assert.Equal(0, env.history.Len())
	c, err := env.counters.GetCount(ctx, countstore.CounterChecks, syn.Fingerprint, countstore.PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)
}

func TestEngineConfig(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	before := env.eng.Config()
	err := env.eng.SetConfig(before.WithWeight(agents.DetectionIdentity.ID, 90))
	assert.Error(err)
	assert.Same(before, env.eng.Config())
	assert.Error(env.eng.SetConfig(nil))

	cfg := before.
		WithAgentEnabled(agents.PredictiveIdentity.ID, false).
		WithWeight(agents.DetectionIdentity.ID, 40)
	require.NoError(t, env.eng.SetConfig(cfg))

	syn, err := env.eng.Check(ctx, check.Input{Platform: "twitter", Text: "hello world"})
	require.NoError(t, err)
	assert.Len(syn.Agents, 4)
	for _, r := range syn.Agents {
		if r.AgentID == agents.DetectionIdentity.ID {
			assert.Equal(40, r.Weight)
		}
	}
	// the original snapshot is untouched
	assert.True(before.AgentEnabled(agents.PredictiveIdentity.ID))
}

func TestEngineConcurrentChecks(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	env := newTestEnv(t)

	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			_, err := env.eng.Check(ctx, check.Input{Platform: "twitter", Text: fmt.Sprintf("post number %d", i%4)})
			errs <- err
		}()
	}
	for i := 0; i < 20; i++ {
		assert.NoError(<-errs)
	}
	assert.Equal(4, env.history.Len())
}
