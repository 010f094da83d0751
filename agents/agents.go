// The five risk-factor agents, and helpers to register them.
//
// Every agent takes its collaborators at construction time. A nil collaborator is not an error: the agent runs with what it has, and reports a degraded result saying what was missing.
package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shadowcheck/shadowcheck/agent"
	"github.com/shadowcheck/shadowcheck/countstore"
	"github.com/shadowcheck/shadowcheck/history"
	"github.com/shadowcheck/shadowcheck/linkcheck"
	"github.com/shadowcheck/shadowcheck/platform"
	"github.com/shadowcheck/shadowcheck/signals"
)

var (
	PlatformSignalIdentity = agent.Identity{ID: "platform-signal", Name: "Platform Signal Analysis", FactorNumber: 1, Weight: 25}
	WebVisibilityIdentity  = agent.Identity{ID: "web-visibility", Name: "Web Visibility", FactorNumber: 2, Weight: 20}
	HistoricalIdentity     = agent.Identity{ID: "historical", Name: "Historical Patterns", FactorNumber: 3, Weight: 15}
	DetectionIdentity      = agent.Identity{ID: "detection", Name: "Real-Time Detection", FactorNumber: 4, Weight: 25}
	PredictiveIdentity     = agent.Identity{ID: "predictive", Name: "Predictive Risk", FactorNumber: 5, Weight: 15}
)

// Follows a link to its final destination. Implemented by *linkcheck.Resolver.
type LinkResolver interface {
	Resolve(ctx context.Context, rawURL string) (*linkcheck.Resolution, error)
}

var _ LinkResolver = (*linkcheck.Resolver)(nil)

// Collaborators shared by the default agents. Any field may be nil.
type Deps struct {
	Platforms *platform.Registry
	Signals   *signals.Set
	History   history.Store
	Counters  countstore.CountStore
	// when nil, shortened links are classified by their own domain only
	Resolver LinkResolver
	Logger   *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Deps) platforms() *platform.Registry {
	if d.Platforms != nil {
		return d.Platforms
	}
	return platform.DefaultRegistry()
}

func (d Deps) db(kind signals.Kind) *signals.Database {
	if d.Signals == nil {
		return nil
	}
	return d.Signals.Get(kind)
}

// One of each agent, in factor order.
func DefaultAgents(deps Deps) []agent.Agent {
	return []agent.Agent{
		NewPlatformSignalAgent(deps),
		NewWebVisibilityAgent(deps),
		NewHistoricalAgent(deps),
		NewDetectionAgent(deps),
		NewPredictiveAgent(deps),
	}
}

// Queues every default agent on the registry. The caller still needs to Initialize it.
func RegisterDefaults(reg *agent.Registry, deps Deps) error {
	for _, a := range DefaultAgents(deps) {
		if err := reg.Register(a); err != nil {
			return fmt.Errorf("registering %s: %w", a.Identity().ID, err)
		}
	}
	return nil
}

// Maps a database tier to finding severity and score contribution.
func tierSeverity(t signals.Tier) agent.Severity {
	switch t {
	case signals.TierBanned:
		return agent.SeverityCritical
	case signals.TierRestricted:
		return agent.SeverityHigh
	}
	return agent.SeverityLow
}

func unavailable(what string) string {
	return fmt.Sprintf("%s: %s not configured", agent.ErrDataUnavailable, what)
}
