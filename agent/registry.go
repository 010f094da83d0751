package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/shadowcheck/shadowcheck/check"
)

var tracer = otel.Tracer("agent")

// Catalog of agents, and dispatcher for checks.
//
// Registration is two-phase. Agents registered before Initialize are queued, and Initialize drains the queue exactly once; after that, Register adds agents directly. This lets agents be registered in any order relative to the registry's own setup.
type Registry struct {
	Logger *slog.Logger

	mu          sync.RWMutex
	agents      map[string]Agent
	pending     []Agent
	initialized bool
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		Logger: logger,
		agents: make(map[string]Agent),
	}
}

// Adds an agent. Before Initialize the agent is only queued (and duplicates are reported by Initialize); afterwards a duplicate ID returns ErrDuplicateAgent.
func (r *Registry) Register(a Agent) error {
	if a == nil {
		return fmt.Errorf("registering nil agent")
	}
	id := a.Identity()
	if id.ID == "" {
		return fmt.Errorf("registering agent with empty ID")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.initialized {
		r.pending = append(r.pending, a)
		return nil
	}
	return r.addLocked(a)
}

// Registers an agent and panics on error. For static setup only.
func (r *Registry) MustRegister(a Agent) {
	if err := r.Register(a); err != nil {
		panic(fmt.Sprintf("failed to register agent: %v", err))
	}
}

func (r *Registry) addLocked(a Agent) error {
	id := a.Identity().ID
	if _, exists := r.agents[id]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAgent, id)
	}
	r.agents[id] = a
	r.Logger.Debug("registered agent", "agent", id, "factor", a.Identity().FactorNumber)
	return nil
}

// Drains the pending queue. Only the first call does anything; later calls are no-ops returning nil. Duplicates in the queue keep the first registration, and are reported together in the returned error.
func (r *Registry) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return nil
	}
	var errs []error
	for _, a := range r.pending {
		if err := r.addLocked(a); err != nil {
			errs = append(errs, err)
		}
	}
	r.pending = nil
	r.initialized = true
	return errors.Join(errs...)
}

func (r *Registry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

func (r *Registry) Get(id string) (Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[id]
	return a, ok
}

// Snapshot of registered agents, in ascending factor order (then by ID). Queued agents are not included until Initialize.
func (r *Registry) GetAll() []Agent {
	r.mu.RLock()
	out := make([]Agent, 0, len(r.agents))
	for _, a := range r.agents {
		out = append(out, a)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Identity(), out[j].Identity()
		if a.FactorNumber != b.FactorNumber {
			return a.FactorNumber < b.FactorNumber
		}
		return a.ID < b.ID
	})
	return out
}

func (r *Registry) Identities() []Identity {
	agents := r.GetAll()
	out := make([]Identity, len(agents))
	for i, a := range agents {
		out[i] = a.Identity()
	}
	return out
}

// Dispatches the request to every enabled agent concurrently, each bounded by the config's agent timeout. Always returns exactly one result per enabled agent, in factor order: panics, timeouts, and cancellation all become error results.
func (r *Registry) RunAll(ctx context.Context, req *check.Request, cfg *Config) []Result {
	var active []Agent
	for _, a := range r.GetAll() {
		if cfg.AgentEnabled(a.Identity().ID) {
			active = append(active, a)
		}
	}

	results := make([]Result, len(active))
	var g errgroup.Group
	for i, a := range active {
		g.Go(func() error {
			results[i] = r.runOne(ctx, a, req, cfg)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (r *Registry) runOne(ctx context.Context, a Agent, req *check.Request, cfg *Config) Result {
	id := a.Identity()
	logger := r.Logger.With("agent", id.ID)
	timeout := cfg.AgentTimeout()

	ctx, span := tracer.Start(ctx, "agent.Analyze", trace.WithAttributes(
		attribute.String("agent", id.ID),
		attribute.Int("factor", id.FactorNumber),
	))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	done := make(chan Result, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("agent panic", "err", rec)
				agentPanicCount.WithLabelValues(id.ID).Inc()
				done <- ErrorResult(id, fmt.Errorf("agent failed: %v", rec))
			}
		}()
		done <- a.Analyze(ctx, req, cfg)
	}()

	var res Result
	select {
	case res = <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			res = ErrorResult(id, fmt.Errorf("%w after %s", ErrAgentTimeout, timeout))
		} else {
			res = ErrorResult(id, fmt.Errorf("agent canceled: %w", ctx.Err()))
		}
	}

	res.normalize(id, cfg.WeightFor(id))
	elapsed := time.Since(start)
	res.DurationMs = elapsed.Milliseconds()

	agentDuration.WithLabelValues(id.ID).Observe(elapsed.Seconds())
	agentResultCount.WithLabelValues(id.ID, string(res.Status)).Inc()
	span.SetAttributes(attribute.String("status", string(res.Status)), attribute.Int("rawScore", res.RawScore))
	if res.Status == StatusError {
		logger.Warn("agent returned error result", "message", res.Message, "duration", elapsed)
	}
	return res
}
