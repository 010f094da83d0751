// Runs checks end to end: request validation, agent dispatch, synthesis, and post-check recording.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/shadowcheck/shadowcheck/agent"
	"github.com/shadowcheck/shadowcheck/check"
	"github.com/shadowcheck/shadowcheck/history"
	"github.com/shadowcheck/shadowcheck/platform"
)

var tracer = otel.Tracer("engine")

// Orchestrates checks over a registry of agents.
//
// Configuration is an immutable snapshot, swapped atomically by SetConfig; every check sees exactly one snapshot from start to finish.
type Engine struct {
	Logger    *slog.Logger
	Platforms *platform.Registry
	Agents    *agent.Registry

	config atomic.Pointer[agent.Config]
}

// Initializes the registry (if it isn't already) and validates cfg against it. A nil cfg means defaults.
func NewEngine(logger *slog.Logger, platforms *platform.Registry, agents *agent.Registry, cfg *agent.Config) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if platforms == nil {
		platforms = platform.DefaultRegistry()
	}
	if err := agents.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing agent registry: %w", err)
	}
	eng := &Engine{
		Logger:    logger,
		Platforms: platforms,
		Agents:    agents,
	}
	if cfg == nil {
		cfg = agent.DefaultConfig()
	}
	if err := eng.SetConfig(cfg); err != nil {
		return nil, err
	}
	return eng, nil
}

func (eng *Engine) Config() *agent.Config {
	return eng.config.Load()
}

// Replaces the configuration snapshot. Invalid snapshots are rejected, and the current one stays in place.
func (eng *Engine) SetConfig(cfg *agent.Config) error {
	if cfg == nil {
		return errors.New("nil agent config")
	}
	if err := cfg.Validate(eng.Agents.Identities()); err != nil {
		return fmt.Errorf("invalid agent config: %w", err)
	}
	eng.config.Store(cfg)
	return nil
}

// Runs one check. The only errors returned are request validation errors (matching check.ErrValidation), in which case no agent has run; everything which goes wrong inside agents is folded in to the synthesis.
func (eng *Engine) Check(ctx context.Context, in check.Input) (*Synthesis, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "engine.Check")
	defer span.End()

	req, err := check.Build(in, eng.Platforms)
	if err != nil {
		checkErrorCount.WithLabelValues("validation").Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	fingerprint := history.Fingerprint(req)
	logger := eng.Logger.With("platform", req.Platform, "kind", req.Kind, "fingerprint", fingerprint)
	span.SetAttributes(
		attribute.String("platform", req.Platform),
		attribute.String("kind", string(req.Kind)),
	)

	cfg := eng.Config()
	results := eng.Agents.RunAll(ctx, req, cfg)
	syn := Synthesize(results)
	syn.Fingerprint = fingerprint
	syn.Kind = string(req.Kind)
	syn.Platform = req.Platform

	if reason := skipRecordReason(ctx, results); reason != "" {
		recordSkipCount.WithLabelValues(reason).Inc()
		logger.Info("not recording check outcome", "reason", reason)
	} else {
		eng.record(ctx, logger, req, syn)
	}

	elapsed := time.Since(start)
	checkCount.WithLabelValues(req.Platform, syn.Verdict).Inc()
	checkDuration.WithLabelValues(string(req.Kind)).Observe(elapsed.Seconds())
	span.SetAttributes(
		attribute.String("verdict", syn.Verdict),
		attribute.Int("probability", syn.Probability),
		attribute.Int("confidence", syn.Confidence),
	)
	eng.canonicalLogLine(logger, syn, elapsed)
	return syn, nil
}

// A check whose caller went away, or where no agent produced anything, says nothing about the content. Recording it would pull later history scores toward zero.
func skipRecordReason(ctx context.Context, results []agent.Result) string {
	if ctx.Err() != nil {
		return "canceled"
	}
	for _, r := range results {
		if r.Status != agent.StatusError {
			return ""
		}
	}
	return "no-evidence"
}

// Hands the outcome to every agent which records state (history, counters). Once started it runs to completion even if the request context is canceled partway, so a check is never half-recorded.
func (eng *Engine) record(ctx context.Context, logger *slog.Logger, req *check.Request, syn *Synthesis) {
	ctx = context.WithoutCancel(ctx)
	out := agent.Outcome{
		Probability: syn.Probability,
		Confidence:  syn.Confidence,
		Verdict:     syn.Verdict,
		Flags:       syn.Flags,
	}
	for _, a := range eng.Agents.GetAll() {
		rec, ok := a.(agent.Recorder)
		if !ok {
			continue
		}
		if err := rec.Record(ctx, req, out); err != nil {
			recordErrorCount.WithLabelValues(a.Identity().ID).Inc()
			logger.Warn("failed to record check outcome", "agent", a.Identity().ID, "err", err)
		}
	}
}

func (eng *Engine) canonicalLogLine(logger *slog.Logger, syn *Synthesis, elapsed time.Duration) {
	degraded, failed := 0, 0
	for _, r := range syn.Agents {
		switch r.Status {
		case agent.StatusDegraded:
			degraded++
		case agent.StatusError:
			failed++
		}
	}
	logger.Info("canonical-log-line",
		"verdict", syn.Verdict,
		"probability", syn.Probability,
		"confidence", syn.Confidence,
		"flags", syn.Flags,
		"agents", len(syn.Agents),
		"degraded", degraded,
		"failed", failed,
		"duration", elapsed,
	)
}
