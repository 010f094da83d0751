// Agent contract, result builders, configuration snapshots, and the registry which dispatches checks to every agent.
//
// An agent evaluates one weighted factor of shadow-ban risk. Agents are independent: each receives the same check request and configuration snapshot, consults only its own collaborators, and returns a Result. Failures inside an agent are always converted in to a Result with status "error"; they never reach the caller.
package agent

import (
	"context"
	"errors"

	"github.com/shadowcheck/shadowcheck/check"
	"github.com/shadowcheck/shadowcheck/helpers"
)

var (
	// A collaborator (database, store, resolver) the agent depends on was not configured.
	ErrDataUnavailable = errors.New("data source unavailable")
	ErrAgentTimeout    = errors.New("agent timed out")
	ErrDuplicateAgent  = errors.New("agent already registered")
)

type Identity struct {
	ID           string `json:"agentId"`
	Name         string `json:"name"`
	FactorNumber int    `json:"factorNumber"`
	// default weight, as a share of 100
	Weight int `json:"weight"`
}

type Agent interface {
	Identity() Identity
	// Must not retain req or cfg, and must return promptly once ctx is done.
	Analyze(ctx context.Context, req *check.Request, cfg *Config) Result
}

// Final outcome of a check, handed to recorders after synthesis.
type Outcome struct {
	Probability int
	Confidence  int
	Verdict     string
	Flags       []string
}

// Optional interface for agents which persist something about each completed check (eg, history). Called once per check, after every agent has run.
type Recorder interface {
	Record(ctx context.Context, req *check.Request, out Outcome) error
}

type Status string

const (
	StatusComplete Status = "complete"
	StatusDegraded Status = "degraded"
	StatusError    Status = "error"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// True for high and critical.
func (s Severity) IsHigh() bool {
	return s == SeverityHigh || s == SeverityCritical
}

type Finding struct {
	Code              string         `json:"code"`
	Message           string         `json:"message"`
	Severity          Severity       `json:"severity"`
	ScoreContribution int            `json:"scoreContribution"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	AgentID           string         `json:"agentId"`
}

func NewFinding(code string, severity Severity, contribution int, message string, metadata map[string]any) Finding {
	if severity == "" {
		severity = SeverityLow
	}
	return Finding{
		Code:              code,
		Message:           message,
		Severity:          severity,
		ScoreContribution: contribution,
		Metadata:          metadata,
	}
}

type Result struct {
	AgentID       string    `json:"agentId"`
	Name          string    `json:"name"`
	FactorNumber  int       `json:"factorNumber"`
	Weight        int       `json:"weight"`
	RawScore      int       `json:"rawScore"`
	WeightedScore float64   `json:"weightedScore"`
	Confidence    int       `json:"confidence"`
	Findings      []Finding `json:"findings"`
	Flags         []string  `json:"flags"`
	Status        Status    `json:"status"`
	Message       string    `json:"message,omitempty"`
	DurationMs    int64     `json:"durationMs"`
}

// Builds a complete result. Scores are clamped, and every finding code is also added to the flags.
func NewResult(id Identity, rawScore, confidence int, findings ...Finding) Result {
	res := Result{
		RawScore:   rawScore,
		Confidence: confidence,
		Findings:   findings,
		Status:     StatusComplete,
	}
	res.normalize(id, id.Weight)
	return res
}

// Like NewResult, for agents running with reduced capability. The message should say what was missing.
func Degraded(id Identity, rawScore, confidence int, message string, findings ...Finding) Result {
	res := NewResult(id, rawScore, confidence, findings...)
	res.Status = StatusDegraded
	res.Message = message
	return res
}

// Zero-score, zero-confidence result for an agent which failed.
func ErrorResult(id Identity, err error) Result {
	res := NewResult(id, 0, 0)
	res.Status = StatusError
	if err != nil {
		res.Message = err.Error()
	}
	return res
}

// Adds extra flags which don't correspond to any finding.
func (r Result) WithFlags(flags ...string) Result {
	r.Flags = helpers.DedupeStrings(append(append([]string{}, r.Flags...), flags...))
	return r
}

// Fills identity fields, clamps scores, recomputes the weighted score, and makes sure slices are non-nil.
func (r *Result) normalize(id Identity, weight int) {
	r.AgentID = id.ID
	r.Name = id.Name
	r.FactorNumber = id.FactorNumber
	r.Weight = Clamp(weight)
	if r.Status == "" {
		r.Status = StatusComplete
	}
	if r.Status == StatusError {
		r.RawScore = 0
		r.Confidence = 0
	}
	r.RawScore = Clamp(r.RawScore)
	r.Confidence = Clamp(r.Confidence)
	r.WeightedScore = float64(r.RawScore*r.Weight) / 100

	findings := make([]Finding, 0, len(r.Findings))
	flags := append([]string{}, r.Flags...)
	for _, f := range r.Findings {
		f.AgentID = id.ID
		if f.Severity == "" {
			f.Severity = SeverityLow
		}
		findings = append(findings, f)
		flags = append(flags, f.Code)
	}
	r.Findings = findings
	r.Flags = helpers.DedupeStrings(flags)
	if r.Flags == nil {
		r.Flags = []string{}
	}
}

// Clamps a score or confidence to [0,100].
func Clamp(v int) int {
	return min(max(v, 0), 100)
}
