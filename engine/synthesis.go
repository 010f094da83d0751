package engine

import (
	"math"

	"github.com/shadowcheck/shadowcheck/agent"
	"github.com/shadowcheck/shadowcheck/helpers"
)

const (
	VerdictClear            = "CLEAR"
	VerdictLikelyClear      = "LIKELY CLEAR"
	VerdictUncertain        = "UNCERTAIN"
	VerdictLikelyRestricted = "LIKELY RESTRICTED"
	VerdictRestricted       = "RESTRICTED"
)

// number of high-severity findings surfaced as primary issues
const maxPrimaryIssues = 5

// Final, aggregated outcome of one check.
type Synthesis struct {
	Probability     int              `json:"probability"`
	Confidence      int              `json:"confidence"`
	Verdict         string           `json:"verdict"`
	PrimaryIssues   []agent.Finding  `json:"primaryIssues"`
	Recommendations []Recommendation `json:"recommendations"`
	Agents          []agent.Result   `json:"agents"`
	Flags           []string         `json:"flags"`
	Fingerprint     string           `json:"fingerprint,omitempty"`
	Kind            string           `json:"kind,omitempty"`
	Platform        string           `json:"platform,omitempty"`
}

// Combines agent results in to a single verdict. Pure function of its input.
//
// Errored agents are left out of the weighted mean entirely, rather than being counted as zero risk.
func Synthesize(results []agent.Result) *Synthesis {
	syn := &Synthesis{
		PrimaryIssues: []agent.Finding{},
		Agents:        results,
		Flags:         []string{},
	}
	if syn.Agents == nil {
		syn.Agents = []agent.Result{}
	}

	weighted, weights := 0, 0
	confSum, confN := 0, 0
	var flags []string
	var issues []agent.Finding
	for _, r := range results {
		if r.Status != agent.StatusError {
			weighted += r.RawScore * r.Weight
			weights += r.Weight
		}
		if r.Confidence > 0 {
			confSum += r.Confidence
			confN++
		}
		flags = append(flags, r.Flags...)
		for _, f := range r.Findings {
			if f.Severity.IsHigh() {
				issues = append(issues, f)
			}
		}
	}
	if weights > 0 {
		syn.Probability = agent.Clamp(int(math.Round(float64(weighted) / float64(weights))))
	}
	if confN > 0 {
		syn.Confidence = agent.Clamp(int(math.Round(float64(confSum) / float64(confN))))
	}
	syn.Verdict = Verdict(syn.Probability, syn.Confidence)

	// most recently emitted, kept in emission order
	if len(issues) > maxPrimaryIssues {
		issues = issues[len(issues)-maxPrimaryIssues:]
	}
	syn.PrimaryIssues = append(syn.PrimaryIssues, issues...)

	if f := helpers.DedupeStrings(flags); f != nil {
		syn.Flags = f
	}
	syn.Recommendations = Recommend(results)
	return syn
}

// Maps probability and confidence to a verdict. Rows are checked in order.
func Verdict(probability, confidence int) string {
	switch {
	case probability <= 15 && confidence >= 60:
		return VerdictClear
	case probability <= 30 && confidence >= 50:
		return VerdictLikelyClear
	case probability <= 50:
		return VerdictUncertain
	case probability <= 70 && confidence >= 50:
		return VerdictLikelyRestricted
	case probability > 70 && confidence >= 60:
		return VerdictRestricted
	}
	return VerdictUncertain
}
