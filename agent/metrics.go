package agent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var agentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "shadowcheck_agent_duration_sec",
	Help:    "Duration of a single agent's analysis",
	Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
}, []string{"agent"})

var agentResultCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shadowcheck_agent_results",
	Help: "Number of agent results, by status",
}, []string{"agent", "status"})

var agentPanicCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shadowcheck_agent_panics",
	Help: "Number of agent analyses which panicked",
}, []string{"agent"})
