package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var checkDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name: "shadowcheck_check_duration_sec",
	Help: "Total duration of check processing",
}, []string{"kind"})

var checkCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shadowcheck_checks",
	Help: "Number of checks completed",
}, []string{"platform", "verdict"})

var checkErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shadowcheck_check_errors",
	Help: "Number of checks which failed before any agent ran",
}, []string{"reason"})

var recordErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shadowcheck_record_errors",
	Help: "Number of post-check recording failures",
}, []string{"agent"})

var recordSkipCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shadowcheck_record_skips",
	Help: "Number of checks whose outcome was not recorded",
}, []string{"reason"})
