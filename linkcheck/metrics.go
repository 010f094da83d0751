package linkcheck

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var resolveCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "shadowcheck_link_resolutions",
	Help: "Number of outbound link resolutions, by outcome",
}, []string{"outcome"})
