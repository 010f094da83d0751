// Counters for check volume, bucketed by time period.
//
// The engine increments these after every completed check, and the Predictive agent reads them back to spot posting bursts (the same content checked over and over, or one account cycling through many different texts).
package countstore

import (
	"context"
	"fmt"
	"time"
)

const (
	PeriodTotal = "total"
	PeriodDay   = "day"
	PeriodHour  = "hour"
)

const (
	// number of checks per fingerprint
	CounterChecks = "checks"
	// distinct content hashes per account (platform + username)
	CounterAccountContent = "account-content"
)

type CountStore interface {
	GetCount(ctx context.Context, name, val, period string) (int, error)
	Increment(ctx context.Context, name, val string) error
	GetCountDistinct(ctx context.Context, name, bucket, period string) (int, error)
	IncrementDistinct(ctx context.Context, name, bucket, val string) error
}

// Every increment lands in one bucket per period. Buckets outlive their window by a margin, so a read near the boundary still sees the full count.
type period struct {
	name   string
	layout string
	ttl    time.Duration
}

var periods = []period{
	{name: PeriodHour, layout: "2006-01-02T15", ttl: 2 * time.Hour},
	{name: PeriodDay, layout: time.DateOnly, ttl: 48 * time.Hour},
	// checks are not a durable record; "total" means the last month
	{name: PeriodTotal, ttl: 30 * 24 * time.Hour},
}

func lookupPeriod(name string) (period, error) {
	for _, p := range periods {
		if p.name == name {
			return p, nil
		}
	}
	return period{}, fmt.Errorf("unknown counter period: %q", name)
}

func (p period) bucket(name, val string, now time.Time) string {
	if p.layout == "" {
		return name + "/" + val
	}
	return name + "/" + val + "/" + now.UTC().Format(p.layout)
}
