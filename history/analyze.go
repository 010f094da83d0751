package history

import (
	"sort"
)

type Trend string

const (
	TrendWorsening Trend = "worsening"
	TrendImproving Trend = "improving"
	TrendStable    Trend = "stable"
)

const (
	// number of most recent records compared against the rest
	trendWindow = 3
	// minimum difference in mean score for a trend to count
	trendDelta = 10.0
	// a record at or above this score counts as high severity
	HighSeverityScore = 60
	// a flag seen this many times is recurring
	recurringMin = 2
)

type FlagCount struct {
	Flag  string `json:"flag"`
	Count int    `json:"count"`
}

type Analysis struct {
	Count      int     `json:"count"`
	MeanScore  float64 `json:"meanScore"`
	RecentMean float64 `json:"recentMean"`
	OlderMean  float64 `json:"olderMean"`
	Trend      Trend   `json:"trend"`
	// flags seen in at least two records, most frequent first
	RecurringFlags    []FlagCount `json:"recurringFlags"`
	HighSeverityCount int         `json:"highSeverityCount"`
	LastScore         int         `json:"lastScore"`
}

// Summarizes a bucket of records (oldest first).
//
// The trend compares the mean of the most recent three records with the mean of all older ones; it needs at least one older record, so fewer than four records are always stable.
func Analyze(records []Record) Analysis {
	a := Analysis{
		Count:          len(records),
		Trend:          TrendStable,
		RecurringFlags: []FlagCount{},
	}
	if len(records) == 0 {
		return a
	}

	counts := map[string]int{}
	total := 0
	for _, r := range records {
		total += r.Score
		if r.Score >= HighSeverityScore {
			a.HighSeverityCount++
		}
		seen := map[string]bool{}
		for _, f := range r.Flags {
			if !seen[f] {
				counts[f]++
				seen[f] = true
			}
		}
	}
	a.MeanScore = float64(total) / float64(len(records))
	a.LastScore = records[len(records)-1].Score

	if len(records) > trendWindow {
		split := len(records) - trendWindow
		a.OlderMean = meanScore(records[:split])
		a.RecentMean = meanScore(records[split:])
		switch diff := a.RecentMean - a.OlderMean; {
		case diff > trendDelta:
			a.Trend = TrendWorsening
		case diff < -trendDelta:
			a.Trend = TrendImproving
		}
	} else {
		a.RecentMean = a.MeanScore
		a.OlderMean = a.MeanScore
	}

	for f, n := range counts {
		if n >= recurringMin {
			a.RecurringFlags = append(a.RecurringFlags, FlagCount{Flag: f, Count: n})
		}
	}
	sort.Slice(a.RecurringFlags, func(i, j int) bool {
		if a.RecurringFlags[i].Count != a.RecurringFlags[j].Count {
			return a.RecurringFlags[i].Count > a.RecurringFlags[j].Count
		}
		return a.RecurringFlags[i].Flag < a.RecurringFlags[j].Flag
	})
	return a
}

func meanScore(records []Record) float64 {
	if len(records) == 0 {
		return 0
	}
	total := 0
	for _, r := range records {
		total += r.Score
	}
	return float64(total) / float64(len(records))
}
