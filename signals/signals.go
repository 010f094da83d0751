package signals

import (
	"strings"

	"github.com/shadowcheck/shadowcheck/helpers"
	"github.com/shadowcheck/shadowcheck/keyword"
	"github.com/shadowcheck/shadowcheck/platform"
)

type Tier string

const (
	TierBanned     Tier = "banned"
	TierRestricted Tier = "restricted"
	TierMonitored  Tier = "monitored"
	TierSafe       Tier = "safe"
)

// per-item contribution to a bulk check's riskScore
var tierWeights = map[Tier]int{
	TierBanned:     25,
	TierRestricted: 10,
	TierMonitored:  3,
	TierSafe:       0,
}

// lower is more severe
var tierRank = map[Tier]int{
	TierBanned:     0,
	TierRestricted: 1,
	TierMonitored:  2,
	TierSafe:       3,
}

func (t Tier) Valid() bool {
	_, ok := tierRank[t]
	return ok
}

// Weight is the riskScore contribution of a single token classified in this tier.
func (t Tier) Weight() int {
	return tierWeights[t]
}

type Kind string

const (
	KindHashtags Kind = "hashtags"
	KindLinks    Kind = "links"
	KindTerms    Kind = "terms"
	KindMentions Kind = "mentions"
	KindEmojis   Kind = "emojis"
)

var AllKinds = []Kind{KindHashtags, KindLinks, KindTerms, KindMentions, KindEmojis}

// One classified token or phrase.
type Entry struct {
	Token     string   `json:"token"`
	Tier      Tier     `json:"tier"`
	Platforms []string `json:"platforms"`
	Category  string   `json:"category"`
	Notes     string   `json:"notes,omitempty"`
}

func (e Entry) appliesTo(platformID string) bool {
	for _, p := range e.Platforms {
		if p == platform.All || p == platformID {
			return true
		}
	}
	return false
}

// A non-safe classification of one (normalized) token.
type Match struct {
	Token string `json:"token"`
	Entry Entry  `json:"entry"`
}

type Summary struct {
	Total      int `json:"total"`
	Banned     int `json:"banned"`
	Restricted int `json:"restricted"`
	Monitored  int `json:"monitored"`
	Safe       int `json:"safe"`
	RiskScore  int `json:"riskScore"`
}

type BulkResult struct {
	Banned     []string `json:"banned"`
	Restricted []string `json:"restricted"`
	Monitored  []string `json:"monitored"`
	Safe       []string `json:"safe"`
	Matches    []Match  `json:"matches"`
	Summary    Summary  `json:"summary"`
}

type Stats struct {
	Name         string       `json:"name"`
	Total        int          `json:"total"`
	CountsByTier map[Tier]int `json:"countsByTier"`
}

// Immutable lookup table for one kind of token. Safe for concurrent use; nothing mutates it after NewDatabase returns.
type Database struct {
	kind      Kind
	platforms *platform.Registry
	byToken   map[string][]Entry
	counts    map[Tier]int
	total     int
	// longest entry, in words (terms only)
	maxWords int
}

// Builds a database. Entries with an unknown tier or an empty (post-normalization) token are skipped; entries with no platforms apply to all platforms.
func NewDatabase(kind Kind, entries []Entry, platforms *platform.Registry) *Database {
	db := &Database{
		kind:      kind,
		platforms: platforms,
		byToken:   make(map[string][]Entry, len(entries)),
		counts:    make(map[Tier]int, len(tierRank)),
	}
	for _, e := range entries {
		if !e.Tier.Valid() {
			continue
		}
		tok := db.Normalize(e.Token)
		if tok == "" {
			continue
		}
		e.Token = tok
		if len(e.Platforms) == 0 {
			e.Platforms = []string{platform.All}
		} else {
			e.Platforms = append([]string(nil), e.Platforms...)
		}
		db.byToken[tok] = append(db.byToken[tok], e)
		db.maxWords = max(db.maxWords, strings.Count(tok, " ")+1)
		db.counts[e.Tier]++
		db.total++
	}
	return db
}

func (db *Database) Kind() Kind {
	return db.kind
}

// Canonical form of a token for this database kind. Returns empty string for tokens which can't be matched at all.
func (db *Database) Normalize(tok string) string {
	switch db.kind {
	case KindHashtags:
		return keyword.NormalizeHashtag(tok)
	case KindMentions:
		return keyword.NormalizeMention(tok)
	case KindLinks:
		return helpers.LinkHost(tok)
	case KindTerms:
		return strings.Join(keyword.TokenizeTextKeepingSigils(tok), " ")
	case KindEmojis:
		return normalizeEmoji(tok)
	default:
		return strings.ToLower(strings.TrimSpace(tok))
	}
}

// Finds the entry for an already-normalized token on a platform. When several entries apply, the most severe wins. Link hosts fall back to parent domains, most specific first.
func (db *Database) Lookup(tok, platformID string) (Entry, bool) {
	platformID = canonicalPlatform(db.platforms, platformID)
	if db.kind != KindLinks {
		return db.lookupExact(tok, platformID)
	}
	host := tok
	for {
		if e, ok := db.lookupExact(host, platformID); ok {
			return e, true
		}
		_, parent, found := strings.Cut(host, ".")
		if !found || !strings.Contains(parent, ".") {
			return Entry{}, false
		}
		host = parent
	}
}

func (db *Database) lookupExact(tok, platformID string) (Entry, bool) {
	var best Entry
	found := false
	for _, e := range db.byToken[tok] {
		if !e.appliesTo(platformID) {
			continue
		}
		if !found || tierRank[e.Tier] < tierRank[best.Tier] {
			best = e
			found = true
		}
	}
	return best, found
}

// Partitions tokens in to tiers for a platform. Tokens are normalized and de-duplicated (first occurrence wins); anything without an applicable entry is safe. Summary counts and the risk score depend only on the set of tokens and the platform; the per-tier slices and Matches keep first-occurrence order of the input.
func (db *Database) CheckBulk(tokens []string, platformID string) BulkResult {
	platformID = canonicalPlatform(db.platforms, platformID)
	res := BulkResult{
		Banned:     []string{},
		Restricted: []string{},
		Monitored:  []string{},
		Safe:       []string{},
		Matches:    []Match{},
	}
	seen := make(map[string]bool, len(tokens))
	score := 0
	for _, raw := range tokens {
		tok := db.Normalize(raw)
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		res.Summary.Total++

		e, ok := db.Lookup(tok, platformID)
		if !ok {
			e.Tier = TierSafe
		}
		switch e.Tier {
		case TierBanned:
			res.Banned = append(res.Banned, tok)
			res.Summary.Banned++
		case TierRestricted:
			res.Restricted = append(res.Restricted, tok)
			res.Summary.Restricted++
		case TierMonitored:
			res.Monitored = append(res.Monitored, tok)
			res.Summary.Monitored++
		default:
			res.Safe = append(res.Safe, tok)
			res.Summary.Safe++
		}
		if ok && e.Tier != TierSafe {
			res.Matches = append(res.Matches, Match{Token: tok, Entry: e})
		}
		score += e.Tier.Weight()
	}
	res.Summary.RiskScore = min(score, 100)
	return res
}

func (db *Database) Stats() Stats {
	counts := make(map[Tier]int, len(tierRank))
	for t := range tierRank {
		counts[t] = db.counts[t]
	}
	return Stats{
		Name:         string(db.kind),
		Total:        db.total,
		CountsByTier: counts,
	}
}

func canonicalPlatform(reg *platform.Registry, id string) string {
	if reg != nil {
		if a, ok := reg.Lookup(id); ok {
			return a.ID()
		}
	}
	return strings.ToLower(strings.TrimSpace(id))
}
