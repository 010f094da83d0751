// Static signal databases: hashtags, link domains, phrases, mentions, and emojis, each classified in to risk tiers per platform.
//
// Databases are built once and never mutated, so they can be shared by every concurrent check. Extra entries can be layered on top of the built-in tables from a JSON file at startup.
package signals

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shadowcheck/shadowcheck/platform"
)

// All the databases used by a check.
type Set struct {
	Hashtags *Database
	Links    *Database
	Terms    *Database
	Mentions *Database
	Emojis   *Database
}

func NewSet(tables map[Kind][]Entry, platforms *platform.Registry) *Set {
	return &Set{
		Hashtags: NewDatabase(KindHashtags, tables[KindHashtags], platforms),
		Links:    NewDatabase(KindLinks, tables[KindLinks], platforms),
		Terms:    NewDatabase(KindTerms, tables[KindTerms], platforms),
		Mentions: NewDatabase(KindMentions, tables[KindMentions], platforms),
		Emojis:   NewDatabase(KindEmojis, tables[KindEmojis], platforms),
	}
}

// Set built from the built-in tables only.
func Default(platforms *platform.Registry) *Set {
	return NewSet(BuiltinEntries(), platforms)
}

func (s *Set) Get(kind Kind) *Database {
	switch kind {
	case KindHashtags:
		return s.Hashtags
	case KindLinks:
		return s.Links
	case KindTerms:
		return s.Terms
	case KindMentions:
		return s.Mentions
	case KindEmojis:
		return s.Emojis
	}
	return nil
}

// Stats for every database, in AllKinds order. Nil databases are skipped.
func (s *Set) Stats() []Stats {
	out := make([]Stats, 0, len(AllKinds))
	for _, k := range AllKinds {
		if db := s.Get(k); db != nil {
			out = append(out, db.Stats())
		}
	}
	return out
}

// Reads a JSON file of extra entries, shaped like {"hashtags": [{"token": "...", "tier": "banned", "platforms": ["all"], "category": "..."}], ...}.
func LoadEntriesJSON(path string) (map[Kind][]Entry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading signal overrides: %w", err)
	}
	var tables map[Kind][]Entry
	if err := json.Unmarshal(raw, &tables); err != nil {
		return nil, fmt.Errorf("parsing signal overrides %s: %w", path, err)
	}
	for kind, list := range tables {
		if !validKind(kind) {
			return nil, fmt.Errorf("unknown signal database in %s: %q", path, kind)
		}
		for i, e := range list {
			if !e.Tier.Valid() {
				return nil, fmt.Errorf("invalid tier %q for %s entry %d (%q)", e.Tier, kind, i, e.Token)
			}
		}
	}
	return tables, nil
}

// Appends the extra tables on to copies of the base tables.
func MergeEntries(base, extra map[Kind][]Entry) map[Kind][]Entry {
	out := make(map[Kind][]Entry, len(AllKinds))
	for _, k := range AllKinds {
		merged := make([]Entry, 0, len(base[k])+len(extra[k]))
		merged = append(merged, base[k]...)
		merged = append(merged, extra[k]...)
		out[k] = merged
	}
	return out
}

func validKind(k Kind) bool {
	for _, v := range AllKinds {
		if v == k {
			return true
		}
	}
	return false
}
