// Per-platform URL recognition, canonicalization, and lexical extraction.
//
// Each supported platform is described by an Adapter. The built-in adapters are table-driven (see spec.go): host aliases, path patterns, and which token kinds (hashtags, cashtags, mentions) the platform actually uses.
package platform

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const (
	URLTypeProfile = "profile"
	URLTypePost    = "post"
	URLTypeOther   = "other"
)

// Platform identifier used in signal database entries that apply everywhere.
const All = "all"

// Result of classifying a URL. Never returned with an error; invalid input has Valid=false and a human-readable Error.
type URLInfo struct {
	Type      string `json:"type"`
	Valid     bool   `json:"valid"`
	Username  string `json:"username,omitempty"`
	PostID    string `json:"postId,omitempty"`
	Subreddit string `json:"subreddit,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Tokens extracted from free text. Kinds a platform doesn't support are always empty.
type Content struct {
	Hashtags []string `json:"hashtags"`
	Cashtags []string `json:"cashtags"`
	Mentions []string `json:"mentions"`
	URLs     []string `json:"urls"`
}

// Thresholds above which content starts to look spammy on a given platform.
type Limits struct {
	MaxHashtags int `json:"maxHashtags"`
	MaxMentions int `json:"maxMentions"`
	MaxEmojis   int `json:"maxEmojis"`
}

type Adapter interface {
	ID() string
	Name() string
	SupportsCashtags() bool
	Limits() Limits
	// True if the host (or a URL on it) belongs to this platform.
	OwnsHost(host string) bool
	GetURLType(raw string) URLInfo
	GetCanonicalURL(raw string) string
	ExtractContent(text string) Content
}

// Lookup table of adapters, by platform identifier and host.
type Registry struct {
	adapters map[string]Adapter
	aliases  map[string]string
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{
		adapters: make(map[string]Adapter, len(adapters)),
		aliases:  make(map[string]string),
	}
	for _, a := range adapters {
		r.adapters[a.ID()] = a
	}
	return r
}

// Registry with every built-in platform.
func DefaultRegistry() *Registry {
	r := NewRegistry(
		newAdapter(twitterSpec),
		newAdapter(instagramSpec),
		newAdapter(tiktokSpec),
		newAdapter(redditSpec),
		newAdapter(youtubeSpec),
		newAdapter(blueskySpec),
	)
	r.aliases["x"] = "twitter"
	r.aliases["ig"] = "instagram"
	r.aliases["yt"] = "youtube"
	r.aliases["bsky"] = "bluesky"
	return r
}

// Resolves a platform identifier (case-insensitive, aliases allowed).
func (r *Registry) Lookup(id string) (Adapter, bool) {
	id = strings.ToLower(strings.TrimSpace(id))
	if canon, ok := r.aliases[id]; ok {
		id = canon
	}
	a, ok := r.adapters[id]
	return a, ok
}

// Finds the platform owning a URL's host.
func (r *Registry) Detect(raw string) (Adapter, bool) {
	u, err := parseLenient(raw)
	if err != nil {
		return nil, false
	}
	host := u.Hostname()
	for _, id := range r.IDs() {
		a := r.adapters[id]
		if a.OwnsHost(host) {
			return a, true
		}
	}
	return nil, false
}

// Sorted platform identifiers.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Limits for a platform, falling back to conservative defaults for unknown identifiers.
func (r *Registry) LimitsFor(id string) Limits {
	if a, ok := r.Lookup(id); ok {
		return a.Limits()
	}
	return DefaultLimits
}

// Used for unknown platforms.
var DefaultLimits = Limits{MaxHashtags: 5, MaxMentions: 5, MaxEmojis: 6}

func parseLenient(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("URL has no host")
	}
	return u, nil
}
