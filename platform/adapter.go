package platform

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/purell"

	"github.com/shadowcheck/shadowcheck/helpers"
)

// One recognized URL path shape. Named groups "user", "post", and "sub" become identifiers.
type route struct {
	Pattern *regexp.Regexp
	Type    string
	// if set, the route only applies to these hosts (eg, short-link domains)
	Hosts []string
	// if set, the post identifier is read from this query parameter instead of the path
	PostParam string
}

type adapterSpec struct {
	ID            string
	Name          string
	CanonicalHost string
	// every host (without "www.") that serves this platform, including the canonical one
	Hosts  []string
	Routes []route
	// first path segments which look like usernames but aren't
	Reserved []string
	// query parameters that survive canonicalization
	KeepQuery []string
	// optional path rewrite applied to canonical URLs, keyed by source host
	Rewrite func(host string, u *url.URL)

	Hashtags bool
	Cashtags bool
	// nil means the platform has no mention syntax
	MentionPattern *regexp.Regexp
	Limits         Limits
}

type adapter struct {
	spec     adapterSpec
	hosts    map[string]bool
	reserved map[string]bool
}

var _ Adapter = (*adapter)(nil)

func newAdapter(spec adapterSpec) *adapter {
	a := &adapter{
		spec:     spec,
		hosts:    make(map[string]bool, len(spec.Hosts)),
		reserved: make(map[string]bool, len(spec.Reserved)),
	}
	for _, h := range spec.Hosts {
		a.hosts[h] = true
	}
	for _, r := range spec.Reserved {
		a.reserved[r] = true
	}
	return a
}

func (a *adapter) ID() string             { return a.spec.ID }
func (a *adapter) Name() string           { return a.spec.Name }
func (a *adapter) SupportsCashtags() bool { return a.spec.Cashtags }
func (a *adapter) Limits() Limits         { return a.spec.Limits }

func (a *adapter) OwnsHost(host string) bool {
	return a.hosts[bareHost(host)]
}

func bareHost(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if h, _, ok := strings.Cut(host, ":"); ok {
		host = h
	}
	return strings.TrimPrefix(host, "www.")
}

func (a *adapter) GetURLType(raw string) URLInfo {
	u, err := parseLenient(raw)
	if err != nil {
		return URLInfo{Type: URLTypeOther, Valid: false, Error: err.Error()}
	}
	host := bareHost(u.Hostname())
	if !a.hosts[host] {
		return URLInfo{Type: URLTypeOther, Valid: false, Error: "host is not a " + a.spec.Name + " domain: " + host}
	}
	path := strings.TrimRight(u.EscapedPath(), "/")
	if path == "" {
		return URLInfo{Type: URLTypeOther, Valid: true}
	}
	for _, rt := range a.spec.Routes {
		if len(rt.Hosts) > 0 && !containsString(rt.Hosts, host) {
			continue
		}
		m := rt.Pattern.FindStringSubmatch(path)
		if m == nil {
			continue
		}
		info := URLInfo{Type: rt.Type, Valid: true}
		for i, name := range rt.Pattern.SubexpNames() {
			switch name {
			case "user":
				info.Username = m[i]
			case "post":
				info.PostID = m[i]
			case "sub":
				info.Subreddit = m[i]
			}
		}
		if rt.PostParam != "" {
			info.PostID = u.Query().Get(rt.PostParam)
			if info.PostID == "" {
				continue
			}
		}
		if info.Username != "" && a.reserved[strings.ToLower(info.Username)] {
			return URLInfo{Type: URLTypeOther, Valid: true}
		}
		return info
	}
	return URLInfo{Type: URLTypeOther, Valid: true}
}

var canonicalFlags = purell.FlagsUsuallySafeGreedy | purell.FlagRemoveFragment | purell.FlagRemoveDuplicateSlashes | purell.FlagRemoveWWW | purell.FlagSortQuery

func (a *adapter) GetCanonicalURL(raw string) string {
	u, err := parseLenient(raw)
	if err != nil {
		return raw
	}
	host := bareHost(u.Hostname())
	if !a.hosts[host] {
		return NormalizeLossyURL(u.String())
	}
	clean, err := purell.NormalizeURLString(u.String(), canonicalFlags)
	if err != nil {
		return raw
	}
	cu, err := url.Parse(clean)
	if err != nil {
		return raw
	}
	if a.spec.Rewrite != nil {
		a.spec.Rewrite(host, cu)
	}
	params := cu.Query()
	kept := url.Values{}
	for _, k := range a.spec.KeepQuery {
		if v := params.Get(k); v != "" {
			kept.Set(k, v)
		}
	}
	cu.Scheme = "https"
	cu.Host = a.spec.CanonicalHost
	cu.User = nil
	cu.RawQuery = kept.Encode()
	cu.Fragment = ""
	cu.Path = strings.TrimRight(cu.Path, "/")
	cu.RawPath = ""
	return cu.String()
}

func (a *adapter) ExtractContent(text string) Content {
	c := Content{
		Hashtags: []string{},
		Cashtags: []string{},
		Mentions: []string{},
		URLs:     []string{},
	}
	if text == "" {
		return c
	}
	if a.spec.Hashtags {
		c.Hashtags = extractSigil(text, hashtagPattern)
	}
	if a.spec.Cashtags {
		c.Cashtags = extractSigil(text, cashtagPattern)
	}
	if a.spec.MentionPattern != nil {
		for _, m := range extractSigil(text, a.spec.MentionPattern) {
			c.Mentions = append(c.Mentions, strings.TrimRight(m, ".-"))
		}
		c.Mentions = nonNil(helpers.DedupeFold(c.Mentions))
	}
	c.URLs = nonNil(helpers.ExtractLinks(text))
	return c
}

var (
	hashtagPattern = regexp.MustCompile(`[#＃]([\pL\pN_]*[\pL_][\pL\pN_]*)`)
	cashtagPattern = regexp.MustCompile(`\$([A-Za-z]{1,6})\b`)
)

// Finds all matches of a sigil pattern (capture group 1 is the token) which are not glued on to a preceding word, so "a#b" and "me@example.com" don't count.
func extractSigil(text string, re *regexp.Regexp) []string {
	var out []string
	for _, loc := range re.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > 0 {
			prev, _ := utf8.DecodeLastRuneInString(text[:loc[0]])
			if unicode.IsLetter(prev) || unicode.IsNumber(prev) || prev == '_' || prev == '&' || prev == '/' {
				continue
			}
		}
		out = append(out, text[loc[2]:loc[3]])
	}
	return nonNil(helpers.DedupeFold(out))
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func containsString(l []string, s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}
