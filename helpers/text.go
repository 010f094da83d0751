package helpers

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/spaolacci/murmur3"
)

func DedupeStrings(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range in {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}

// Like DedupeStrings, but compares case-insensitively and keeps the first spelling seen.
func DedupeFold(in []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, v := range in {
		k := strings.ToLower(v)
		if !seen[k] {
			out = append(out, v)
			seen[k] = true
		}
	}
	return out
}

// returns a fast, compact hash of a string
//
// current implementation uses murmur3, default seed, and hex encoding
func HashOfString(s string) string {
	val := murmur3.Sum64([]byte(s))
	return fmt.Sprintf("%016x", val)
}

// based on: https://stackoverflow.com/a/48769624, with no trailing period allowed
var urlRegex = regexp.MustCompile(`(?:(?:https?|ftp):\/\/)?[\w/\-?=%.]+\.[\w/\-&?=%.]*[\w/\-&?=%]+`)

var tldRegex = regexp.MustCompile(`^[a-z]{2,24}$`)

func ExtractTextURLs(raw string) []string {
	return urlRegex.FindAllString(raw, -1)
}

// Like ExtractTextURLs, but drops candidates which don't parse as a URL with a plausible hostname (eg, "e.g" or "v1.2").
func ExtractLinks(raw string) []string {
	var out []string
	for _, cand := range ExtractTextURLs(raw) {
		if LinkHost(cand) == "" {
			continue
		}
		out = append(out, cand)
	}
	return DedupeStrings(out)
}

// Returns the lower-cased hostname of a URL or bare domain, with any "www." prefix removed. Returns empty string if the input doesn't look like a link.
func LinkHost(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	parts := strings.Split(host, ".")
	if len(parts) < 2 || !tldRegex.MatchString(parts[len(parts)-1]) {
		return ""
	}
	for _, p := range parts {
		if p == "" {
			return ""
		}
	}
	return host
}
