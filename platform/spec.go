package platform

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	atMentionPattern     = regexp.MustCompile(`@([A-Za-z0-9_]{1,30})`)
	dottedMentionPattern = regexp.MustCompile(`@([A-Za-z0-9_.]{1,30})`)
	handleMentionPattern = regexp.MustCompile(`@([A-Za-z0-9][A-Za-z0-9.-]{0,252}[A-Za-z0-9])`)
	redditMentionPattern = regexp.MustCompile(`/?u/([A-Za-z0-9_-]{3,20})`)
)

var twitterSpec = adapterSpec{
	ID:            "twitter",
	Name:          "X (Twitter)",
	CanonicalHost: "x.com",
	Hosts:         []string{"x.com", "twitter.com", "mobile.twitter.com", "mobile.x.com", "m.twitter.com", "fxtwitter.com", "vxtwitter.com", "fixupx.com", "nitter.net"},
	Routes: []route{
		{Pattern: regexp.MustCompile(`^/(?P<user>[A-Za-z0-9_]{1,15})/status(?:es)?/(?P<post>[0-9]{1,20})(?:/.*)?$`), Type: URLTypePost},
		{Pattern: regexp.MustCompile(`^/i/web/status/(?P<post>[0-9]{1,20})$`), Type: URLTypePost},
		{Pattern: regexp.MustCompile(`^/(?P<user>[A-Za-z0-9_]{1,15})(?:/(?:with_replies|media|likes|highlights))?$`), Type: URLTypeProfile},
	},
	Reserved:       []string{"home", "explore", "search", "i", "settings", "notifications", "messages", "hashtag", "login", "signup", "tos", "privacy", "compose", "intent", "share"},
	Hashtags:       true,
	Cashtags:       true,
	MentionPattern: atMentionPattern,
	Limits:         Limits{MaxHashtags: 3, MaxMentions: 5, MaxEmojis: 5},
}

var instagramSpec = adapterSpec{
	ID:            "instagram",
	Name:          "Instagram",
	CanonicalHost: "www.instagram.com",
	Hosts:         []string{"instagram.com", "m.instagram.com", "instagr.am", "ddinstagram.com"},
	Routes: []route{
		{Pattern: regexp.MustCompile(`^/(?:p|reel|reels|tv)/(?P<post>[A-Za-z0-9_-]{5,40})$`), Type: URLTypePost},
		{Pattern: regexp.MustCompile(`^/(?P<user>[A-Za-z0-9_.]{1,30})/(?:p|reel)/(?P<post>[A-Za-z0-9_-]{5,40})$`), Type: URLTypePost},
		{Pattern: regexp.MustCompile(`^/(?P<user>[A-Za-z0-9_.]{1,30})(?:/(?:tagged|reels))?$`), Type: URLTypeProfile},
	},
	Reserved:       []string{"explore", "accounts", "direct", "stories", "about", "legal", "developer", "p", "reel", "reels", "tv"},
	Hashtags:       true,
	MentionPattern: dottedMentionPattern,
	Limits:         Limits{MaxHashtags: 20, MaxMentions: 10, MaxEmojis: 10},
}

var tiktokSpec = adapterSpec{
	ID:            "tiktok",
	Name:          "TikTok",
	CanonicalHost: "www.tiktok.com",
	Hosts:         []string{"tiktok.com", "m.tiktok.com", "vm.tiktok.com", "vt.tiktok.com"},
	Routes: []route{
		{Pattern: regexp.MustCompile(`^/@(?P<user>[A-Za-z0-9_.]{1,24})/(?:video|photo)/(?P<post>[0-9]{5,25})$`), Type: URLTypePost},
		{Pattern: regexp.MustCompile(`^/@(?P<user>[A-Za-z0-9_.]{1,24})$`), Type: URLTypeProfile},
		{Pattern: regexp.MustCompile(`^/v/(?P<post>[0-9]{5,25})(?:\.html)?$`), Type: URLTypePost},
	},
	Hashtags:       true,
	MentionPattern: dottedMentionPattern,
	Limits:         Limits{MaxHashtags: 8, MaxMentions: 8, MaxEmojis: 8},
}

var redditSpec = adapterSpec{
	ID:            "reddit",
	Name:          "Reddit",
	CanonicalHost: "www.reddit.com",
	Hosts:         []string{"reddit.com", "old.reddit.com", "new.reddit.com", "np.reddit.com", "m.reddit.com", "i.reddit.com", "redd.it"},
	Routes: []route{
		{Pattern: regexp.MustCompile(`^/(?P<post>[a-z0-9]{4,12})$`), Type: URLTypePost, Hosts: []string{"redd.it"}},
		{Pattern: regexp.MustCompile(`^/r/(?P<sub>[A-Za-z0-9_]{2,21})/comments/(?P<post>[a-z0-9]{4,12})(?:/.*)?$`), Type: URLTypePost},
		{Pattern: regexp.MustCompile(`^/r/(?P<sub>[A-Za-z0-9_]{2,21})(?:/(?:hot|new|top|rising))?$`), Type: URLTypeOther},
		{Pattern: regexp.MustCompile(`^/(?:user|u)/(?P<user>[A-Za-z0-9_-]{3,20})(?:/(?:submitted|comments|overview))?$`), Type: URLTypeProfile},
	},
	KeepQuery:      []string{},
	MentionPattern: redditMentionPattern,
	Rewrite: func(host string, u *url.URL) {
		if host == "redd.it" {
			u.Path = "/comments" + u.Path
		}
	},
	Limits: Limits{MaxHashtags: 2, MaxMentions: 3, MaxEmojis: 3},
}

var youtubeSpec = adapterSpec{
	ID:            "youtube",
	Name:          "YouTube",
	CanonicalHost: "www.youtube.com",
	Hosts:         []string{"youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be", "youtube-nocookie.com"},
	Routes: []route{
		{Pattern: regexp.MustCompile(`^/(?P<post>[A-Za-z0-9_-]{6,20})$`), Type: URLTypePost, Hosts: []string{"youtu.be"}},
		{Pattern: regexp.MustCompile(`^/watch$`), Type: URLTypePost, PostParam: "v"},
		{Pattern: regexp.MustCompile(`^/(?:shorts|live|embed)/(?P<post>[A-Za-z0-9_-]{6,20})$`), Type: URLTypePost},
		{Pattern: regexp.MustCompile(`^/@(?P<user>[A-Za-z0-9_.-]{3,30})(?:/(?:videos|shorts|streams|about|featured))?$`), Type: URLTypeProfile},
		{Pattern: regexp.MustCompile(`^/(?:c|user|channel)/(?P<user>[A-Za-z0-9_.-]{1,64})(?:/(?:videos|about|featured))?$`), Type: URLTypeProfile},
	},
	KeepQuery: []string{"v"},
	Rewrite: func(host string, u *url.URL) {
		switch {
		case host == "youtu.be":
			id := strings.Trim(u.Path, "/")
			u.Path = "/watch"
			u.RawQuery = url.Values{"v": []string{id}}.Encode()
		case strings.HasPrefix(u.Path, "/shorts/"), strings.HasPrefix(u.Path, "/embed/"), strings.HasPrefix(u.Path, "/live/"):
			parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 3)
			if len(parts) >= 2 && parts[1] != "" {
				u.Path = "/watch"
				u.RawQuery = url.Values{"v": []string{parts[1]}}.Encode()
			}
		}
	},
	Hashtags:       true,
	MentionPattern: atMentionPattern,
	Limits:         Limits{MaxHashtags: 15, MaxMentions: 5, MaxEmojis: 6},
}

var blueskySpec = adapterSpec{
	ID:            "bluesky",
	Name:          "Bluesky",
	CanonicalHost: "bsky.app",
	Hosts:         []string{"bsky.app", "staging.bsky.app", "main.bsky.dev", "bskye.app"},
	Routes: []route{
		{Pattern: regexp.MustCompile(`^/profile/(?P<user>[A-Za-z0-9.:_-]{3,253})/post/(?P<post>[A-Za-z0-9]{8,20})$`), Type: URLTypePost},
		{Pattern: regexp.MustCompile(`^/profile/(?P<user>[A-Za-z0-9.:_-]{3,253})$`), Type: URLTypeProfile},
	},
	Hashtags:       true,
	MentionPattern: handleMentionPattern,
	Limits:         Limits{MaxHashtags: 5, MaxMentions: 6, MaxEmojis: 6},
}
