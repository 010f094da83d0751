// Check requests: the unit of work handed to every agent.
//
// Callers fill in an Input (as received over HTTP or the CLI), and Build validates it, resolves the platform, and extracts content through the platform adapter. A Request is never modified after Build returns.
package check

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shadowcheck/shadowcheck/helpers"
	"github.com/shadowcheck/shadowcheck/keyword"
	"github.com/shadowcheck/shadowcheck/platform"
)

type Kind string

const (
	KindText    Kind = "text"
	KindPost    Kind = "post"
	KindAccount Kind = "account"
)

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindPost, KindAccount:
		return true
	}
	return false
}

var ErrValidation = errors.New("invalid check request")

// Returned by Build for malformed or unresolvable input. Matches ErrValidation with errors.Is.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Raw request, as received from a caller. Kind and Platform may be left empty and are then inferred from URL.
type Input struct {
	Kind      Kind     `json:"kind,omitempty"`
	Platform  string   `json:"platform,omitempty"`
	Text      string   `json:"text,omitempty"`
	URL       string   `json:"url,omitempty"`
	URLs      []string `json:"urls,omitempty"`
	Username  string   `json:"username,omitempty"`
	PostID    string   `json:"postId,omitempty"`
	Subreddit string   `json:"subreddit,omitempty"`
}

type Request struct {
	Kind Kind `json:"kind"`
	// canonical platform identifier (eg, "twitter", never "x")
	Platform  string   `json:"platform"`
	Text      string   `json:"text,omitempty"`
	URL       string   `json:"url,omitempty"`
	URLs      []string `json:"urls"`
	Username  string   `json:"username,omitempty"`
	PostID    string   `json:"postId,omitempty"`
	Subreddit string   `json:"subreddit,omitempty"`

	Content platform.Content `json:"content"`
	Adapter platform.Adapter `json:"-"`
}

// Validates input and resolves it to a Request. All failures are *ValidationError.
func Build(in Input, platforms *platform.Registry) (*Request, error) {
	in.Platform = strings.TrimSpace(in.Platform)
	in.Text = strings.TrimSpace(in.Text)
	in.URL = strings.TrimSpace(in.URL)
	in.Username = keyword.NormalizeMention(in.Username)
	in.PostID = strings.TrimSpace(in.PostID)
	in.Subreddit = strings.TrimPrefix(strings.TrimSpace(in.Subreddit), "r/")

	if in.Kind != "" && !in.Kind.Valid() {
		return nil, invalid("kind", "unknown request kind %q", in.Kind)
	}
	if in.Text == "" && in.URL == "" && len(in.URLs) == 0 && in.Username == "" && in.PostID == "" {
		return nil, invalid("request", "nothing to check")
	}

	var adapter platform.Adapter
	switch {
	case in.Platform != "":
		a, ok := platforms.Lookup(in.Platform)
		if !ok {
			return nil, invalid("platform", "unsupported platform %q", in.Platform)
		}
		adapter = a
	case in.URL != "":
		a, ok := platforms.Detect(in.URL)
		if !ok {
			return nil, invalid("url", "not a recognized platform URL: %s", in.URL)
		}
		adapter = a
	default:
		return nil, invalid("platform", "platform is required when no URL is given")
	}

	req := &Request{
		Kind:      in.Kind,
		Platform:  adapter.ID(),
		Text:      in.Text,
		Username:  in.Username,
		PostID:    in.PostID,
		Subreddit: in.Subreddit,
		Adapter:   adapter,
	}

	urlType := ""
	if in.URL != "" {
		info := adapter.GetURLType(in.URL)
		if !info.Valid {
			return nil, invalid("url", "%s", info.Error)
		}
		urlType = info.Type
		req.URL = adapter.GetCanonicalURL(in.URL)
		if req.Username == "" {
			req.Username = keyword.NormalizeMention(info.Username)
		}
		if req.PostID == "" {
			req.PostID = info.PostID
		}
		if req.Subreddit == "" {
			req.Subreddit = info.Subreddit
		}
	}

	if req.Kind == "" {
		switch {
		case urlType == platform.URLTypePost || (req.PostID != "" && req.Text == ""):
			req.Kind = KindPost
		case urlType == platform.URLTypeProfile || (req.Username != "" && req.Text == "" && len(in.URLs) == 0):
			req.Kind = KindAccount
		default:
			req.Kind = KindText
		}
	}

	switch req.Kind {
	case KindAccount:
		if req.Username == "" {
			return nil, invalid("username", "account checks need a username or profile URL")
		}
	case KindPost:
		if req.PostID == "" && req.URL == "" {
			return nil, invalid("postId", "post checks need a post ID or post URL")
		}
	case KindText:
		if req.Text == "" && req.URL == "" && len(in.URLs) == 0 {
			return nil, invalid("text", "text checks need text or links")
		}
	}

	req.Content = adapter.ExtractContent(req.Text)
	urls := make([]string, 0, len(in.URLs)+len(req.Content.URLs))
	for _, u := range in.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	urls = append(urls, req.Content.URLs...)
	req.URLs = helpers.DedupeStrings(urls)
	if req.URLs == nil {
		req.URLs = []string{}
	}
	return req, nil
}

// The most specific identifier for this request, for logging and fingerprints. Empty for anonymous text.
func (r *Request) Identifier() string {
	switch r.Kind {
	case KindAccount:
		return r.Username
	case KindPost:
		if r.PostID != "" {
			return r.PostID
		}
		return r.URL
	}
	return ""
}
