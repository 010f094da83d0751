// Bounded per-entity check history, and trend analysis over it.
//
// Each entity (an account, a post, or an anonymous piece of text) has a fingerprint, and each fingerprint a bucket of past check outcomes. Buckets are ring buffers: once they hold MaxItems records, appending evicts the oldest.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shadowcheck/shadowcheck/check"
	"github.com/shadowcheck/shadowcheck/helpers"
	"github.com/shadowcheck/shadowcheck/keyword"
)

const DefaultMaxItems = 100

// One past check outcome for an entity.
type Record struct {
	Key        string    `json:"key"`
	Timestamp  time.Time `json:"timestamp"`
	Score      int       `json:"score"`
	Confidence int       `json:"confidence"`
	Verdict    string    `json:"verdict,omitempty"`
	Flags      []string  `json:"flags"`
}

// Concurrent appends to the same key are serialized by implementations, but there is no atomic read-then-append across calls.
type Store interface {
	// Appends to the record's bucket, evicting the oldest records beyond the store's limit.
	Append(ctx context.Context, rec Record) error
	// Records for a key, oldest first. Unknown keys return an empty slice.
	Get(ctx context.Context, key string) ([]Record, error)
}

// Returns the bucket key for a request: "account:<platform>:<username>", "post:<platform>:<post id>", or "text:<platform>:<hash>" for anonymous text. Text is normalized before hashing (see NormalizeText), so case, punctuation, and spacing differences land in the same bucket.
func Fingerprint(req *check.Request) string {
	switch req.Kind {
	case check.KindAccount:
		if req.Username != "" {
			return fmt.Sprintf("account:%s:%s", req.Platform, strings.ToLower(req.Username))
		}
	case check.KindPost:
		if req.PostID != "" {
			return fmt.Sprintf("post:%s:%s", req.Platform, req.PostID)
		}
		if req.URL != "" {
			return fmt.Sprintf("post:%s:%s", req.Platform, helpers.HashOfString(req.URL))
		}
	}
	norm := NormalizeText(req.Text)
	if norm == "" {
		norm = strings.Join(req.URLs, " ")
	}
	return fmt.Sprintf("text:%s:%s", req.Platform, helpers.HashOfString(norm))
}

// Comparable form of free text: its word tokens, space separated. Text with no word tokens at all (emoji, symbols) keeps its characters, lowercased with runs of whitespace collapsed, so different emoji-only posts stay distinct.
func NormalizeText(text string) string {
	if norm := strings.Join(keyword.TokenizeText(text), " "); norm != "" {
		return norm
	}
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// Keeps the most recent max records, in order.
func truncate(records []Record, limit int) []Record {
	if limit <= 0 || len(records) <= limit {
		return records
	}
	out := make([]Record, limit)
	copy(out, records[len(records)-limit:])
	return out
}
