package check

import (
	"errors"
	"testing"

	"github.com/shadowcheck/shadowcheck/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	assert := assert.New(t)
	reg := platform.DefaultRegistry()

	req, err := Build(Input{Platform: "X", Text: "hello #f4f see bit.ly/abc"}, reg)
	require.NoError(t, err)
	assert.Equal(KindText, req.Kind)
	assert.Equal("twitter", req.Platform)
	assert.Equal([]string{"f4f"}, req.Content.Hashtags)
	assert.Equal([]string{"bit.ly/abc"}, req.URLs)
	assert.Equal("", req.Identifier())

	req, err = Build(Input{URL: "https://mobile.twitter.com/Jack/status/20?s=20"}, reg)
	require.NoError(t, err)
	assert.Equal(KindPost, req.Kind)
	assert.Equal("twitter", req.Platform)
	assert.Equal("https://x.com/Jack/status/20", req.URL)
	assert.Equal("jack", req.Username)
	assert.Equal("20", req.PostID)
	assert.Equal("20", req.Identifier())
	assert.Empty(req.URLs)

	req, err = Build(Input{URL: "https://www.instagram.com/some.user/"}, reg)
	require.NoError(t, err)
	assert.Equal(KindAccount, req.Kind)
	assert.Equal("instagram", req.Platform)
	assert.Equal("some.user", req.Identifier())

	req, err = Build(Input{Platform: "reddit", Username: "u/Spez"}, reg)
	require.NoError(t, err)
	assert.Equal(KindAccount, req.Kind)
	assert.Equal("spez", req.Username)

	req, err = Build(Input{URL: "https://old.reddit.com/r/golang/comments/abc123/title"}, reg)
	require.NoError(t, err)
	assert.Equal(KindPost, req.Kind)
	assert.Equal("golang", req.Subreddit)
	assert.Equal("abc123", req.PostID)

	// explicit values win over the URL
	req, err = Build(Input{Kind: KindText, Platform: "twitter", URL: "https://x.com/jack", Text: "gm", URLs: []string{"https://a.example/x", " ", "https://a.example/x"}}, reg)
	require.NoError(t, err)
	assert.Equal(KindText, req.Kind)
	assert.Equal("jack", req.Username)
	assert.Equal([]string{"https://a.example/x"}, req.URLs)
}

func TestBuildValidation(t *testing.T) {
	assert := assert.New(t)
	reg := platform.DefaultRegistry()

	fixtures := []struct {
		in    Input
		field string
	}{
		{in: Input{}, field: "request"},
		{in: Input{Platform: "twitter", Text: "   "}, field: "request"},
		{in: Input{Kind: "video", Platform: "twitter", Text: "hi"}, field: "kind"},
		{in: Input{Platform: "myspace", Text: "hi"}, field: "platform"},
		{in: Input{Text: "no platform here"}, field: "platform"},
		{in: Input{URL: "https://example.com/jack"}, field: "url"},
		{in: Input{URL: "http://[::1"}, field: "url"},
		{in: Input{Platform: "twitter", URL: "https://www.instagram.com/some.user/"}, field: "url"},
		{in: Input{Kind: KindAccount, Platform: "twitter", Text: "hi"}, field: "username"},
		{in: Input{Kind: KindPost, Platform: "twitter", Text: "hi"}, field: "postId"},
		{in: Input{Kind: KindText, Platform: "twitter", Username: "jack"}, field: "text"},
	}
	for _, fix := range fixtures {
		req, err := Build(fix.in, reg)
		assert.Nil(req)
		if !assert.Error(err, fix.field) {
			continue
		}
		assert.True(errors.Is(err, ErrValidation))
		var verr *ValidationError
		if assert.True(errors.As(err, &verr)) {
			assert.Equal(fix.field, verr.Field)
			assert.NotEmpty(verr.Reason)
		}
	}
}
