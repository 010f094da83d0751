package cachestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type cachedLink struct {
	Final string `json:"final"`
	Hops  int    `json:"hops"`
}

func TestMemCacheStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(10, time.Hour)

	v, err := cs.Get(ctx, "link", "https://bit.ly/abc")
	assert.NoError(err)
	assert.Empty(v)

	assert.NoError(cs.Set(ctx, "link", "https://bit.ly/abc", "https://example.com/"))
	v, err = cs.Get(ctx, "link", "https://bit.ly/abc")
	assert.NoError(err)
	assert.Equal("https://example.com/", v)

	assert.NoError(cs.Purge(ctx, "link", "https://bit.ly/abc"))
	v, err = cs.Get(ctx, "link", "https://bit.ly/abc")
	assert.NoError(err)
	assert.Empty(v)
}

func TestMemCacheStoreEviction(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(2, time.Hour)
	assert.NoError(cs.Set(ctx, "link", "a", "1"))
	assert.NoError(cs.Set(ctx, "link", "b", "2"))
	// same key under another name is a separate entry
	assert.NoError(cs.Set(ctx, "other", "a", "3"))

	v, _ := cs.Get(ctx, "link", "a")
	assert.Empty(v)
	v, _ = cs.Get(ctx, "link", "b")
	assert.Equal("2", v)
	v, _ = cs.Get(ctx, "other", "a")
	assert.Equal("3", v)
	assert.Equal(2, cs.Len())

	// non-positive capacity falls back to the default
	assert.Equal(0, NewMemCacheStore(0, time.Hour).Len())
	assert.NoError(NewMemCacheStore(-1, time.Hour).Set(ctx, "link", "a", "1"))

	short := NewMemCacheStore(10, 10*time.Millisecond)
	assert.NoError(short.Set(ctx, "link", "a", "1"))
	time.Sleep(50 * time.Millisecond)
	v, _ = short.Get(ctx, "link", "a")
	assert.Empty(v)
}

func TestCacheJSON(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cs := NewMemCacheStore(10, time.Hour)

	var out cachedLink
	ok, err := GetJSON(ctx, cs, "link", "k", &out)
	assert.NoError(err)
	assert.False(ok)

	assert.NoError(SetJSON(ctx, cs, "link", "k", cachedLink{Final: "https://example.com/", Hops: 2}))
	ok, err = GetJSON(ctx, cs, "link", "k", &out)
	assert.NoError(err)
	assert.True(ok)
	assert.Equal(cachedLink{Final: "https://example.com/", Hops: 2}, out)
}

func TestRedisCacheStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	cs, err := NewRedisCacheStore("redis://localhost:6379/0", time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	assert.NoError(cs.Set(ctx, "link", "live-test", "value"))
	v, err := cs.Get(ctx, "link", "live-test")
	assert.NoError(err)
	assert.Equal("value", v)
	assert.NoError(cs.Purge(ctx, "link", "live-test"))
}
