package countstore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodBucket(t *testing.T) {
	assert := assert.New(t)
	now := time.Date(2024, 3, 9, 17, 42, 0, 0, time.FixedZone("PST", -8*3600))

	fixtures := []struct {
		period string
		bucket string
	}{
		{period: PeriodTotal, bucket: "checks/abc"},
		{period: PeriodDay, bucket: "checks/abc/2024-03-10"},
		{period: PeriodHour, bucket: "checks/abc/2024-03-10T01"},
	}
	for _, f := range fixtures {
		p, err := lookupPeriod(f.period)
		assert.NoError(err)
		assert.Equal(f.bucket, p.bucket("checks", "abc", now), f.period)
	}

	_, err := lookupPeriod("fortnight")
	assert.Error(err)
}

func TestMemCountStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	cs := NewMemCountStore()
	fp := "text:twitter:abc"

	c, err := cs.GetCount(ctx, CounterChecks, fp, PeriodTotal)
	assert.NoError(err)
	assert.Equal(0, c)

	for i := 0; i < 3; i++ {
		assert.NoError(cs.Increment(ctx, CounterChecks, fp))
	}
	for _, p := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		c, err = cs.GetCount(ctx, CounterChecks, fp, p)
		assert.NoError(err)
		assert.Equal(3, c, p)
	}

	// distinct values counted once, per bucket
	acct := "twitter:someone"
	for _, v := range []string{"one", "one", "two", "one", "three"} {
		assert.NoError(cs.IncrementDistinct(ctx, CounterAccountContent, acct, v))
	}
	for _, p := range []string{PeriodTotal, PeriodDay, PeriodHour} {
		c, err = cs.GetCountDistinct(ctx, CounterAccountContent, acct, p)
		assert.NoError(err)
		assert.Equal(3, c, p)
	}
	c, err = cs.GetCountDistinct(ctx, CounterAccountContent, "twitter:other", PeriodHour)
	assert.NoError(err)
	assert.Equal(0, c)

	_, err = cs.GetCount(ctx, CounterChecks, fp, "fortnight")
	assert.Error(err)
}

func TestMemCountStoreExpiry(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	now := time.Date(2024, 3, 9, 10, 15, 0, 0, time.UTC)
	cs := NewMemCountStore()
	cs.now = func() time.Time { return now }

	require.NoError(cs.Increment(ctx, CounterChecks, "fp"))
	require.NoError(cs.Increment(ctx, CounterChecks, "fp"))

	// next hour: new hour bucket, same day
	now = now.Add(time.Hour)
	require.NoError(cs.Increment(ctx, CounterChecks, "fp"))
	c, _ := cs.GetCount(ctx, CounterChecks, "fp", PeriodHour)
	assert.Equal(1, c)
	c, _ = cs.GetCount(ctx, CounterChecks, "fp", PeriodDay)
	assert.Equal(3, c)

	// well past the day bucket's lifetime; the month-long total survives
	now = now.Add(72 * time.Hour)
	c, _ = cs.GetCount(ctx, CounterChecks, "fp", PeriodDay)
	assert.Equal(0, c)
	c, _ = cs.GetCount(ctx, CounterChecks, "fp", PeriodTotal)
	assert.Equal(3, c)

	now = now.Add(31 * 24 * time.Hour)
	c, _ = cs.GetCount(ctx, CounterChecks, "fp", PeriodTotal)
	assert.Equal(0, c)
}

func TestMemCountStoreSweep(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	now := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)
	cs := NewMemCountStore()
	cs.now = func() time.Time { return now }

	// hourly writes for 40 days; nothing reads the old hour and day buckets back
	for i := 0; i < 40*24; i++ {
		require.NoError(cs.Increment(ctx, CounterChecks, "fp"))
		now = now.Add(time.Hour)
	}

	cs.mu.Lock()
	n := len(cs.buckets)
	cs.mu.Unlock()
	// at most: three hour buckets, two or three day buckets, one total
	assert.LessOrEqual(n, 7)

	c, err := cs.GetCount(ctx, CounterChecks, "fp", PeriodTotal)
	assert.NoError(err)
	assert.Equal(40*24, c)
}

func TestMemCountStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	cs := NewMemCountStore()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				assert.NoError(cs.Increment(ctx, CounterChecks, "shared"))
				assert.NoError(cs.IncrementDistinct(ctx, CounterAccountContent, "acct", fmt.Sprintf("%d-%d", w, i%5)))
				_, err := cs.GetCount(ctx, CounterChecks, "shared", PeriodHour)
				assert.NoError(err)
			}
		}(w)
	}
	wg.Wait()

	c, err := cs.GetCount(ctx, CounterChecks, "shared", PeriodTotal)
	assert.NoError(err)
	assert.Equal(200, c)
	c, err = cs.GetCountDistinct(ctx, CounterAccountContent, "acct", PeriodTotal)
	assert.NoError(err)
	assert.Equal(40, c)
}

func TestRedisCountStoreBasics(t *testing.T) {
	t.Skip("live test, need redis running locally")
	assert := assert.New(t)
	ctx := context.Background()

	cs, err := NewRedisCountStore("redis://localhost:6379/0")
	if err != nil {
		t.Fatal(err)
	}
	before, err := cs.GetCount(ctx, CounterChecks, "live-test", PeriodHour)
	assert.NoError(err)
	assert.NoError(cs.Increment(ctx, CounterChecks, "live-test"))
	after, err := cs.GetCount(ctx, CounterChecks, "live-test", PeriodHour)
	assert.NoError(err)
	assert.Equal(before+1, after)
}
