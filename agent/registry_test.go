package agent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shadowcheck/shadowcheck/check"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fakeAgent struct {
	id    Identity
	fn    func(ctx context.Context) Result
	calls atomic.Int32
}

func (f *fakeAgent) Identity() Identity { return f.id }

func (f *fakeAgent) Analyze(ctx context.Context, req *check.Request, cfg *Config) Result {
	f.calls.Add(1)
	if f.fn != nil {
		return f.fn(ctx)
	}
	return NewResult(f.id, 50, 80)
}

func newFake(id string, factor, weight int, fn func(ctx context.Context) Result) *fakeAgent {
	return &fakeAgent{id: Identity{ID: id, Name: id, FactorNumber: factor, Weight: weight}, fn: fn}
}

func testRequest() *check.Request {
	return &check.Request{Kind: check.KindText, Platform: "twitter", Text: "hello"}
}

func TestRegistryPendingQueue(t *testing.T) {
	assert := assert.New(t)
	r := NewRegistry(nil)

	assert.NoError(r.Register(newFake("b", 2, 50, nil)))
	assert.NoError(r.Register(newFake("a", 1, 50, nil)))
	assert.False(r.Initialized())
	// queued agents aren't visible yet
	assert.Empty(r.GetAll())

	assert.NoError(r.Initialize())
	assert.True(r.Initialized())
	all := r.GetAll()
	require.Len(t, all, 2)
	assert.Equal("a", all[0].Identity().ID)
	assert.Equal("b", all[1].Identity().ID)

	// second initialize is a no-op
	assert.NoError(r.Initialize())
	assert.Len(r.GetAll(), 2)

	// after init, registration is immediate
	assert.NoError(r.Register(newFake("c", 3, 0, nil)))
	assert.Len(r.GetAll(), 3)
	_, ok := r.Get("c")
	assert.True(ok)

	err := r.Register(newFake("c", 3, 0, nil))
	assert.True(errors.Is(err, ErrDuplicateAgent))
	assert.Error(r.Register(nil))
	assert.Error(r.Register(newFake("", 1, 0, nil)))
	assert.Panics(func() { r.MustRegister(newFake("a", 1, 0, nil)) })
}

func TestRegistryDuplicateInQueue(t *testing.T) {
	assert := assert.New(t)
	r := NewRegistry(nil)

	first := newFake("a", 1, 100, nil)
	r.MustRegister(first)
	r.MustRegister(newFake("a", 1, 100, nil))

	err := r.Initialize()
	assert.True(errors.Is(err, ErrDuplicateAgent))
	all := r.GetAll()
	require.Len(t, all, 1)
	assert.Same(first, all[0])
}

func TestRegistryConcurrentRegister(t *testing.T) {
	assert := assert.New(t)
	r := NewRegistry(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Register(newFake(string(rune('a'+i)), i, 5, nil))
		}()
		if i == 10 {
			assert.NoError(r.Initialize())
		}
	}
	wg.Wait()
	assert.NoError(r.Initialize())
	assert.Len(r.GetAll(), 20)
}

func TestRunAllOrderAndWeights(t *testing.T) {
	assert := assert.New(t)
	r := NewRegistry(nil)
	r.MustRegister(newFake("third", 3, 30, nil))
	r.MustRegister(newFake("first", 1, 50, nil))
	r.MustRegister(newFake("second", 2, 20, nil))
	require.NoError(t, r.Initialize())

	results := r.RunAll(context.Background(), testRequest(), DefaultConfig())
	require.Len(t, results, 3)
	assert.Equal("first", results[0].AgentID)
	assert.Equal("second", results[1].AgentID)
	assert.Equal("third", results[2].AgentID)
	assert.Equal(25.0, results[0].WeightedScore)

	cfg := DefaultConfig().WithAgentEnabled("second", false).WithWeight("third", 50)
	results = r.RunAll(context.Background(), testRequest(), cfg)
	require.Len(t, results, 2)
	assert.Equal("first", results[0].AgentID)
	assert.Equal("third", results[1].AgentID)
	assert.Equal(50, results[1].Weight)
	assert.Equal(25.0, results[1].WeightedScore)
}

func TestRunAllIsolatesFailures(t *testing.T) {
	assert := assert.New(t)
	r := NewRegistry(nil)
	r.MustRegister(newFake("ok", 1, 50, nil))
	r.MustRegister(newFake("panics", 2, 25, func(ctx context.Context) Result {
		panic("database exploded")
	}))
	r.MustRegister(newFake("errors", 3, 25, func(ctx context.Context) Result {
		return ErrorResult(Identity{ID: "errors"}, errors.New("bad input"))
	}))
	require.NoError(t, r.Initialize())

	results := r.RunAll(context.Background(), testRequest(), nil)
	require.Len(t, results, 3)

	assert.Equal(StatusComplete, results[0].Status)
	assert.Equal(50, results[0].RawScore)

	assert.Equal("panics", results[1].AgentID)
	assert.Equal(StatusError, results[1].Status)
	assert.Equal(0, results[1].Confidence)
	assert.Equal(0, results[1].RawScore)
	assert.Contains(results[1].Message, "database exploded")

	assert.Equal("errors", results[2].AgentID)
	assert.Equal(StatusError, results[2].Status)
	assert.Equal(25, results[2].Weight)
}

func TestRunAllTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)
	assert := assert.New(t)

	r := NewRegistry(nil)
	r.MustRegister(newFake("fast", 1, 50, nil))
	r.MustRegister(newFake("slow", 2, 50, func(ctx context.Context) Result {
		<-ctx.Done()
		return NewResult(Identity{ID: "slow"}, 100, 100)
	}))
	require.NoError(t, r.Initialize())

	cfg := DefaultConfig().WithAgentTimeout(20 * time.Millisecond)
	start := time.Now()
	results := r.RunAll(context.Background(), testRequest(), cfg)
	assert.Less(time.Since(start), 2*time.Second)

	require.Len(t, results, 2)
	assert.Equal(StatusComplete, results[0].Status)
	assert.Equal(StatusError, results[1].Status)
	assert.Equal(0, results[1].Confidence)
	assert.Contains(results[1].Message, ErrAgentTimeout.Error())
}

func TestRunAllCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)
	assert := assert.New(t)

	r := NewRegistry(nil)
	r.MustRegister(newFake("blocked", 1, 100, func(ctx context.Context) Result {
		<-ctx.Done()
		return ErrorResult(Identity{ID: "blocked"}, ctx.Err())
	}))
	require.NoError(t, r.Initialize())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := r.RunAll(ctx, testRequest(), nil)
	require.Len(t, results, 1)
	assert.Equal(StatusError, results[0].Status)
}

func TestRunAllEmpty(t *testing.T) {
	r := NewRegistry(nil)
	assert.Empty(t, r.RunAll(context.Background(), testRequest(), nil))
}
