package invoker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOpts(recorder *InMemoryRecorder) func(o *Options) {
	return func(o *Options) {
		o.RatePerMinute = 0 // rate limiting off unless a test opts in
		o.RetryMaxAttempts = 3
		o.RetryBaseDelay = time.Millisecond
		o.RetryMaxDelay = 4 * time.Millisecond
		o.CircuitFailureThreshold = 0
		o.CallTimeout = time.Second
		o.Recorder = recorder
	}
}

func TestInvokeSuccess(t *testing.T) {
	recorder := NewInMemoryRecorder()
	inv := New(fastOpts(recorder))

	out, err := inv.Invoke(context.Background(), "s1", "search_arxiv", map[string]any{"query": "qec"},
		func(ctx context.Context) (any, error) {
			return "results", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "results", out)

	recs := recorder.ByTool("search_arxiv")
	require.Len(t, recs, 1)
	assert.True(t, recs[0].Success)
	assert.Equal(t, 1, recs[0].Attempt)
	assert.Equal(t, "s1", recs[0].SessionID)
}

func TestInvokeRetriesTimeoutsThenSucceeds(t *testing.T) {
	recorder := NewInMemoryRecorder()
	inv := New(fastOpts(recorder))

	calls := 0
	out, err := inv.Invoke(context.Background(), "s1", "search_arxiv", nil,
		func(ctx context.Context) (any, error) {
			calls++
			if calls < 3 {
				return nil, context.DeadlineExceeded
			}
			return "late results", nil
		})
	require.NoError(t, err)
	assert.Equal(t, "late results", out)
	assert.Equal(t, 3, calls)

	// One record per attempt: two timeouts, one success.
	recs := recorder.ByTool("search_arxiv")
	require.Len(t, recs, 3)
	assert.False(t, recs[0].Success)
	assert.False(t, recs[1].Success)
	assert.True(t, recs[2].Success)
	assert.Equal(t, 3, recs[2].Attempt)
}

func TestInvokeExhaustsRetries(t *testing.T) {
	recorder := NewInMemoryRecorder()
	inv := New(fastOpts(recorder))

	calls := 0
	_, err := inv.Invoke(context.Background(), "s1", "flaky", nil,
		func(ctx context.Context) (any, error) {
			calls++
			return nil, errors.New("upstream 503")
		})
	require.Error(t, err)
	assert.Equal(t, CodeExhaustedRetries, CodeOf(err))
	assert.Equal(t, 3, calls)

	// The wrapped cause keeps the last attempt's classification.
	var te *ToolError
	require.ErrorAs(t, err, &te)
	var cause *ToolError
	require.ErrorAs(t, te.Err, &cause)
	assert.Equal(t, CodeRemote, cause.Code)
}

func TestInvokeValidationNotRetried(t *testing.T) {
	recorder := NewInMemoryRecorder()
	inv := New(fastOpts(recorder))

	calls := 0
	_, err := inv.Invoke(context.Background(), "s1", "record_citation", nil,
		func(ctx context.Context) (any, error) {
			calls++
			return nil, &ToolError{Code: CodeValidation, Tool: "record_citation", Message: "score out of range"}
		})
	require.Error(t, err)
	assert.Equal(t, CodeValidation, CodeOf(err))
	assert.Equal(t, 1, calls)
	assert.Len(t, recorder.All(), 1)
}

func TestInvokeCircuitOpensAndShortCircuits(t *testing.T) {
	recorder := NewInMemoryRecorder()
	inv := New(fastOpts(recorder), func(o *Options) {
		o.RetryMaxAttempts = 1
		o.CircuitFailureThreshold = 2
		o.CircuitCooldown = time.Hour
	})

	calls := 0
	failing := func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("down")
	}

	for i := 0; i < 2; i++ {
		_, err := inv.Invoke(context.Background(), "s1", "down_tool", nil, failing)
		require.Error(t, err)
	}
	assert.Equal(t, 2, calls)

	// Third invocation is short-circuited without contacting the dependency.
	_, err := inv.Invoke(context.Background(), "s1", "down_tool", nil, failing)
	require.Error(t, err)
	assert.Equal(t, CodeCircuitOpen, CodeOf(err))
	assert.Equal(t, 2, calls)

	// Breakers are keyed per tool: other tools still pass.
	out, err := inv.Invoke(context.Background(), "s1", "healthy_tool", nil,
		func(ctx context.Context) (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestInvokeRateLimited(t *testing.T) {
	recorder := NewInMemoryRecorder()
	inv := New(fastOpts(recorder), func(o *Options) {
		o.RatePerMinute = 1
		o.Burst = 1
		o.QueueWait = 5 * time.Millisecond
	})

	ok := func(ctx context.Context) (any, error) { return "ok", nil }

	_, err := inv.Invoke(context.Background(), "s1", "search_web", nil, ok)
	require.NoError(t, err)

	// The bucket is drained and refills far slower than the queue wait.
	_, err = inv.Invoke(context.Background(), "s1", "search_web", nil, ok)
	require.Error(t, err)
	assert.Equal(t, CodeRateLimited, CodeOf(err))

	// Rejections are recorded too.
	recs := recorder.ByTool("search_web")
	require.Len(t, recs, 2)
	assert.False(t, recs[1].Success)
}

func TestInvokeRateLimitsEachRetryAttempt(t *testing.T) {
	recorder := NewInMemoryRecorder()
	inv := New(fastOpts(recorder), func(o *Options) {
		o.RatePerMinute = 1
		o.Burst = 1
		o.QueueWait = 5 * time.Millisecond
	})

	calls := 0
	failing := func(ctx context.Context) (any, error) {
		calls++
		return nil, errors.New("upstream degraded")
	}

	// The first attempt drains the bucket; the retry must pay for its own
	// token and is rejected instead of hammering the degraded dependency.
	_, err := inv.Invoke(context.Background(), "s1", "search_web", nil, failing)
	require.Error(t, err)
	assert.Equal(t, CodeRateLimited, CodeOf(err))
	assert.Equal(t, 1, calls)

	recs := recorder.ByTool("search_web")
	require.Len(t, recs, 2)
	assert.Equal(t, 1, recs[0].Attempt)
	assert.Equal(t, 2, recs[1].Attempt)
	assert.False(t, recs[1].Success)
}

func TestInvokeHonorsCancellation(t *testing.T) {
	inv := New(fastOpts(NewInMemoryRecorder()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := inv.Invoke(ctx, "s1", "search_web", nil,
		func(ctx context.Context) (any, error) {
			return nil, ctx.Err()
		})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestToolErrorTransience(t *testing.T) {
	assert.True(t, (&ToolError{Code: CodeRateLimited}).Transient())
	assert.True(t, (&ToolError{Code: CodeCircuitOpen}).Transient())
	assert.True(t, (&ToolError{Code: CodeTimeout}).Transient())
	assert.False(t, (&ToolError{Code: CodeValidation}).Transient())
	assert.False(t, (&ToolError{Code: CodeExhaustedRetries}).Transient())
	assert.False(t, (&ToolError{Code: CodeRemote}).Transient())
}
