package invoker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/researchmesh/researchmesh/core"
	"github.com/researchmesh/researchmesh/logging"
)

// CallFunc performs the actual external call under the invoker's protections.
type CallFunc func(ctx context.Context) (any, error)

// Options configures the Invoker.
type Options struct {
	// RatePerMinute is the token bucket refill rate per tool. 0 disables
	// rate limiting.
	RatePerMinute float64
	// Burst is the token bucket capacity per tool.
	Burst int
	// QueueWait bounds how long a call may queue for a rate limit token
	// before being rejected with RateLimited.
	QueueWait time.Duration
	// RetryMaxAttempts bounds the total attempts per invocation.
	RetryMaxAttempts int
	// RetryBaseDelay is the first retry delay; doubled per attempt.
	RetryBaseDelay time.Duration
	// RetryMaxDelay caps the computed retry delay.
	RetryMaxDelay time.Duration
	// CircuitFailureThreshold opens a tool's breaker after this many
	// consecutive failures. 0 disables the breaker.
	CircuitFailureThreshold int
	// CircuitCooldown is how long an open breaker short-circuits calls
	// before half-opening for a single probe.
	CircuitCooldown time.Duration
	// CallTimeout is the per-attempt deadline applied to each call.
	CallTimeout time.Duration
	// Recorder receives one ToolCallRecord per attempt.
	Recorder core.CallRecorder
	// Logger receives invocation telemetry.
	Logger logging.Logger
}

// Invoker validates, rate-limits, retries and circuit-breaks external calls.
// Limiters and breakers are keyed per tool name and shared across all
// concurrent sessions.
type Invoker struct {
	opts Options

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	breakers map[string]*circuitBreaker
}

// New creates an Invoker with safe defaults.
func New(optFns ...func(o *Options)) *Invoker {
	opts := Options{
		RatePerMinute:           60,
		Burst:                   10,
		QueueWait:               5 * time.Second,
		RetryMaxAttempts:        3,
		RetryBaseDelay:          200 * time.Millisecond,
		RetryMaxDelay:           5 * time.Second,
		CircuitFailureThreshold: 5,
		CircuitCooldown:         30 * time.Second,
		CallTimeout:             30 * time.Second,
		Logger:                  logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Invoker{
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
		breakers: make(map[string]*circuitBreaker),
	}
}

// Invoke runs call under the invoker's protections for the named tool.
// Transient failures (timeout, remote error) are retried with jittered
// exponential backoff up to the configured attempt budget; validation
// failures are returned immediately. One ToolCallRecord is emitted per
// attempt, and for rejected calls (rate limited, circuit open).
func (inv *Invoker) Invoke(ctx context.Context, sessionID, tool string, params map[string]any, call CallFunc) (any, error) {
	breaker := inv.breakerFor(tool)

	var lastErr error
	for attempt := 1; attempt <= inv.opts.RetryMaxAttempts; attempt++ {
		// Every attempt pays for a token, keeping retries of a degraded
		// dependency under the configured rate.
		if err := inv.acquireToken(ctx, tool); err != nil {
			inv.record(sessionID, tool, params, attempt, false, err, 0)
			return nil, err
		}

		if inv.opts.CircuitFailureThreshold > 0 && !breaker.allow() {
			err := &ToolError{Code: CodeCircuitOpen, Tool: tool, Message: "circuit open, call short-circuited"}
			inv.record(sessionID, tool, params, attempt, false, err, 0)
			return nil, err
		}

		attemptCtx := ctx
		var cancel context.CancelFunc
		if inv.opts.CallTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, inv.opts.CallTimeout)
		}

		start := time.Now()
		out, err := call(attemptCtx)
		latency := time.Since(start)

		if cancel != nil {
			cancel()
		}

		if err == nil {
			breaker.recordSuccess()
			inv.record(sessionID, tool, params, attempt, true, nil, latency)
			inv.opts.Logger.Debug("tool call succeeded", "tool", tool, "attempt", attempt, "latency", latency)
			return out, nil
		}

		// The parent context being done means cancellation, not a tool fault.
		if ctx.Err() != nil {
			inv.record(sessionID, tool, params, attempt, false, err, latency)
			return nil, fmt.Errorf("tool %s canceled: %w", tool, ctx.Err())
		}

		toolErr := inv.classify(tool, err)
		inv.record(sessionID, tool, params, attempt, false, toolErr, latency)

		if retryable(toolErr.Code) {
			breaker.recordFailure()
		}

		if !retryable(toolErr.Code) {
			return nil, toolErr
		}

		lastErr = toolErr
		inv.opts.Logger.Warn("tool call failed", "tool", tool, "attempt", attempt, "error", toolErr.Error())

		if attempt < inv.opts.RetryMaxAttempts {
			delay := backoffDelay(inv.opts.RetryBaseDelay, inv.opts.RetryMaxDelay, attempt)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("tool %s canceled during backoff: %w", tool, ctx.Err())
			case <-time.After(delay):
			}
		}
	}

	return nil, &ToolError{Code: CodeExhaustedRetries, Tool: tool,
		Message: fmt.Sprintf("all %d attempts failed", inv.opts.RetryMaxAttempts), Err: lastErr}
}

// acquireToken waits for a rate limit token, bounded by QueueWait.
func (inv *Invoker) acquireToken(ctx context.Context, tool string) error {
	if inv.opts.RatePerMinute <= 0 {
		return nil
	}

	limiter := inv.limiterFor(tool)

	waitCtx := ctx
	var cancel context.CancelFunc
	if inv.opts.QueueWait > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, inv.opts.QueueWait)
		defer cancel()
	}

	if err := limiter.Wait(waitCtx); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("tool %s canceled: %w", tool, ctx.Err())
		}
		return &ToolError{Code: CodeRateLimited, Tool: tool, Message: "rate limit queue wait exceeded", Err: err}
	}

	return nil
}

// classify maps an attempt error onto the failure taxonomy, preserving codes
// the tool itself reported.
func (inv *Invoker) classify(tool string, err error) *ToolError {
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ToolError{Code: CodeTimeout, Tool: tool, Err: err}
	}
	return &ToolError{Code: CodeRemote, Tool: tool, Err: err}
}

func (inv *Invoker) limiterFor(tool string) *rate.Limiter {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	limiter, ok := inv.limiters[tool]
	if !ok {
		burst := inv.opts.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(inv.opts.RatePerMinute/60.0), burst)
		inv.limiters[tool] = limiter
	}
	return limiter
}

func (inv *Invoker) breakerFor(tool string) *circuitBreaker {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	breaker, ok := inv.breakers[tool]
	if !ok {
		breaker = newCircuitBreaker(inv.opts.CircuitFailureThreshold, inv.opts.CircuitCooldown)
		inv.breakers[tool] = breaker
	}
	return breaker
}

func (inv *Invoker) record(sessionID, tool string, params map[string]any, attempt int, success bool, err error, latency time.Duration) {
	if inv.opts.Recorder == nil {
		return
	}

	rec := core.ToolCallRecord{
		SessionID:   sessionID,
		Tool:        tool,
		Params:      params,
		Attempt:     attempt,
		ValidParams: true, // schema validation happens before dispatch
		Success:     success,
		Latency:     latency,
		Timestamp:   time.Now(),
	}
	if err != nil {
		rec.Error = err.Error()
	}

	inv.opts.Recorder.Record(rec)
}
