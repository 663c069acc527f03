package orchestrator

import (
	"context"
	"fmt"
	"sync"
)

// Handle tracks one running session. It is returned by Start and stays valid
// after the session terminates.
type Handle struct {
	sessionID string
	cancel    context.CancelFunc
	done      chan struct{}

	mu     sync.Mutex
	report FinalReport
}

// SessionID returns the session this handle tracks.
func (h *Handle) SessionID() string {
	return h.sessionID
}

// Cancel requests cancellation. The session aborts at its next suspension
// point; in-flight model and tool calls drain but their results are
// discarded. Calling Cancel more than once has the same effect as once.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done returns a channel closed when the session reaches a terminal state.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the session terminates or ctx is done, and returns the
// final report.
func (h *Handle) Wait(ctx context.Context) (FinalReport, error) {
	select {
	case <-ctx.Done():
		return FinalReport{}, fmt.Errorf("wait for session %s: %w", h.sessionID, ctx.Err())
	case <-h.done:
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.report, nil
}

// finish records the final report and releases waiters.
func (h *Handle) finish(report FinalReport) {
	h.mu.Lock()
	h.report = report
	h.mu.Unlock()
	close(h.done)
}
