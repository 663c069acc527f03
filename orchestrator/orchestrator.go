package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/researchmesh/researchmesh/core"
	"github.com/researchmesh/researchmesh/executor"
	"github.com/researchmesh/researchmesh/internal/util"
	"github.com/researchmesh/researchmesh/logging"
	"github.com/researchmesh/researchmesh/registry"
	"github.com/researchmesh/researchmesh/store"
)

// correctiveContinuation re-prompts a non-terminal agent whose reply did not
// conclude the session. The step limit bounds how often this can happen.
const correctiveContinuation = "Your previous reply did not conclude the research session. " +
	"Continue working on the request: use your tools to make progress or hand off to the next agent."

// InvalidRequestError rejects a start request before a session is created.
type InvalidRequestError struct {
	Reason string
}

// Error implements the error interface.
func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Reason)
}

// ErrSessionRunning is returned by Result while the session has not reached a
// terminal state yet.
var ErrSessionRunning = errors.New("session still running")

// Request starts a research session.
type Request struct {
	// SessionID is optional; a new ID is generated when empty.
	SessionID string
	// Query is the research question driving the session.
	Query string
	// InitialAgent names the registered agent that takes the first turn.
	InitialAgent string
	// StepLimit overrides the orchestrator's configured limit when positive.
	StepLimit int
}

// FinalReport is the terminal outcome of a session.
type FinalReport struct {
	SessionID string      `json:"sessionId"`
	Status    core.Status `json:"status"`
	Reply     string      `json:"reply,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Turns     []core.Turn `json:"turns"`
}

// Options configures the Orchestrator.
type Options struct {
	// Store persists sessions at every state transition.
	Store core.SessionStore
	// Sink receives transition events.
	Sink core.EventSink
	// Logger receives orchestration telemetry.
	Logger logging.Logger
	// StepLimit is the default maximum number of turns per session.
	StepLimit int
	// TurnRetryMaxAttempts bounds consecutive transient turn failures before
	// the session fails.
	TurnRetryMaxAttempts int
	// TurnRetryBaseDelay is the first turn retry delay; doubled per attempt.
	TurnRetryBaseDelay time.Duration
	// TurnRetryMaxDelay caps the computed turn retry delay.
	TurnRetryMaxDelay time.Duration
}

// Orchestrator owns sessions and drives them one turn at a time.
type Orchestrator struct {
	executor *executor.Executor
	registry *registry.Registry
	opts     Options

	mu   sync.Mutex
	runs map[string]*Handle
}

// New creates an Orchestrator with in-memory persistence by default.
func New(exec *executor.Executor, reg *registry.Registry, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Store:                store.NewInMemorySessionStore(),
		Sink:                 core.NoOpSink{},
		Logger:               logging.NoOpLogger{},
		StepLimit:            20,
		TurnRetryMaxAttempts: 3,
		TurnRetryBaseDelay:   500 * time.Millisecond,
		TurnRetryMaxDelay:    10 * time.Second,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Orchestrator{
		executor: exec,
		registry: reg,
		opts:     opts,
		runs:     make(map[string]*Handle),
	}
}

// Start validates the request, creates and persists the session, and launches
// the drive loop. The returned handle is used to wait for or cancel the run.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*Handle, error) {
	if req.Query == "" {
		return nil, &InvalidRequestError{Reason: "query is empty"}
	}
	if _, err := o.registry.Resolve(req.InitialAgent); err != nil {
		return nil, &InvalidRequestError{Reason: fmt.Sprintf("initial agent %q is not registered", req.InitialAgent)}
	}

	id := req.SessionID
	if id == "" {
		id = util.NewID()
	}

	stepLimit := o.opts.StepLimit
	if req.StepLimit > 0 {
		stepLimit = req.StepLimit
	}

	session := core.NewSession(id, req.Query, req.InitialAgent, stepLimit)
	if err := o.opts.Store.Create(session); err != nil {
		return nil, fmt.Errorf("create session %s: %w", id, err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		sessionID: id,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	o.mu.Lock()
	o.runs[id] = h
	o.mu.Unlock()

	o.transition(session, core.StatusActive, func() error {
		return session.Activate(req.InitialAgent)
	})

	o.opts.Logger.Info("session started",
		"session_id", id, "initial_agent", req.InitialAgent, "step_limit", stepLimit)

	go o.drive(runCtx, session, h)

	return h, nil
}

// Cancel requests cancellation of a running session. It takes effect at the
// session's next suspension point and is idempotent: cancelling a finished or
// already-cancelled session is a no-op.
func (o *Orchestrator) Cancel(sessionID string) {
	o.mu.Lock()
	h, ok := o.runs[sessionID]
	o.mu.Unlock()
	if ok {
		h.Cancel()
	}
}

// Status returns the current status of a session.
func (o *Orchestrator) Status(sessionID string) (core.Status, error) {
	session, err := o.opts.Store.Get(sessionID)
	if err != nil {
		return "", err
	}
	return session.CurrentStatus(), nil
}

// Result returns the final report of a terminated session, or
// ErrSessionRunning while the session is still in flight.
func (o *Orchestrator) Result(sessionID string) (FinalReport, error) {
	session, err := o.opts.Store.Get(sessionID)
	if err != nil {
		return FinalReport{}, err
	}
	if !session.CurrentStatus().Terminal() {
		return FinalReport{}, ErrSessionRunning
	}
	return reportFor(session), nil
}

// drive runs the session loop: one turn at a time until a terminal state.
func (o *Orchestrator) drive(ctx context.Context, session *core.Session, h *Handle) {
	defer func() {
		o.mu.Lock()
		delete(o.runs, session.ID)
		o.mu.Unlock()
		h.finish(reportFor(session))
	}()

	input := session.Query
	transientFailures := 0

	for {
		if ctx.Err() != nil {
			o.abort(session)
			return
		}

		// The loop-guard fires before the over-limit turn executes.
		if session.StepLimit > 0 && session.StepCount() >= session.StepLimit {
			o.fail(session, core.ReasonStepLimitExceeded)
			return
		}

		agent := session.CurrentAgent()
		turn, err := o.executor.ExecuteTurn(ctx, executor.TurnRequest{
			SessionID: session.ID,
			Seq:       session.NextSeq(),
			Agent:     agent,
			Input:     input,
			History:   historyFromTurns(session.GetTurns()),
		})
		if err != nil {
			if ctx.Err() != nil {
				o.abort(session)
				return
			}
			o.opts.Logger.Error("turn execution failed", "session_id", session.ID, "agent", agent, "error", err.Error())
			o.fail(session, core.ReasonModelFailure)
			return
		}

		if appendErr := session.AppendTurn(turn); appendErr != nil {
			o.opts.Logger.Error("turn rejected", "session_id", session.ID, "error", appendErr.Error())
			o.fail(session, core.ReasonModelFailure)
			return
		}
		o.persist(session)

		switch turn.Output.Kind {
		case core.OutputReply:
			transientFailures = 0
			def, defErr := o.registry.Resolve(agent)
			if defErr == nil && def.Terminal {
				o.complete(session, turn.Output.Reply)
				return
			}
			// A non-terminal agent replying does not conclude the session.
			input = correctiveContinuation

		case core.OutputHandoff:
			transientFailures = 0
			o.transition(session, core.StatusActive, func() error {
				return session.Activate(turn.Output.Target)
			})
			o.opts.Logger.Info("handoff",
				"session_id", session.ID, "from_agent", agent, "to_agent", turn.Output.Target, "seq", turn.Seq)
			input = session.Query

		case core.OutputFailure:
			if !turn.Output.Transient {
				o.fail(session, turn.Output.Reason)
				return
			}
			transientFailures++
			if transientFailures >= o.opts.TurnRetryMaxAttempts {
				o.fail(session, turn.Output.Reason)
				return
			}
			delay := turnBackoff(o.opts.TurnRetryBaseDelay, o.opts.TurnRetryMaxDelay, transientFailures)
			o.opts.Logger.Warn("transient turn failure, retrying",
				"session_id", session.ID, "agent", agent, "reason", turn.Output.Reason, "delay", delay)
			select {
			case <-ctx.Done():
				o.abort(session)
				return
			case <-time.After(delay):
			}
		}
	}
}

// complete moves the session to StatusCompleted.
func (o *Orchestrator) complete(session *core.Session, reply string) {
	o.transition(session, core.StatusCompleted, func() error {
		return session.Complete(reply)
	})
	o.opts.Logger.Info("session completed", "session_id", session.ID, "steps", session.StepCount())
}

// fail moves the session to StatusFailed with a reason code.
func (o *Orchestrator) fail(session *core.Session, reason string) {
	o.transition(session, core.StatusFailed, func() error {
		return session.Fail(reason)
	})
	o.opts.Logger.Warn("session failed", "session_id", session.ID, "reason", reason, "steps", session.StepCount())
}

// abort moves the session to StatusAborted. Safe to call more than once.
func (o *Orchestrator) abort(session *core.Session) {
	from := session.CurrentStatus()
	if from.Terminal() {
		return
	}
	session.Abort()
	o.persist(session)
	o.emit(session, from, core.StatusAborted)
	o.opts.Logger.Info("session aborted", "session_id", session.ID, "steps", session.StepCount())
}

// transition applies a state mutation, persists the session, and emits the
// resulting transition event.
func (o *Orchestrator) transition(session *core.Session, to core.Status, mutate func() error) {
	from := session.CurrentStatus()
	if err := mutate(); err != nil {
		o.opts.Logger.Error("state transition rejected", "session_id", session.ID, "error", err.Error())
		return
	}
	o.persist(session)
	o.emit(session, from, to)
}

// persist saves the session. Persistence failures are logged, not fatal:
// the in-flight session remains authoritative and failures stay forward-only.
func (o *Orchestrator) persist(session *core.Session) {
	if err := o.opts.Store.Save(session); err != nil {
		o.opts.Logger.Error("session save failed", "session_id", session.ID, "error", err.Error())
	}
}

func (o *Orchestrator) emit(session *core.Session, from, to core.Status) {
	o.opts.Sink.Emit(core.TransitionEvent{
		SessionID: session.ID,
		From:      from,
		To:        to,
		Agent:     session.CurrentAgent(),
		Timestamp: time.Now(),
	})
}

// reportFor snapshots a session into its final report.
func reportFor(session *core.Session) FinalReport {
	snapshot := session.Clone()
	return FinalReport{
		SessionID: snapshot.ID,
		Status:    snapshot.Status,
		Reply:     snapshot.FinalReply,
		Reason:    snapshot.Reason,
		Turns:     snapshot.Turns,
	}
}

// historyFromTurns rebuilds the conversation history handed to the executor.
// Only turns that produced output the next agent should see are replayed;
// failed turns are kept in the audit trail but not in the conversation.
func historyFromTurns(turns []core.Turn) []core.Content {
	history := make([]core.Content, 0, len(turns)*2)
	for _, t := range turns {
		switch t.Output.Kind {
		case core.OutputReply:
			history = append(history,
				core.NewUserContent(t.Input),
				core.NewAssistantContent(t.Output.Reply))
		case core.OutputHandoff:
			history = append(history,
				core.NewUserContent(t.Input),
				core.NewAssistantContent(fmt.Sprintf("Handing off to %s.", t.Output.Target)))
		}
	}
	return history
}

// turnBackoff computes the jittered exponential delay before retrying a
// transiently failed turn.
func turnBackoff(base, max time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			delay = max
			break
		}
	}
	if max > 0 && delay > max {
		delay = max
	}

	jitter := 1 + (rand.Float64()*0.5 - 0.25)
	return time.Duration(float64(delay) * jitter)
}
