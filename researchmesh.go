// Package researchmesh provides a high-level façade over the research session
// engine: agent registry, turn executor, tool invoker and the orchestrating
// state machine. Most applications interact with this package by:
//  1. Creating a ResearchMesh via New() with a model, agent definitions and
//     tools (optionally overriding the default in-memory stores)
//  2. Starting sessions asynchronously (Start) or synchronously (Run)
//  3. Observing progress through transition events and the final report
//
// All defaults are safe for local development and testing; production
// deployments typically supply a durable session store and a structured
// logger.
package researchmesh

import (
	"context"
	"time"

	"github.com/researchmesh/researchmesh/citation"
	"github.com/researchmesh/researchmesh/core"
	"github.com/researchmesh/researchmesh/executor"
	"github.com/researchmesh/researchmesh/invoker"
	"github.com/researchmesh/researchmesh/logging"
	"github.com/researchmesh/researchmesh/model"
	"github.com/researchmesh/researchmesh/orchestrator"
	"github.com/researchmesh/researchmesh/registry"
	"github.com/researchmesh/researchmesh/state"
	"github.com/researchmesh/researchmesh/store"
	"github.com/researchmesh/researchmesh/tool"
)

// Options configures the ResearchMesh instance.
type Options struct {
	// Stores (default to in-memory implementations if not provided)
	SessionStore  core.SessionStore
	ContextStore  core.ContextStore
	Ledger        core.Ledger
	DocumentStore core.DocumentStore

	// Sink receives session transition events (defaults to a no-op sink).
	Sink core.EventSink

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Recorder receives one record per tool invocation attempt.
	Recorder core.CallRecorder

	// Engine limits. Zero values fall back to the component defaults.
	StepLimit               int
	RateLimitPerTool        float64
	RetryMaxAttempts        int
	RetryBaseDelay          time.Duration
	RetryMaxDelay           time.Duration
	CircuitFailureThreshold int
	CircuitCooldown         time.Duration
	ToolCallTimeout         time.Duration
	ModelCallTimeout        time.Duration
}

// ResearchMesh is the high-level façade aggregating the engine components.
type ResearchMesh struct {
	opts         Options
	registry     *registry.Registry
	orchestrator *orchestrator.Orchestrator
}

// New wires a ResearchMesh from a model, agent definitions and tools. Agent
// definitions are validated up front; a dangling handoff target or an
// unregistered tool name fails construction.
func New(mdl model.Model, agents []registry.Definition, tools []tool.Tool, optFns ...func(o *Options)) (*ResearchMesh, error) {
	opts := Options{
		SessionStore:  store.NewInMemorySessionStore(),
		ContextStore:  state.NewInMemoryStore(),
		Ledger:        citation.NewInMemoryLedger(),
		DocumentStore: store.NewInMemoryDocumentStore(),
		Sink:          core.NoOpSink{},
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	reg, err := registry.New(agents, tools)
	if err != nil {
		return nil, err
	}

	inv := invoker.New(func(o *invoker.Options) {
		if opts.RateLimitPerTool > 0 {
			o.RatePerMinute = opts.RateLimitPerTool
		}
		if opts.RetryMaxAttempts > 0 {
			o.RetryMaxAttempts = opts.RetryMaxAttempts
		}
		if opts.RetryBaseDelay > 0 {
			o.RetryBaseDelay = opts.RetryBaseDelay
		}
		if opts.RetryMaxDelay > 0 {
			o.RetryMaxDelay = opts.RetryMaxDelay
		}
		if opts.CircuitFailureThreshold > 0 {
			o.CircuitFailureThreshold = opts.CircuitFailureThreshold
		}
		if opts.CircuitCooldown > 0 {
			o.CircuitCooldown = opts.CircuitCooldown
		}
		if opts.ToolCallTimeout > 0 {
			o.CallTimeout = opts.ToolCallTimeout
		}
		o.Recorder = opts.Recorder
		o.Logger = opts.Logger
	})

	exec := executor.New(reg, mdl, inv, func(o *executor.Options) {
		o.Vars = opts.ContextStore
		o.Ledger = opts.Ledger
		o.Documents = opts.DocumentStore
		o.Logger = opts.Logger
		o.ModelTimeout = opts.ModelCallTimeout
	})

	orch := orchestrator.New(exec, reg, func(o *orchestrator.Options) {
		o.Store = opts.SessionStore
		o.Sink = opts.Sink
		o.Logger = opts.Logger
		if opts.StepLimit > 0 {
			o.StepLimit = opts.StepLimit
		}
		if opts.RetryMaxAttempts > 0 {
			o.TurnRetryMaxAttempts = opts.RetryMaxAttempts
		}
		if opts.RetryBaseDelay > 0 {
			o.TurnRetryBaseDelay = opts.RetryBaseDelay
		}
		if opts.RetryMaxDelay > 0 {
			o.TurnRetryMaxDelay = opts.RetryMaxDelay
		}
	})

	return &ResearchMesh{opts: opts, registry: reg, orchestrator: orch}, nil
}

// NewFromConfig builds a ResearchMesh from a loaded engine configuration.
// The configuration's agents and limits are applied; optFns may still
// override stores, sink and logger.
func NewFromConfig(mdl model.Model, cfg *registry.EngineConfig, tools []tool.Tool, optFns ...func(o *Options)) (*ResearchMesh, error) {
	fromConfig := func(o *Options) {
		o.StepLimit = cfg.StepLimit
		o.RateLimitPerTool = cfg.RateLimitPerTool
		o.RetryMaxAttempts = cfg.RetryMaxAttempts
		o.RetryBaseDelay = cfg.RetryBaseDelay.Std()
		o.RetryMaxDelay = cfg.RetryMaxDelay.Std()
		o.CircuitFailureThreshold = cfg.CircuitFailureThreshold
		o.CircuitCooldown = cfg.CircuitCooldown.Std()
		o.ToolCallTimeout = cfg.ToolCallTimeout.Std()
		o.ModelCallTimeout = cfg.ModelCallTimeout.Std()
	}
	return New(mdl, cfg.Agents, tools, append([]func(o *Options){fromConfig}, optFns...)...)
}

// Start launches a research session asynchronously and returns its handle.
func (m *ResearchMesh) Start(ctx context.Context, req orchestrator.Request) (*orchestrator.Handle, error) {
	return m.orchestrator.Start(ctx, req)
}

// Run is a synchronous helper: it starts the session and blocks until it
// reaches a terminal state, returning the final report.
func (m *ResearchMesh) Run(ctx context.Context, req orchestrator.Request) (orchestrator.FinalReport, error) {
	h, err := m.orchestrator.Start(ctx, req)
	if err != nil {
		return orchestrator.FinalReport{}, err
	}
	return h.Wait(ctx)
}

// Cancel requests cancellation of a running session. Idempotent.
func (m *ResearchMesh) Cancel(sessionID string) {
	m.orchestrator.Cancel(sessionID)
}

// Status returns the current status of a session.
func (m *ResearchMesh) Status(sessionID string) (core.Status, error) {
	return m.orchestrator.Status(sessionID)
}

// Result returns the final report of a terminated session.
func (m *ResearchMesh) Result(sessionID string) (orchestrator.FinalReport, error) {
	return m.orchestrator.Result(sessionID)
}

// Registry exposes the validated agent registry.
func (m *ResearchMesh) Registry() *registry.Registry {
	return m.registry
}
