package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/researchmesh/researchmesh/core"
	"github.com/researchmesh/researchmesh/internal/util"
	"github.com/researchmesh/researchmesh/invoker"
	"github.com/researchmesh/researchmesh/logging"
	"github.com/researchmesh/researchmesh/model"
	"github.com/researchmesh/researchmesh/registry"
	"github.com/researchmesh/researchmesh/tool"
)

// modelDependency keys the model API in the invoker's rate limiter and
// circuit breaker maps. The model is an external dependency like any tool.
const modelDependency = "model"

// TurnRequest carries everything needed to execute one turn.
type TurnRequest struct {
	SessionID string
	Seq       int
	Agent     string
	Input     string
	History   []core.Content
}

// Options configures the Executor's collaborators.
type Options struct {
	Vars      core.ContextStore
	Ledger    core.Ledger
	Documents core.DocumentStore
	Logger    logging.Logger
	// ModelTimeout bounds each model completion on top of the invoker's
	// per-attempt deadline. 0 leaves the invoker's deadline in charge.
	ModelTimeout time.Duration
}

// Executor runs single turns against the model and tool set.
type Executor struct {
	registry *registry.Registry
	model    model.Model
	invoker  *invoker.Invoker
	opts     Options
}

// New creates an Executor.
func New(reg *registry.Registry, mdl model.Model, inv *invoker.Invoker, optFns ...func(o *Options)) *Executor {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Executor{
		registry: reg,
		model:    mdl,
		invoker:  inv,
		opts:     opts,
	}
}

// ExecuteTurn runs one turn for the requested agent. The returned turn's
// output is classified as a reply, a handoff, or a failure; an error is
// returned only for cancellation or requests that never should have reached
// the executor (unknown agent).
func (e *Executor) ExecuteTurn(ctx context.Context, req TurnRequest) (core.Turn, error) {
	start := time.Now()

	def, err := e.registry.Resolve(req.Agent)
	if err != nil {
		return core.Turn{}, fmt.Errorf("execute turn %d: %w", req.Seq, err)
	}

	turn := core.Turn{
		Seq:       req.Seq,
		Agent:     req.Agent,
		Input:     req.Input,
		Timestamp: start,
	}

	output, err := e.run(ctx, def, req)
	if err != nil {
		return core.Turn{}, err
	}
	turn.Output = output

	e.opts.Logger.Info("turn executed",
		"session_id", req.SessionID, "agent", req.Agent, "seq", req.Seq,
		"outcome", string(output.Kind), "duration", time.Since(start))

	return turn, nil
}

// run drives the model/tool sequence for one turn.
func (e *Executor) run(ctx context.Context, def registry.Definition, req TurnRequest) (core.TurnOutput, error) {
	entries := []core.VarEntry{}
	if e.opts.Vars != nil {
		entries = e.opts.Vars.List(req.SessionID)
	}

	instructions, err := buildInstructions(def, entries)
	if err != nil {
		return core.TurnOutput{Kind: core.OutputFailure, Reason: core.ReasonModelFailure, Detail: err.Error()}, nil
	}

	history := make([]core.Content, 0, len(req.History)+3)
	history = append(history, req.History...)
	history = append(history, core.NewUserContent(req.Input))

	modelReq := model.Request{
		Instructions: instructions,
		History:      history,
		Tools:        e.toolDefinitions(def),
	}

	resp, failure, err := e.completeModel(ctx, req.SessionID, modelReq)
	if err != nil {
		return core.TurnOutput{}, err
	}
	if failure != nil {
		return *failure, nil
	}

	call, hasCall := resp.Content.FirstFunctionCall()
	if !hasCall {
		return core.TurnOutput{Kind: core.OutputReply, Reply: resp.Content.Text()}, nil
	}

	// Handoff requests are intercepted here, never dispatched externally.
	if call.Name == tool.HandoffToolName {
		return e.classifyHandoff(def, call), nil
	}

	toolResponse, output, err := e.dispatchTool(ctx, def, req, call)
	if err != nil {
		return core.TurnOutput{}, err
	}
	if output != nil {
		return *output, nil
	}

	// Feed the structured tool result back for one bounded re-invocation.
	history = append(history, resp.Content)
	history = append(history, core.Content{
		Role:  "tool",
		Parts: []core.Part{core.FunctionResponsePart{FunctionResponse: *toolResponse}},
	})
	modelReq.History = history

	resp, failure, err = e.completeModel(ctx, req.SessionID, modelReq)
	if err != nil {
		return core.TurnOutput{}, err
	}
	if failure != nil {
		return *failure, nil
	}

	if followUp, ok := resp.Content.FirstFunctionCall(); ok {
		if followUp.Name == tool.HandoffToolName {
			return e.classifyHandoff(def, followUp), nil
		}
		// A second external tool request exceeds the per-turn budget.
		return core.TurnOutput{
			Kind:   core.OutputFailure,
			Reason: core.ReasonToolChainLimit,
			Detail: fmt.Sprintf("tool %s requested after the turn's dispatch budget was spent", followUp.Name),
		}, nil
	}

	return core.TurnOutput{Kind: core.OutputReply, Reply: resp.Content.Text()}, nil
}

// completeModel performs one model call under the invoker's protections and
// maps failures onto turn failure outputs.
func (e *Executor) completeModel(ctx context.Context, sessionID string, req model.Request) (*model.Response, *core.TurnOutput, error) {
	out, err := e.invoker.Invoke(ctx, sessionID, modelDependency, nil, func(ctx context.Context) (any, error) {
		// A dedicated model deadline classifies as Timeout, keeping it on
		// the transient retry path rather than looking like cancellation.
		if e.opts.ModelTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.opts.ModelTimeout)
			defer cancel()
		}
		return e.model.Complete(ctx, req)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("model call canceled: %w", ctx.Err())
		}

		failure := core.TurnOutput{
			Kind:      core.OutputFailure,
			Reason:    core.ReasonModelFailure,
			Detail:    err.Error(),
			Transient: isTransient(err),
		}
		return nil, &failure, nil
	}

	resp, ok := out.(*model.Response)
	if !ok || resp == nil {
		failure := core.TurnOutput{Kind: core.OutputFailure, Reason: core.ReasonModelFailure, Detail: "model returned no response"}
		return nil, &failure, nil
	}

	return resp, nil, nil
}

// dispatchTool validates and executes one tool call. It returns either the
// function response to feed back to the model, or a classified turn output
// when the call cannot proceed or the tool requested a handoff.
func (e *Executor) dispatchTool(ctx context.Context, def registry.Definition, req TurnRequest, call core.FunctionCall) (*core.FunctionResponse, *core.TurnOutput, error) {
	fail := func(reason, detail string, transient bool) (*core.FunctionResponse, *core.TurnOutput, error) {
		return nil, &core.TurnOutput{Kind: core.OutputFailure, Reason: reason, Detail: detail, Transient: transient}, nil
	}

	if !def.MayUseTool(call.Name) {
		return fail(core.ReasonToolFailure, fmt.Sprintf("tool %s not permitted for agent %s", call.Name, def.Name), false)
	}

	t, ok := e.registry.Tool(call.Name)
	if !ok {
		return fail(core.ReasonToolFailure, fmt.Sprintf("tool %s not registered", call.Name), false)
	}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return fail(core.ReasonToolFailure, fmt.Sprintf("tool %s arguments are not valid JSON: %v", call.Name, err), false)
		}
	}

	callID := call.ID
	if callID == "" {
		callID = util.NewID()
	}

	// Schema validation happens before dispatch; invalid parameters are
	// never sent to the tool. The error is fed back to the model as the
	// function response, giving it one corrective re-invocation.
	if err := util.ValidateParameters(args, t.Parameters()); err != nil {
		e.opts.Logger.Warn("tool parameters rejected", "tool", call.Name, "error", err.Error())
		detail := fmt.Sprintf("parameter validation failed: %v", err)
		return &core.FunctionResponse{
			ID:       callID,
			Name:     call.Name,
			Response: "ERROR: " + detail,
			Error:    detail,
		}, nil, nil
	}

	toolCtx := core.NewToolContext(ctx, req.SessionID, def.Name, callID, func(o *core.ToolContextOptions) {
		o.Vars = e.opts.Vars
		o.Ledger = e.opts.Ledger
		o.Documents = e.opts.Documents
		o.Logger = e.opts.Logger
	})

	result, err := e.invoker.Invoke(ctx, req.SessionID, call.Name, args, func(ctx context.Context) (any, error) {
		return t.Call(toolCtx, args)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, fmt.Errorf("tool %s canceled: %w", call.Name, ctx.Err())
		}
		return fail(core.ReasonToolFailure, err.Error(), isTransient(err))
	}

	// Tools may request a handoff through their context; validate it the
	// same way as the dedicated handoff tool.
	if target, ok := toolCtx.HandoffTarget(); ok {
		output := e.validateHandoff(def, target)
		return nil, &output, nil
	}

	return &core.FunctionResponse{
		ID:       callID,
		Name:     call.Name,
		Response: result,
	}, nil, nil
}

// classifyHandoff parses a handoff tool call and validates its target.
func (e *Executor) classifyHandoff(def registry.Definition, call core.FunctionCall) core.TurnOutput {
	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return core.TurnOutput{Kind: core.OutputFailure, Reason: core.ReasonInvalidHandoffTarget,
				Detail: fmt.Sprintf("handoff arguments are not valid JSON: %v", err)}
		}
	}

	target, _ := args["agent"].(string)
	return e.validateHandoff(def, target)
}

// validateHandoff downgrades handoffs to unknown or unpermitted targets to
// failures instead of silently accepting them.
func (e *Executor) validateHandoff(def registry.Definition, target string) core.TurnOutput {
	if target == "" {
		return core.TurnOutput{Kind: core.OutputFailure, Reason: core.ReasonInvalidHandoffTarget,
			Detail: "handoff target missing"}
	}

	if _, err := e.registry.Resolve(target); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return core.TurnOutput{Kind: core.OutputFailure, Reason: core.ReasonInvalidHandoffTarget,
				Detail: fmt.Sprintf("handoff target %s is not a registered agent", target)}
		}
		return core.TurnOutput{Kind: core.OutputFailure, Reason: core.ReasonInvalidHandoffTarget, Detail: err.Error()}
	}

	if !def.MayHandoffTo(target) {
		return core.TurnOutput{Kind: core.OutputFailure, Reason: core.ReasonInvalidHandoffTarget,
			Detail: fmt.Sprintf("agent %s may not hand off to %s", def.Name, target)}
	}

	e.opts.Logger.Info("handoff accepted", "from_agent", def.Name, "to_agent", target)

	return core.TurnOutput{Kind: core.OutputHandoff, Target: target}
}

// toolDefinitions builds the model-facing tool declarations: the agent's
// allowed tools plus the handoff tool when the agent has permitted targets.
func (e *Executor) toolDefinitions(def registry.Definition) []model.ToolDefinition {
	tools := e.registry.ToolsFor(def)

	defs := make([]model.ToolDefinition, 0, len(tools)+1)
	for _, t := range tools {
		defs = append(defs, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	if len(def.HandoffTargets) > 0 {
		if handoff, ok := e.registry.Tool(tool.HandoffToolName); ok {
			defs = append(defs, model.ToolDefinition{
				Type: "function",
				Function: model.FunctionDefinition{
					Name:        handoff.Name(),
					Description: handoff.Description(),
					Parameters:  handoff.Parameters(),
				},
			})
		}
	}

	return defs
}

// isTransient reports whether the orchestrator may retry the turn.
func isTransient(err error) bool {
	var te *invoker.ToolError
	if errors.As(err, &te) {
		return te.Transient()
	}
	return false
}
