package core

import "time"

// OutputKind classifies what a completed turn produced.
type OutputKind string

const (
	// OutputReply is a textual answer from the acting agent.
	OutputReply OutputKind = "reply"
	// OutputHandoff is a request to transfer the session to another agent.
	OutputHandoff OutputKind = "handoff"
	// OutputFailure is a turn that could not produce a usable result.
	OutputFailure OutputKind = "failure"
)

// Failure reason codes surfaced on turns and final reports.
const (
	ReasonStepLimitExceeded    = "StepLimitExceeded"
	ReasonInvalidHandoffTarget = "InvalidHandoffTarget"
	ReasonToolChainLimit       = "ToolChainLimit"
	ReasonToolFailure          = "ToolFailure"
	ReasonModelFailure         = "ModelFailure"
	ReasonCanceled             = "Canceled"
)

// TurnOutput is the classified result of executing one turn.
type TurnOutput struct {
	Kind OutputKind `json:"kind"`
	// Reply holds the agent's answer text when Kind == OutputReply.
	Reply string `json:"reply,omitempty"`
	// Target names the next agent when Kind == OutputHandoff.
	Target string `json:"target,omitempty"`
	// Reason carries a failure reason code when Kind == OutputFailure.
	Reason string `json:"reason,omitempty"`
	// Detail optionally elaborates the failure for humans.
	Detail string `json:"detail,omitempty"`
	// Transient marks failures the orchestrator may retry (rate limits,
	// open circuits, timeouts). Fatal failures leave it false.
	Transient bool `json:"transient,omitempty"`
}

// Turn is one request/response cycle executed by exactly one active agent.
// Turns are immutable once recorded and appended in strict sequence order.
type Turn struct {
	Seq       int        `json:"seq"`
	Agent     string     `json:"agent"`
	Input     string     `json:"input"`
	Output    TurnOutput `json:"output"`
	Timestamp time.Time  `json:"timestamp"`
}
