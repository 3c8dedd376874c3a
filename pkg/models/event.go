package models

import "time"

// AgentEvent is the unified event model streamed out of a kernel run.
//
// Design principles follow the rest of the wire surface:
//   - Single Type discriminator with optional payload pointers.
//   - Monotonic Sequence for ordering within a run.
//   - Events are emitted in strict program order for a single run; two runs
//     never interleave on the same stream.
type AgentEvent struct {
	// Type identifies the kind of event.
	Type AgentEventType `json:"type"`

	// Time is when the event was emitted.
	Time time.Time `json:"time"`

	// Sequence is monotonic within a run.
	Sequence uint64 `json:"seq"`

	// RunID identifies the kernel run that emitted the event.
	RunID string `json:"run_id,omitempty"`

	// Iteration is the 0-based loop iteration the event belongs to.
	Iteration int `json:"iteration,omitempty"`

	// Exactly one payload is non-nil for a given Type; EventDone has none.
	Thinking     *ThinkingPayload     `json:"thinking,omitempty"`
	Thought      *ThoughtPayload      `json:"thought,omitempty"`
	Action       *ActionPayload       `json:"action,omitempty"`
	Observation  *ObservationPayload  `json:"observation,omitempty"`
	Evaluation   *EvaluationPayload   `json:"evaluation,omitempty"`
	Reflection   *ReflectionPayload   `json:"reflection,omitempty"`
	Text         *TextPayload         `json:"text,omitempty"`
	InputRequest *InputRequestPayload `json:"input_request,omitempty"`
	Error        *ErrorInfo           `json:"error,omitempty"`
}

// AgentEventType identifies the kind of agent event.
type AgentEventType string

const (
	// EventThinking announces that planning is in progress.
	EventThinking AgentEventType = "thinking"

	// EventThought carries the planner's reasoning for the step.
	EventThought AgentEventType = "thought"

	// EventAction is emitted just before a tool executes.
	EventAction AgentEventType = "action"

	// EventObservation carries a tool's normalized result.
	EventObservation AgentEventType = "observation"

	// EventEvaluation reports the HITL gate's decision. It is internal and
	// may be suppressed by the transport.
	EventEvaluation AgentEventType = "evaluation"

	// EventReflection carries an LLM critique of the last observation.
	EventReflection AgentEventType = "reflection"

	// EventText is a terminal assistant message.
	EventText AgentEventType = "text"

	// EventInputRequest suspends the run pending user input.
	EventInputRequest AgentEventType = "user_input_request"

	// EventError is a terminal classified failure.
	EventError AgentEventType = "error"

	// EventDone terminates every stream that ended with text or error.
	EventDone AgentEventType = "done"
)

// ThinkingPayload carries the planning status message.
type ThinkingPayload struct {
	Message string `json:"message"`
}

// ThoughtPayload carries the planner's reasoning text.
type ThoughtPayload struct {
	Content string `json:"content"`
}

// ActionPayload announces a tool invocation.
type ActionPayload struct {
	// Tool is the tool about to execute.
	Tool string `json:"tool"`

	// Message is a short human-readable description of the invocation.
	Message string `json:"message,omitempty"`
}

// ObservationPayload carries a tool result on the stream.
type ObservationPayload struct {
	// Tool is the executed tool name.
	Tool string `json:"tool"`

	// Success reports whether the tool succeeded.
	Success bool `json:"success"`

	// Result is the tool output, or the error message on failure.
	Result any `json:"result,omitempty"`

	// Attempts is how many execution attempts were made.
	Attempts int `json:"attempts,omitempty"`

	// Attachments carries media produced by the tool.
	Attachments []Attachment `json:"attachments,omitempty"`

	// Images lists URLs of generated images, when present.
	Images []string `json:"images,omitempty"`

	// VideoURL points at generated video content, when present.
	VideoURL string `json:"video_url,omitempty"`

	// VideoObjectName is the object-store key of generated video content.
	VideoObjectName string `json:"video_object_name,omitempty"`
}

// EvaluationPayload reports the gate decision.
type EvaluationPayload struct {
	NeedsInput bool   `json:"needs_input"`
	Reason     string `json:"reason,omitempty"`
}

// ReflectionPayload carries the post-observation critique.
type ReflectionPayload struct {
	Content string `json:"content"`
}

// TextPayload carries a terminal assistant message.
type TextPayload struct {
	Content string `json:"content"`
}

// InputRequestKind is the wire name for the kind of user input requested.
type InputRequestKind string

const (
	InputRequestConfirmation InputRequestKind = "confirmation"
	InputRequestSelection    InputRequestKind = "selection"
	InputRequestInput        InputRequestKind = "input"
)

// RequestKindFor maps an evaluation kind to its wire name.
func RequestKindFor(kind EvalKind) InputRequestKind {
	switch kind {
	case EvalSelect:
		return InputRequestSelection
	case EvalInput:
		return InputRequestInput
	default:
		return InputRequestConfirmation
	}
}

// InputRequestPayload asks the user to confirm, choose, or provide input.
type InputRequestPayload struct {
	// Kind is the type of input requested.
	Kind InputRequestKind `json:"kind"`

	// Question is the prompt shown to the user.
	Question string `json:"question"`

	// Options are the preset choices for selection kind, always including
	// the OptionOther and OptionCancel synthetic entries.
	Options []Option `json:"options,omitempty"`

	// DefaultValue is the suggested answer, when one exists.
	DefaultValue string `json:"default_value,omitempty"`

	// Metadata carries the suggested action and targeted parameter so the
	// client can render the pending plan.
	Metadata map[string]any `json:"metadata,omitempty"`
}
